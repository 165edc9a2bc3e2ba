//go:build integration
// +build integration

package test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/kvauth"
)

func TestStoreConsistencyDeleteUserIsIdempotent(t *testing.T) {
	connector, store, cleanup := miniredisStatic(t)
	defer cleanup()

	adapter, err := kvauth.New().WithConnector(connector).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer adapter.Close()
	ctx := context.Background()

	u, err := adapter.CreateUser(ctx, kvauth.User{Email: "i@example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := adapter.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := adapter.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("second delete: %v", err)
	}

	left, err := store.Keys(ctx, "")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(left) != 0 {
		t.Fatalf("expected empty keyspace, got %v", left)
	}
}

func TestStoreConsistencySessionIndexPointsAtStoredSession(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			connector, _, cleanup := b.setup(t)
			defer cleanup()

			adapter, err := kvauth.New().WithConnector(connector).Build()
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			defer adapter.Close()
			ctx := context.Background()

			u, err := adapter.CreateUser(ctx, kvauth.User{})
			if err != nil {
				t.Fatalf("create user: %v", err)
			}

			const writers = 16
			var wg sync.WaitGroup
			wg.Add(writers)
			for i := 0; i < writers; i++ {
				go func(i int) {
					defer wg.Done()
					_, _ = adapter.CreateSession(ctx, kvauth.Session{
						SessionToken: fmt.Sprintf("tok-%d", i),
						UserID:       u.ID,
						Expires:      time.Now().Add(time.Hour),
					})
				}(i)
			}
			wg.Wait()

			// The index holds one session. DeleteUser must purge exactly that one
			// and leave the user unreachable through every remaining session.
			if err := adapter.DeleteUser(ctx, u.ID); err != nil {
				t.Fatalf("delete user: %v", err)
			}
			for i := 0; i < writers; i++ {
				su, err := adapter.GetSessionAndUser(ctx, fmt.Sprintf("tok-%d", i))
				if err != nil {
					t.Fatalf("get session %d: %v", i, err)
				}
				if su != nil {
					t.Fatalf("session %d still resolves to a user", i)
				}
			}
		})
	}
}

func TestStoreConsistencyBasePrefixIsolatesTenants(t *testing.T) {
	connector, store, cleanup := miniredisStatic(t)
	defer cleanup()
	ctx := context.Background()

	build := func(base string) *kvauth.Adapter {
		cfg := kvauth.DefaultConfig()
		cfg.KeyPrefixes.BaseKeyPrefix = base
		a, err := kvauth.New().WithConfig(cfg).WithConnector(connector).Build()
		if err != nil {
			t.Fatalf("build %s: %v", base, err)
		}
		return a
	}
	tenantA := build("a.")
	defer tenantA.Close()
	tenantB := build("b.")
	defer tenantB.Close()

	if _, err := tenantA.CreateUser(ctx, kvauth.User{Email: "shared@example.com"}); err != nil {
		t.Fatalf("create in a: %v", err)
	}
	if got, err := tenantB.GetUserByEmail(ctx, "shared@example.com"); err != nil || got != nil {
		t.Fatalf("tenant b sees tenant a user: %+v err=%v", got, err)
	}

	keysA, err := store.Keys(ctx, "a.")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	keysB, err := store.Keys(ctx, "b.")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keysA) != 2 || len(keysB) != 0 {
		t.Fatalf("unexpected keys a=%v b=%v", keysA, keysB)
	}
}
