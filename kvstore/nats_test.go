package kvstore

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

func runJetStreamServer(t *testing.T) *server.Server {
	t.Helper()
	srv, err := server.NewServer(&server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
		NoLog:     true,
		NoSigs:    true,
	})
	if err != nil {
		t.Fatalf("nats server: %v", err)
	}
	go srv.Start()
	if !srv.ReadyForConnections(5 * time.Second) {
		srv.Shutdown()
		t.Fatal("nats server not ready")
	}
	t.Cleanup(srv.Shutdown)
	return srv
}

func TestNATSStoreRoundTrip(t *testing.T) {
	srv := runJetStreamServer(t)
	ctx := context.Background()

	nc, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer nc.Close()

	kv, err := OpenNATSBucket(ctx, nc, "authKV")
	if err != nil {
		t.Fatalf("open bucket: %v", err)
	}
	store := NewNATSStore(kv)

	if err := store.Put(ctx, "testApp.user.u1", []byte(`{"id":"u1"}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(ctx, "testApp.user.u2", []byte(`{"id":"u2"}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	entry, err := store.Get(ctx, "testApp.user.u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if entry.String() != `{"id":"u1"}` || entry.Revision == 0 {
		t.Fatalf("unexpected entry %+v", entry)
	}

	keys, err := store.Keys(ctx, "testApp.user.")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "testApp.user.u1" {
		t.Fatalf("unexpected keys %v", keys)
	}

	if err := store.Purge(ctx, "testApp.user.u1"); err != nil {
		t.Fatalf("purge: %v", err)
	}
	entry, err = store.Get(ctx, "testApp.user.u1")
	if err != nil {
		t.Fatalf("get after purge: %v", err)
	}
	if entry != nil {
		t.Fatalf("expected purged key to be absent, got %+v", entry)
	}
}

func TestNATSDialerReleasesConnection(t *testing.T) {
	srv := runJetStreamServer(t)
	ctx := context.Background()

	nc, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := OpenNATSBucket(ctx, nc, "authKV"); err != nil {
		t.Fatalf("open bucket: %v", err)
	}
	nc.Close()

	dialer := NewNATSDialer(srv.ClientURL(), "authKV")
	for i := 0; i < 3; i++ {
		store, release, err := dialer.Acquire(ctx)
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		if err := store.Put(ctx, "k", []byte("v")); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
		if err := release(); err != nil {
			t.Fatalf("release %d: %v", i, err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for srv.NumClients() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected all dialer connections closed, %d open", srv.NumClients())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestNATSDialerMissingBucket(t *testing.T) {
	srv := runJetStreamServer(t)

	dialer := NewNATSDialer(srv.ClientURL(), "missing")
	if _, _, err := dialer.Acquire(context.Background()); err == nil {
		t.Fatal("expected error for missing bucket")
	}
	deadline := time.Now().Add(2 * time.Second)
	for srv.NumClients() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected failed acquire to close its connection")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestNATSStoreClassifiesInvalidKey(t *testing.T) {
	srv := runJetStreamServer(t)
	ctx := context.Background()

	nc, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer nc.Close()

	kv, err := OpenNATSBucket(ctx, nc, "authKV")
	if err != nil {
		t.Fatalf("open bucket: %v", err)
	}
	store := NewNATSStore(kv)

	key := "user.email.a+tag_at_example.com"
	if err := store.Put(ctx, key, []byte("u1")); !errors.Is(err, ErrInvalidKey) || errors.Is(err, ErrUnavailable) {
		t.Fatalf("put: expected ErrInvalidKey only, got %v", err)
	}
	if _, err := store.Get(ctx, key); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("get: expected ErrInvalidKey, got %v", err)
	}
	if err := store.Purge(ctx, key); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("purge: expected ErrInvalidKey, got %v", err)
	}
}
