//go:build integration
// +build integration

package test

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/kvauth"
)

func TestBackendCompatibility(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			connector, store, cleanup := b.setup(t)
			defer cleanup()

			adapter, err := kvauth.New().WithConnector(connector).Build()
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			defer adapter.Close()
			ctx := context.Background()

			verified := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
			u, err := adapter.CreateUser(ctx, kvauth.User{Email: "a@example.com", EmailVerified: &verified})
			if err != nil {
				t.Fatalf("create user: %v", err)
			}

			got, err := adapter.GetUserByEmail(ctx, "a@example.com")
			if err != nil || got == nil || got.ID != u.ID {
				t.Fatalf("get by email: %+v err=%v", got, err)
			}
			if got.EmailVerified == nil || !got.EmailVerified.Equal(verified) {
				t.Fatalf("emailVerified not rehydrated: %v", got.EmailVerified)
			}

			ref := kvauth.AccountRef{Provider: "github", ProviderAccountID: "42"}
			if _, err := adapter.LinkAccount(ctx, kvauth.Account{
				UserID:            u.ID,
				Type:              kvauth.AccountTypeOAuth,
				Provider:          ref.Provider,
				ProviderAccountID: ref.ProviderAccountID,
			}); err != nil {
				t.Fatalf("link: %v", err)
			}
			if byAcct, err := adapter.GetUserByAccount(ctx, ref); err != nil || byAcct == nil || byAcct.ID != u.ID {
				t.Fatalf("get by account: %+v err=%v", byAcct, err)
			}

			expires := time.Now().Add(time.Hour).UTC().Truncate(time.Millisecond)
			if _, err := adapter.CreateSession(ctx, kvauth.Session{SessionToken: "tok1", UserID: u.ID, Expires: expires}); err != nil {
				t.Fatalf("create session: %v", err)
			}
			su, err := adapter.GetSessionAndUser(ctx, "tok1")
			if err != nil || su == nil || su.User.ID != u.ID || !su.Session.Expires.Equal(expires) {
				t.Fatalf("get session and user: %+v err=%v", su, err)
			}

			if _, err := adapter.CreateVerificationToken(ctx, kvauth.VerificationToken{
				Identifier: "a@example.com",
				Token:      "vt",
				Expires:    expires,
			}); err != nil {
				t.Fatalf("create token: %v", err)
			}
			if vt, err := adapter.UseVerificationToken(ctx, "a@example.com", "vt"); err != nil || vt == nil {
				t.Fatalf("first use: %+v err=%v", vt, err)
			}
			if vt, err := adapter.UseVerificationToken(ctx, "a@example.com", "vt"); err != nil || vt != nil {
				t.Fatalf("second use: %+v err=%v", vt, err)
			}

			if err := adapter.DeleteUser(ctx, u.ID); err != nil {
				t.Fatalf("delete user: %v", err)
			}
			if got, err := adapter.GetUser(ctx, u.ID); err != nil || got != nil {
				t.Fatalf("user after delete: %+v err=%v", got, err)
			}
			if su, err := adapter.GetSessionAndUser(ctx, "tok1"); err != nil || su != nil {
				t.Fatalf("session after delete: %+v err=%v", su, err)
			}

			left, err := store.Keys(ctx, "user.")
			if err != nil {
				t.Fatalf("keys: %v", err)
			}
			if len(left) != 0 {
				t.Fatalf("expected empty keyspace, got %v", left)
			}
		})
	}
}
