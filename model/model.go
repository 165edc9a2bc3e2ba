package model

import (
	"time"
)

// User is the primary identity record. ID is generated by the adapter on create.
type User struct {
	ID            string     `json:"id"`
	Name          string     `json:"name,omitempty"`
	Email         string     `json:"email,omitempty"`
	Image         string     `json:"image,omitempty"`
	EmailVerified *time.Time `json:"emailVerified,omitempty"`
}

// AccountType mirrors the provider kinds Auth.js distinguishes.
type AccountType string

const (
	// AccountOAuth is an OAuth 2 provider account.
	AccountOAuth AccountType = "oauth"
	// AccountOIDC is an OpenID Connect provider account.
	AccountOIDC AccountType = "oidc"
	// AccountEmail is a passwordless email account.
	AccountEmail AccountType = "email"
	// AccountWebAuthn is a passkey account.
	AccountWebAuthn AccountType = "webauthn"
)

// Account links a provider identity to a user.
type Account struct {
	ID                string      `json:"id,omitempty"`
	UserID            string      `json:"userId"`
	Type              AccountType `json:"type,omitempty"`
	Provider          string      `json:"provider"`
	ProviderAccountID string      `json:"providerAccountId"`
	RefreshToken      string      `json:"refresh_token,omitempty"`
	AccessToken       string      `json:"access_token,omitempty"`
	ExpiresAt         int64       `json:"expires_at,omitempty"`
	TokenType         string      `json:"token_type,omitempty"`
	Scope             string      `json:"scope,omitempty"`
	IDToken           string      `json:"id_token,omitempty"`
	SessionState      string      `json:"session_state,omitempty"`
}

// Ref returns the natural identity of the account.
func (a Account) Ref() AccountRef {
	return AccountRef{Provider: a.Provider, ProviderAccountID: a.ProviderAccountID}
}

// AccountRef is the natural identity of an Account.
type AccountRef struct {
	Provider          string
	ProviderAccountID string
}

// Valid reports whether both halves of the identity are set.
func (r AccountRef) Valid() bool {
	return r.Provider != "" && r.ProviderAccountID != ""
}

// ID is the composite identifier stored in Account.ID.
func (r AccountRef) ID() string {
	return r.Provider + "." + r.ProviderAccountID
}

// Session is a server-side session keyed by its opaque token.
type Session struct {
	SessionToken string    `json:"sessionToken"`
	UserID       string    `json:"userId,omitempty"`
	Expires      time.Time `json:"expires,omitzero"`
}

// SessionAndUser is the join returned by session lookups.
type SessionAndUser struct {
	Session *Session `json:"session"`
	User    *User    `json:"user"`
}

// VerificationToken is a single-use token issued for passwordless sign-in.
// Expiry is checked by the caller; consumption happens on first use.
type VerificationToken struct {
	Identifier string    `json:"identifier"`
	Token      string    `json:"token"`
	Expires    time.Time `json:"expires"`
}

// Expired reports whether the token is past its expiry at now.
func (t VerificationToken) Expired(now time.Time) bool {
	return !t.Expires.After(now)
}
