// Package keys derives namespaced storage keys from natural identifiers.
//
// A key is a prefix followed by one or more sanitized identifier parts joined with
// [Separator]. Sanitization escapes the characters the KV key grammar reserves.
// The escape is not reversible: "a@b" and "a_at_b" derive the same segment.
package keys

import (
	"strings"
)

const (
	// Separator joins identifier parts inside a key.
	Separator = "."

	atEscape    = "_at_"
	colonEscape = "_colon_"
)

var sanitizer = strings.NewReplacer("@", atEscape, ":", colonEscape)

// Sanitize escapes every '@' and ':' in part.
func Sanitize(part string) string {
	return sanitizer.Replace(part)
}

// Derive returns prefix followed by the sanitized parts joined with Separator.
func Derive(prefix string, parts ...string) string {
	var b strings.Builder
	n := len(prefix)
	for _, p := range parts {
		n += len(p) + len(Separator)
	}
	b.Grow(n)
	b.WriteString(prefix)
	for i, p := range parts {
		if i > 0 {
			b.WriteString(Separator)
		}
		b.WriteString(Sanitize(p))
	}
	return b.String()
}

// Prefixes are the effective (base-qualified) prefixes for every record kind.
type Prefixes struct {
	Account           string
	AccountByUser     string
	Email             string
	Session           string
	SessionByUser     string
	User              string
	VerificationToken string
}

// Layout maps natural identities onto keys.
type Layout struct {
	p Prefixes
}

// NewLayout qualifies each specific prefix with base.
func NewLayout(base string, specific Prefixes) Layout {
	return Layout{p: Prefixes{
		Account:           base + specific.Account,
		AccountByUser:     base + specific.AccountByUser,
		Email:             base + specific.Email,
		Session:           base + specific.Session,
		SessionByUser:     base + specific.SessionByUser,
		User:              base + specific.User,
		VerificationToken: base + specific.VerificationToken,
	}}
}

// Prefixes returns the effective prefixes.
func (l Layout) Prefixes() Prefixes { return l.p }

func (l Layout) User(id string) string { return Derive(l.p.User, id) }

func (l Layout) Email(email string) string { return Derive(l.p.Email, email) }

func (l Layout) Account(provider, providerAccountID string) string {
	return Derive(l.p.Account, provider, providerAccountID)
}

func (l Layout) AccountByUser(userID string) string { return Derive(l.p.AccountByUser, userID) }

func (l Layout) Session(token string) string { return Derive(l.p.Session, token) }

func (l Layout) SessionByUser(userID string) string { return Derive(l.p.SessionByUser, userID) }

func (l Layout) VerificationToken(identifier, token string) string {
	return Derive(l.p.VerificationToken, identifier, token)
}
