// Package repository stores each record kind under its derived primary key and
// keeps the secondary indexes pointing at them.
//
// # Write order
//
// Every set writes the primary record first and the index entry second. A crash in
// between leaves a record without an index (invisible to index lookups) rather than
// an index pointing at nothing. Sets are unconditional overwrites.
//
// # Index cardinality
//
// The user-id indexes hold a single key: one account and one session per user.
// Linking a second account or opening a second session repoints the index at the
// newest record; the older record stays reachable by its own natural identity only.
//
// # What this package must NOT do
//
//   - Import kvauth.
//   - Issue store calls concurrently within one method.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/kvauth/internal/codec"
	"github.com/MrEthical07/kvauth/internal/keys"
	"github.com/MrEthical07/kvauth/kvstore"
	"github.com/MrEthical07/kvauth/model"
)

// ErrCorruptRecord is returned when a stored primary record cannot be decoded.
var ErrCorruptRecord = errors.New("corrupt record")

// Repository binds a store connection to a key layout.
type Repository struct {
	store kvstore.Store
	keys  keys.Layout
}

// New returns a Repository over store.
func New(store kvstore.Store, layout keys.Layout) *Repository {
	return &Repository{store: store, keys: layout}
}

// Keys returns the layout used to derive keys.
func (r *Repository) Keys() keys.Layout { return r.keys }

func (r *Repository) getRecord(ctx context.Context, key string, out any) (bool, error) {
	entry, err := r.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if entry.Len() == 0 {
		return false, nil
	}
	if err := codec.DecodeInto(entry.Value, out); err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrCorruptRecord, key, err)
	}
	return true, nil
}

func (r *Repository) putRecord(ctx context.Context, key string, v any) error {
	data, err := codec.Encode(v)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, key, data)
}

// getPointer reads an index entry. Absent entries yield "".
func (r *Repository) getPointer(ctx context.Context, key string) (string, error) {
	entry, err := r.store.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return entry.String(), nil
}

func (r *Repository) putPointer(ctx context.Context, key, target string) error {
	return r.store.Put(ctx, key, []byte(target))
}

// Purge removes key. Missing keys are not an error.
func (r *Repository) Purge(ctx context.Context, key string) error {
	return r.store.Purge(ctx, key)
}

// GetUser loads the user stored under id.
//
//	Performance: 1 store read.
func (r *Repository) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	ok, err := r.getRecord(ctx, r.keys.User(id), &u)
	if err != nil || !ok {
		return nil, err
	}
	return &u, nil
}

// SetUser writes u under id, then points the email index at id.
// Users without an email get no index entry.
//
//	Performance: 2 store writes (1 without email).
func (r *Repository) SetUser(ctx context.Context, id string, u *model.User) (*model.User, error) {
	if err := r.putRecord(ctx, r.keys.User(id), u); err != nil {
		return nil, err
	}
	if u.Email != "" {
		if err := r.putPointer(ctx, r.keys.Email(u.Email), id); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// UserIDByEmail resolves the email index. Returns "" when absent.
func (r *Repository) UserIDByEmail(ctx context.Context, email string) (string, error) {
	return r.getPointer(ctx, r.keys.Email(email))
}

// GetAccount loads an account by its natural identity.
func (r *Repository) GetAccount(ctx context.Context, ref model.AccountRef) (*model.Account, error) {
	return r.GetAccountByKey(ctx, r.keys.Account(ref.Provider, ref.ProviderAccountID))
}

// GetAccountByKey loads an account from an already derived key, as held by the
// user-id index.
func (r *Repository) GetAccountByKey(ctx context.Context, key string) (*model.Account, error) {
	var a model.Account
	ok, err := r.getRecord(ctx, key, &a)
	if err != nil || !ok {
		return nil, err
	}
	return &a, nil
}

// SetAccount writes a, then points the user-id index at its key.
//
//	Performance: 2 store writes.
func (r *Repository) SetAccount(ctx context.Context, a *model.Account) (*model.Account, error) {
	key := r.keys.Account(a.Provider, a.ProviderAccountID)
	if err := r.putRecord(ctx, key, a); err != nil {
		return nil, err
	}
	if err := r.putPointer(ctx, r.keys.AccountByUser(a.UserID), key); err != nil {
		return nil, err
	}
	return a, nil
}

// AccountKeyByUser resolves the user-id → account-key index. Returns "" when absent.
func (r *Repository) AccountKeyByUser(ctx context.Context, userID string) (string, error) {
	return r.getPointer(ctx, r.keys.AccountByUser(userID))
}

// GetSession loads a session by token.
func (r *Repository) GetSession(ctx context.Context, token string) (*model.Session, error) {
	return r.GetSessionByKey(ctx, r.keys.Session(token))
}

// GetSessionByKey loads a session from an already derived key.
func (r *Repository) GetSessionByKey(ctx context.Context, key string) (*model.Session, error) {
	var s model.Session
	ok, err := r.getRecord(ctx, key, &s)
	if err != nil || !ok {
		return nil, err
	}
	return &s, nil
}

// SetSession writes s under token, then points the user-id index at its key.
//
//	Performance: 2 store writes.
func (r *Repository) SetSession(ctx context.Context, token string, s *model.Session) (*model.Session, error) {
	key := r.keys.Session(token)
	if err := r.putRecord(ctx, key, s); err != nil {
		return nil, err
	}
	if err := r.putPointer(ctx, r.keys.SessionByUser(s.UserID), key); err != nil {
		return nil, err
	}
	return s, nil
}

// SessionKeyByUser resolves the user-id → session-key index. Returns "" when absent.
func (r *Repository) SessionKeyByUser(ctx context.Context, userID string) (string, error) {
	return r.getPointer(ctx, r.keys.SessionByUser(userID))
}

// GetVerificationToken loads a token by (identifier, token).
func (r *Repository) GetVerificationToken(ctx context.Context, identifier, token string) (*model.VerificationToken, error) {
	var vt model.VerificationToken
	ok, err := r.getRecord(ctx, r.keys.VerificationToken(identifier, token), &vt)
	if err != nil || !ok {
		return nil, err
	}
	return &vt, nil
}

// SetVerificationToken writes vt. There is no index.
func (r *Repository) SetVerificationToken(ctx context.Context, vt *model.VerificationToken) (*model.VerificationToken, error) {
	if err := r.putRecord(ctx, r.keys.VerificationToken(vt.Identifier, vt.Token), vt); err != nil {
		return nil, err
	}
	return vt, nil
}
