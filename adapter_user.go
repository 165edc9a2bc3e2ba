package kvauth

import (
	"context"

	"github.com/MrEthical07/kvauth/internal/codec"
	"github.com/MrEthical07/kvauth/internal/repository"
)

// CreateUser stores u under a freshly generated id and indexes its email.
// Any ID already set on u is replaced.
//
//	Performance: 2 store writes.
func (a *Adapter) CreateUser(ctx context.Context, u User) (*User, error) {
	u.ID = a.newID()

	var out *User
	err := a.withRepo(ctx, "create_user", func(repo *repository.Repository) error {
		var err error
		out, err = repo.SetUser(ctx, u.ID, &u)
		return err
	})
	if err != nil {
		return nil, err
	}

	a.metricInc(MetricUserCreated)
	a.emitAudit(ctx, auditEventUserCreated, out.ID, nil, nil)
	return out, nil
}

// GetUser returns the user with id, or nil when there is none.
//
//	Performance: 1 store read.
func (a *Adapter) GetUser(ctx context.Context, id string) (*User, error) {
	if id == "" {
		return nil, nil
	}
	var out *User
	err := a.withRepo(ctx, "get_user", func(repo *repository.Repository) error {
		var err error
		out, err = repo.GetUser(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		a.metricInc(MetricLookupMiss)
	}
	return out, nil
}

// GetUserByEmail resolves the email index and returns the user it points at.
//
//	Performance: 2 store reads.
func (a *Adapter) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	if email == "" {
		return nil, nil
	}
	var out *User
	err := a.withRepo(ctx, "get_user_by_email", func(repo *repository.Repository) error {
		id, err := repo.UserIDByEmail(ctx, email)
		if err != nil || id == "" {
			return err
		}
		out, err = repo.GetUser(ctx, id)
		if err == nil && out == nil {
			a.danglingIndex(ctx, "email", id)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		a.metricInc(MetricLookupMiss)
	}
	return out, nil
}

// GetUserByAccount resolves the account by provider identity and returns its owner.
//
//	Performance: 2 store reads.
func (a *Adapter) GetUserByAccount(ctx context.Context, ref AccountRef) (*User, error) {
	if !ref.Valid() {
		return nil, nil
	}
	var out *User
	err := a.withRepo(ctx, "get_user_by_account", func(repo *repository.Repository) error {
		acct, err := repo.GetAccount(ctx, ref)
		if err != nil || acct == nil {
			return err
		}
		out, err = repo.GetUser(ctx, acct.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		a.metricInc(MetricLookupMiss)
	}
	return out, nil
}

// UpdateUser merges the non-empty fields of u over the stored user with u.ID and
// saves the result. The email index is rewritten on every update; when the email
// changed, the old index entry is purged if it still points at this user.
// Returns nil when the user does not exist.
//
//	Performance: 1 read + 2 writes; 2 more operations when the email changed.
func (a *Adapter) UpdateUser(ctx context.Context, u User) (*User, error) {
	if u.ID == "" {
		return nil, ErrUserIDRequired
	}

	var out *User
	err := a.withRepo(ctx, "update_user", func(repo *repository.Repository) error {
		stored, err := repo.GetUser(ctx, u.ID)
		if err != nil || stored == nil {
			return err
		}

		var merged User
		if err := mergeRecords(stored, &u, &merged); err != nil {
			return err
		}
		merged.ID = stored.ID

		if out, err = repo.SetUser(ctx, merged.ID, &merged); err != nil {
			return err
		}

		if stored.Email == "" || stored.Email == merged.Email {
			return nil
		}
		owner, err := repo.UserIDByEmail(ctx, stored.Email)
		if err != nil {
			return err
		}
		if owner == merged.ID {
			return repo.Purge(ctx, repo.Keys().Email(stored.Email))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		a.metricInc(MetricLookupMiss)
		return nil, nil
	}

	a.metricInc(MetricUserUpdated)
	return out, nil
}

// mergeRecords overlays the encoded fields of update on the encoded fields of base
// and decodes the result into out. Fields omitted from update's encoding keep the
// base value.
func mergeRecords(base, update, out any) error {
	baseDoc, err := codec.ToDocument(base)
	if err != nil {
		return err
	}
	updateDoc, err := codec.ToDocument(update)
	if err != nil {
		return err
	}
	return codec.Into(codec.Merge(baseDoc, updateDoc), out)
}
