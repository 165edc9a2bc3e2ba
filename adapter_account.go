package kvauth

import (
	"context"

	"github.com/MrEthical07/kvauth/internal/repository"
)

// LinkAccount stores acct under its provider identity and points the owner's
// account index at it. acct.ID is set to "provider.providerAccountId".
//
//	Performance: 2 store writes.
func (a *Adapter) LinkAccount(ctx context.Context, acct Account) (*Account, error) {
	ref := acct.Ref()
	if !ref.Valid() || acct.UserID == "" {
		return nil, ErrAccountRefInvalid
	}
	acct.ID = ref.ID()

	var out *Account
	err := a.withRepo(ctx, "link_account", func(repo *repository.Repository) error {
		var err error
		out, err = repo.SetAccount(ctx, &acct)
		return err
	})
	if err != nil {
		return nil, err
	}

	a.metricInc(MetricAccountLinked)
	a.emitAudit(ctx, auditEventAccountLinked, acct.UserID, nil, func() map[string]string {
		return map[string]string{"provider": acct.Provider}
	})
	return out, nil
}

// UnlinkAccount purges the account with ref, then its owner's account index entry
// if that entry still points at this account. Unlinking an unknown account is a
// no-op.
//
//	Performance: 2 reads + up to 2 purges.
func (a *Adapter) UnlinkAccount(ctx context.Context, ref AccountRef) error {
	if !ref.Valid() {
		return ErrAccountRefInvalid
	}

	var userID string
	err := a.withRepo(ctx, "unlink_account", func(repo *repository.Repository) error {
		acct, err := repo.GetAccount(ctx, ref)
		if err != nil || acct == nil {
			return err
		}
		userID = acct.UserID

		key := repo.Keys().Account(ref.Provider, ref.ProviderAccountID)
		if err := repo.Purge(ctx, key); err != nil {
			return err
		}

		indexed, err := repo.AccountKeyByUser(ctx, acct.UserID)
		if err != nil {
			return err
		}
		if indexed != key {
			return nil
		}
		return repo.Purge(ctx, repo.Keys().AccountByUser(acct.UserID))
	})
	if userID == "" && err == nil {
		return nil
	}

	if err == nil {
		a.metricInc(MetricAccountUnlinked)
	}
	a.emitAudit(ctx, auditEventAccountUnlinked, userID, err, func() map[string]string {
		return map[string]string{"provider": ref.Provider}
	})
	return err
}
