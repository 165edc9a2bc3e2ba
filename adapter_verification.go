package kvauth

import (
	"context"
	"strconv"

	"github.com/MrEthical07/kvauth/internal/repository"
)

// CreateVerificationToken stores vt under (identifier, token).
//
//	Performance: 1 store write.
func (a *Adapter) CreateVerificationToken(ctx context.Context, vt VerificationToken) (*VerificationToken, error) {
	if vt.Identifier == "" || vt.Token == "" {
		return nil, ErrVerificationTokenInvalid
	}

	var out *VerificationToken
	err := a.withRepo(ctx, "create_verification_token", func(repo *repository.Repository) error {
		var err error
		out, err = repo.SetVerificationToken(ctx, &vt)
		return err
	})
	if err != nil {
		return nil, err
	}

	a.metricInc(MetricVerificationTokenCreated)
	return out, nil
}

// UseVerificationToken returns the token stored under (identifier, token) and
// purges it, whether or not it has expired. A second call returns nil. Callers
// must check Expires themselves.
//
// If the purge fails the token is not returned, so a token is never handed out
// while it can still be used again.
//
//	Performance: 1 read + 1 purge.
func (a *Adapter) UseVerificationToken(ctx context.Context, identifier, token string) (*VerificationToken, error) {
	if identifier == "" || token == "" {
		return nil, nil
	}

	var out *VerificationToken
	err := a.withRepo(ctx, "use_verification_token", func(repo *repository.Repository) error {
		vt, err := repo.GetVerificationToken(ctx, identifier, token)
		if err != nil || vt == nil {
			return err
		}
		if err := repo.Purge(ctx, repo.Keys().VerificationToken(identifier, token)); err != nil {
			return err
		}
		out = vt
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		a.metricInc(MetricVerificationTokenMissing)
		return nil, nil
	}

	a.metricInc(MetricVerificationTokenUsed)
	expired := out.Expired(a.now())
	a.emitAudit(ctx, auditEventVerificationTokenUsed, "", nil, func() map[string]string {
		return map[string]string{"expired": strconv.FormatBool(expired)}
	})
	return out, nil
}
