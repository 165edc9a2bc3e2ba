package kvauth

import (
	"context"

	"github.com/MrEthical07/kvauth/internal/repository"
)

// CreateSession stores s under its token and points the owner's session index at
// it. Any session previously indexed for the user stays stored but unindexed.
//
//	Performance: 2 store writes.
func (a *Adapter) CreateSession(ctx context.Context, s Session) (*Session, error) {
	if s.SessionToken == "" {
		return nil, ErrSessionTokenRequired
	}

	var out *Session
	err := a.withRepo(ctx, "create_session", func(repo *repository.Repository) error {
		var err error
		out, err = repo.SetSession(ctx, s.SessionToken, &s)
		return err
	})
	if err != nil {
		return nil, err
	}

	a.metricInc(MetricSessionCreated)
	return out, nil
}

// GetSessionAndUser returns the session with token and its owner, or nil when
// either is missing. The two reads are not atomic: a concurrent DeleteUser between
// them yields nil, the same as an expired session.
//
//	Performance: 2 store reads.
func (a *Adapter) GetSessionAndUser(ctx context.Context, token string) (*SessionAndUser, error) {
	if token == "" {
		return nil, nil
	}

	var out *SessionAndUser
	err := a.withRepo(ctx, "get_session_and_user", func(repo *repository.Repository) error {
		sess, err := repo.GetSession(ctx, token)
		if err != nil || sess == nil {
			return err
		}
		user, err := repo.GetUser(ctx, sess.UserID)
		if err != nil || user == nil {
			return err
		}
		out = &SessionAndUser{Session: sess, User: user}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		a.metricInc(MetricLookupMiss)
	}
	return out, nil
}

// UpdateSession merges the non-empty fields of s over the stored session with the
// same token and saves it. Returns nil when the session does not exist.
//
//	Performance: 1 read + 2 writes.
func (a *Adapter) UpdateSession(ctx context.Context, s Session) (*Session, error) {
	if s.SessionToken == "" {
		return nil, ErrSessionTokenRequired
	}

	var out *Session
	err := a.withRepo(ctx, "update_session", func(repo *repository.Repository) error {
		stored, err := repo.GetSession(ctx, s.SessionToken)
		if err != nil || stored == nil {
			return err
		}

		var merged Session
		if err := mergeRecords(stored, &s, &merged); err != nil {
			return err
		}
		out, err = repo.SetSession(ctx, s.SessionToken, &merged)
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		a.metricInc(MetricLookupMiss)
		return nil, nil
	}

	a.metricInc(MetricSessionUpdated)
	return out, nil
}

// DeleteSession purges the session with token. The owner's session index entry is
// left in place; lookups through it find nothing and DeleteUser purges it.
//
//	Performance: 1 store purge.
func (a *Adapter) DeleteSession(ctx context.Context, token string) error {
	if token == "" {
		return ErrSessionTokenRequired
	}

	err := a.withRepo(ctx, "delete_session", func(repo *repository.Repository) error {
		return repo.Purge(ctx, repo.Keys().Session(token))
	})
	if err == nil {
		a.metricInc(MetricSessionDeleted)
	}
	a.emitAudit(ctx, auditEventSessionDeleted, "", err, nil)
	return err
}
