package kvauth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/kvauth/internal/repository"
	"github.com/MrEthical07/kvauth/kvstore"
)

var (
	// ErrStoreRequired is returned by Build when neither a store nor a connector is set.
	ErrStoreRequired = errors.New("store or connector required")
	// ErrUserIDRequired is returned when an operation needs a user id and got none.
	ErrUserIDRequired = errors.New("user id required")
	// ErrSessionTokenRequired is returned when a session write has no token.
	ErrSessionTokenRequired = errors.New("session token required")
	// ErrAccountRefInvalid is returned when provider, provider account id, or owning user is missing.
	ErrAccountRefInvalid = errors.New("account provider, provider account id and user id required")
	// ErrVerificationTokenInvalid is returned when identifier or token is missing.
	ErrVerificationTokenInvalid = errors.New("verification token identifier and token required")
	// ErrCorruptRecord is returned when a stored record cannot be decoded.
	ErrCorruptRecord = repository.ErrCorruptRecord
	// ErrStoreUnavailable wraps failures reported by the store client.
	ErrStoreUnavailable = kvstore.ErrUnavailable
	// ErrInvalidKey is returned when the backend's key grammar rejects a derived key,
	// such as an email containing '+' on NATS JetStream.
	ErrInvalidKey = kvstore.ErrInvalidKey
)

// CascadeError reports a DeleteUser cascade that stopped part way. Steps listed in
// Completed were purged; Step and every step after it were not. Nothing is rolled
// back, so the store may hold orphaned index entries or an orphaned account or
// session record until the cascade is run again.
type CascadeError struct {
	UserID    string
	Step      string
	Key       string
	Completed []string
	Attempts  int
	Err       error
}

func (e *CascadeError) Error() string {
	return fmt.Sprintf(
		"delete user %s: cascade stopped at %s after [%s] (%d attempts): %v",
		e.UserID, e.Step, strings.Join(e.Completed, ","), e.Attempts, e.Err,
	)
}

func (e *CascadeError) Unwrap() error { return e.Err }
