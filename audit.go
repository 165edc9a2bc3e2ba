package kvauth

import (
	"context"
	"errors"

	"github.com/MrEthical07/kvauth/internal/audit"
)

// AuditEvent is one audit record emitted for a destructive or identity-changing
// operation.
type AuditEvent = audit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpSink discards events.
type NoOpSink = audit.NoOpSink

// ChannelSink forwards events into a buffered channel.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = audit.JSONWriterSink

var (
	// NewChannelSink returns a ChannelSink with the given buffer.
	NewChannelSink = audit.NewChannelSink
	// NewJSONWriterSink returns a sink writing JSON lines to w.
	NewJSONWriterSink = audit.NewJSONWriterSink
)

const (
	auditEventUserCreated           = "user_created"
	auditEventUserDeleted           = "user_deleted"
	auditEventAccountLinked         = "account_linked"
	auditEventAccountUnlinked       = "account_unlinked"
	auditEventSessionDeleted        = "session_deleted"
	auditEventVerificationTokenUsed = "verification_token_used"
)

// AuditErrorCode classifies a failed operation in an AuditEvent.
type AuditErrorCode string

const (
	auditErrUnavailable       AuditErrorCode = "backend_unavailable"
	auditErrCascadeIncomplete AuditErrorCode = "cascade_incomplete"
	auditErrCorruptRecord     AuditErrorCode = "corrupt_record"
	auditErrInvalidKey        AuditErrorCode = "invalid_key"
	auditErrInternal          AuditErrorCode = "internal_error"
)

func (a *Adapter) emitAudit(
	ctx context.Context,
	eventType string,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if a == nil || a.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: a.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Success:   err == nil,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}
	a.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}
	var cascade *CascadeError
	switch {
	case errors.As(err, &cascade):
		return auditErrCascadeIncomplete
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	case errors.Is(err, ErrCorruptRecord):
		return auditErrCorruptRecord
	case errors.Is(err, ErrInvalidKey):
		return auditErrInvalidKey
	default:
		return auditErrInternal
	}
}
