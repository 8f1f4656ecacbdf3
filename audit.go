package catalogAuth

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/MrEthical07/catalogAuth/internal/audit"
	"go.uber.org/zap"
)

// AuditEvent is a credential-free audit record: event kind, username,
// outcome and timestamp.
type AuditEvent = audit.Event

// AuditSink receives audit events.
type AuditSink = audit.Sink

// NoOpSink drops audit events.
type NoOpSink = audit.NoOpSink

// ChannelSink buffers audit events in a channel, mostly for tests.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes audit events as JSON lines.
type JSONWriterSink = audit.JSONWriterSink

// ZapSink writes audit events through a zap logger.
type ZapSink = audit.ZapSink

func NewChannelSink(buffer int) *ChannelSink { return audit.NewChannelSink(buffer) }

func NewJSONWriterSink(w io.Writer) *JSONWriterSink { return audit.NewJSONWriterSink(w) }

func NewZapSink(logger *zap.Logger) *ZapSink { return audit.NewZapSink(logger) }

const (
	auditEventLoginSuccess     = "login_success"
	auditEventLoginFailure     = "login_failure"
	auditEventLoginRateLimited = "login_rate_limited"
	auditEventRegisterSuccess  = "register_success"
	auditEventRegisterFailure  = "register_failure"
	auditEventLogout           = "logout"
	auditEventUserCreated      = "user_created"
	auditEventRoleChanged      = "role_changed"
	auditEventStatusChanged    = "status_changed"
	auditEventPasswordChanged  = "password_changed"
	auditEventAccessDenied     = "access_denied"
)

// AuditOutcome is the fixed vocabulary of audit outcomes.
type AuditOutcome string

const (
	auditOutcomeInvalidCredentials AuditOutcome = "invalid_credentials"
	auditOutcomeAccountInactive    AuditOutcome = "account_inactive"
	auditOutcomeUsernameTaken      AuditOutcome = "username_taken"
	auditOutcomeInvalidRequest     AuditOutcome = "invalid_request"
	auditOutcomeNotAuthenticated   AuditOutcome = "not_authenticated"
	auditOutcomeForbidden          AuditOutcome = "forbidden"
	auditOutcomeRateLimited        AuditOutcome = "rate_limited"
	auditOutcomeUserNotFound       AuditOutcome = "user_not_found"
	auditOutcomeInternal           AuditOutcome = "internal_error"
)

// auditOutcome maps an error to its audit code. Free-form error text is
// never recorded.
func auditOutcome(err error) AuditOutcome {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return auditOutcomeInvalidCredentials
	case errors.Is(err, ErrAccountInactive):
		return auditOutcomeAccountInactive
	case errors.Is(err, ErrUsernameTaken):
		return auditOutcomeUsernameTaken
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrInvalidRole):
		return auditOutcomeInvalidRequest
	case errors.Is(err, ErrNotAuthenticated):
		return auditOutcomeNotAuthenticated
	case errors.Is(err, ErrForbidden):
		return auditOutcomeForbidden
	case errors.Is(err, ErrLoginRateLimited):
		return auditOutcomeRateLimited
	case errors.Is(err, ErrUserNotFound):
		return auditOutcomeUserNotFound
	default:
		return auditOutcomeInternal
	}
}

func (a *Authority) emitAudit(ctx context.Context, eventType, username string, err error) {
	if a == nil || a.audit == nil {
		return
	}
	a.audit.Emit(ctx, AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Username:  username,
		Success:   err == nil,
		Outcome:   string(auditOutcome(err)),
	})
}

// AuditDropped reports events dropped by the async dispatcher.
func (a *Authority) AuditDropped() uint64 {
	if a == nil {
		return 0
	}
	return a.audit.Dropped()
}
