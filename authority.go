package catalogAuth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/catalogAuth/internal"
	"github.com/MrEthical07/catalogAuth/internal/audit"
	"github.com/MrEthical07/catalogAuth/internal/rate"
	"github.com/MrEthical07/catalogAuth/jwt"
	"github.com/MrEthical07/catalogAuth/password"
	"github.com/MrEthical07/catalogAuth/session"
	"go.uber.org/zap"
)

// SessionStore persists session bindings. *session.Store is the Redis
// implementation; Get must return session.ErrNotFound for unknown ids and
// Delete must be idempotent.
type SessionStore interface {
	Save(ctx context.Context, b *session.Binding) error
	Get(ctx context.Context, sessionID string) (*session.Binding, error)
	Delete(ctx context.Context, userID, sessionID string) error
	DeleteAllForUser(ctx context.Context, userID, keepSessionID string) (int, error)
	Ping(ctx context.Context) error
}

// Authority is the credential and session authority. It is safe for
// concurrent use after Build.
type Authority struct {
	config Config

	directory UserDirectory
	sessions  SessionStore
	tokens    *jwt.Manager
	hasher    *password.Hasher
	limiter   *rate.Limiter

	// dummyRecord is verified against on unknown-username logins so that
	// they cost the same KDF run as a wrong password.
	dummyRecord string

	audit   *audit.Dispatcher
	metrics *Metrics
	logger  *zap.Logger
}

// Login authenticates username/password and binds a new session.
//
// Failure order: throttle, unknown user (ErrInvalidCredentials), inactive
// account (ErrAccountInactive, checked before the password), wrong password
// (ErrInvalidCredentials). There is exactly one verification path for every
// username.
func (a *Authority) Login(ctx context.Context, req LoginRequest) (*SessionResult, error) {
	ip := clientIPFromContext(ctx)
	username := normalizeUsername(req.Username)

	if err := a.limiter.CheckLogin(ctx, username, ip); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			a.metrics.Inc(MetricLoginRateLimited)
			a.emitAudit(ctx, auditEventLoginRateLimited, username, ErrLoginRateLimited)
			return nil, ErrLoginRateLimited
		}
		return nil, a.internal("login throttle check", err)
	}

	user, err := a.directory.GetUserByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return nil, a.internal("directory lookup", err)
		}
		a.verify(req.Password, a.dummyRecord)
		a.loginFailed(ctx, username, ip, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		a.metrics.Inc(MetricLoginInactive)
		a.emitAudit(ctx, auditEventLoginFailure, username, ErrAccountInactive)
		return nil, ErrAccountInactive
	}

	if !a.verify(req.Password, user.PasswordHash) {
		a.loginFailed(ctx, username, ip, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	if err := a.limiter.ResetLogin(ctx, username); err != nil {
		a.logger.Warn("reset login throttle failed", zap.Error(err))
	}
	a.upgradeRecord(ctx, user, req.Password)

	res, err := a.bind(ctx, user)
	if err != nil {
		a.emitAudit(ctx, auditEventLoginFailure, username, err)
		return nil, err
	}

	a.metrics.Inc(MetricLoginSuccess)
	a.emitAudit(ctx, auditEventLoginSuccess, user.Username, nil)
	return res, nil
}

func (a *Authority) loginFailed(ctx context.Context, username, ip string, err error) {
	a.metrics.Inc(MetricLoginFailure)
	if incErr := a.limiter.IncrementLogin(ctx, username, ip); incErr != nil {
		a.logger.Warn("record failed login failed", zap.Error(incErr))
	}
	a.emitAudit(ctx, auditEventLoginFailure, username, err)
}

// upgradeRecord re-hashes a verified password whose stored record no longer
// has the current shape. Failures are logged; the login still succeeds.
func (a *Authority) upgradeRecord(ctx context.Context, user User, plain string) {
	if !a.hasher.NeedsRehash(user.PasswordHash) {
		return
	}
	hash, err := a.hasher.Hash(plain)
	if err != nil {
		a.logger.Warn("rehash password failed", zap.Error(err))
		return
	}
	if err := a.directory.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		a.logger.Warn("store rehashed password failed", zap.Error(err))
	}
}

// Register creates a self-service account with role user and binds a
// session to it.
func (a *Authority) Register(ctx context.Context, req RegisterRequest) (*SessionResult, error) {
	username := normalizeUsername(req.Username)

	user, err := a.createUser(ctx, NewUser{
		Username:     username,
		Email:        strings.TrimSpace(req.Email),
		DisplayName:  req.DisplayName,
		Organization: req.Organization,
		Role:         RoleUser,
		IsActive:     true,
	}, req.Password)
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			a.metrics.Inc(MetricRegisterDuplicate)
		}
		a.emitAudit(ctx, auditEventRegisterFailure, username, err)
		return nil, err
	}

	res, err := a.bind(ctx, user)
	if err != nil {
		a.emitAudit(ctx, auditEventRegisterFailure, username, err)
		return nil, err
	}

	a.metrics.Inc(MetricRegisterSuccess)
	a.emitAudit(ctx, auditEventRegisterSuccess, username, nil)
	return res, nil
}

// Logout destroys the binding named by token. It succeeds for a missing,
// malformed or already revoked token, and returns only after the store
// delete has completed.
func (a *Authority) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := a.tokens.Parse(token)
	if err != nil {
		return nil
	}

	if err := a.sessions.Delete(ctx, claims.Subject, claims.SID); err != nil {
		return a.internal("session delete", err)
	}

	a.metrics.Inc(MetricLogout)
	a.metrics.Inc(MetricSessionInvalidated)
	a.emitAudit(ctx, auditEventLogout, a.usernameOf(ctx, claims.Subject), nil)
	return nil
}

// CurrentUser resolves token to the bound user.
func (a *Authority) CurrentUser(ctx context.Context, token string) (PublicUser, error) {
	p, err := a.Authenticate(ctx, token)
	if err != nil {
		return PublicUser{}, err
	}
	return p.User, nil
}

// Authenticate resolves a session token to a Principal. Unknown, expired or
// forged tokens, bindings to deleted users and bindings to deactivated users
// all yield ErrNotAuthenticated; the latter two also drop the binding.
func (a *Authority) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, ErrNotAuthenticated
	}
	claims, err := a.tokens.Parse(token)
	if err != nil {
		return nil, ErrNotAuthenticated
	}

	binding, err := a.sessions.Get(ctx, claims.SID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, a.internal("session lookup", err)
	}
	if binding.UserID != claims.Subject {
		return nil, ErrNotAuthenticated
	}

	user, err := a.directory.GetUserByID(ctx, binding.UserID)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return nil, a.internal("directory lookup", err)
		}
		a.dropBinding(ctx, binding)
		return nil, ErrNotAuthenticated
	}
	if !user.IsActive {
		a.dropBinding(ctx, binding)
		return nil, ErrNotAuthenticated
	}

	return &Principal{User: Sanitize(user), SessionID: binding.SessionID}, nil
}

// Ping reports whether the session store is reachable.
func (a *Authority) Ping(ctx context.Context) error {
	return a.sessions.Ping(ctx)
}

// MetricsSnapshot returns a copy of the in-process counters.
func (a *Authority) MetricsSnapshot() MetricsSnapshot {
	return a.metrics.Snapshot()
}

// Close flushes and stops the audit dispatcher.
func (a *Authority) Close() {
	if a == nil {
		return
	}
	a.audit.Close()
}

// bind replaces any binding the caller already holds with a new one for user.
func (a *Authority) bind(ctx context.Context, user User) (*SessionResult, error) {
	if prev := sessionTokenFromContext(ctx); prev != "" {
		if claims, err := a.tokens.Parse(prev); err == nil {
			if err := a.sessions.Delete(ctx, claims.Subject, claims.SID); err != nil {
				return nil, a.internal("previous session delete", err)
			}
			a.metrics.Inc(MetricSessionInvalidated)
		}
	}

	sid, err := internal.NewSessionID()
	if err != nil {
		return nil, a.internal("session id", err)
	}

	now := time.Now()
	expiresAt := now.Add(a.config.Session.Lifetime)
	binding := &session.Binding{
		SessionID: sid.String(),
		UserID:    user.ID,
		CreatedAt: now.Unix(),
		ExpiresAt: expiresAt.Unix(),
	}
	if err := a.sessions.Save(ctx, binding); err != nil {
		return nil, a.internal("session save", err)
	}

	token, err := a.tokens.Issue(user.ID, binding.SessionID, time.Unix(binding.ExpiresAt, 0))
	if err != nil {
		_ = a.sessions.Delete(ctx, user.ID, binding.SessionID)
		return nil, a.internal("token issue", err)
	}

	a.metrics.Inc(MetricSessionCreated)
	return &SessionResult{
		User:      Sanitize(user),
		Token:     token,
		ExpiresAt: time.Unix(binding.ExpiresAt, 0),
	}, nil
}

func (a *Authority) dropBinding(ctx context.Context, b *session.Binding) {
	if err := a.sessions.Delete(ctx, b.UserID, b.SessionID); err != nil {
		a.logger.Warn("drop stale session failed", zap.Error(err))
		return
	}
	a.metrics.Inc(MetricSessionInvalidated)
}

func (a *Authority) verify(plain, record string) bool {
	start := time.Now()
	ok := a.hasher.Verify(plain, record)
	a.metrics.Observe(MetricVerifyLatency, time.Since(start))
	return ok
}

func (a *Authority) usernameOf(ctx context.Context, userID string) string {
	user, err := a.directory.GetUserByID(ctx, userID)
	if err != nil {
		return ""
	}
	return user.Username
}

// internal logs err and returns it wrapped in ErrInternal. Callers pass only
// infrastructure errors here, never anything derived from a credential.
func (a *Authority) internal(op string, err error) error {
	a.logger.Error("internal failure", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%w: %s", ErrInternal, op)
}
