package catalogAuth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// CreateUser provisions an account on behalf of an administrator. Unlike
// Register it binds no session and may assign any role.
func (a *Authority) CreateUser(ctx context.Context, req CreateUserRequest) (PublicUser, error) {
	if !req.Role.Valid() {
		return PublicUser{}, ErrInvalidRole
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	username := normalizeUsername(req.Username)
	user, err := a.createUser(ctx, NewUser{
		Username:     username,
		Email:        strings.TrimSpace(req.Email),
		DisplayName:  req.DisplayName,
		Organization: req.Organization,
		Role:         req.Role,
		IsActive:     active,
	}, req.Password)
	if err != nil {
		a.emitAudit(ctx, auditEventUserCreated, username, err)
		return PublicUser{}, err
	}

	a.metrics.Inc(MetricUserCreated)
	a.emitAudit(ctx, auditEventUserCreated, username, nil)
	return Sanitize(user), nil
}

// createUser validates the input, hashes plain and stores the record.
func (a *Authority) createUser(ctx context.Context, in NewUser, plain string) (User, error) {
	if in.Username == "" || in.Email == "" {
		return User{}, fmt.Errorf("%w: username and email are required", ErrInvalidRequest)
	}
	if err := a.checkPasswordPolicy(plain); err != nil {
		return User{}, err
	}

	hash, err := a.hasher.Hash(plain)
	if err != nil {
		return User{}, a.internal("password hash", err)
	}
	in.PasswordHash = hash

	user, err := a.directory.CreateUser(ctx, in)
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return User{}, ErrUsernameTaken
		}
		return User{}, a.internal("directory create", err)
	}
	return user, nil
}

func (a *Authority) checkPasswordPolicy(plain string) error {
	n := utf8.RuneCountInString(plain)
	if n < a.config.Password.MinLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidRequest, a.config.Password.MinLength)
	}
	if n > a.config.Password.MaxLength {
		return fmt.Errorf("%w: password must be at most %d characters", ErrInvalidRequest, a.config.Password.MaxLength)
	}
	return nil
}

// ListUsers returns every account as a summary, ordered by username.
func (a *Authority) ListUsers(ctx context.Context) ([]UserSummary, error) {
	users, err := a.directory.ListUsers(ctx)
	if err != nil {
		return nil, a.internal("directory list", err)
	}

	out := make([]UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, Summarize(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// SetUserRole changes the role of user id. Existing sessions pick up the new
// role on their next request since Authenticate reloads the user.
func (a *Authority) SetUserRole(ctx context.Context, id string, role Role) (PublicUser, error) {
	if !role.Valid() {
		return PublicUser{}, ErrInvalidRole
	}

	user, err := a.directory.UpdateRole(ctx, id, role)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			a.emitAudit(ctx, auditEventRoleChanged, "", ErrUserNotFound)
			return PublicUser{}, ErrUserNotFound
		}
		return PublicUser{}, a.internal("directory update role", err)
	}

	a.emitAudit(ctx, auditEventRoleChanged, user.Username, nil)
	return Sanitize(user), nil
}

// SetUserActive activates or deactivates user id. Deactivation revokes every
// binding of the user.
func (a *Authority) SetUserActive(ctx context.Context, id string, active bool) (PublicUser, error) {
	user, err := a.directory.UpdateActive(ctx, id, active)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			a.emitAudit(ctx, auditEventStatusChanged, "", ErrUserNotFound)
			return PublicUser{}, ErrUserNotFound
		}
		return PublicUser{}, a.internal("directory update status", err)
	}

	if !active {
		n, err := a.sessions.DeleteAllForUser(ctx, user.ID, "")
		if err != nil {
			return PublicUser{}, a.internal("revoke sessions", err)
		}
		for i := 0; i < n; i++ {
			a.metrics.Inc(MetricSessionInvalidated)
		}
	}

	a.metrics.Inc(MetricUserStatusChanged)
	a.emitAudit(ctx, auditEventStatusChanged, user.Username, nil)
	return Sanitize(user), nil
}

// ChangePassword replaces the password of the user bound to token after
// checking current. Every other binding of the user is revoked; the
// caller's own session stays valid.
func (a *Authority) ChangePassword(ctx context.Context, token, current, next string) error {
	p, err := a.Authenticate(ctx, token)
	if err != nil {
		return err
	}

	user, err := a.directory.GetUserByID(ctx, p.User.ID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrNotAuthenticated
		}
		return a.internal("directory lookup", err)
	}

	if !a.verify(current, user.PasswordHash) {
		a.metrics.Inc(MetricPasswordChangeInvalidOld)
		a.emitAudit(ctx, auditEventPasswordChanged, user.Username, ErrInvalidCredentials)
		return ErrInvalidCredentials
	}
	if err := a.checkPasswordPolicy(next); err != nil {
		a.emitAudit(ctx, auditEventPasswordChanged, user.Username, err)
		return err
	}

	hash, err := a.hasher.Hash(next)
	if err != nil {
		return a.internal("password hash", err)
	}
	if err := a.directory.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrNotAuthenticated
		}
		return a.internal("directory update password", err)
	}

	n, err := a.sessions.DeleteAllForUser(ctx, user.ID, p.SessionID)
	if err != nil {
		return a.internal("revoke sessions", err)
	}
	for i := 0; i < n; i++ {
		a.metrics.Inc(MetricSessionInvalidated)
	}

	a.metrics.Inc(MetricPasswordChangeSuccess)
	a.emitAudit(ctx, auditEventPasswordChanged, user.Username, nil)
	return nil
}

// EnsureAdmin creates an active admin account named username unless one with
// that name already exists. It reports whether an account was created. An
// existing account is left untouched whatever its role.
func (a *Authority) EnsureAdmin(ctx context.Context, username, plain, email string) (bool, error) {
	username = normalizeUsername(username)
	if username == "" {
		return false, fmt.Errorf("%w: admin username required", ErrInvalidRequest)
	}

	_, err := a.directory.GetUserByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return false, a.internal("directory lookup", err)
	}

	active := true
	_, err = a.CreateUser(ctx, CreateUserRequest{
		Username: username,
		Password: plain,
		Email:    email,
		Role:     RoleAdmin,
		IsActive: &active,
	})
	if errors.Is(err, ErrUsernameTaken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
