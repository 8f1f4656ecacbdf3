package catalogAuth

import (
	"errors"

	"github.com/MrEthical07/catalogAuth/password"
)

var (
	// ErrUsernameTaken is returned by Register and CreateUser when the username already exists.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidCredentials is returned by Login for an unknown username or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountInactive is returned by Login when the account is deactivated.
	ErrAccountInactive = errors.New("account is inactive")
	// ErrNotAuthenticated is returned when no live session binding resolves to a user.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrForbidden is returned by RequireRole when the user's role is not allowed.
	ErrForbidden = errors.New("insufficient permissions")
	// ErrMalformedCredentialRecord marks a stored credential that cannot be parsed.
	// Verification treats it as a plain mismatch; it never escapes Login.
	ErrMalformedCredentialRecord = password.ErrMalformedRecord
	// ErrInternal wraps unexpected lower-level failures (random source, directory, session store).
	ErrInternal = errors.New("internal error")

	// ErrInvalidRequest is returned for missing or out-of-policy input fields.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidRole is returned when a role string is not admin, uploader or user.
	ErrInvalidRole = errors.New("invalid role")
	// ErrUserNotFound is returned by directories and admin operations for unknown user ids.
	ErrUserNotFound = errors.New("user not found")
	// ErrLoginRateLimited is returned by Login when the failed-attempt budget is exhausted.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrInvalidConfig wraps Config.Validate failures.
	ErrInvalidConfig = errors.New("invalid config")
)
