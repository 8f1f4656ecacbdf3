package catalogAuth

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Role is the coarse permission tag of a user. The zero value is RoleUser.
type Role uint8

const (
	// RoleUser is the default role of self-registered accounts.
	RoleUser Role = iota
	// RoleUploader may upload datasets.
	RoleUploader
	// RoleAdmin may manage users.
	RoleAdmin
)

// ParseRole maps the wire form of a role to a Role. The empty string is
// RoleUser; any other unknown value is ErrInvalidRole.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "user":
		return RoleUser, nil
	case "uploader":
		return RoleUploader, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return RoleUser, fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleUploader:
		return "uploader"
	default:
		return "user"
	}
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	return r <= RoleAdmin
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRole, r)
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Value stores the role as its string form.
func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRole, r)
	}
	return r.String(), nil
}

// Scan reads a role stored by Value. NULL scans as RoleUser.
func (r *Role) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*r = RoleUser
		return nil
	case string:
		return r.UnmarshalText([]byte(v))
	case []byte:
		return r.UnmarshalText(v)
	default:
		return fmt.Errorf("%w: unsupported scan type %T", ErrInvalidRole, src)
	}
}

// User is the directory record of an account, credential included. It never
// leaves the authority; see Sanitize.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Email        string
	DisplayName  *string
	Organization *string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the credential-free view of a User returned to callers.
type PublicUser struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	DisplayName  *string   `json:"displayName,omitempty"`
	Organization *string   `json:"organization,omitempty"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UserSummary is the admin listing shape.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// NewUser is what the authority hands a UserDirectory to persist. The
// password is already hashed.
type NewUser struct {
	Username     string
	PasswordHash string
	Email        string
	DisplayName  *string
	Organization *string
	Role         Role
	IsActive     bool
}

// LoginRequest carries login form fields.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest carries self-registration fields.
type RegisterRequest struct {
	Username     string  `json:"username"`
	Password     string  `json:"password"`
	Email        string  `json:"email"`
	DisplayName  *string `json:"displayName,omitempty"`
	Organization *string `json:"organization,omitempty"`
}

// CreateUserRequest carries admin user-creation fields. IsActive defaults to
// true when nil.
type CreateUserRequest struct {
	Username     string  `json:"username"`
	Password     string  `json:"password"`
	Email        string  `json:"email"`
	DisplayName  *string `json:"displayName,omitempty"`
	Organization *string `json:"organization,omitempty"`
	Role         Role    `json:"role"`
	IsActive     *bool   `json:"isActive,omitempty"`
}

// SessionResult is returned by Login and Register.
type SessionResult struct {
	User      PublicUser
	Token     string
	ExpiresAt time.Time
}

// Principal is an authenticated caller as resolved from a session token.
type Principal struct {
	User      PublicUser
	SessionID string
}

// UserDirectory stores user records. Implementations must be safe for
// concurrent use and must return ErrUsernameTaken and ErrUserNotFound for
// the corresponding conditions.
type UserDirectory interface {
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
	CreateUser(ctx context.Context, input NewUser) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
	UpdateRole(ctx context.Context, id string, role Role) (User, error)
	UpdateActive(ctx context.Context, id string, active bool) (User, error)
}
