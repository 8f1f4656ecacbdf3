package directory

import (
	"context"
	"sync"
	"time"

	catalogAuth "github.com/MrEthical07/catalogAuth"
	"github.com/google/uuid"
)

// Memory is an in-process UserDirectory. It is meant for development and
// tests; records are lost on restart.
type Memory struct {
	mu         sync.RWMutex
	byID       map[string]catalogAuth.User
	byUsername map[string]string

	now func() time.Time
}

// NewMemory returns an empty Memory directory.
func NewMemory() *Memory {
	return &Memory{
		byID:       make(map[string]catalogAuth.User),
		byUsername: make(map[string]string),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) GetUserByUsername(_ context.Context, username string) (catalogAuth.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byUsername[username]
	if !ok {
		return catalogAuth.User{}, catalogAuth.ErrUserNotFound
	}
	return cloneUser(m.byID[id]), nil
}

func (m *Memory) GetUserByID(_ context.Context, id string) (catalogAuth.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.byID[id]
	if !ok {
		return catalogAuth.User{}, catalogAuth.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (m *Memory) CreateUser(_ context.Context, in catalogAuth.NewUser) (catalogAuth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.byUsername[in.Username]; taken {
		return catalogAuth.User{}, catalogAuth.ErrUsernameTaken
	}

	now := m.now()
	u := catalogAuth.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		PasswordHash: in.PasswordHash,
		Email:        in.Email,
		DisplayName:  cloneString(in.DisplayName),
		Organization: cloneString(in.Organization),
		Role:         in.Role,
		IsActive:     in.IsActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.byID[u.ID] = u
	m.byUsername[u.Username] = u.ID

	return cloneUser(u), nil
}

func (m *Memory) ListUsers(context.Context) ([]catalogAuth.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]catalogAuth.User, 0, len(m.byID))
	for _, u := range m.byID {
		out = append(out, cloneUser(u))
	}
	return out, nil
}

func (m *Memory) UpdatePasswordHash(_ context.Context, id, passwordHash string) error {
	_, err := m.update(id, func(u *catalogAuth.User) { u.PasswordHash = passwordHash })
	return err
}

func (m *Memory) UpdateRole(_ context.Context, id string, role catalogAuth.Role) (catalogAuth.User, error) {
	return m.update(id, func(u *catalogAuth.User) { u.Role = role })
}

func (m *Memory) UpdateActive(_ context.Context, id string, active bool) (catalogAuth.User, error) {
	return m.update(id, func(u *catalogAuth.User) { u.IsActive = active })
}

// Delete removes a user. It is not part of UserDirectory.
func (m *Memory) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.byID[id]; ok {
		delete(m.byUsername, u.Username)
		delete(m.byID, id)
	}
}

func (m *Memory) update(id string, mutate func(*catalogAuth.User)) (catalogAuth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return catalogAuth.User{}, catalogAuth.ErrUserNotFound
	}
	mutate(&u)
	u.UpdatedAt = m.now()
	m.byID[id] = u

	return cloneUser(u), nil
}

func cloneUser(u catalogAuth.User) catalogAuth.User {
	u.DisplayName = cloneString(u.DisplayName)
	u.Organization = cloneString(u.Organization)
	return u
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
