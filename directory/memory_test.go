package directory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	catalogAuth "github.com/MrEthical07/catalogAuth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ catalogAuth.UserDirectory = (*Memory)(nil)

func newUser(name string) catalogAuth.NewUser {
	org := "Data Office"
	return catalogAuth.NewUser{
		Username:     name,
		PasswordHash: "aa:bb",
		Email:        name + "@example.org",
		Organization: &org,
		Role:         catalogAuth.RoleUser,
		IsActive:     true,
	}
}

func TestMemoryCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	created, err := m.CreateUser(ctx, newUser("alice"))
	require.NoError(t, err)
	_, err = uuid.Parse(created.ID)
	require.NoError(t, err, "ids are uuids")
	assert.False(t, created.CreatedAt.IsZero())

	byName, err := m.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)
	assert.Equal(t, "Data Office", *byName.Organization)

	byID, err := m.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)
}

func TestMemoryNotFound(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.GetUserByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, catalogAuth.ErrUserNotFound)
	_, err = m.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, catalogAuth.ErrUserNotFound)
	assert.ErrorIs(t, m.UpdatePasswordHash(ctx, "missing", "x:y"), catalogAuth.ErrUserNotFound)
	_, err = m.UpdateRole(ctx, "missing", catalogAuth.RoleAdmin)
	assert.ErrorIs(t, err, catalogAuth.ErrUserNotFound)
	_, err = m.UpdateActive(ctx, "missing", false)
	assert.ErrorIs(t, err, catalogAuth.ErrUserNotFound)
}

func TestMemoryDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.CreateUser(ctx, newUser("bob"))
	require.NoError(t, err)
	_, err = m.CreateUser(ctx, newUser("bob"))
	assert.ErrorIs(t, err, catalogAuth.ErrUsernameTaken)
}

func TestMemoryConcurrentCreateSameName(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.CreateUser(ctx, newUser("carol")); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
}

func TestMemoryUpdates(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	u, err := m.CreateUser(ctx, newUser("dave"))
	require.NoError(t, err)

	require.NoError(t, m.UpdatePasswordHash(ctx, u.ID, "cc:dd"))
	got, err := m.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "cc:dd", got.PasswordHash)

	got, err = m.UpdateRole(ctx, u.ID, catalogAuth.RoleUploader)
	require.NoError(t, err)
	assert.Equal(t, catalogAuth.RoleUploader, got.Role)

	got, err = m.UpdateActive(ctx, u.ID, false)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	u, err := m.CreateUser(ctx, newUser("erin"))
	require.NoError(t, err)

	*u.Organization = "mutated"
	got, err := m.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Data Office", *got.Organization)
}

func TestMemoryListAndDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	var ids []string
	for i := 0; i < 3; i++ {
		u, err := m.CreateUser(ctx, newUser(fmt.Sprintf("user%d", i)))
		require.NoError(t, err)
		ids = append(ids, u.ID)
	}

	users, err := m.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 3)

	m.Delete(ids[0])
	_, err = m.GetUserByUsername(ctx, "user0")
	assert.ErrorIs(t, err, catalogAuth.ErrUserNotFound)
	_, err = m.CreateUser(ctx, newUser("user0"))
	assert.NoError(t, err, "name is free again after delete")
}
