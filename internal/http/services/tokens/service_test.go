package tokens

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/noke/internal/domain/repository"
	sectokens "github.com/dropDatabas3/noke/internal/security/token"
	"github.com/dropDatabas3/noke/internal/store/adapters/memory"
)

func TestCreateListDelete(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	conn := memory.New()
	svc := NewService(conn.APITokens(), func() time.Time { return now })
	ctx := context.Background()

	created, err := svc.Create(ctx, "alice", CreateInput{ExpiresIn: "30d"})
	require.NoError(t, err)
	assert.Equal(t, "API Token", created.Name)
	assert.Len(t, created.Raw, 64)
	assert.Contains(t, created.ID, "token_")
	require.NotNil(t, created.ExpiresAt)
	assert.Equal(t, now.Add(30*24*time.Hour), *created.ExpiresAt)
	assert.Equal(t, repository.AllPermissions, created.Permissions)

	stored, err := conn.APITokens().GetByHash(ctx, sectokens.SHA256Hex(created.Raw))
	require.NoError(t, err)
	assert.Equal(t, created.ID, stored.ID)

	never, err := svc.Create(ctx, "alice", CreateInput{
		Name:        "cli",
		Permissions: []string{repository.PermGenerate},
	})
	require.NoError(t, err)
	assert.Nil(t, never.ExpiresAt)

	list, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	assert.ErrorIs(t, svc.Delete(ctx, "bob", created.ID), ErrNotFound)
	require.NoError(t, svc.Delete(ctx, "alice", created.ID))
	assert.ErrorIs(t, svc.Delete(ctx, "alice", created.ID), ErrNotFound)

	list, err = svc.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "cli", list[0].Name)
}

func TestCreate_Invalid(t *testing.T) {
	svc := NewService(memory.New().APITokens(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, "alice", CreateInput{ExpiresIn: "7d"})
	assert.ErrorIs(t, err, ErrInvalidExpiry)

	_, err = svc.Create(ctx, "alice", CreateInput{Permissions: []string{"admin"}})
	assert.ErrorIs(t, err, ErrInvalidPermission)
}
