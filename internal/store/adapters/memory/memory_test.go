package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/noke/internal/domain/repository"
	"github.com/dropDatabas3/noke/internal/store"
)

func TestRegistry_OpenMemory(t *testing.T) {
	conn, err := store.OpenAdapter(context.Background(), store.AdapterConfig{Name: "memory"})
	require.NoError(t, err)
	assert.Equal(t, "memory", conn.Name())
	assert.NoError(t, conn.Ping(context.Background()))
}

func TestPlugins_CreateConflictAndGet(t *testing.T) {
	ctx := context.Background()
	repo := New().Plugins()

	p := &repository.PluginInstance{ID: "plugin_1", Group: repository.UnownedGroup, PluginSecretHash: "h"}
	require.NoError(t, repo.Create(ctx, p))
	assert.Equal(t, int64(1), p.Version)

	err := repo.Create(ctx, &repository.PluginInstance{ID: "plugin_1", Group: repository.UnownedGroup})
	assert.ErrorIs(t, err, repository.ErrConflict)

	got, err := repo.Get(ctx, "plugin_1", repository.UnownedGroup)
	require.NoError(t, err)
	assert.Equal(t, "h", got.PluginSecretHash)

	_, err = repo.Get(ctx, "plugin_1", "alice")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPlugins_ConditionalUpdate(t *testing.T) {
	ctx := context.Background()
	repo := New().Plugins()

	require.NoError(t, repo.Create(ctx, &repository.PluginInstance{ID: "p", Group: "g"}))

	a, err := repo.Get(ctx, "p", "g")
	require.NoError(t, err)
	b, err := repo.Get(ctx, "p", "g")
	require.NoError(t, err)

	a.RollingKeyHash = "a"
	require.NoError(t, repo.Update(ctx, a))
	assert.Equal(t, int64(2), a.Version)

	b.RollingKeyHash = "b"
	assert.ErrorIs(t, repo.Update(ctx, b), repository.ErrPreconditionFailed)

	cur, err := repo.Get(ctx, "p", "g")
	require.NoError(t, err)
	assert.Equal(t, "a", cur.RollingKeyHash)

	assert.ErrorIs(t, repo.Update(ctx, &repository.PluginInstance{ID: "x", Group: "g"}), repository.ErrNotFound)
}

func TestPlugins_ReturnedCopiesAreIsolated(t *testing.T) {
	ctx := context.Background()
	repo := New().Plugins()
	exp := time.Now().Add(time.Minute)
	require.NoError(t, repo.Create(ctx, &repository.PluginInstance{ID: "p", Group: "g", AuthRequestExpiry: &exp}))

	got, err := repo.Get(ctx, "p", "g")
	require.NoError(t, err)
	*got.AuthRequestExpiry = time.Time{}
	got.RollingKeyHash = "mutated"

	again, err := repo.Get(ctx, "p", "g")
	require.NoError(t, err)
	assert.Equal(t, exp, *again.AuthRequestExpiry)
	assert.Empty(t, again.RollingKeyHash)
}

func TestPlugins_FindByIDPrefersLatestCopy(t *testing.T) {
	ctx := context.Background()
	repo := New().Plugins()

	require.NoError(t, repo.Create(ctx, &repository.PluginInstance{ID: "p", Group: repository.UnownedGroup}))
	require.NoError(t, repo.Create(ctx, &repository.PluginInstance{ID: "p", Group: "alice", OwnerUsername: "alice"}))

	got, err := repo.FindByID(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Group)

	require.NoError(t, repo.Delete(ctx, "p", "alice"))
	got, err = repo.FindByID(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, repository.UnownedGroup, got.Group)

	assert.ErrorIs(t, repo.Delete(ctx, "p", "alice"), repository.ErrNotFound)
	_, err = repo.FindByID(ctx, "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPlugins_ListByGroup(t *testing.T) {
	ctx := context.Background()
	conn := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := conn.Plugins()

	require.NoError(t, repo.Create(ctx, &repository.PluginInstance{ID: "b", Group: "alice", CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, repo.Create(ctx, &repository.PluginInstance{ID: "a", Group: "alice", CreatedAt: base}))
	require.NoError(t, repo.Create(ctx, &repository.PluginInstance{ID: "c", Group: "bob", CreatedAt: base}))

	list, err := repo.ListByGroup(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "b", list[1].ID)

	list, err = repo.ListByGroup(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTokens_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := New().APITokens()

	tok := &repository.APIToken{ID: "token_1", Username: "alice", TokenHash: "hash1", Permissions: []string{"entries:read"}}
	require.NoError(t, repo.Create(ctx, tok))
	assert.ErrorIs(t, repo.Create(ctx, &repository.APIToken{ID: "token_2", TokenHash: "hash1"}), repository.ErrConflict)

	got, err := repo.GetByHash(ctx, "hash1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Nil(t, got.LastUsed)

	now := time.Now()
	require.NoError(t, repo.TouchLastUsed(ctx, "token_1", now))
	got, err = repo.GetByHash(ctx, "hash1")
	require.NoError(t, err)
	require.NotNil(t, got.LastUsed)

	assert.ErrorIs(t, repo.Delete(ctx, "token_1", "bob"), repository.ErrNotFound)
	require.NoError(t, repo.Delete(ctx, "token_1", "alice"))

	_, err = repo.GetByHash(ctx, "hash1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUsers_TOTPTransitions(t *testing.T) {
	ctx := context.Background()
	repo := New().Users()

	require.NoError(t, repo.Create(ctx, &repository.User{Username: "alice", PasswordHash: "x"}))
	assert.ErrorIs(t, repo.Create(ctx, &repository.User{Username: "alice"}), repository.ErrConflict)

	require.NoError(t, repo.SetPendingTOTP(ctx, "alice", "enc-1"))
	assert.ErrorIs(t, repo.EnableTOTP(ctx, "alice", "enc-0", 10), repository.ErrPreconditionFailed)
	require.NoError(t, repo.EnableTOTP(ctx, "alice", "enc-1", 10))

	u, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, u.TOTPEnabled)
	assert.Equal(t, "enc-1", u.TOTPSecret)
	assert.Empty(t, u.TOTPSecretPending)
	require.NotNil(t, u.TOTPLastCounter)

	assert.ErrorIs(t, repo.MarkTOTPUsed(ctx, "alice", 10), repository.ErrPreconditionFailed)
	require.NoError(t, repo.MarkTOTPUsed(ctx, "alice", 11))

	require.NoError(t, repo.DisableTOTP(ctx, "alice"))
	u, err = repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, u.TOTPEnabled)
	assert.Empty(t, u.TOTPSecret)
	assert.Nil(t, u.TOTPLastCounter)

	assert.ErrorIs(t, repo.SetPendingTOTP(ctx, "bob", "x"), repository.ErrNotFound)
}

func TestEntries_SeedAndList(t *testing.T) {
	ctx := context.Background()
	conn := New()
	conn.SeedEntry(repository.Entry{ID: "e1", Username: "alice", Name: "GitHub"})
	conn.SeedEntry(repository.Entry{ID: "e2", Username: "bob", Name: "Other"})

	list, err := conn.Entries().ListByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "GitHub", list[0].Name)
}
