package pluginclient

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/noke/internal/cache"
	"github.com/dropDatabas3/noke/internal/domain/repository"
	"github.com/dropDatabas3/noke/internal/http/controllers"
	"github.com/dropDatabas3/noke/internal/http/router"
	"github.com/dropDatabas3/noke/internal/http/services"
	"github.com/dropDatabas3/noke/internal/http/services/auth"
	tokensvc "github.com/dropDatabas3/noke/internal/http/services/tokens"
	"github.com/dropDatabas3/noke/internal/security/secretbox"
	"github.com/dropDatabas3/noke/internal/store/adapters/memory"
)

type harness struct {
	url  string
	svcs *services.Services
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	box, err := secretbox.New([]byte(strings.Repeat("p", 32)))
	require.NoError(t, err)

	conn := memory.New()
	conn.SeedEntry(repository.Entry{
		ID: "e1", Username: "alice", Name: "GitHub", LoginUsername: "alice",
		Password: "hunter2", URL: "https://github.com",
	})
	session := auth.NewSessionIssuer("pluginclient-test", time.Hour)
	svcs := services.New(services.Deps{
		Store:         conn,
		Cache:         cache.NewMemory("t", time.Minute),
		Cipher:        box,
		Session:       session,
		PublicBaseURL: "https://vault.example.com",
	})
	srv := httptest.NewServer(router.New(router.Deps{
		Controllers: controllers.New(svcs),
		Session:     session,
		Validator:   svcs.PluginAuth.Validator,
	}))
	t.Cleanup(srv.Close)
	return &harness{url: srv.URL, svcs: svcs}
}

func (h *harness) client(store CredentialStore) *Client {
	return New(h.url, store, WithPollPolicy(PollPolicy{Interval: 10 * time.Millisecond, Timeout: 2 * time.Second}))
}

// approve simula al usuario aprobando desde la web.
func (h *harness) approve(t *testing.T, store CredentialStore, username string) func(*AuthRequest) {
	return func(ar *AuthRequest) {
		creds, err := store.Load(context.Background())
		require.NoError(t, err)
		assert.Contains(t, ar.AuthURL, creds.PluginID)
		require.NoError(t, h.svcs.PluginAuth.Auth.Authorize(context.Background(), creds.PluginID, ar.AuthToken, username))
	}
}

func TestPair_ThenRotateOnEveryRequest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	store := NewMemoryStore()
	c := h.client(store)

	creds, err := c.Pair(ctx, h.approve(t, store, "alice"))
	require.NoError(t, err)
	assert.Equal(t, "alice", creds.Username)
	k1 := creds.RollingKey

	entries, err := c.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "hunter2", entries[0].Password)

	after, err := store.Load(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, k1, after.RollingKey)
	assert.Equal(t, int64(2), after.KeyVersion)

	res, err := c.Search(ctx, "https://www.github.com/login")
	require.NoError(t, err)
	assert.Equal(t, "github.com", res.MatchedDomain)

	length := 32
	pw, err := c.Generate(ctx, GenerateOptions{Length: &length})
	require.NoError(t, err)
	assert.Len(t, pw, 32)

	user, err := c.Validate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", user)

	final, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), final.KeyVersion)
}

func TestErrorResponseStillPersistsNextKey(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	store := NewMemoryStore()
	c := h.client(store)
	_, err := c.Pair(ctx, h.approve(t, store, "alice"))
	require.NoError(t, err)

	// Sin url: 400, pero la key ya rotó y viene en cabecera.
	_, err = c.Search(ctx, "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Status)

	_, err = c.Entries(ctx)
	require.NoError(t, err)
}

func TestStaleKeyClearsAndRequiresReauth(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	store := NewMemoryStore()
	c := h.client(store)
	paired, err := c.Pair(ctx, h.approve(t, store, "alice"))
	require.NoError(t, err)

	_, err = c.Entries(ctx)
	require.NoError(t, err)

	// Restaurar la key vieja (p. ej. un backup del archivo).
	require.NoError(t, store.Save(ctx, paired))
	_, err = c.Entries(ctx)
	require.ErrorIs(t, err, ErrReauthRequired)

	creds, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, creds.RollingKey)
	assert.Equal(t, paired.PluginID, creds.PluginID)

	_, err = c.Entries(ctx)
	assert.ErrorIs(t, err, ErrNotPaired)
}

func TestStaticTokenFallback(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	created, err := h.svcs.Tokens.Create(ctx, "alice", tokensvc.CreateInput{Name: "cli"})
	require.NoError(t, err)

	store := NewMemoryStore()
	c := h.client(store)
	require.NoError(t, c.SetStaticToken(ctx, created.Raw))

	entries, err := c.Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// Sin rolling key no hay rotación que guardar.
	creds, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, creds.RollingKey)
}

func TestWaitForAuthorization_Timeout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	store := NewMemoryStore()
	c := New(h.url, store, WithPollPolicy(PollPolicy{Interval: 10 * time.Millisecond, Timeout: 60 * time.Millisecond}))

	_, err := c.Register(ctx)
	require.NoError(t, err)
	_, err = c.RequestAuth(ctx)
	require.NoError(t, err)

	_, err = c.WaitForAuthorization(ctx)
	assert.ErrorIs(t, err, ErrAuthTimeout)
}

func TestWaitForAuthorization_KeyAlreadyDelivered(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := NewMemoryStore()
	paired, err := h.client(first).Pair(ctx, h.approve(t, first, "alice"))
	require.NoError(t, err)

	// Otra instancia con las mismas credenciales llega tarde.
	second := NewMemoryStore()
	require.NoError(t, second.Save(ctx, &Credentials{PluginID: paired.PluginID, PluginSecret: paired.PluginSecret}))
	_, err = h.client(second).WaitForAuthorization(ctx)
	assert.ErrorIs(t, err, ErrReauthRequired)
}

func TestNotRegistered(t *testing.T) {
	c := New("http://127.0.0.1:0", NewMemoryStore())
	_, err := c.RequestAuth(context.Background())
	assert.ErrorIs(t, err, ErrNotRegistered)
	_, err = c.Entries(context.Background())
	assert.ErrorIs(t, err, ErrNotPaired)
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "noke", "plugin.json")
	s := NewFileStore(path)

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, ErrNoCredentials)

	in := &Credentials{PluginID: "plugin_1", PluginSecret: "s", RollingKey: "k", KeyVersion: 3}
	require.NoError(t, s.Save(ctx, in))

	out, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	if runtime.GOOS != "windows" {
		st, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), st.Mode().Perm())
	}

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))
	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, ErrNoCredentials)
}
