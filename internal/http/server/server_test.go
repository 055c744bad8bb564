package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/noke/internal/config"

	_ "github.com/dropDatabas3/noke/internal/store/adapters/memory"
)

func TestBuild_MemoryDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.Enabled = true
	cfg.Rate.Enabled = true
	require.NoError(t, cfg.Validate())

	s, err := Build(context.Background(), cfg, "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	for path, want := range map[string]int{
		"/healthz": http.StatusOK,
		"/readyz":  http.StatusOK,
		"/metrics": http.StatusOK,
		"/nope":    http.StatusNotFound,
	} {
		rec := httptest.NewRecorder()
		s.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, "test", rec.Header().Get("X-Service-Version"))
}

func TestBuild_UnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Driver = "sqlite"

	_, err := Build(context.Background(), cfg, "test")
	require.Error(t, err)
}

func TestBuild_BadMasterKey(t *testing.T) {
	cfg := config.Default()
	cfg.Security.SecretboxMasterKey = "short"

	_, err := Build(context.Background(), cfg, "test")
	require.Error(t, err)
}
