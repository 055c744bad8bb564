package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svc "github.com/dropDatabas3/noke/internal/http/services/health"
)

func readyz(t *testing.T, deps svc.Deps) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	c := NewHealthController(svc.NewHealthService(deps))
	rec := httptest.NewRecorder()
	c.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestReadyz(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	t.Run("ready", func(t *testing.T) {
		rec, body := readyz(t, svc.Deps{StoreCheck: ok, CacheCheck: ok, Version: "1.2.3"})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ready", body["status"])
		assert.Equal(t, "1.2.3", rec.Header().Get("X-Service-Version"))
	})

	t.Run("degraded still serves", func(t *testing.T) {
		rec, body := readyz(t, svc.Deps{StoreCheck: ok, CacheCheck: down})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "degraded", body["status"])
	})

	t.Run("store down", func(t *testing.T) {
		rec, body := readyz(t, svc.Deps{StoreCheck: down, CacheCheck: down, Version: "1.2.3"})
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body["code"])
		assert.Equal(t, "cache,store", body["detail"])
		assert.Equal(t, "1.2.3", rec.Header().Get("X-Service-Version"))
	})
}

func TestHealthz(t *testing.T) {
	c := NewHealthController(svc.NewHealthService(svc.Deps{}))
	rec := httptest.NewRecorder()
	c.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
