package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", "/"},
		{"/api/plugin-auth/register", "/api/plugin-auth/register"},
		{"/api/tokens/token_4f9a1c2e-8b7d-4e2f-9a1b-0c3d5e7f9a1b", "/api/tokens/:param"},
		{"/api/items/123?x=1", "/api/items/:param"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizePath(tc.in), tc.in)
	}
}

func TestMiddlewareAndHandler(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/plugin-auth/validate", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("POST", "/api/plugin-auth/validate", "418")))

	m.PluginAuth("register", "ok")
	m.Validation("static", "ok")
	m.KeyRotated()
	m.RequireReauth("key_mismatch")
	m.RateLimited("login")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.keyRotations))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.validationsTotal.WithLabelValues("static", "ok")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "noke_plugin_auth_total"))
}

type fakePool struct{}

func (fakePool) PoolStat() (int32, int32, int32, bool) { return 1, 2, 3, true }

func TestDBPoolCollector(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)
	require.NoError(t, m.Register(NewDBPoolCollector(fakePool{})))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "pg_pool_total 3")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.PluginAuth("x", "y")
	m.Validation("rolling", "ok")
	m.KeyRotated()
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	assert.NotNil(t, m.Middleware(next))
	assert.NoError(t, m.Register(nil))
}
