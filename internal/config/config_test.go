package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "dev", c.App.Env)
	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, "memory", c.Storage.Driver)
	assert.Equal(t, "memory", c.Cache.Kind)
	assert.True(t, c.Rate.Enabled)
	assert.Equal(t, 10, c.Rate.Login.Limit)
	assert.Equal(t, 12*time.Hour, c.Security.SessionTTL)
	assert.Equal(t, 1, c.Security.TOTPWindow)
	assert.NoError(t, c.Validate())
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	p := writeYAML(t, `
app:
  app_env: staging
server:
  addr: ":9000"
  read_timeout: 5s
storage:
  driver: postgres
  dsn: postgres://localhost/noke
rate:
  enabled: false
  login:
    limit: 3
    window: 30s
`)
	t.Setenv("SERVER_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("RATE_LOGIN_LIMIT", "5")

	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "staging", c.App.Env)
	assert.Equal(t, ":9000", c.Server.Addr)
	assert.Equal(t, 5*time.Second, c.Server.ReadTimeout)
	assert.Equal(t, "postgres", c.Storage.Driver)
	assert.False(t, c.Rate.Enabled)
	assert.Equal(t, 5, c.Rate.Login.Limit)
	assert.Equal(t, 30*time.Second, c.Rate.Login.Window)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.Server.CORSAllowedOrigins)
	assert.NoError(t, c.Validate())
}

func TestValidate_Prod(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("STORAGE_DSN", "postgres://db/noke")

	c := Default()
	assert.ErrorContains(t, c.Validate(), "SECRETBOX_MASTER_KEY")

	c.Security.SecretboxMasterKey = "k"
	c.Security.SessionSecret = "short"
	assert.ErrorContains(t, c.Validate(), "SESSION_SECRET")

	c.Security.SessionSecret = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, c.Validate())
}

func TestValidate_UnknownDriver(t *testing.T) {
	c := Default()
	c.Storage.Driver = "mongo"
	assert.Error(t, c.Validate())

	c = Default()
	c.Storage.Driver = "postgres"
	c.Storage.DSN = ""
	assert.Error(t, c.Validate())
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeYAML(t, "server: [unclosed"))
	assert.Error(t, err)
}
