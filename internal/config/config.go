package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Server struct {
		Addr               string        `yaml:"addr"`
		CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`
		PublicBaseURL      string        `yaml:"public_base_url"` // base del front para el authUrl
		ReadTimeout        time.Duration `yaml:"read_timeout"`
		WriteTimeout       time.Duration `yaml:"write_timeout"`
		ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Storage struct {
		Driver   string `yaml:"driver"` // memory | postgres
		DSN      string `yaml:"dsn"`
		Migrate  bool   `yaml:"migrate"`
		Postgres struct {
			MaxOpenConns int `yaml:"max_open_conns"`
			MaxIdleConns int `yaml:"max_idle_conns"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Kind       string        `yaml:"kind"` // memory | redis
		DefaultTTL time.Duration `yaml:"default_ttl"`
		Redis      struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Rate struct {
		Enabled     bool          `yaml:"enabled"`
		Window      time.Duration `yaml:"window"`
		MaxRequests int           `yaml:"max_requests"`
		PluginAuth  Limit         `yaml:"plugin_auth"`
		Login       Limit         `yaml:"login"`
	} `yaml:"rate"`

	Security struct {
		SecretboxMasterKey string        `yaml:"secretbox_master_key"`
		SessionSecret      string        `yaml:"session_secret"`
		SessionTTL         time.Duration `yaml:"session_ttl"`
		TOTPIssuer         string        `yaml:"totp_issuer"`
		TOTPWindow         int           `yaml:"totp_window"`
	} `yaml:"security"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
}

// Limit es un par límite/ventana para un grupo de rutas.
type Limit struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

// Load lee path (YAML), aplica defaults y pisa con variables de entorno.
// Si path está vacío o no existe, parte de una config vacía.
func Load(path string) (*Config, error) {
	var c Config
	// Rate habilitado salvo que el YAML diga lo contrario.
	c.Rate.Enabled = true
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}
	c.applyDefaults()
	c.applyEnvOverrides()
	return &c, nil
}

// Default retorna la config sin archivo (defaults + env).
func Default() *Config {
	c, _ := Load("")
	return c
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.PublicBaseURL == "" {
		c.Server.PublicBaseURL = "http://localhost:3000"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.DefaultTTL == 0 {
		c.Cache.DefaultTTL = 5 * time.Minute
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "noke"
	}
	if c.Rate.Window == 0 {
		c.Rate.Window = time.Minute
	}
	if c.Rate.MaxRequests == 0 {
		c.Rate.MaxRequests = 120
	}
	if c.Rate.PluginAuth.Limit == 0 {
		c.Rate.PluginAuth.Limit = 30
	}
	if c.Rate.PluginAuth.Window == 0 {
		c.Rate.PluginAuth.Window = time.Minute
	}
	if c.Rate.Login.Limit == 0 {
		c.Rate.Login.Limit = 10
	}
	if c.Rate.Login.Window == 0 {
		c.Rate.Login.Window = time.Minute
	}
	if c.Security.SessionTTL == 0 {
		c.Security.SessionTTL = 12 * time.Hour
	}
	if c.Security.TOTPIssuer == "" {
		c.Security.TOTPIssuer = "NoKe"
	}
	if c.Security.TOTPWindow == 0 {
		c.Security.TOTPWindow = 1
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}
func getEnvCSV(key string) ([]string, bool) {
	s, ok := getEnvStr(key)
	if !ok {
		return nil, false
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, true
}

// applyEnvOverrides pisa el YAML con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvCSV("SERVER_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}
	if v, ok := getEnvStr("PUBLIC_BASE_URL"); ok {
		c.Server.PublicBaseURL = strings.TrimRight(v, "/")
	}
	if v, ok := getEnvDur("SERVER_READ_TIMEOUT"); ok {
		c.Server.ReadTimeout = v
	}
	if v, ok := getEnvDur("SERVER_WRITE_TIMEOUT"); ok {
		c.Server.WriteTimeout = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvBool("STORAGE_MIGRATE"); ok {
		c.Storage.Migrate = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_OPEN_CONNS"); ok {
		c.Storage.Postgres.MaxOpenConns = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_IDLE_CONNS"); ok {
		c.Storage.Postgres.MaxIdleConns = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvDur("CACHE_DEFAULT_TTL"); ok {
		c.Cache.DefaultTTL = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvDur("RATE_WINDOW"); ok {
		c.Rate.Window = v
	}
	if v, ok := getEnvInt("RATE_MAX_REQUESTS"); ok {
		c.Rate.MaxRequests = v
	}
	if v, ok := getEnvInt("RATE_PLUGIN_AUTH_LIMIT"); ok {
		c.Rate.PluginAuth.Limit = v
	}
	if v, ok := getEnvDur("RATE_PLUGIN_AUTH_WINDOW"); ok {
		c.Rate.PluginAuth.Window = v
	}
	if v, ok := getEnvInt("RATE_LOGIN_LIMIT"); ok {
		c.Rate.Login.Limit = v
	}
	if v, ok := getEnvDur("RATE_LOGIN_WINDOW"); ok {
		c.Rate.Login.Window = v
	}

	// SECURITY
	if v, ok := getEnvStr("SECRETBOX_MASTER_KEY"); ok {
		c.Security.SecretboxMasterKey = v
	}
	if v, ok := getEnvStr("SESSION_SECRET"); ok {
		c.Security.SessionSecret = v
	}
	if v, ok := getEnvDur("SESSION_TTL"); ok {
		c.Security.SessionTTL = v
	}
	if v, ok := getEnvStr("TOTP_ISSUER"); ok {
		c.Security.TOTPIssuer = v
	}
	if v, ok := getEnvInt("TOTP_WINDOW"); ok {
		c.Security.TOTPWindow = v
	}

	// METRICS
	if v, ok := getEnvBool("METRICS_ENABLED"); ok {
		c.Metrics.Enabled = v
	}
	if v, ok := getEnvStr("METRICS_PATH"); ok {
		c.Metrics.Path = v
	}
}

// IsProd reporta si app.env es prod.
func (c *Config) IsProd() bool {
	return c.App.Env == "prod" || c.App.Env == "production"
}

// Validate rechaza configuraciones inseguras o incompletas.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Storage.DSN == "" {
			return errors.New("config: storage.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}
	switch c.Cache.Kind {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown cache.kind %q", c.Cache.Kind)
	}
	if c.Security.TOTPWindow < 0 || c.Security.TOTPWindow > 3 {
		return errors.New("config: security.totp_window must be between 0 and 3")
	}
	if c.IsProd() {
		if c.Security.SecretboxMasterKey == "" {
			return errors.New("config: SECRETBOX_MASTER_KEY is required in prod")
		}
		if len(c.Security.SessionSecret) < 32 {
			return errors.New("config: SESSION_SECRET (>=32 chars) is required in prod")
		}
		if c.Storage.Driver == "memory" {
			return errors.New("config: storage.driver=memory is not allowed in prod")
		}
	}
	return nil
}
