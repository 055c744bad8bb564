// Package server arma el proceso HTTP completo a partir de la config:
// store, cache, rate limiter, métricas, services, controllers y router.
//
// Los adapters de store se registran por init(); quien llame a Build debe
// importarlos (ver cmd/noke).
package server

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/noke/internal/cache"
	"github.com/dropDatabas3/noke/internal/config"
	"github.com/dropDatabas3/noke/internal/http/controllers"
	httperrors "github.com/dropDatabas3/noke/internal/http/errors"
	"github.com/dropDatabas3/noke/internal/http/router"
	"github.com/dropDatabas3/noke/internal/http/services"
	"github.com/dropDatabas3/noke/internal/http/services/auth"
	"github.com/dropDatabas3/noke/internal/http/services/health"
	"github.com/dropDatabas3/noke/internal/metrics"
	"github.com/dropDatabas3/noke/internal/observability/logger"
	"github.com/dropDatabas3/noke/internal/rate"
	"github.com/dropDatabas3/noke/internal/security/password"
	"github.com/dropDatabas3/noke/internal/security/secretbox"
	tokens "github.com/dropDatabas3/noke/internal/security/token"
	"github.com/dropDatabas3/noke/internal/store"
)

// Server es el proceso HTTP listo para correr.
type Server struct {
	Handler http.Handler
	HTTP    *http.Server

	shutdownTimeout time.Duration
	closers         []func() error
}

// Build conecta todas las dependencias. Ante error libera lo que ya abrió.
func Build(ctx context.Context, cfg *config.Config, version string) (_ *Server, err error) {
	log := logger.From(ctx).With(logger.Component("server"), logger.Op("Build"))
	s := &Server{shutdownTimeout: cfg.Server.ShutdownTimeout}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	httperrors.SetExposeInternal(!cfg.IsProd())

	// 1. Store
	conn, err := store.OpenAdapter(ctx, store.AdapterConfig{
		Name:         cfg.Storage.Driver,
		DSN:          cfg.Storage.DSN,
		MaxOpenConns: cfg.Storage.Postgres.MaxOpenConns,
		MaxIdleConns: cfg.Storage.Postgres.MaxIdleConns,
		Migrate:      cfg.Storage.Migrate,
	})
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	s.closers = append(s.closers, conn.Close)
	log.Info("store connected", logger.String("driver", conn.Name()))

	// 2. Cache + rate limiter (mismo backend)
	c, err := cache.New(cache.Config{
		Kind:       cfg.Cache.Kind,
		RedisAddr:  cfg.Cache.Redis.Addr,
		RedisPass:  cfg.Cache.Redis.Password,
		RedisDB:    cfg.Cache.Redis.DB,
		Prefix:     cfg.Cache.Redis.Prefix,
		DefaultTTL: cfg.Cache.DefaultTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	s.closers = append(s.closers, c.Close)

	var limiter rate.Limiter
	var cacheCheck func(context.Context) error
	if rc, ok := c.(*cache.RedisClient); ok {
		cacheCheck = rc.Ping
		if cfg.Rate.Enabled {
			limiter = rate.NewRedisLimiter(rc.Raw(), cfg.Cache.Redis.Prefix+":rl")
		}
	} else if cfg.Rate.Enabled {
		limiter = rate.NewMemoryLimiter()
	}

	// 3. Métricas
	var m *metrics.Metrics
	var pool metrics.PoolStats
	if ps, ok := conn.(metrics.PoolStats); ok {
		pool = ps
	}
	if cfg.Metrics.Enabled {
		if m, err = metrics.New(nil); err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		if pool != nil {
			if err := m.Register(metrics.NewDBPoolCollector(pool)); err != nil {
				return nil, fmt.Errorf("metrics: %w", err)
			}
		}
	}

	// 4. Secretos
	box, err := openSecretbox(ctx, cfg.Security.SecretboxMasterKey)
	if err != nil {
		return nil, err
	}
	sessionSecret := cfg.Security.SessionSecret
	if sessionSecret == "" {
		if sessionSecret, err = tokens.GenerateSecret(); err != nil {
			return nil, err
		}
		log.Warn("SESSION_SECRET not set, using an ephemeral one; sessions will not survive restarts")
	}
	session := auth.NewSessionIssuer(sessionSecret, cfg.Security.SessionTTL)

	// 5. Services → controllers → router
	svcs := services.New(services.Deps{
		Store:          conn,
		Cache:          c,
		Cipher:         box,
		Session:        session,
		Metrics:        m,
		PublicBaseURL:  cfg.Server.PublicBaseURL,
		PasswordPolicy: password.Policy{MinLength: 8, MaxLength: 256},
		TOTPIssuer:     cfg.Security.TOTPIssuer,
		TOTPWindow:     cfg.Security.TOTPWindow,
		HealthDeps: health.Deps{
			StoreCheck: conn.Ping,
			CacheCheck: cacheCheck,
			Pool:       pool,
			Version:    version,
		},
	})

	s.Handler = router.New(router.Deps{
		Controllers: controllers.New(svcs),
		Session:     session,
		Validator:   svcs.PluginAuth.Validator,
		Metrics:     m,
		MetricsPath: cfg.Metrics.Path,
		CORSOrigins: cfg.Server.CORSAllowedOrigins,
		Limiter:     limiter,
		General:     router.Limit{Limit: int64(cfg.Rate.MaxRequests), Window: cfg.Rate.Window},
		PluginAuth:  router.Limit{Limit: int64(cfg.Rate.PluginAuth.Limit), Window: cfg.Rate.PluginAuth.Window},
		Login:       router.Limit{Limit: int64(cfg.Rate.Login.Limit), Window: cfg.Rate.Login.Window},
	})

	s.HTTP = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           s.Handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}
	return s, nil
}

// openSecretbox carga la master key. Sin key (solo fuera de prod, Validate
// lo garantiza) usa una efímera: lo cifrado no sobrevive un reinicio.
func openSecretbox(ctx context.Context, masterKey string) (*secretbox.Box, error) {
	if masterKey != "" {
		box, err := secretbox.FromString(masterKey)
		if err != nil {
			return nil, fmt.Errorf("secretbox: %w", err)
		}
		return box, nil
	}
	logger.From(ctx).Warn("SECRETBOX_MASTER_KEY not set, using an ephemeral key")
	k := make([]byte, 32)
	if _, err := rand.Read(k); err != nil {
		return nil, err
	}
	return secretbox.New(k)
}

// Run sirve hasta que ctx se cancele y luego hace shutdown ordenado.
func (s *Server) Run(ctx context.Context) error {
	log := logger.From(ctx).With(logger.Component("server"))
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server listening", logger.String("addr", s.HTTP.Addr))
		if err := s.HTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		timeout := s.shutdownTimeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		sctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		log.Info("shutting down http server")
		return s.HTTP.Shutdown(sctx)
	})

	err := g.Wait()
	if cerr := s.Close(); cerr != nil {
		log.Warn("cleanup error", logger.Err(cerr))
	}
	return err
}

// Close libera store y cache en orden inverso de apertura.
func (s *Server) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
