// Package pg implementa el adapter PostgreSQL sobre pgxpool.
package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/noke/internal/domain/repository"
	"github.com/dropDatabas3/noke/internal/store"
)

func init() {
	store.RegisterAdapter(&postgresAdapter{})
}

// postgresAdapter implementa store.Adapter para PostgreSQL.
type postgresAdapter struct{}

func (a *postgresAdapter) Name() string { return "postgres" }

func (a *postgresAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	if cfg.Migrate {
		if err := ApplySchema(ctx, cfg.DSN); err != nil {
			return nil, fmt.Errorf("pg: apply schema: %w", err)
		}
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}

	// Configurar pool
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	} else {
		poolCfg.MaxConns = 10
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	} else {
		poolCfg.MinConns = 2
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}

	// Verificar conexión
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping failed: %w", err)
	}

	return NewConn(pool), nil
}

// Conn es una conexión activa a PostgreSQL.
type Conn struct {
	pool PgxPool
}

// NewConn envuelve un pool ya abierto (o un pgxmock en tests).
func NewConn(pool PgxPool) *Conn {
	return &Conn{pool: pool}
}

func (c *Conn) Name() string { return "postgres" }

func (c *Conn) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

func (c *Conn) Close() error {
	c.pool.Close()
	return nil
}

// ─── Repositorios ───

func (c *Conn) Plugins() repository.PluginRepository     { return &pluginRepo{pool: c.pool} }
func (c *Conn) APITokens() repository.APITokenRepository { return &tokenRepo{pool: c.pool} }
func (c *Conn) Users() repository.UserRepository         { return &userRepo{pool: c.pool} }
func (c *Conn) Entries() repository.EntryRepository      { return &entryRepo{pool: c.pool} }

// PoolStat expone las estadísticas del pool para métricas.
func (c *Conn) PoolStat() (acquired, idle, total int32, ok bool) {
	p, isPool := c.pool.(*pgxpool.Pool)
	if !isPool {
		return 0, 0, 0, false
	}
	st := p.Stat()
	return st.AcquiredConns(), st.IdleConns(), st.TotalConns(), true
}
