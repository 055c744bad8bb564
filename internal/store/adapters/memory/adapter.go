// Package memory implementa un adapter en memoria. Se usa en desarrollo y en
// los tests de servicios; respeta las mismas precondiciones que pg.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dropDatabas3/noke/internal/domain/repository"
	"github.com/dropDatabas3/noke/internal/store"
)

func init() {
	store.RegisterAdapter(&memoryAdapter{})
}

type memoryAdapter struct{}

func (a *memoryAdapter) Name() string { return "memory" }

func (a *memoryAdapter) Connect(_ context.Context, _ store.AdapterConfig) (store.AdapterConnection, error) {
	return New(), nil
}

// Conn es una conexión en memoria. Todas las colecciones comparten un mutex.
type Conn struct {
	mu  sync.Mutex
	now func() time.Time
	seq int64

	plugins map[pluginKey]*pluginDoc
	tokens  map[string]*repository.APIToken
	users   map[string]*repository.User
	entries map[string][]repository.Entry
}

// New crea una conexión vacía.
func New() *Conn {
	return &Conn{
		now:     time.Now,
		plugins: make(map[pluginKey]*pluginDoc),
		tokens:  make(map[string]*repository.APIToken),
		users:   make(map[string]*repository.User),
		entries: make(map[string][]repository.Entry),
	}
}

// SetClock reemplaza el reloj (tests).
func (c *Conn) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// SeedEntry agrega una entrada del vault. El plugin solo lee entradas, la
// carga la hace el front principal.
func (c *Conn) SeedEntry(e repository.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = c.now()
	}
	c.entries[e.Username] = append(c.entries[e.Username], e)
}

func (c *Conn) Name() string                 { return "memory" }
func (c *Conn) Ping(_ context.Context) error { return nil }
func (c *Conn) Close() error                 { return nil }

func (c *Conn) Plugins() repository.PluginRepository     { return &pluginRepo{c: c} }
func (c *Conn) APITokens() repository.APITokenRepository { return &tokenRepo{c: c} }
func (c *Conn) Users() repository.UserRepository         { return &userRepo{c: c} }
func (c *Conn) Entries() repository.EntryRepository      { return &entryRepo{c: c} }

func ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
