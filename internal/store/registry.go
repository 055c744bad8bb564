// Package store provee el registry de adaptadores de almacenamiento.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dropDatabas3/noke/internal/domain/repository"
)

// Adapter representa un adaptador capaz de abrir conexiones al store.
type Adapter interface {
	// Name retorna el nombre del adapter ("memory", "postgres").
	Name() string

	// Connect establece conexión con el almacenamiento.
	Connect(ctx context.Context, cfg AdapterConfig) (AdapterConnection, error)
}

// AdapterConnection es una conexión activa y el acceso a sus repositorios.
type AdapterConnection interface {
	Name() string
	Ping(ctx context.Context) error
	Close() error

	Plugins() repository.PluginRepository
	APITokens() repository.APITokenRepository
	Users() repository.UserRepository
	Entries() repository.EntryRepository
}

// AdapterConfig configuración para conectar a un almacenamiento.
type AdapterConfig struct {
	// Name del adapter: "memory", "postgres".
	Name string

	// DSN connection string (postgres).
	DSN string

	// Pool settings.
	MaxOpenConns int
	MaxIdleConns int

	// Migrate aplica el schema embebido al conectar.
	Migrate bool
}

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// RegisterAdapter registra un adapter en el registry global.
// Llamar en init() de cada adapter.
func RegisterAdapter(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name := a.Name()
	if _, exists := adapters[name]; exists {
		panic(fmt.Sprintf("adapter: %q already registered", name))
	}
	adapters[name] = a
}

// GetAdapter obtiene un adapter por nombre.
func GetAdapter(name string) (Adapter, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := adapters[name]
	return a, ok
}

// ListAdapters retorna los nombres registrados, ordenados.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenAdapter abre una conexión usando el adapter indicado en la config.
func OpenAdapter(ctx context.Context, cfg AdapterConfig) (AdapterConnection, error) {
	a, ok := GetAdapter(cfg.Name)
	if !ok {
		return nil, fmt.Errorf("adapter: %q not registered (available: %v)", cfg.Name, ListAdapters())
	}
	return a.Connect(ctx, cfg)
}
