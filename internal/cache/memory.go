package cache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryClient implementa Client sobre go-cache.
type MemoryClient struct {
	prefix string
	ttl    time.Duration
	c      *gocache.Cache
	takeMu sync.Mutex
}

// NewMemory crea un cliente en memoria. Las entradas expiradas se limpian
// cada minuto.
func NewMemory(prefix string, defaultTTL time.Duration) *MemoryClient {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	return &MemoryClient{
		prefix: prefix,
		ttl:    defaultTTL,
		c:      gocache.New(defaultTTL, time.Minute),
	}
}

func (m *MemoryClient) Get(_ context.Context, key string) (string, error) {
	v, ok := m.c.Get(prefixed(m.prefix, key))
	if !ok {
		return "", ErrNotFound
	}
	s, _ := v.(string)
	return s, nil
}

func (m *MemoryClient) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.ttl
	}
	m.c.Set(prefixed(m.prefix, key), value, ttl)
	return nil
}

func (m *MemoryClient) Take(_ context.Context, key string) (string, error) {
	k := prefixed(m.prefix, key)

	m.takeMu.Lock()
	defer m.takeMu.Unlock()

	v, ok := m.c.Get(k)
	if !ok {
		return "", ErrNotFound
	}
	m.c.Delete(k)
	s, _ := v.(string)
	return s, nil
}

func (m *MemoryClient) Delete(_ context.Context, key string) error {
	m.c.Delete(prefixed(m.prefix, key))
	return nil
}

func (m *MemoryClient) Ping(context.Context) error { return nil }

func (m *MemoryClient) Close() error {
	m.c.Flush()
	return nil
}
