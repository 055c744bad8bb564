package rate

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter es el equivalente in-process de RedisLimiter. Solo sirve con
// una réplica.
type MemoryLimiter struct {
	c   *gocache.Cache
	now func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		c:   gocache.New(time.Minute, time.Minute),
		now: time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int64, window time.Duration) (Result, error) {
	now := l.now().UTC()
	winStart := now.Truncate(window)
	k := key + "|" + winStart.Format(time.RFC3339Nano)

	var hits int64
	for {
		if err := l.c.Add(k, int64(1), window); err == nil {
			hits = 1
			break
		}
		n, err := l.c.IncrementInt64(k, 1)
		if err == nil {
			hits = n
			break
		}
		// La entrada expiró entre Add e Increment: reintentar.
	}

	return newResult(hits, limit, winStart.Add(window).Sub(now), window), nil
}
