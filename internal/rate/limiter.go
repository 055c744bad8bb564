// Package rate implementa rate limiting de ventana fija.
package rate

import (
	"context"
	"fmt"
	"strings"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// Result es el resultado de una consulta al limiter.
type Result struct {
	Allowed     bool
	Remaining   int64
	RetryAfter  time.Duration
	WindowTTL   time.Duration
	CurrentHits int64
}

// Limiter cuenta hits por key dentro de una ventana fija. El límite y la
// ventana se pasan por llamada para que cada ruta tenga los suyos.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (Result, error)
}

func newResult(hits, limit int64, ttl, window time.Duration) Result {
	remaining := limit - hits
	if remaining < 0 {
		remaining = 0
	}
	if ttl <= 0 {
		ttl = window
	}
	res := Result{
		Allowed:     hits <= limit,
		Remaining:   remaining,
		CurrentHits: hits,
		WindowTTL:   ttl,
	}
	if !res.Allowed {
		// Retry after: resto de la ventana, redondeado a segundos
		res.RetryAfter = ttl.Round(time.Second)
		if res.RetryAfter < time.Second {
			res.RetryAfter = time.Second
		}
	}
	return res
}

// RedisLimiter: fixed window con INCR + EXPIRE NX en una transacción.
type RedisLimiter struct {
	Client *rdb.Client
	Prefix string
}

func NewRedisLimiter(client *rdb.Client, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{Client: client, Prefix: prefix}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (Result, error) {
	winStart := time.Now().UTC().Truncate(window)
	redisKey := fmt.Sprintf("%s%s:%d", l.Prefix, strings.ReplaceAll(key, " ", "_"), winStart.Unix())

	pipe := l.Client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, window)
	ttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}
	return newResult(incr.Val(), limit, ttl.Val(), window), nil
}
