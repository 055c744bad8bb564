package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient implementa Client usando Redis.
type RedisClient struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis crea un cliente Redis y verifica la conexión.
func NewRedis(cfg Config) (*RedisClient, error) {
	addr := cfg.RedisAddr
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	// Verificar conexión
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cache: redis ping failed: %w", err)
	}
	return NewRedisFromClient(rdb, cfg.Prefix, cfg.DefaultTTL), nil
}

// NewRedisFromClient envuelve un cliente existente (compartido con el rate
// limiter).
func NewRedisFromClient(rdb *redis.Client, prefix string, defaultTTL time.Duration) *RedisClient {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	return &RedisClient{client: rdb, prefix: prefix, ttl: defaultTTL}
}

// Raw expone el cliente subyacente.
func (c *RedisClient) Raw() *redis.Client { return c.client }

func (c *RedisClient) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, prefixed(c.prefix, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return val, err
}

func (c *RedisClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	return c.client.Set(ctx, prefixed(c.prefix, key), value, ttl).Err()
}

func (c *RedisClient) Take(ctx context.Context, key string) (string, error) {
	val, err := c.client.GetDel(ctx, prefixed(c.prefix, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return val, err
}

func (c *RedisClient) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, prefixed(c.prefix, key)).Err()
}

func (c *RedisClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisClient) Close() error {
	return c.client.Close()
}
