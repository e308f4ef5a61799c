package redisad

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"review_analyzer/internal/adapters/observability"
)

// Cache stores JSON-encoded values in Redis.
type Cache struct {
	c    *redis.Client
	name string
}

func New(addr, pass string, db int) *Cache {
	return &Cache{
		c:    redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}),
		name: "redis",
	}
}

func (r *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, err := r.c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.ObserveCache(r.name, "miss")
		return false, nil
	}
	if err != nil {
		observability.ObserveCache(r.name, "error")
		return false, err
	}
	if err := json.Unmarshal(v, dst); err != nil {
		observability.ObserveCache(r.name, "error")
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	observability.ObserveCache(r.name, "hit")
	return true, nil
}

func (r *Cache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	observability.ObserveCache(r.name, "set")
	return r.c.Set(ctx, key, b, time.Duration(ttlSec)*time.Second).Err()
}

func (r *Cache) Del(ctx context.Context, key string) error {
	observability.ObserveCache(r.name, "del")
	return r.c.Del(ctx, key).Err()
}

func (r *Cache) Ping(ctx context.Context) error { return r.c.Ping(ctx).Err() }

func (r *Cache) Close() error { return r.c.Close() }
