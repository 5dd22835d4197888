// Package scanguard debounces repeated scans of the same code. A scan holds a
// short-lived lock; a second scan arriving while the lock is held is refused
// instead of being processed twice.
package scanguard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type Guard interface {
	// Acquire takes the lock for key. It reports false when the key is
	// already held.
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// New returns a Redis guard when redisURL is set, an in-process guard otherwise.
func New(redisURL string, ttl time.Duration) (Guard, error) {
	if redisURL == "" {
		slog.Info("scan guard running in memory")
		return NewMemoryGuard(ttl), nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}
	slog.Info("scan guard running on redis", "addr", opts.Addr)
	return NewRedisGuard(redis.NewClient(opts), ttl), nil
}

type RedisGuard struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{redis: client, ttl: ttl}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (bool, error) {
	ok, err := g.redis.SetNX(ctx, "scan:"+key, 1, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("scan guard acquire: %w", err)
	}
	return ok, nil
}

func (g *RedisGuard) Release(ctx context.Context, key string) error {
	if err := g.redis.Del(ctx, "scan:"+key).Err(); err != nil {
		return fmt.Errorf("scan guard release: %w", err)
	}
	return nil
}

func (g *RedisGuard) Close() error {
	return g.redis.Close()
}

type MemoryGuard struct {
	mu   sync.Mutex
	ttl  time.Duration
	held map[string]time.Time
	now  func() time.Time
}

func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	return &MemoryGuard{ttl: ttl, held: make(map[string]time.Time), now: time.Now}
}

func (g *MemoryGuard) Acquire(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if until, ok := g.held[key]; ok && now.Before(until) {
		return false, nil
	}
	g.held[key] = now.Add(g.ttl)

	// Drop expired entries so the map does not grow with every code ever scanned.
	for k, until := range g.held {
		if !now.Before(until) {
			delete(g.held, k)
		}
	}
	return true, nil
}

func (g *MemoryGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, key)
	return nil
}
