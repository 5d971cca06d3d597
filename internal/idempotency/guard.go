// Package idempotency guards checkout requests that carry the same
// idempotency key from running concurrently. The database unique index stays
// the source of truth, the guard only turns racing duplicates into fast
// conflicts.
package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "checkout:inflight:"

type Guard interface {
	// Acquire claims key. ok is false when another request holds it.
	Acquire(ctx context.Context, key string) (token string, ok bool, err error)
	// Release frees key if it is still held with token.
	Release(ctx context.Context, key, token string) error
}

var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisGuard shares in-flight keys between every API instance.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisGuard{client: client, ttl: ttl}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, keyPrefix+key, token, g.ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (g *RedisGuard) Release(ctx context.Context, key, token string) error {
	return releaseScript.Run(ctx, g.client, []string{keyPrefix + key}, token).Err()
}

// LocalGuard is the single process fallback used when no Redis is configured.
type LocalGuard struct {
	mu   sync.Mutex
	held map[string]string
}

func NewLocalGuard() *LocalGuard {
	return &LocalGuard{held: make(map[string]string)}
}

func (g *LocalGuard) Acquire(_ context.Context, key string) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.held[key]; busy {
		return "", false, nil
	}
	token := uuid.NewString()
	g.held[key] = token
	return token, true, nil
}

func (g *LocalGuard) Release(_ context.Context, key, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held[key] == token {
		delete(g.held, key)
	}
	return nil
}
