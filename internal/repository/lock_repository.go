package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

type localLock struct {
	token     string
	expiresAt time.Time
}

// LockRepository hands out short-lived named locks. With a Redis client the lock is
// shared by every process; without one it only guards the current process.
type LockRepository struct {
	client *redis.Client
	prefix string
	now    func() time.Time

	mu    sync.Mutex
	local map[string]localLock
}

// NewLockRepository constructs a lock repository. Keys are stored under prefix.
func NewLockRepository(client *redis.Client, prefix string) *LockRepository {
	if prefix == "" {
		prefix = "lock:"
	}
	return &LockRepository{client: client, prefix: prefix, now: time.Now, local: make(map[string]localLock)}
}

// Acquire takes the lock for name. It returns the token needed to release it, or
// ok=false when someone else holds the lock.
func (r *LockRepository) Acquire(ctx context.Context, name string, ttl time.Duration) (string, bool, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}
	token := uuid.NewString()
	key := r.prefix + name

	if r.client != nil {
		ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return "", false, fmt.Errorf("redis setnx %s: %w", key, err)
		}
		if !ok {
			return "", false, nil
		}
		return token, true, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if held, exists := r.local[key]; exists && now.Before(held.expiresAt) {
		return "", false, nil
	}
	r.local[key] = localLock{token: token, expiresAt: now.Add(ttl)}
	return token, true, nil
}

// Release frees the lock if token still owns it. Releasing an expired or foreign
// lock is a no-op.
func (r *LockRepository) Release(ctx context.Context, name, token string) error {
	key := r.prefix + name
	if r.client != nil {
		if err := releaseLockScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
			return fmt.Errorf("redis release %s: %w", key, err)
		}
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if held, exists := r.local[key]; exists && held.token == token {
		delete(r.local, key)
	}
	return nil
}
