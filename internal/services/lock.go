package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker is the per-campaign busy flag. Acquire reports false when another
// request for the same campaign is still in flight.
type Locker interface {
	Acquire(ctx context.Context, id uuid.UUID) (bool, error)
	Release(ctx context.Context, id uuid.UUID) error
}

// LocalLocker keeps busy flags in process memory.
type LocalLocker struct {
	mu   sync.Mutex
	busy map[uuid.UUID]struct{}
}

var _ Locker = (*LocalLocker)(nil)

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{busy: make(map[uuid.UUID]struct{})}
}

func (l *LocalLocker) Acquire(ctx context.Context, id uuid.UUID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.busy[id]; ok {
		return false, nil
	}
	l.busy[id] = struct{}{}
	return true, nil
}

func (l *LocalLocker) Release(ctx context.Context, id uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.busy, id)
	return nil
}

// releaseScript deletes the lock only if we still own it.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisLocker shares busy flags between API instances. Locks expire after
// ttl so a crashed holder cannot block a campaign forever.
type RedisLocker struct {
	client *redis.Client
	owner  string
	ttl    time.Duration
}

var _ Locker = (*RedisLocker)(nil)

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		client: client,
		owner:  fmt.Sprintf("api-%s", uuid.New().String()[:8]),
		ttl:    ttl,
	}
}

func lockKey(id uuid.UUID) string {
	return "campaign-lock:" + id.String()
}

func (l *RedisLocker) Acquire(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKey(id), l.owner, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire campaign lock: %w", err)
	}
	return ok, nil
}

func (l *RedisLocker) Release(ctx context.Context, id uuid.UUID) error {
	if err := releaseScript.Run(ctx, l.client, []string{lockKey(id)}, l.owner).Err(); err != nil {
		return fmt.Errorf("failed to release campaign lock: %w", err)
	}
	return nil
}
