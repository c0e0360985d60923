package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kendall-kelly/stitchwise-api/logging"
	"github.com/kendall-kelly/stitchwise-api/utils"
	"github.com/redis/go-redis/v9"
)

// OrderLocker serializes mutations of a single order
type OrderLocker interface {
	// Lock blocks until the order is held or ctx is done. The returned func releases it.
	Lock(ctx context.Context, orderID uint) (func(), error)
}

func errOrderBusy(orderID uint) error {
	return utils.NewConflictError("ORDER_BUSY", "order %d is being modified, try again", orderID)
}

type memoryLock struct {
	ch   chan struct{}
	refs int
}

// MemoryOrderLocker keeps per-order locks in process memory.
// It is enough for a single API instance.
type MemoryOrderLocker struct {
	mu    sync.Mutex
	locks map[uint]*memoryLock
	wait  time.Duration
}

// NewMemoryOrderLocker creates an in-process locker that gives up after wait
func NewMemoryOrderLocker(wait time.Duration) *MemoryOrderLocker {
	return &MemoryOrderLocker{
		locks: make(map[uint]*memoryLock),
		wait:  wait,
	}
}

func (l *MemoryOrderLocker) Lock(ctx context.Context, orderID uint) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[orderID]
	if !ok {
		entry = &memoryLock{ch: make(chan struct{}, 1)}
		l.locks[orderID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case entry.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-entry.ch
				l.release(orderID, entry)
			})
		}, nil
	case <-ctx.Done():
		l.release(orderID, entry)
		return nil, ctx.Err()
	case <-timer.C:
		l.release(orderID, entry)
		return nil, errOrderBusy(orderID)
	}
}

func (l *MemoryOrderLocker) release(orderID uint, entry *memoryLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, orderID)
	}
}

// releaseScript deletes the lock only when it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisOrderLocker holds per-order locks in Redis so several API instances
// can share them
type RedisOrderLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
	logger *slog.Logger
}

// NewRedisOrderLocker connects to redisURL and verifies the connection
func NewRedisOrderLocker(redisURL string, ttl, wait time.Duration, logger *slog.Logger) (*RedisOrderLocker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisOrderLockerWithClient(client, ttl, wait, logger), nil
}

// NewRedisOrderLockerWithClient wraps an existing client
func NewRedisOrderLockerWithClient(client *redis.Client, ttl, wait time.Duration, logger *slog.Logger) *RedisOrderLocker {
	return &RedisOrderLocker{
		client: client,
		ttl:    ttl,
		wait:   wait,
		retry:  25 * time.Millisecond,
		logger: logging.FromContext(context.Background(), logger),
	}
}

func orderLockKey(orderID uint) string {
	return fmt.Sprintf("lock:order:%d", orderID)
}

func (l *RedisOrderLocker) Lock(ctx context.Context, orderID uint) (func(), error) {
	key := orderLockKey(orderID)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire order lock: %w", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, errOrderBusy(orderID)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}

	return func() {
		// The request context may already be cancelled; release regardless.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			// The lock expires after ttl anyway.
			l.logger.Warn("failed to release order lock", "order_id", orderID, "error", err)
		}
	}, nil
}

// Close closes the underlying Redis client
func (l *RedisOrderLocker) Close() error {
	return l.client.Close()
}
