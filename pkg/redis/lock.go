package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Ramsey-B/camellia/pkg/metrics"
)

var (
	// ErrLockNotAcquired is returned when another run holds the lock
	ErrLockNotAcquired = errors.New("lock not acquired")
	// ErrLockNotHeld is returned when trying to release or extend a lock not held
	ErrLockNotHeld = errors.New("lock not held")
)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// Lock is a held run lock. The value identifies the holder.
type Lock struct {
	client *Client
	key    string
	value  string
	ttl    time.Duration
}

func (lock *Lock) Key() string {
	return lock.key
}

// Locker hands out run locks scoped to one record store
type Locker struct {
	client    *Client
	keyPrefix string
}

// NewLocker creates a new Locker
func NewLocker(client *Client, keyPrefix string) *Locker {
	if keyPrefix == "" {
		keyPrefix = "camellia:lock:"
	}
	return &Locker{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Acquire takes the lock or fails at once with ErrLockNotAcquired. The holder value carries
// the run id so an operator can see who holds it.
func (l *Locker) Acquire(ctx context.Context, key, runID string, ttl time.Duration) (*Lock, error) {
	lockKey := l.keyPrefix + key
	lockValue := fmt.Sprintf("%s/%s", runID, uuid.NewString())

	ok, err := l.client.rdb.SetNX(ctx, lockKey, lockValue, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		metrics.RunLockContention.Inc()
		holder, _ := l.client.rdb.Get(ctx, lockKey).Result()
		return nil, fmt.Errorf("%w: %s held by %s", ErrLockNotAcquired, lockKey, holder)
	}

	l.client.logger.WithContext(ctx).WithFields(map[string]any{
		"key":    lockKey,
		"run_id": runID,
	}).Info("Acquired run lock")

	return &Lock{
		client: l.client,
		key:    lockKey,
		value:  lockValue,
		ttl:    ttl,
	}, nil
}

// Release deletes the lock only if this holder still owns it
func (lock *Lock) Release(ctx context.Context) error {
	result, err := releaseScript.Run(ctx, lock.client.rdb, []string{lock.key}, lock.value).Int64()
	if err != nil {
		return err
	}
	if result == 0 {
		return ErrLockNotHeld
	}

	lock.client.logger.WithContext(ctx).Debugf("Released lock: %s", lock.key)
	return nil
}

// Extend resets the lock's TTL if this holder still owns it
func (lock *Lock) Extend(ctx context.Context) error {
	result, err := extendScript.Run(ctx, lock.client.rdb, []string{lock.key}, lock.value, lock.ttl.Milliseconds()).Int64()
	if err != nil {
		return err
	}
	if result == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// KeepAlive extends the lock every third of its TTL until ctx ends. A lost lock cancels the
// returned context so the run stops at the next chunk boundary.
func (lock *Lock) KeepAlive(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancelCause(ctx)
	interval := lock.ttl / 3
	if interval <= 0 {
		interval = time.Second
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := lock.Extend(ctx); err != nil {
					lock.client.logger.WithContext(ctx).WithError(err).WithField("key", lock.key).Error("Lost run lock")
					cancel(fmt.Errorf("run lock %s lost: %w", lock.key, err))
					return
				}
			}
		}
	}()

	return ctx
}
