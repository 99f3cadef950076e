package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrNotHeld = errors.New("lock was not held or already expired")

type RedisOptions struct {
	// Expiry bounds how long a crashed holder can block the key.
	Expiry     time.Duration
	Tries      int
	RetryDelay time.Duration
}

func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		Expiry:     10 * time.Second,
		Tries:      32,
		RetryDelay: 100 * time.Millisecond,
	}
}

// Redis is a Locker shared by every process pointed at the same Redis.
type Redis struct {
	rs   *redsync.Redsync
	opts RedisOptions
	log  *zap.Logger
}

func NewRedis(client redis.UniversalClient, opts RedisOptions, log *zap.Logger) *Redis {
	def := DefaultRedisOptions()
	if opts.Expiry <= 0 {
		opts.Expiry = def.Expiry
	}
	if opts.Tries < 1 {
		opts.Tries = def.Tries
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = def.RetryDelay
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Redis{
		rs:   redsync.New(goredis.NewPool(client)),
		opts: opts,
		log:  log,
	}
}

func (r *Redis) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if key == "" {
		return ErrEmptyKey
	}
	m := r.rs.NewMutex(key,
		redsync.WithExpiry(r.opts.Expiry),
		redsync.WithTries(r.opts.Tries),
		redsync.WithRetryDelay(r.opts.RetryDelay),
	)
	if err := m.LockContext(ctx); err != nil {
		return fmt.Errorf("acquire lock %s: %w", key, err)
	}

	fnErr := fn(ctx)

	// release even when ctx is already cancelled
	unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	ok, err := m.UnlockContext(unlockCtx)
	switch {
	case err != nil:
		r.log.Warn("lock release failed", zap.String("key", key), zap.Error(err))
	case !ok:
		r.log.Warn("lock expired before release", zap.String("key", key), zap.Error(ErrNotHeld))
	}
	return fnErr
}
