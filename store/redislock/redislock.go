// Package redislock provides a vacation.Locker backed by Redis, for
// deployments where more than one process ingests messages.
//
// The lock is a SET NX PX key holding a random token. Release deletes the
// key only if it still holds that token. The TTL bounds how long a crashed
// holder can block an employee; a live holder renews it every ttl/3 so a
// slow confirmation prompt does not lose the lock.
package redislock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/warp/vacation-calendar/vacation"
)

const (
	DefaultTTL   = 10 * time.Second
	DefaultRetry = 50 * time.Millisecond
	keyPrefix    = "vacation:lock:"
)

const (
	unlockScript  = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) else return 0 end`
	refreshScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("PEXPIRE", KEYS[1], ARGV[2]) else return 0 end`
)

// Locker implements vacation.Locker.
type Locker struct {
	client   redis.Cmdable
	ttl      time.Duration
	retry    time.Duration
	refresh  time.Duration
	newToken func() string
	logger   *zap.Logger
}

var _ vacation.Locker = (*Locker)(nil)

// Option configures a Locker.
type Option func(*Locker)

func WithRetry(d time.Duration) Option {
	return func(l *Locker) {
		if d > 0 {
			l.retry = d
		}
	}
}

// WithRefresh sets how often a held lock renews its TTL.
func WithRefresh(d time.Duration) Option {
	return func(l *Locker) {
		if d > 0 {
			l.refresh = d
		}
	}
}

func WithTokenFunc(fn func() string) Option {
	return func(l *Locker) {
		if fn != nil {
			l.newToken = fn
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(l *Locker) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Locker. A non-positive ttl uses DefaultTTL.
func New(client redis.Cmdable, ttl time.Duration, opts ...Option) *Locker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	l := &Locker{
		client:   client,
		ttl:      ttl,
		retry:    DefaultRetry,
		refresh:  ttl / 3,
		newToken: uuid.NewString,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.refresh <= 0 {
		l.refresh = l.ttl
	}
	return l
}

// Connect opens a client and pings it.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

// Lock implements vacation.Locker.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	k := keyPrefix + key
	token := l.newToken()

	for {
		ok, err := l.client.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(k, token, stop, done)

	return func() {
		close(stop)
		<-done
		// The caller's context may already be cancelled; release anyway.
		if err := l.client.Eval(context.Background(), unlockScript, []string{k}, token).Err(); err != nil {
			l.logger.Warn("redis unlock failed", zap.String("key", k), zap.Error(err))
		}
	}, nil
}

// keepAlive renews the TTL until stop is closed or the lock is lost.
func (l *Locker) keepAlive(k, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.refresh)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		n, err := l.client.Eval(context.Background(), refreshScript, []string{k}, token, l.ttl.Milliseconds()).Int64()
		switch {
		case err != nil:
			l.logger.Warn("redis lock refresh failed", zap.String("key", k), zap.Error(err))
		case n == 0:
			l.logger.Warn("redis lock lost before release", zap.String("key", k))
			return
		}
	}
}
