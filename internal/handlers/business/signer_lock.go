package business

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SignerLock serializes on-chain finalize calls from one signing key so nonces stay ordered.
type SignerLock interface {
	// Acquire blocks until the lock is held or ctx ends.
	Acquire(ctx context.Context) (release func(), err error)
}

// LocalSignerLock is an in-process lock for single-instance deployments.
type LocalSignerLock struct {
	ch chan struct{}
}

func NewLocalSignerLock() *LocalSignerLock {
	return &LocalSignerLock{ch: make(chan struct{}, 1)}
}

func (l *LocalSignerLock) Acquire(ctx context.Context) (func(), error) {
	select {
	case l.ch <- struct{}{}:
		return func() { <-l.ch }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("signer lock: %w", ctx.Err())
	}
}

// releaseScript deletes the key only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSignerLock shares the signer lock across API and job processes.
type RedisSignerLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	poll   time.Duration
}

// NewRedisSignerLock locks on "roundsettle:signer:<name>". ttl bounds how long a crashed
// holder blocks others and must exceed the receipt wait.
func NewRedisSignerLock(client *redis.Client, name string, ttl time.Duration) *RedisSignerLock {
	return &RedisSignerLock{
		client: client,
		key:    "roundsettle:signer:" + name,
		ttl:    ttl,
		poll:   250 * time.Millisecond,
	}
}

func (l *RedisSignerLock) Acquire(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	for {
		ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("signer lock %s: %w", l.key, err)
		}
		if ok {
			return func() {
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				releaseScript.Run(ctx, l.client, []string{l.key}, token)
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("signer lock %s: %w", l.key, ctx.Err())
		case <-time.After(l.poll):
		}
	}
}
