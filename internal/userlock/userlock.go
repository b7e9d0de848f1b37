// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package userlock serializes edition curation per user. Memory works
// inside one process; Redis extends the guarantee across a CLI invocation
// and a running server sharing the same database.
package userlock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker acquires an exclusive lock for one user.
type Locker interface {
	Lock(ctx context.Context, userID int64) (unlock func(), err error)
}

// Memory is an in-process keyed lock.
type Memory struct {
	mu    sync.Mutex
	locks map[int64]chan struct{}
}

var _ Locker = (*Memory)(nil)

// NewMemory returns an empty in-process locker.
func NewMemory() *Memory {
	return &Memory{locks: make(map[int64]chan struct{})}
}

// Lock blocks until the user's lock is free or ctx is done.
func (m *Memory) Lock(ctx context.Context, userID int64) (func(), error) {
	m.mu.Lock()
	l, ok := m.locks[userID]
	if !ok {
		l = make(chan struct{}, 1)
		m.locks[userID] = l
	}
	m.mu.Unlock()

	select {
	case l <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-l }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// pollInterval is how often a blocked Redis lock retries. Tests shorten it.
var pollInterval = 100 * time.Millisecond

// Redis is a lock held as a Redis key with a per-holder token and a TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

var _ Locker = (*Redis)(nil)

// NewRedis connects to addr and verifies the connection.
func NewRedis(ctx context.Context, addr, password string, db int, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis %s: %w", addr, err)
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Redis{client: client, ttl: ttl, prefix: "curator:lock:user:"}, nil
}

// Key returns the Redis key used for userID.
func (r *Redis) Key(userID int64) string {
	return fmt.Sprintf("%s%d", r.prefix, userID)
}

// Lock polls SET NX until the key is acquired or ctx is done.
func (r *Redis) Lock(ctx context.Context, userID int64) (func(), error) {
	key := r.Key(userID)
	token := uuid.NewString()

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("acquiring lock %s: %w", key, err)
		}
		if ok {
			var once sync.Once
			return func() {
				once.Do(func() {
					// Release with a fresh context so a cancelled caller still unlocks.
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					releaseScript.Run(ctx, r.client, []string{key}, token)
				})
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// Close releases the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
