package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisBackend keeps one string key per collection.
type RedisBackend struct {
	rc     redis.Cmdable
	prefix string
	closer func() error
}

// NewRedisBackend wraps an existing client. The backend does not own the client
// unless closeClient is true.
func NewRedisBackend(rc *redis.Client, prefix string, closeClient bool) *RedisBackend {
	b := &RedisBackend{rc: rc, prefix: prefix}
	if closeClient {
		b.closer = rc.Close
	}
	return b
}

func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.rc.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return data, err
}

func (r *RedisBackend) Put(ctx context.Context, key string, data []byte) error {
	return r.rc.Set(ctx, r.prefix+key, data, 0).Err()
}

func (r *RedisBackend) Name() string { return "redis" }

func (r *RedisBackend) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}
