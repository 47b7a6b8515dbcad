package credstore

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisKV implements KV on a Redis hash, for host processes that already run
// against Redis (e.g. a kiosk deployment sharing one sign-in). All keys live
// under a single hash so Clear-style removals stay scoped to one namespace.
type RedisKV struct {
	client redis.UniversalClient
	hash   string
}

// NewRedisKV creates a Redis backend storing values in the given hash key.
func NewRedisKV(client redis.UniversalClient, hash string) *RedisKV {
	if hash == "" {
		hash = "jobdeck:credentials"
	}
	return &RedisKV{client: client, hash: hash}
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.HGet(ctx, r.hash, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	return r.client.HSet(ctx, r.hash, key, value).Err()
}

func (r *RedisKV) Remove(ctx context.Context, key string) error {
	return r.client.HDel(ctx, r.hash, key).Err()
}
