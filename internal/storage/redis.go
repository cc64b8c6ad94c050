package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisKV stores each collection as a plain string key, namespaced by Prefix.
type RedisKV struct {
	Client *redis.Client
	Prefix string
}

func NewRedisKV(client *redis.Client, prefix string) *RedisKV {
	return &RedisKV{Client: client, Prefix: prefix}
}

func (r *RedisKV) key(name string) string {
	return r.Prefix + name
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.Client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

// SetMany wraps the writes in MULTI/EXEC.
func (r *RedisKV) SetMany(ctx context.Context, entries map[string][]byte) error {
	_, err := r.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range entries {
			pipe.Set(ctx, r.key(k), v, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisKV) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

func (r *RedisKV) Close() error {
	return r.Client.Close()
}
