package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	Namespace string
}

// Redis stores values under "<namespace>:kv:<key>"
type Redis struct {
	client    *redis.Client
	namespace string
}

// NewRedis connects and pings the server before returning
func NewRedis(config *RedisConfig) (*Redis, error) {
	if config.Addr == "" {
		return nil, errors.New("redis address is empty")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &Redis{client: client, namespace: config.Namespace}, nil
}

func (r *Redis) key(key string) string {
	return createKey(r.namespace, key)
}

func createKey(namespace, key string) string {
	if namespace == "" {
		return "kv:" + key
	}
	return fmt.Sprintf("%s:kv:%s", namespace, key)
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return v, err
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, r.key(key), value, 0).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
