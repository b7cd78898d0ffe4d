package watermark

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Repository is the durable key-value capability behind the watermark. Get
// reports presence explicitly so an absent key is not an error.
type Repository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

type RedisRepository struct {
	client *redis.Client
}

func NewRepository(client *redis.Client) Repository {
	return &RedisRepository{client: client}
}

func (r *RedisRepository) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis GET failed: %w", err)
	}
	return val, true, nil
}

func (r *RedisRepository) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}
	return nil
}
