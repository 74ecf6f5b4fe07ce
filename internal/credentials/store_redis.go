package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"campusauth/pkg/platform/sentinel"
)

// RedisStore persists secrets in Redis, for shared or kiosk deployments where
// a login must survive on a machine with no durable home directory.
type RedisStore struct {
	scope  Scope
	client *redis.Client
}

// NewRedisStore constructs a Redis-backed store on an existing client.
func NewRedisStore(scope Scope, client *redis.Client) *RedisStore {
	return &RedisStore{scope: scope, client: client}
}

func (s *RedisStore) Save(ctx context.Context, secret string) error {
	if err := s.client.Set(ctx, s.redisKey(), secret, 0).Err(); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

func (s *RedisStore) Read(ctx context.Context) (string, error) {
	secret, err := s.client.Get(ctx, s.redisKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("refresh token not stored: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read refresh token: %w", err)
	}
	return secret, nil
}

func (s *RedisStore) Delete(ctx context.Context) error {
	if err := s.client.Del(ctx, s.redisKey()).Err(); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

func (s *RedisStore) redisKey() string {
	return "campusauth:credentials:" + s.scope.key()
}
