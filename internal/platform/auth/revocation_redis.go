package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "revoked:"

// NewRedisClient connects to the Redis server at url and pings it.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

// RedisRevocationStore keeps each revoked JTI under revoked:<jti> with a TTL
// that ends when the token would have expired.
type RedisRevocationStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{client: client, now: time.Now}
}

func revokedKey(jti string) string {
	return revokedKeyPrefix + jti
}

func (s *RedisRevocationStore) Revoke(ctx context.Context, jti string, userID int64, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	value, err := json.Marshal(revocationEntry{ExpiresAt: expiresAt, UserID: userID})
	if err != nil {
		return fmt.Errorf("encoding revocation: %w", err)
	}
	if err := s.client.Set(ctx, revokedKey(jti), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", revokedKey(jti), err)
	}
	return nil
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := s.client.Get(ctx, revokedKey(jti)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", revokedKey(jti), err)
	}
	return true, nil
}

func (s *RedisRevocationStore) Close() error {
	return s.client.Close()
}
