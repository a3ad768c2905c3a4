package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"checkout-service/models"

	"github.com/redis/go-redis/v9"
)

// SessionStore persists the checkout state machine between requests.
type SessionStore interface {
	Load(ctx context.Context, userID string) (*models.CheckoutSession, error)
	Save(ctx context.Context, session *models.CheckoutSession) error
	Clear(ctx context.Context, userID string) error
}

// RedisSessionStore implements SessionStore on Redis, one JSON value per
// shopper.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore creates a RedisSessionStore.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func (s *RedisSessionStore) key(userID string) string {
	return fmt.Sprintf("checkout:user:%s", userID)
}

// Load returns the stored session, or nil when none exists.
func (s *RedisSessionStore) Load(ctx context.Context, userID string) (*models.CheckoutSession, error) {
	data, err := s.client.Get(ctx, s.key(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var session models.CheckoutSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Save writes the session back, refreshing its TTL.
func (s *RedisSessionStore) Save(ctx context.Context, session *models.CheckoutSession) error {
	session.UpdatedAt = time.Now()

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(session.UserID), data, s.ttl).Err()
}

// Clear deletes the stored session.
func (s *RedisSessionStore) Clear(ctx context.Context, userID string) error {
	return s.client.Del(ctx, s.key(userID)).Err()
}
