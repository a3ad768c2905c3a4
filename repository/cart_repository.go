package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"checkout-service/models"

	"github.com/redis/go-redis/v9"
)

// CartStore persists a shopper's cart between requests. The cart service
// is written against this interface so tests can swap in an in-memory
// store.
type CartStore interface {
	Load(ctx context.Context, userID string) (*models.Cart, error)
	Save(ctx context.Context, cart *models.Cart) error
	Clear(ctx context.Context, userID string) error
}

// RedisCartStore implements CartStore on Redis with a JSON value per user.
type RedisCartStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCartStore creates a RedisCartStore.
func NewRedisCartStore(client *redis.Client, ttl time.Duration) *RedisCartStore {
	return &RedisCartStore{client: client, ttl: ttl}
}

func (s *RedisCartStore) key(userID string) string {
	return fmt.Sprintf("cart:user:%s", userID)
}

// Load returns the stored cart, or nil when the user has none.
func (s *RedisCartStore) Load(ctx context.Context, userID string) (*models.Cart, error) {
	data, err := s.client.Get(ctx, s.key(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cart models.Cart
	if err := json.Unmarshal([]byte(data), &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// Save writes the cart back, refreshing its TTL.
func (s *RedisCartStore) Save(ctx context.Context, cart *models.Cart) error {
	cart.UpdatedAt = time.Now()

	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(cart.UserID), data, s.ttl).Err()
}

// Clear deletes the stored cart.
func (s *RedisCartStore) Clear(ctx context.Context, userID string) error {
	return s.client.Del(ctx, s.key(userID)).Err()
}
