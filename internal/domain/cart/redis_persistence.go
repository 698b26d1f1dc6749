// internal/domain/cart/redis_persistence.go
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPersistence stores a guest cart under cart:session:<id>
type RedisPersistence struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

// SessionKey returns the redis key of a guest cart
func SessionKey(sessionID string) string {
	return fmt.Sprintf("cart:session:%s", sessionID)
}

// NewRedisPersistence creates persistence for one guest session
func NewRedisPersistence(client redis.Cmdable, sessionID string, ttl time.Duration) *RedisPersistence {
	return &RedisPersistence{
		client: client,
		key:    SessionKey(sessionID),
		ttl:    ttl,
	}
}

func (r *RedisPersistence) Load(ctx context.Context) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read guest cart: %w", err)
	}
	return data, nil
}

// Save writes the cart and refreshes its expiry
func (r *RedisPersistence) Save(ctx context.Context, data []byte) error {
	if err := r.client.Set(ctx, r.key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save guest cart: %w", err)
	}
	return nil
}

func (r *RedisPersistence) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("failed to clear guest cart: %w", err)
	}
	return nil
}
