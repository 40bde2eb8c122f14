package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adityahutama/pasarsegar-backend/internal/cart"
	"github.com/adityahutama/pasarsegar-backend/pkg/redis"
)

const bucketScope = "buckets"

type commands interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	CartKey(scope string) string
}

// Store keeps the serialized bucket map under a single namespaced key. Every
// save refreshes the TTL, so only abandoned carts age out.
type Store struct {
	client commands
	ttl    time.Duration
}

func New(client commands, ttl time.Duration) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &Store{client: client, ttl: ttl}, nil
}

func (s *Store) Load(ctx context.Context) (cart.BucketMap, error) {
	raw, err := s.client.Get(ctx, s.client.CartKey(bucketScope))
	if err != nil {
		if redis.IsNil(err) {
			return cart.BucketMap{}, nil
		}
		return nil, fmt.Errorf("loading cart snapshot: %w", err)
	}

	buckets := cart.BucketMap{}
	if err := json.Unmarshal([]byte(raw), &buckets); err != nil {
		return nil, fmt.Errorf("decoding cart snapshot: %w", err)
	}
	return buckets, nil
}

func (s *Store) Save(ctx context.Context, buckets cart.BucketMap) error {
	key := s.client.CartKey(bucketScope)
	if len(buckets) == 0 {
		if err := s.client.Del(ctx, key); err != nil {
			return fmt.Errorf("clearing cart snapshot: %w", err)
		}
		return nil
	}

	payload, err := json.Marshal(buckets)
	if err != nil {
		return fmt.Errorf("encoding cart snapshot: %w", err)
	}
	if err := s.client.Set(ctx, key, payload, s.ttl); err != nil {
		return fmt.Errorf("saving cart snapshot: %w", err)
	}
	return nil
}
