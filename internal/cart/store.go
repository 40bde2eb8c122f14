package cart

import (
	"context"
	"sync"
)

// Store is the persistence port for the ledger's bucket map. Implementations
// must tolerate being handed an empty map.
type Store interface {
	Load(ctx context.Context) (BucketMap, error)
	Save(ctx context.Context, buckets BucketMap) error
}

// MemoryStore keeps the bucket map in process memory. Used by tests and as a
// fallback when no durable store is configured.
type MemoryStore struct {
	mu      sync.Mutex
	buckets BucketMap
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: BucketMap{}}
}

func (s *MemoryStore) Load(ctx context.Context) (BucketMap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buckets.Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, buckets BucketMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets = buckets.Clone()
	return nil
}
