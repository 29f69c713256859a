package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/robotshop/cart/internal/domain/cart"
	"github.com/robotshop/cart/internal/domain/shared"
)

// InMemoryCartStore is an in-process cart store with the same TTL
// semantics as the Redis store. It is suitable for tests and local
// development; state is lost on restart.
//
// Records are held serialized, like the Redis store holds them, so a
// stored cart is a snapshot: later mutations of the saved value do not
// leak into the store.
type InMemoryCartStore struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
	ttl     time.Duration

	// now is replaceable in tests to exercise expiry.
	now func() time.Time
}

type memoryRecord struct {
	payload   []byte
	expiresAt time.Time
}

// NewInMemoryCartStore creates an in-memory cart store.
func NewInMemoryCartStore(ttl time.Duration) *InMemoryCartStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &InMemoryCartStore{
		records: make(map[string]memoryRecord),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cart stored under id, or shared.ErrCartNotFound when the
// key is absent or has expired.
func (s *InMemoryCartStore) Get(_ context.Context, id string) (*cart.Cart, error) {
	s.mu.RLock()
	record, ok := s.records[id]
	s.mu.RUnlock()

	if !ok || s.now().After(record.expiresAt) {
		return nil, shared.ErrCartNotFound
	}

	var c cart.Cart
	if err := json.Unmarshal(record.payload, &c); err != nil {
		return nil, fmt.Errorf("corrupt cart record %q: %w", id, err)
	}
	return &c, nil
}

// Save overwrites the cart under id and resets its TTL.
func (s *InMemoryCartStore) Save(_ context.Context, id string, c *cart.Cart) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to serialize cart: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = memoryRecord{
		payload:   payload,
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

// Delete removes the cart under id, reporting whether a live record was
// removed. An expired record counts as already gone.
func (s *InMemoryCartStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return false, nil
	}
	delete(s.records, id)
	return !s.now().After(record.expiresAt), nil
}

// Count returns the number of non-expired records.
func (s *InMemoryCartStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	var count int64
	for _, record := range s.records {
		if !now.After(record.expiresAt) {
			count++
		}
	}
	return count, nil
}

// Ready always reports true; there is no connection to lose.
func (s *InMemoryCartStore) Ready() bool {
	return true
}

// Ensure InMemoryCartStore implements cart.Repository
var _ cart.Repository = (*InMemoryCartStore)(nil)
