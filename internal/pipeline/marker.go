package pipeline

import (
	"context"
	"sync"
	"time"
)

type (
	// Key addresses one recap computation: it is both the result-store
	// address and the dedup key.
	Key struct {
		PlayerID string
		Period   string
	}

	// MarkerStore remembers which keys completed recently. It backs the
	// optional reuse window; with the window at zero it is never consulted.
	MarkerStore interface {
		MarkComplete(ctx context.Context, key Key, ttl time.Duration) error
		IsComplete(ctx context.Context, key Key) (bool, error)
		Close() error
	}
)

// String returns the canonical key form used for dedup and event keys.
func (k Key) String() string {
	return k.PlayerID + "/" + k.Period
}

// MemoryMarkerStore keeps completion markers in process memory. Markers do
// not survive restarts and are not shared across replicas; use the Redis
// store when either matters.
type MemoryMarkerStore struct {
	mu      sync.Mutex
	expires map[string]time.Time

	now func() time.Time
}

// Compile-time interface check.
var _ MarkerStore = (*MemoryMarkerStore)(nil)

// NewMemoryMarkerStore creates an empty in-memory marker store.
func NewMemoryMarkerStore() *MemoryMarkerStore {
	return &MemoryMarkerStore{
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

// MarkComplete records a completion that expires after ttl.
func (s *MemoryMarkerStore) MarkComplete(_ context.Context, key Key, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Sweep expired markers while holding the lock; the map stays small.
	now := s.now()
	for k, exp := range s.expires {
		if now.After(exp) {
			delete(s.expires, k)
		}
	}

	s.expires[key.String()] = now.Add(ttl)

	return nil
}

// IsComplete reports whether the key has an unexpired completion marker.
func (s *MemoryMarkerStore) IsComplete(_ context.Context, key Key) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.expires[key.String()]
	if !ok {
		return false, nil
	}

	if s.now().After(exp) {
		delete(s.expires, key.String())

		return false, nil
	}

	return true, nil
}

// Close implements MarkerStore.
func (s *MemoryMarkerStore) Close() error {
	return nil
}
