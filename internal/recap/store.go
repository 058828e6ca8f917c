package recap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rewind-gg/rewind/internal/blob"
)

// Store reads and writes recap documents keyed by player and period.
type Store interface {
	// Get returns the stored recap, ErrNotFound when none exists, or a
	// *DeserializationError when the stored bytes cannot be decoded.
	Get(ctx context.Context, puuid, period string) (*Document, error)

	// Put stores a recap, replacing any previous one for the same key.
	Put(ctx context.Context, doc *Document) error
}

// BlobStore keeps recap documents as plain JSON blobs under
// kpis/{puuid}/{period}.json.
type BlobStore struct {
	store blob.Store
}

// Compile-time interface check.
var _ Store = (*BlobStore)(nil)

// NewBlobStore wraps a blob store in the recap document layout.
func NewBlobStore(store blob.Store) *BlobStore {
	return &BlobStore{store: store}
}

// Key returns the blob key for a player and period.
func Key(puuid, period string) string {
	return fmt.Sprintf("kpis/%s/%s.json", puuid, period)
}

// Get retrieves and decodes a recap document.
func (s *BlobStore) Get(ctx context.Context, puuid, period string) (*Document, error) {
	key := Key(puuid, period)

	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, puuid, period)
		}

		return nil, fmt.Errorf("read recap %s: %w", key, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &DeserializationError{Key: key, Err: err}
	}

	return &doc, nil
}

// Put encodes and stores a recap document.
func (s *BlobStore) Put(ctx context.Context, doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode recap: %w", err)
	}

	return s.store.Put(ctx, Key(doc.PUUID, doc.Year), data)
}
