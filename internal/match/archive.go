package match

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"

	"github.com/rewind-gg/rewind/internal/blob"
)

// Archive stores raw match documents gzip-compressed in a blob store, one
// object per match under matches/{puuid}/{period}/{matchID}.json.gz.
type Archive struct {
	store blob.Store
}

// NewArchive wraps a blob store in the match archive layout.
func NewArchive(store blob.Store) *Archive {
	return &Archive{store: store}
}

// Key returns the archive key for a match.
func Key(puuid, period, matchID string) string {
	return fmt.Sprintf("matches/%s/%s/%s.json.gz", puuid, period, matchID)
}

// Put compresses and stores a raw match document.
func (a *Archive) Put(ctx context.Context, puuid, period, matchID string, raw []byte) error {
	var buf bytes.Buffer

	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(raw); err != nil {
		return fmt.Errorf("compress match %s: %w", matchID, err)
	}

	if err := gz.Close(); err != nil {
		return fmt.Errorf("compress match %s: %w", matchID, err)
	}

	return a.store.Put(ctx, Key(puuid, period, matchID), buf.Bytes())
}

// Exists reports whether a match is already archived, so ingestion can skip
// matches fetched on a previous run.
func (a *Archive) Exists(ctx context.Context, puuid, period, matchID string) (bool, error) {
	return a.store.Exists(ctx, Key(puuid, period, matchID))
}

// Get retrieves and decompresses an archived match document.
func (a *Archive) Get(ctx context.Context, puuid, period, matchID string) ([]byte, error) {
	return a.GetByKey(ctx, Key(puuid, period, matchID))
}

// GetByKey retrieves a match by its stored blob key. The match index records
// the key each document was written under, so reads survive layout changes.
func (a *Archive) GetByKey(ctx context.Context, key string) ([]byte, error) {
	compressed, err := a.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", key, err)
	}

	raw, err := io.ReadAll(gz)
	if err != nil {
		_ = gz.Close()

		return nil, fmt.Errorf("decompress %s: %w", key, err)
	}

	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("decompress %s: %w", key, err)
	}

	return raw, nil
}
