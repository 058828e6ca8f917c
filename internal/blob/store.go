// Package blob stores opaque documents under hierarchical slash-separated
// keys. Two backends exist: an S3 bucket for deployments and a local
// filesystem tree for development and tests. Both give the same read-back
// guarantee: a Get after a successful Put returns the exact bytes written.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no document exists under the key.
var ErrNotFound = errors.New("blob not found")

// Store is a flat key to bytes document store.
type Store interface {
	// Put writes data under key, replacing any existing document.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the document under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Exists reports whether a document exists under key without reading it.
	Exists(ctx context.Context, key string) (bool, error)
}
