// Package content provides a pluggable blob store for artifacts that live
// outside the per-file metadata record: export job archives today, and
// any future large binary mdplane needs to hand clients a durable URL
// for. File content itself stays inlined in the kv file record (spec.md
// §4.4); this package exists for the "inline vs s3" backend seam
// SPEC_FULL.md's content section calls for.
package content

import (
	"context"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/albri/mdplane/internal/config"
)

// Store persists opaque blobs addressed by an opaque key. Implementations
// must be safe for concurrent use.
type Store interface {
	// Put writes data under key, replacing any prior value.
	Put(ctx context.Context, key string, data []byte) error
	// Get returns the bytes stored under key, or an error if absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// New builds the Store selected by cfg.Backend.
func New(ctx context.Context, cfg config.ContentConfig, badgerDB *badger.DB) (Store, error) {
	switch cfg.Backend {
	case "inline":
		return NewInlineStore(badgerDB), nil
	case "s3":
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("content: unknown backend %q", cfg.Backend)
	}
}
