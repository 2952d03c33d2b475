package content

import (
	"context"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/albri/mdplane/internal/models"
)

const inlinePrefix = "blob:"

// InlineStore stores blobs directly in the badger instance mdplane
// already runs for file/append metadata, under a dedicated key prefix.
// This is the default content backend (spec.md's "content lives inline"
// model).
type InlineStore struct {
	db *badger.DB
}

// NewInlineStore wraps an existing badger handle. It does not own the
// handle's lifecycle; the caller closes it.
func NewInlineStore(db *badger.DB) *InlineStore {
	return &InlineStore{db: db}
}

func (s *InlineStore) Put(ctx context.Context, key string, data []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(inlinePrefix+key), data)
	})
}

func (s *InlineStore) Get(ctx context.Context, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(inlinePrefix + key))
		if err == badger.ErrKeyNotFound {
			return models.NewError(models.CodeNotFound, "blob not found")
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	return out, err
}

func (s *InlineStore) Delete(ctx context.Context, key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(inlinePrefix + key))
	})
}
