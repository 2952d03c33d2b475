package kv

import (
	"encoding/json"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/albri/mdplane/internal/idgen"
	"github.com/albri/mdplane/internal/models"
)

// fileRecord is the on-disk shape of a File: identical to models.File but
// with Content inlined as base64 via encoding/json's []byte handling.
type fileRecord struct {
	ID          string     `json:"id"`
	WorkspaceID string     `json:"workspaceId"`
	Path        string     `json:"path"`
	Content     []byte     `json:"content"`
	ETag        string     `json:"etag"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

func encodeFile(r *fileRecord) ([]byte, error) { return json.Marshal(r) }

func decodeFile(b []byte) (*fileRecord, error) {
	var r fileRecord
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decode file record: %w", err)
	}
	return &r, nil
}

func (r *fileRecord) toModel() *models.File {
	return &models.File{
		ID:          r.ID,
		WorkspaceID: r.WorkspaceID,
		Path:        r.Path,
		Content:     r.Content,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		DeletedAt:   r.DeletedAt,
	}
}

var errFileNotFound = models.NewError(models.CodeFileNotFound, "file not found")

// CreateFile creates a new file at path, failing with CodeConflict if one
// already exists there (soft-deleted paths may be reused, per the content
// model's "paths are namespace, not identity" rule).
func (s *Store) CreateFile(workspaceID, path string, content []byte) (*models.File, error) {
	now := time.Now()
	var out *models.File
	err := s.db.Update(func(txn *badger.Txn) error {
		if item, err := txn.Get(keyFilePath(workspaceID, path)); err == nil {
			var existingID string
			if verr := item.Value(func(val []byte) error { existingID = string(val); return nil }); verr != nil {
				return verr
			}
			if existing, gerr := s.getFileTxn(txn, workspaceID, existingID); gerr == nil && existing.DeletedAt == nil {
				return models.NewError(models.CodeConflict, "file already exists at path")
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		rec := &fileRecord{
			ID:          idgen.New("file_"),
			WorkspaceID: workspaceID,
			Path:        path,
			Content:     content,
			ETag:        ComputeETag(content),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		data, err := encodeFile(rec)
		if err != nil {
			return err
		}
		if err := txn.Set(keyFile(workspaceID, rec.ID), data); err != nil {
			return err
		}
		if err := txn.Set(keyFilePath(workspaceID, path), []byte(rec.ID)); err != nil {
			return err
		}
		out = rec.toModel()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) getFileTxn(txn *badger.Txn, workspaceID, fileID string) (*models.File, error) {
	if fileID == "" {
		return nil, errFileNotFound
	}
	item, err := txn.Get(keyFile(workspaceID, fileID))
	if err == badger.ErrKeyNotFound {
		return nil, errFileNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec *fileRecord
	if err := item.Value(func(val []byte) error {
		r, derr := decodeFile(val)
		if derr != nil {
			return derr
		}
		rec = r
		return nil
	}); err != nil {
		return nil, err
	}
	return rec.toModel(), nil
}

// GetFile fetches a file by ID.
func (s *Store) GetFile(workspaceID, fileID string) (*models.File, error) {
	var out *models.File
	err := s.db.View(func(txn *badger.Txn) error {
		f, err := s.getFileTxn(txn, workspaceID, fileID)
		if err != nil {
			return err
		}
		out = f
		return nil
	})
	return out, err
}

// GetFileByPath resolves a file by its path.
func (s *Store) GetFileByPath(workspaceID, path string) (*models.File, error) {
	var out *models.File
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyFilePath(workspaceID, path))
		if err == badger.ErrKeyNotFound {
			return errFileNotFound
		}
		if err != nil {
			return err
		}
		var fileID string
		if err := item.Value(func(val []byte) error { fileID = string(val); return nil }); err != nil {
			return err
		}
		f, err := s.getFileTxn(txn, workspaceID, fileID)
		if err != nil {
			return err
		}
		out = f
		return nil
	})
	return out, err
}

// ETag returns the stored ETag for a file, recomputing it from content if
// the record predates the ETag field (defensive, should not happen).
func (s *Store) ETag(workspaceID, fileID string) (string, error) {
	var etag string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyFile(workspaceID, fileID))
		if err == badger.ErrKeyNotFound {
			return errFileNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			rec, derr := decodeFile(val)
			if derr != nil {
				return derr
			}
			if rec.ETag != "" {
				etag = rec.ETag
			} else {
				etag = ComputeETag(rec.Content)
			}
			return nil
		})
	})
	return etag, err
}

// UpdateFile overwrites a file's content, enforcing the If-Match ETag
// check atomically within the same transaction that performs the write.
// An empty ifMatch skips the check (unconditional write).
func (s *Store) UpdateFile(workspaceID, fileID string, content []byte, ifMatch string) (*models.File, error) {
	var out *models.File
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(keyFile(workspaceID, fileID))
		if err == badger.ErrKeyNotFound {
			return errFileNotFound
		}
		if err != nil {
			return err
		}
		var rec *fileRecord
		if err := item.Value(func(val []byte) error {
			r, derr := decodeFile(val)
			if derr != nil {
				return derr
			}
			rec = r
			return nil
		}); err != nil {
			return err
		}
		if rec.DeletedAt != nil {
			return errFileNotFound
		}
		if ifMatch != "" && !ETagMatches(ifMatch, rec.ETag) {
			return models.NewErrorWithDetails(models.CodeConflict, "etag mismatch", map[string]any{
				"currentEtag":  rec.ETag,
				"providedEtag": ifMatch,
			})
		}

		rec.Content = content
		rec.ETag = ComputeETag(content)
		rec.UpdatedAt = time.Now()
		data, err := encodeFile(rec)
		if err != nil {
			return err
		}
		if err := txn.Set(keyFile(workspaceID, fileID), data); err != nil {
			return err
		}
		out = rec.toModel()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SoftDeleteFile marks a file deleted, freeing its path for reuse while
// preserving history for anything still referencing the file by ID.
func (s *Store) SoftDeleteFile(workspaceID, fileID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(keyFile(workspaceID, fileID))
		if err == badger.ErrKeyNotFound {
			return errFileNotFound
		}
		if err != nil {
			return err
		}
		var rec *fileRecord
		if err := item.Value(func(val []byte) error {
			r, derr := decodeFile(val)
			if derr != nil {
				return derr
			}
			rec = r
			return nil
		}); err != nil {
			return err
		}
		now := time.Now()
		rec.DeletedAt = &now
		data, err := encodeFile(rec)
		if err != nil {
			return err
		}
		if err := txn.Set(keyFile(workspaceID, fileID), data); err != nil {
			return err
		}
		return txn.Delete(keyFilePath(workspaceID, rec.Path))
	})
}

// PurgeDeletedFiles hard-deletes every file record in the workspace whose
// DeletedAt is older than cutoff, reclaiming badger space for files whose
// path index was already dropped at soft-delete time. Returns the number
// of records purged.
func (s *Store) PurgeDeletedFiles(workspaceID string, cutoff time.Time) (int, error) {
	var toDelete [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := []byte(prefixFile + workspaceID + ":")
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := append([]byte(nil), item.Key()...)
			if err := item.Value(func(val []byte) error {
				rec, derr := decodeFile(val)
				if derr != nil {
					return derr
				}
				if rec.DeletedAt != nil && rec.DeletedAt.Before(cutoff) {
					toDelete = append(toDelete, key)
				}
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(toDelete) == 0 {
		return 0, nil
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		for _, key := range toDelete {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(toDelete), nil
}

// ListFilesByPrefix returns every non-deleted file whose path starts with
// prefix, used by folder listings.
func (s *Store) ListFilesByPrefix(workspaceID, prefix string) ([]*models.File, error) {
	var out []*models.File
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyFilePathPrefix(workspaceID, prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			var fileID string
			if err := it.Item().Value(func(val []byte) error { fileID = string(val); return nil }); err != nil {
				return err
			}
			f, err := s.getFileTxn(txn, workspaceID, fileID)
			if err != nil {
				continue
			}
			out = append(out, f)
		}
		return nil
	})
	return out, err
}
