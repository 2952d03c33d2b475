package kv

import (
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/albri/mdplane/internal/models"
)

// SearchResult is the §4.10 search response shape.
type SearchResult struct {
	Files   []*models.File   `json:"files"`
	Appends []models.Append  `json:"appends"`
}

// Search performs a case-insensitive substring scan over file paths and
// append content/contentPreview within a workspace, capped at limit per
// category.
func (s *Store) Search(workspaceID, query string, limit int) (SearchResult, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	q := strings.ToLower(query)
	var res SearchResult

	err := s.db.View(func(txn *badger.Txn) error {
		fopts := badger.DefaultIteratorOptions
		fopts.Prefix = keyFilePathPrefix(workspaceID, "")
		fit := txn.NewIterator(fopts)
		defer fit.Close()
		for fit.Seek(fopts.Prefix); fit.ValidForPrefix(fopts.Prefix) && len(res.Files) < limit; fit.Next() {
			var fileID string
			if err := fit.Item().Value(func(val []byte) error { fileID = string(val); return nil }); err != nil {
				return err
			}
			f, err := s.getFileTxn(txn, workspaceID, fileID)
			if err != nil || f.IsDeleted() {
				continue
			}
			if strings.Contains(strings.ToLower(f.Path), q) || strings.Contains(strings.ToLower(string(f.Content)), q) {
				res.Files = append(res.Files, f)
			}
		}

		aopts := badger.DefaultIteratorOptions
		aopts.Prefix = keyAppendWorkspacePrefix(workspaceID)
		ait := txn.NewIterator(aopts)
		defer ait.Close()
		for ait.Seek(aopts.Prefix); ait.ValidForPrefix(aopts.Prefix) && len(res.Appends) < limit; ait.Next() {
			var a *models.Append
			if err := ait.Item().Value(func(val []byte) error {
				rec, derr := decodeAppend(val)
				if derr != nil {
					return derr
				}
				a = rec
				return nil
			}); err != nil {
				return err
			}
			if strings.Contains(strings.ToLower(a.Content), q) || strings.Contains(strings.ToLower(a.ContentPreview), q) {
				res.Appends = append(res.Appends, *a)
			}
		}
		return nil
	})
	return res, err
}
