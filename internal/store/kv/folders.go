package kv

import (
	"encoding/json"
	"path"
	"sort"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/albri/mdplane/internal/models"
)

type folderRecord struct {
	WorkspaceID string    `json:"workspaceId"`
	Path        string    `json:"path"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"createdAt"`
}

var errFolderNotFound = models.NewError(models.CodeFolderNotFound, "folder not found")

// CreateFolder materializes an explicit (empty) folder. Folders are
// otherwise virtual, derived from file path prefixes; an explicit record
// lets an empty folder be listed before any file exists under it.
func (s *Store) CreateFolder(workspaceID, folderPath string) (*models.Folder, error) {
	folderPath = strings.TrimSuffix(folderPath, "/")
	var out *models.Folder
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(keyFolder(workspaceID, folderPath)); err == nil {
			return models.NewError(models.CodeFolderExists, "folder already exists")
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		rec := &folderRecord{
			WorkspaceID: workspaceID,
			Path:        folderPath,
			Name:        path.Base(folderPath),
			CreatedAt:   time.Now(),
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := txn.Set(keyFolder(workspaceID, folderPath), data); err != nil {
			return err
		}
		out = &models.Folder{WorkspaceID: workspaceID, Path: rec.Path, Name: rec.Name, Explicit: true, CreatedAt: rec.CreatedAt}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListFolderEntries lists the immediate children (files and folders) of
// folderPath, combining explicit folder records with path prefixes
// derived from file listings.
func (s *Store) ListFolderEntries(workspaceID, folderPath string) ([]models.FolderEntry, error) {
	prefix := strings.TrimSuffix(folderPath, "/")
	if prefix != "" {
		prefix += "/"
	}

	files, err := s.ListFilesByPrefix(workspaceID, prefix)
	if err != nil {
		return nil, err
	}

	seenDirs := map[string]bool{}
	entries := map[string]models.FolderEntry{}
	// childNames tracks the distinct immediate children of each
	// subdirectory encountered, so folder entries can report childCount
	// (§4.5) without a second pass over the file list.
	childNames := map[string]map[string]bool{}

	for _, f := range files {
		if f.IsDeleted() {
			continue
		}
		rest := strings.TrimPrefix(f.Path, prefix)
		if rest == "" {
			continue
		}
		if idx := strings.Index(rest, "/"); idx >= 0 {
			dirName := rest[:idx]
			if !seenDirs[dirName] {
				seenDirs[dirName] = true
				entries[dirName] = models.FolderEntry{Name: dirName, Type: "folder", UpdatedAt: f.UpdatedAt}
			} else if e := entries[dirName]; f.UpdatedAt.After(e.UpdatedAt) {
				e.UpdatedAt = f.UpdatedAt
				entries[dirName] = e
			}

			childRest := rest[idx+1:]
			if childRest != "" {
				childName := childRest
				if cidx := strings.Index(childRest, "/"); cidx >= 0 {
					childName = childRest[:cidx]
				}
				if childNames[dirName] == nil {
					childNames[dirName] = map[string]bool{}
				}
				childNames[dirName][childName] = true
			}
			continue
		}
		size := f.Size()
		entries[rest] = models.FolderEntry{Name: rest, Type: "file", UpdatedAt: f.UpdatedAt, Size: &size}
	}

	explicit, err := s.listExplicitFolders(workspaceID, prefix)
	if err != nil {
		return nil, err
	}
	for _, name := range explicit {
		if !seenDirs[name] {
			entries[name] = models.FolderEntry{Name: name, Type: "folder"}
		}
	}

	out := make([]models.FolderEntry, 0, len(entries))
	for _, e := range entries {
		if e.Type == "folder" {
			count := len(childNames[e.Name])
			e.ChildCount = &count
		}
		out = append(out, e)
	}
	// §4.5: folders first, then files, each alphabetically (case-insensitive).
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type == "folder"
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// FolderExists reports whether folderPath should be addressable as a
// folder: the root always exists; any other path exists if it was
// explicitly materialized via CreateFolder or currently contains at least
// one non-deleted file (§4.5).
func (s *Store) FolderExists(workspaceID, folderPath string) (bool, error) {
	trimmed := strings.TrimSuffix(folderPath, "/")
	if trimmed == "" {
		return true, nil
	}
	var exists bool
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get(keyFolder(workspaceID, trimmed)); err == nil {
			exists = true
			return nil
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyFilePathPrefix(workspaceID, trimmed+"/")
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			var fileID string
			if err := it.Item().Value(func(val []byte) error { fileID = string(val); return nil }); err != nil {
				return err
			}
			if f, ferr := s.getFileTxn(txn, workspaceID, fileID); ferr == nil && !f.IsDeleted() {
				exists = true
				return nil
			}
		}
		return nil
	})
	return exists, err
}

func (s *Store) listExplicitFolders(workspaceID, prefix string) ([]string, error) {
	var out []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyFolderPrefix(workspaceID)
		it := txn.NewIterator(opts)
		defer it.Close()

		scanPrefix := keyFolder(workspaceID, strings.TrimSuffix(prefix, "/"))
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			var rec folderRecord
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &rec) }); err != nil {
				return err
			}
			if !strings.HasPrefix(string(keyFolder(workspaceID, rec.Path)), string(scanPrefix)) {
				continue
			}
			rest := strings.TrimPrefix(rec.Path, strings.TrimSuffix(prefix, "/"))
			rest = strings.TrimPrefix(rest, "/")
			if rest == "" || strings.Contains(rest, "/") {
				continue
			}
			out = append(out, rest)
		}
		return nil
	})
	return out, err
}

// DeleteFolder removes the explicit record for an empty folder. It does
// not touch files; callers must verify emptiness first.
func (s *Store) DeleteFolder(workspaceID, folderPath string) error {
	folderPath = strings.TrimSuffix(folderPath, "/")
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(keyFolder(workspaceID, folderPath)); err == badger.ErrKeyNotFound {
			return errFolderNotFound
		} else if err != nil {
			return err
		}
		return txn.Delete(keyFolder(workspaceID, folderPath))
	})
}
