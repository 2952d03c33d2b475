package kv

import (
	"encoding/json"
	"strconv"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/albri/mdplane/internal/models"
	"github.com/albri/mdplane/internal/orchestration"
)

func encodeAppend(a *models.Append) ([]byte, error) { return json.Marshal(a) }

func decodeAppend(b []byte) (*models.Append, error) {
	var a models.Append
	if err := json.Unmarshal(b, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// nextAppendSeq increments and returns the per-workspace append counter
// within the given transaction, so sequence assignment and the append
// write are atomic.
func nextAppendSeq(txn *badger.Txn, workspaceID string) (uint64, error) {
	return nextCounter(txn, keyAppendCounter(workspaceID))
}

// nextAppendID increments and returns the per-file append-id counter
// within the given transaction, used to mint the short "aN" ids clients
// see as appendId. Kept distinct from nextAppendSeq (the per-workspace
// storage-order counter) because two files' append sequences must not
// collide or depend on cross-file write ordering.
func nextAppendID(txn *badger.Txn, workspaceID, fileID string) (uint64, error) {
	return nextCounter(txn, keyAppendIDCounter(workspaceID, fileID))
}

func nextCounter(txn *badger.Txn, key []byte) (uint64, error) {
	var n uint64
	item, err := txn.Get(key)
	switch err {
	case nil:
		if verr := item.Value(func(val []byte) error { n = decodeUint64(val); return nil }); verr != nil {
			return 0, verr
		}
	case badger.ErrKeyNotFound:
		n = 0
	default:
		return 0, err
	}
	n++
	if err := txn.Set(key, encodeUint64(n)); err != nil {
		return 0, err
	}
	return n, nil
}

// AppendEvent validates and persists a new append for a file, enforcing
// the claim protocol's first-writer-wins guarantee and author-match rules
// atomically within a single badger transaction (§4.2, §4.3).
func (s *Store) AppendEvent(workspaceID, fileID, filePath string, a *models.Append, now time.Time) (*models.Append, error) {
	var out *models.Append
	err := s.db.Update(func(txn *badger.Txn) error {
		existing, err := s.listFileAppendsTxn(txn, workspaceID, fileID)
		if err != nil {
			return err
		}
		derived := orchestration.Derive(existing, now)

		if err := validateAppend(a, derived, now); err != nil {
			return err
		}

		seq, err := nextAppendSeq(txn, workspaceID)
		if err != nil {
			return err
		}
		appendNum, err := nextAppendID(txn, workspaceID, fileID)
		if err != nil {
			return err
		}

		a.AppendID = "a" + strconv.FormatUint(appendNum, 10)
		a.ID = fileID + "_" + a.AppendID
		a.FileID = fileID
		a.FilePath = filePath
		a.WorkspaceID = workspaceID
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}

		data, err := encodeAppend(a)
		if err != nil {
			return err
		}
		if err := txn.Set(keyAppend(workspaceID, fileID, seq), data); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// validateAppend enforces the per-type referential and protocol rules
// against the file's current derived state.
func validateAppend(a *models.Append, derived orchestration.Derived, now time.Time) error {
	switch a.Type {
	case models.AppendTask:
		if !models.ValidAuthor(a.Author) {
			return models.NewError(models.CodeInvalidAuthor, "invalid author")
		}
		return nil

	case models.AppendClaim:
		task := findTask(derived, a.Ref)
		if task == nil {
			return models.NewError(models.CodeNotFound, "task not found")
		}
		if task.Status != orchestration.TaskPending {
			return models.NewError(models.CodeAlreadyClaimed, "task already has an active claim")
		}
		if !models.ValidAuthor(a.Author) {
			return models.NewError(models.CodeInvalidAuthor, "invalid author")
		}
		return nil

	case models.AppendRenew, models.AppendComplete, models.AppendBlocked:
		claim := findClaim(derived, a.Ref)
		if claim == nil {
			return models.NewError(models.CodeNotFound, "claim not found")
		}
		if claim.Author != a.Author {
			return models.NewError(models.CodeAuthorMismatch, "only the claiming author may act on this claim")
		}
		if a.Type == models.AppendRenew && claim.IsExpired(now) {
			return models.NewError(models.CodeClaimExpired, "claim has already expired")
		}
		return nil

	case models.AppendCancel:
		if claim := findClaim(derived, a.Ref); claim != nil {
			if claim.Author != a.Author {
				return models.NewError(models.CodeAuthorMismatch, "only the claiming author may cancel this claim")
			}
			return nil
		}
		if task := findTask(derived, a.Ref); task != nil {
			return nil
		}
		return models.NewError(models.CodeNotFound, "referenced task or claim not found")

	case models.AppendAnswer, models.AppendResponse, models.AppendComment, models.AppendVote:
		return nil

	default:
		return models.NewError(models.CodeInvalidRequest, "unknown append type")
	}
}

func findTask(d orchestration.Derived, id string) *orchestration.Task {
	for _, t := range d.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func findClaim(d orchestration.Derived, id string) *orchestration.Claim {
	for _, c := range d.Claims {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (s *Store) listFileAppendsTxn(txn *badger.Txn, workspaceID, fileID string) ([]models.Append, error) {
	var out []models.Append
	opts := badger.DefaultIteratorOptions
	opts.Prefix = keyAppendFilePrefix(workspaceID, fileID)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
		var a *models.Append
		if err := it.Item().Value(func(val []byte) error {
			rec, derr := decodeAppend(val)
			if derr != nil {
				return derr
			}
			a = rec
			return nil
		}); err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, nil
}

// ListFileAppends returns every append recorded for a single file, oldest
// first.
func (s *Store) ListFileAppends(workspaceID, fileID string) ([]models.Append, error) {
	var out []models.Append
	err := s.db.View(func(txn *badger.Txn) error {
		a, err := s.listFileAppendsTxn(txn, workspaceID, fileID)
		out = a
		return err
	})
	return out, err
}

// ListWorkspaceAppends returns every append recorded anywhere in a
// workspace, oldest first, for orchestration-wide queries.
func (s *Store) ListWorkspaceAppends(workspaceID string) ([]models.Append, error) {
	var out []models.Append
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyAppendWorkspacePrefix(workspaceID)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			var a *models.Append
			if err := it.Item().Value(func(val []byte) error {
				rec, derr := decodeAppend(val)
				if derr != nil {
					return derr
				}
				a = rec
				return nil
			}); err != nil {
				return err
			}
			out = append(out, *a)
		}
		return nil
	})
	return out, err
}
