package kv

import (
	"encoding/json"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/albri/mdplane/internal/models"
)

// UpsertHeartbeat records the latest liveness report for an author. Writes
// are last-write-wins; there is no history of past heartbeats.
func (s *Store) UpsertHeartbeat(hb *models.Heartbeat) error {
	data, err := json.Marshal(hb)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyHeartbeat(hb.WorkspaceID, hb.Author), data)
	})
}

// GetHeartbeat fetches the latest heartbeat for a single author.
func (s *Store) GetHeartbeat(workspaceID, author string) (*models.Heartbeat, error) {
	var hb models.Heartbeat
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyHeartbeat(workspaceID, author))
		if err == badger.ErrKeyNotFound {
			return models.NewError(models.CodeNotFound, "no heartbeat recorded for author")
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error { return json.Unmarshal(val, &hb) })
	})
	if err != nil {
		return nil, err
	}
	return &hb, nil
}

// ListHeartbeats returns every heartbeat recorded in a workspace, keyed by
// author.
func (s *Store) ListHeartbeats(workspaceID string) (map[string]models.Heartbeat, error) {
	out := map[string]models.Heartbeat{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyHeartbeatPrefix(workspaceID)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			var hb models.Heartbeat
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &hb) }); err != nil {
				return err
			}
			out[hb.Author] = hb
		}
		return nil
	})
	return out, err
}
