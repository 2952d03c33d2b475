// Package kv is the badger-backed hot-path store: file content and
// metadata, the append-only activity log, claim leases, and agent
// heartbeats. Control-plane entities (workspaces, credentials, webhooks,
// audit) live in the relational store (internal/store/sql) instead.
package kv

import (
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/albri/mdplane/internal/config"
	"github.com/albri/mdplane/internal/logger"
)

// Store wraps a badger.DB with the domain-specific operations used by the
// API handlers and orchestration layer.
type Store struct {
	db *badger.DB

	stopGC chan struct{}
}

// Open opens (or creates) the badger database at cfg.Path and starts its
// periodic value-log GC.
func Open(cfg config.KVConfig) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}

	s := &Store{db: db, stopGC: make(chan struct{})}
	interval := time.Duration(cfg.GCIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go s.runValueLogGC(interval)
	return s, nil
}

func (s *Store) runValueLogGC(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
		again:
			err := s.db.RunValueLogGC(0.5)
			if err == nil {
				goto again
			}
			if err != badger.ErrNoRewrite {
				logger.Warn("badger value log gc failed", "error", err)
			}
		case <-s.stopGC:
			return
		}
	}
}

// Close stops the GC loop and closes the database.
func (s *Store) Close() error {
	close(s.stopGC)
	return s.db.Close()
}

// DB exposes the underlying *badger.DB for tests and the admin surface.
func (s *Store) DB() *badger.DB { return s.db }
