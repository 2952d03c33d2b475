package kv

import (
	"time"

	"github.com/albri/mdplane/internal/orchestration"
)

// DeriveFile folds a single file's append log into its task/claim views as
// of now.
func (s *Store) DeriveFile(workspaceID, fileID string, now time.Time) (orchestration.Derived, error) {
	appends, err := s.ListFileAppends(workspaceID, fileID)
	if err != nil {
		return orchestration.Derived{}, err
	}
	return orchestration.Derive(appends, now), nil
}

// DeriveWorkspace folds every append recorded in a workspace into its
// task/claim views as of now, for orchestration-wide listings.
func (s *Store) DeriveWorkspace(workspaceID string, now time.Time) (orchestration.Derived, error) {
	appends, err := s.ListWorkspaceAppends(workspaceID)
	if err != nil {
		return orchestration.Derived{}, err
	}
	return orchestration.Derive(appends, now), nil
}
