package memory

import (
	"context"
	"sync"

	"quizroom/internal/domain"
)

// SnapshotStore is an in-process implementation of app.SnapshotStore.
// It keeps the latest snapshot per game, which is enough for single-node
// deployments and tests; the redis store covers restarts.
type SnapshotStore struct {
	mu    sync.RWMutex
	snaps map[string]domain.GameSnapshot
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{snaps: make(map[string]domain.GameSnapshot)}
}

func (s *SnapshotStore) Save(_ context.Context, snap domain.GameSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[snap.GameID] = snap
	return nil
}

func (s *SnapshotStore) Load(_ context.Context, gameID string) (domain.GameSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snaps[gameID]
	if !ok {
		return domain.GameSnapshot{}, domain.ErrGameNotFound
	}
	return snap, nil
}
