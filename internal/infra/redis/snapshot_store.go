package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"quizroom/internal/domain"
)

// SnapshotStore persists game snapshots as JSON values, one key per game.
// Redis guarantees read-after-write for a single key, which is all a
// single game's actor needs; the TTL reaps abandoned games.
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSnapshotStore(client *redis.Client, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{client: client, ttl: ttl}
}

func (s *SnapshotStore) Save(ctx context.Context, snap domain.GameSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key(snap.GameID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStore) Load(ctx context.Context, gameID string) (domain.GameSnapshot, error) {
	data, err := s.client.Get(ctx, s.key(gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.GameSnapshot{}, domain.ErrGameNotFound
	}
	if err != nil {
		return domain.GameSnapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	var snap domain.GameSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.GameSnapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, nil
}

func (s *SnapshotStore) key(gameID string) string {
	return "game:snapshot:" + gameID
}
