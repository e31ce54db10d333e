package memory

import (
	"context"
	"testing"

	"quizroom/internal/domain"
)

func TestSnapshotStoreRoundTrip(t *testing.T) {
	store := NewSnapshotStore()

	if _, err := store.Load(context.Background(), "NOPE1234"); err != domain.ErrGameNotFound {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}

	snap := domain.GameSnapshot{
		GameID:        "GAME1234",
		HostToken:     "host",
		QuizKey:       "quiz:test",
		Phase:         domain.PhaseLobby,
		QuestionIndex: -1,
		Players:       map[string]*domain.Player{"P1": {Name: "Alice"}},
	}
	if err := store.Save(context.Background(), snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Load(context.Background(), "GAME1234")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.HostToken != "host" || got.Players["P1"].Name != "Alice" {
		t.Fatalf("snapshot mismatch: %+v", got)
	}
}
