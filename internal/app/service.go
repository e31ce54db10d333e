package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"quizroom/internal/domain"
)

// DefaultQuizKey is used when a create request does not name a quiz.
const DefaultQuizKey = "quiz:siber"

// Config wires the game service's collaborators.
type Config struct {
	Quizzes  QuizRepository
	Store    SnapshotStore
	Duration time.Duration
	Now      func() time.Time
	Schedule func(d time.Duration, fn func())
}

// GameService routes operations to per-game rooms. It guarantees at most
// one live room per game ID: rooms are created on CreateGame and revived
// from the snapshot store when a known game has no in-process actor.
type GameService struct {
	c Config

	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewGameService(c Config) *GameService {
	return &GameService{
		c:     c,
		rooms: make(map[string]*Room),
	}
}

// CreatedGame is returned to the host on game creation. The host token is
// shown exactly once; it is never part of any state response.
type CreatedGame struct {
	GameID    string `json:"gameId"`
	HostToken string `json:"hostToken"`
}

// JoinedPlayer carries the credentials a player needs for answer submissions.
type JoinedPlayer struct {
	PlayerID    string `json:"playerId"`
	PlayerToken string `json:"playerToken"`
}

// CreateGame allocates a fresh game code and host token and inits a room
// in the lobby phase. Creation never loads the quiz; a bad quiz key only
// surfaces on start/next.
func (s *GameService) CreateGame(_ context.Context, quizKey string) (CreatedGame, error) {
	if quizKey == "" {
		quizKey = DefaultQuizKey
	}

	hostToken := newToken()

	s.mu.Lock()
	gameID := newGameID()
	for _, taken := s.rooms[gameID]; taken; _, taken = s.rooms[gameID] {
		gameID = newGameID()
	}
	room := NewRoom(s.roomConfig())
	s.rooms[gameID] = room
	s.mu.Unlock()

	room.Init(gameID, hostToken, quizKey)

	return CreatedGame{GameID: gameID, HostToken: hostToken}, nil
}

// Join adds a player to a game in any phase.
func (s *GameService) Join(ctx context.Context, gameID, name string) (JoinedPlayer, error) {
	room, err := s.room(ctx, gameID)
	if err != nil {
		return JoinedPlayer{}, err
	}
	playerID, playerToken := room.Join(name)
	return JoinedPlayer{PlayerID: playerID, PlayerToken: playerToken}, nil
}

// State returns the public snapshot of a game.
func (s *GameService) State(ctx context.Context, gameID string) (domain.GameState, error) {
	room, err := s.room(ctx, gameID)
	if err != nil {
		return domain.GameState{}, err
	}
	return room.State(), nil
}

// Start restarts the question flow from the beginning (host only).
func (s *GameService) Start(ctx context.Context, gameID, hostToken string) error {
	room, err := s.room(ctx, gameID)
	if err != nil {
		return err
	}
	return room.Start(ctx, hostToken)
}

// Next advances to the next question (host only).
func (s *GameService) Next(ctx context.Context, gameID, hostToken string) error {
	room, err := s.room(ctx, gameID)
	if err != nil {
		return err
	}
	return room.Next(ctx, hostToken)
}

// SubmitAnswer records a player's answer for the current question.
func (s *GameService) SubmitAnswer(ctx context.Context, gameID, playerID, playerToken string, choice int) error {
	room, err := s.room(ctx, gameID)
	if err != nil {
		return err
	}
	return room.SubmitAnswer(playerID, playerToken, choice)
}

// Subscribe returns a channel receiving public state snapshots for a game.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *GameService) Subscribe(ctx context.Context, gameID string) (<-chan domain.GameState, func(), error) {
	room, err := s.room(ctx, gameID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := room.Subscribe()
	return ch, cancel, nil
}

// room resolves the live actor for a game ID, reviving it from the
// snapshot store after an eviction or restart.
func (s *GameService) room(ctx context.Context, gameID string) (*Room, error) {
	s.mu.RLock()
	room, ok := s.rooms[gameID]
	s.mu.RUnlock()
	if ok {
		return room, nil
	}

	if s.c.Store == nil {
		return nil, domain.ErrGameNotFound
	}
	snap, err := s.c.Store.Load(ctx, gameID)
	if errors.Is(err, domain.ErrGameNotFound) {
		return nil, domain.ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another request may have revived the room first.
	if room, ok := s.rooms[gameID]; ok {
		return room, nil
	}
	room = RestoreRoom(s.roomConfig(), snap)
	s.rooms[gameID] = room
	return room, nil
}

func (s *GameService) roomConfig() RoomConfig {
	return RoomConfig{
		Quizzes:  s.c.Quizzes,
		Store:    s.c.Store,
		Duration: s.c.Duration,
		Now:      s.c.Now,
		Schedule: s.c.Schedule,
	}
}
