package domain

import "time"

// Phase is a game's position in its lifecycle.
type Phase string

const (
	PhaseLobby       Phase = "lobby"
	PhaseQuestion    Phase = "question"
	PhaseLeaderboard Phase = "leaderboard"
	PhaseFinished    Phase = "finished"
)

// Question models an MCQ question with one correct choice.
type Question struct {
	Text    string   `json:"q"`
	Choices []string `json:"choices"`
	Correct int      `json:"correct"`
}

// Quiz is an ordered list of questions keyed by a quiz key.
type Quiz struct {
	Key       string     `json:"key"`
	Questions []Question `json:"questions"`
}

// PublicQuestion is the caller-facing view of the active question.
// It never carries the correct choice index.
type PublicQuestion struct {
	Text    string   `json:"text"`
	Choices []string `json:"choices"`
}

// Player represents a joined participant and their running score.
// ScoreMs accumulates per-question time, lower is better. Correct counts
// right answers, higher is better.
type Player struct {
	Name    string `json:"name"`
	ScoreMs int64  `json:"scoreMs"`
	Correct int    `json:"correct"`
	Token   string `json:"token"`
}

// Answer is one player's recorded choice for the current question.
type Answer struct {
	Choice      int       `json:"choice"`
	SubmittedAt time.Time `json:"t"`
}

// LeaderboardEntry is a snapshot-friendly view of a player's standing.
type LeaderboardEntry struct {
	PlayerID string `json:"id"`
	Name     string `json:"name"`
	Correct  int    `json:"correct"`
	ScoreMs  int64  `json:"scoreMs"`
}

// GameState is the public snapshot returned to any caller. EndsAt is the
// question deadline in unix milliseconds, zero outside the question phase.
type GameState struct {
	Phase         Phase              `json:"phase"`
	QuestionIndex int                `json:"qIndex"`
	QuestionTotal int                `json:"qTotal"`
	EndsAt        int64              `json:"endsAt,omitempty"`
	Question      *PublicQuestion    `json:"q,omitempty"`
	PlayerCount   int                `json:"playerCount"`
	Top4          []LeaderboardEntry `json:"top4"`
}

// GameSnapshot is the full durable state of one game room, including
// server-side secrets. It is what the snapshot store persists and what a
// room is restored from; it must never be returned to callers.
type GameSnapshot struct {
	GameID        string             `json:"gameId"`
	HostToken     string             `json:"hostToken"`
	QuizKey       string             `json:"quizKey"`
	Phase         Phase              `json:"phase"`
	QuestionIndex int                `json:"qIndex"`
	QuestionTotal int                `json:"qTotal"`
	Players       map[string]*Player `json:"players"`
	Answers       map[string]*Answer `json:"answers"`
	EndsAt        time.Time          `json:"endsAt"`
	Question      *PublicQuestion    `json:"qPublic,omitempty"`
	Correct       int                `json:"qCorrect"`
}
