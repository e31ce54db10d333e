package domain

import "errors"

var (
	// ErrUnauthorized is returned when a host or player credential is missing or wrong.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrGameNotFound is returned when no game exists for a game ID.
	ErrGameNotFound = errors.New("game not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrNotAcceptingAnswers is returned when an answer arrives outside the question phase.
	ErrNotAcceptingAnswers = errors.New("not accepting answers now")
	// ErrUnknownPlayer is returned when a player ID is not part of the game.
	ErrUnknownPlayer = errors.New("bad player")
	// ErrTimeUp is returned when an answer arrives after the question deadline.
	ErrTimeUp = errors.New("time is up")
	// ErrAlreadyAnswered is returned on a second answer for the same question.
	ErrAlreadyAnswered = errors.New("already answered")
)
