package app

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"quizroom/internal/domain"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizKey string) (domain.Quiz, error)
}

// SnapshotStore is the durable per-game key/value store. Save must be
// read-after-write consistent for a single game; Load returns
// domain.ErrGameNotFound when no snapshot exists.
type SnapshotStore interface {
	Save(ctx context.Context, snap domain.GameSnapshot) error
	Load(ctx context.Context, gameID string) (domain.GameSnapshot, error)
}

// Room is the per-game actor. It owns the full state of one game and
// serializes every operation behind its mutex, so callers may arrive from
// any number of goroutines.
type Room struct {
	mu sync.RWMutex

	gameID    string
	hostToken string
	quizKey   string

	phase         domain.Phase
	questionIndex int
	questionTotal int
	players       map[string]*domain.Player
	answers       map[string]*domain.Answer
	endsAt        time.Time
	question      *domain.PublicQuestion
	correct       int

	// timerGen invalidates timeouts armed for earlier questions. There is
	// no cancellation; a stale callback compares its generation and bails.
	timerGen uint64

	quizzes  QuizRepository
	store    SnapshotStore
	duration time.Duration
	now      func() time.Time
	schedule func(d time.Duration, fn func())

	subscribers map[chan domain.GameState]struct{}
}

// RoomConfig carries the room's collaborators. Now and Schedule default to
// the real clock and time.AfterFunc; tests inject both.
type RoomConfig struct {
	Quizzes  QuizRepository
	Store    SnapshotStore
	Duration time.Duration
	Now      func() time.Time
	Schedule func(d time.Duration, fn func())
}

// NewRoom creates an uninitialized room; callers must Init it before use.
func NewRoom(c RoomConfig) *Room {
	r := &Room{
		quizzes:     c.Quizzes,
		store:       c.Store,
		duration:    c.Duration,
		now:         c.Now,
		schedule:    c.Schedule,
		players:     make(map[string]*domain.Player),
		answers:     make(map[string]*domain.Answer),
		phase:       domain.PhaseLobby,
		subscribers: make(map[chan domain.GameState]struct{}),
	}
	if r.duration <= 0 {
		r.duration = 20 * time.Second
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.schedule == nil {
		r.schedule = func(d time.Duration, fn func()) { time.AfterFunc(d, fn) }
	}
	return r
}

// RestoreRoom rebuilds a room from its durable snapshot. A restored
// question phase re-arms the deadline timer for the remaining time, or
// fires it immediately when the deadline already passed, so the timeout
// still runs at least once.
func RestoreRoom(c RoomConfig, snap domain.GameSnapshot) *Room {
	r := NewRoom(c)
	r.gameID = snap.GameID
	r.hostToken = snap.HostToken
	r.quizKey = snap.QuizKey
	r.phase = snap.Phase
	r.questionIndex = snap.QuestionIndex
	r.questionTotal = snap.QuestionTotal
	if snap.Players != nil {
		r.players = snap.Players
	}
	if snap.Answers != nil {
		r.answers = snap.Answers
	}
	r.endsAt = snap.EndsAt
	r.question = snap.Question
	r.correct = snap.Correct

	if r.phase == domain.PhaseQuestion {
		gen := r.timerGen
		remaining := r.endsAt.Sub(r.now())
		if remaining < 0 {
			remaining = 0
		}
		r.schedule(remaining, func() { r.handleTimeout(gen) })
	}
	return r
}

// Init (re)sets the room to a fresh lobby. It fully replaces prior state,
// players included, and is the only way to restart a finished game.
func (r *Room) Init(gameID, hostToken, quizKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.gameID = gameID
	r.hostToken = hostToken
	r.quizKey = quizKey
	r.phase = domain.PhaseLobby
	r.questionIndex = -1
	r.questionTotal = 0
	r.players = make(map[string]*domain.Player)
	r.answers = make(map[string]*domain.Answer)
	r.endsAt = time.Time{}
	r.question = nil
	r.correct = 0
	r.timerGen++

	r.persistLocked()
	r.broadcastLocked()
}

// Join registers a new player. Joining is never rejected by phase; a
// mid-game joiner simply has no score for earlier questions.
func (r *Room) Join(name string) (playerID, playerToken string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		name = "Anon"
	}

	playerID = newPlayerID()
	for _, taken := r.players[playerID]; taken; _, taken = r.players[playerID] {
		playerID = newPlayerID() // 6-char IDs can collide; retry until free
	}
	playerToken = newToken()

	r.players[playerID] = &domain.Player{
		Name:    name,
		ScoreMs: 0,
		Correct: 0,
		Token:   playerToken,
	}

	r.persistLocked()
	r.broadcastLocked()
	return playerID, playerToken
}

// State returns the public snapshot. The correct choice never leaves the room.
func (r *Room) State() domain.GameState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stateLocked()
}

// Start is host-only. It rewinds to before the first question and enters
// the question flow. Player scores are kept; a replay with fresh scores
// requires a new game.
func (r *Room) Start(ctx context.Context, hostToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.authorizeHostLocked(hostToken); err != nil {
		return err
	}

	r.phase = domain.PhaseLobby
	r.questionIndex = -1
	return r.nextQuestionLocked(ctx)
}

// Next is host-only and advances to the next question, or finishes the
// game when questions are exhausted.
func (r *Room) Next(ctx context.Context, hostToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.authorizeHostLocked(hostToken); err != nil {
		return err
	}
	return r.nextQuestionLocked(ctx)
}

// SubmitAnswer records a player's choice for the current question. The
// first valid submission wins; everything else is rejected without any
// state change.
func (r *Room) SubmitAnswer(playerID, playerToken string, choice int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != domain.PhaseQuestion {
		return domain.ErrNotAcceptingAnswers
	}

	p, ok := r.players[playerID]
	if !ok || p.Token != playerToken {
		return domain.ErrUnknownPlayer
	}

	now := r.now()
	if r.endsAt.IsZero() || now.After(r.endsAt) {
		return domain.ErrTimeUp
	}

	if _, dup := r.answers[playerID]; dup {
		return domain.ErrAlreadyAnswered
	}

	r.answers[playerID] = &domain.Answer{Choice: choice, SubmittedAt: now}
	r.persistLocked()
	return nil
}

// Subscribe returns a channel receiving the public state on every change,
// primed with the current state. The caller must invoke cancel to avoid leaks.
func (r *Room) Subscribe() (<-chan domain.GameState, func()) {
	ch := make(chan domain.GameState, 8)

	r.mu.Lock()
	r.subscribers[ch] = struct{}{}
	initial := r.stateLocked()
	r.mu.Unlock()

	ch <- initial

	cancel := func() {
		r.mu.Lock()
		if _, ok := r.subscribers[ch]; ok {
			delete(r.subscribers, ch)
			close(ch)
		}
		r.mu.Unlock()
	}
	return ch, cancel
}

// Snapshot exports the full durable state, secrets included.
func (r *Room) Snapshot() domain.GameSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Room) authorizeHostLocked(token string) error {
	if token == "" || token != r.hostToken {
		return domain.ErrUnauthorized
	}
	return nil
}

// nextQuestionLocked loads the quiz first: a missing quiz fails the call
// before any state has been touched.
func (r *Room) nextQuestionLocked(ctx context.Context) error {
	quiz, err := r.quizzes.GetQuiz(ctx, r.quizKey)
	if err != nil {
		return err
	}

	r.questionTotal = len(quiz.Questions)
	next := r.questionIndex + 1

	if next >= len(quiz.Questions) {
		r.phase = domain.PhaseFinished
		r.question = nil
		r.correct = 0
		r.endsAt = time.Time{}
		r.timerGen++
		r.persistLocked()
		r.broadcastLocked()
		return nil
	}

	q := quiz.Questions[next]
	r.questionIndex = next
	r.question = &domain.PublicQuestion{Text: q.Text, Choices: q.Choices}
	r.correct = q.Correct
	r.answers = make(map[string]*domain.Answer)
	r.phase = domain.PhaseQuestion
	r.endsAt = r.now().Add(r.duration)

	r.timerGen++
	gen := r.timerGen
	r.schedule(r.duration, func() { r.handleTimeout(gen) })

	r.persistLocked()
	r.broadcastLocked()
	return nil
}

// handleTimeout is the deadline callback. It is idempotent: a stale timer
// from an earlier question or a re-init sees a generation mismatch and
// does nothing. Scoring applies to every player in one critical section,
// so the room is never visible in a partially-scored state.
func (r *Room) handleTimeout(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.timerGen || r.phase != domain.PhaseQuestion {
		return
	}

	r.scoreRoundLocked()
	r.phase = domain.PhaseLeaderboard
	r.persistLocked()
	r.broadcastLocked()
}

// scoreRoundLocked converts the round's answers into score deltas:
// a correct answer costs the time it took, anything else costs the full
// question duration. Submission timestamps are clamped into the question
// window to absorb answers accepted just before the deadline but
// processed after it.
func (r *Room) scoreRoundLocked() {
	questionStart := r.endsAt.Add(-r.duration)

	for playerID, p := range r.players {
		ans, ok := r.answers[playerID]
		if !ok || ans.Choice != r.correct {
			p.ScoreMs += r.duration.Milliseconds()
			continue
		}

		t := ans.SubmittedAt
		if t.After(r.endsAt) {
			t = r.endsAt
		}
		elapsed := t.Sub(questionStart)
		if elapsed < 0 {
			elapsed = 0
		}
		if elapsed > r.duration {
			elapsed = r.duration
		}
		p.ScoreMs += elapsed.Milliseconds()
		p.Correct++
	}
}

func (r *Room) stateLocked() domain.GameState {
	st := domain.GameState{
		Phase:         r.phase,
		QuestionIndex: r.questionIndex,
		QuestionTotal: r.questionTotal,
		PlayerCount:   len(r.players),
		Top4:          r.topLocked(4),
	}
	if r.phase == domain.PhaseQuestion {
		st.EndsAt = r.endsAt.UnixMilli()
		if r.question != nil {
			q := *r.question
			st.Question = &q
		}
	}
	return st
}

func (r *Room) topLocked(n int) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(r.players))
	for id, p := range r.players {
		entries = append(entries, domain.LeaderboardEntry{
			PlayerID: id,
			Name:     p.Name,
			Correct:  p.Correct,
			ScoreMs:  p.ScoreMs,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Correct != entries[j].Correct {
			return entries[i].Correct > entries[j].Correct
		}
		return entries[i].ScoreMs < entries[j].ScoreMs
	})

	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

func (r *Room) snapshotLocked() domain.GameSnapshot {
	players := make(map[string]*domain.Player, len(r.players))
	for id, p := range r.players {
		cp := *p
		players[id] = &cp
	}
	answers := make(map[string]*domain.Answer, len(r.answers))
	for id, a := range r.answers {
		cp := *a
		answers[id] = &cp
	}

	snap := domain.GameSnapshot{
		GameID:        r.gameID,
		HostToken:     r.hostToken,
		QuizKey:       r.quizKey,
		Phase:         r.phase,
		QuestionIndex: r.questionIndex,
		QuestionTotal: r.questionTotal,
		Players:       players,
		Answers:       answers,
		EndsAt:        r.endsAt,
		Correct:       r.correct,
	}
	if r.question != nil {
		q := *r.question
		snap.Question = &q
	}
	return snap
}

// persistLocked saves the snapshot best-effort; the in-memory room stays
// authoritative while the store is unavailable.
func (r *Room) persistLocked() {
	if r.store == nil {
		return
	}
	_ = r.store.Save(context.Background(), r.snapshotLocked())
}

func (r *Room) broadcastLocked() {
	st := r.stateLocked()
	for ch := range r.subscribers {
		select {
		case ch <- st:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- st
		}
	}
}

func newGameID() string {
	return strings.ToUpper(uuid.NewString()[:8])
}

func newPlayerID() string {
	return strings.ToUpper(uuid.NewString()[:6])
}

func newToken() string {
	return uuid.NewString()
}
