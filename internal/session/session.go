// Package session runs one timed play-through of the question bank.
package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"trivia-service/internal/domain"
)

const (
	DefaultDuration      = 120 * time.Second
	DefaultFeedbackDelay = 850 * time.Millisecond
	DefaultTickInterval  = 100 * time.Millisecond
)

// ErrNoQuestions is returned when a session is built from an empty bank.
var ErrNoQuestions = errors.New("no questions available")

// Config holds the session timings. Zero values fall back to the defaults.
type Config struct {
	Duration      time.Duration
	FeedbackDelay time.Duration
	TickInterval  time.Duration
}

func (c Config) withDefaults() Config {
	if c.Duration <= 0 {
		c.Duration = DefaultDuration
	}
	if c.FeedbackDelay <= 0 {
		c.FeedbackDelay = DefaultFeedbackDelay
	}
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	return c
}

// ScoreRecorder stores the final result of a session against a player record.
type ScoreRecorder interface {
	RecordResult(ctx context.Context, playerID string, result domain.FinalResult) error
}

type Phase int

const (
	PhaseLoading Phase = iota
	PhaseActive
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseActive:
		return "active"
	case PhaseFinished:
		return "finished"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

type Feedback int

const (
	FeedbackNone Feedback = iota
	FeedbackCorrect
	FeedbackWrong
)

// Summary is the end-of-game report.
type Summary struct {
	Total            int
	Correct          int
	Wrong            int
	Accuracy         int
	TimeTakenSeconds int
	IsPerfect        bool
	TimedOut         bool
	Title            string
	Subtitle         string
}

// State is a point-in-time copy of the session.
type State struct {
	Phase     Phase
	Questions []domain.Question
	Index     int
	Correct   int
	Wrong     int
	Selected  *int
	Feedback  Feedback
	Locked    bool
	Remaining time.Duration
	Summary   *Summary
}

// Current returns the question being shown, or false once the session is over.
func (s State) Current() (domain.Question, bool) {
	if s.Phase != PhaseActive || s.Index >= len(s.Questions) {
		return domain.Question{}, false
	}
	return s.Questions[s.Index], true
}

// Session is a single play-through. All methods are safe for concurrent use.
type Session struct {
	cfg      Config
	clock    Clock
	rnd      *rand.Rand
	recorder ScoreRecorder
	playerID string
	logger   *zap.Logger

	mu         sync.Mutex
	ctx        context.Context
	state      State
	startedAt  time.Time
	finalizing bool
	feedback   Timer
	tick       Timer
	updates    chan State
	done       chan struct{}
}

type Option func(*Session)

func WithClock(clock Clock) Option {
	return func(s *Session) { s.clock = clock }
}

// WithRand sets the source used for the one-time shuffle.
func WithRand(rnd *rand.Rand) Option {
	return func(s *Session) { s.rnd = rnd }
}

// WithRecorder submits the final result for playerID when the session ends.
func WithRecorder(playerID string, recorder ScoreRecorder) Option {
	return func(s *Session) {
		s.playerID = playerID
		s.recorder = recorder
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New shuffles a copy of questions once; the order never changes afterwards.
func New(questions []domain.Question, cfg Config, opts ...Option) (*Session, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	s := &Session{
		cfg:     cfg.withDefaults(),
		clock:   realClock{},
		logger:  zap.NewNop(),
		updates: make(chan State, 1),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rnd == nil {
		s.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	shuffled := make([]domain.Question, len(questions))
	copy(shuffled, questions)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := s.rnd.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	s.state = State{
		Phase:     PhaseLoading,
		Questions: shuffled,
		Remaining: s.cfg.Duration,
	}
	return s, nil
}

// Start begins the countdown. ctx is used for the final score submission.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase != PhaseLoading {
		return
	}
	s.ctx = ctx
	s.startedAt = s.clock.Now()
	s.state.Phase = PhaseActive
	s.tick = s.clock.AfterFunc(s.cfg.TickInterval, s.onTick)
	s.publishLocked()
}

// HandleChoice answers the current question. It reports false when the choice was ignored.
func (s *Session) HandleChoice(option int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Phase != PhaseActive || s.finalizing || s.state.Locked {
		return false
	}
	if s.clock.Now().Sub(s.startedAt) >= s.cfg.Duration {
		return false
	}
	question := s.state.Questions[s.state.Index]
	if option < 0 || option >= len(question.Options) {
		return false
	}

	s.state.Locked = true
	selected := option
	s.state.Selected = &selected
	if question.IsCorrect(option) {
		s.state.Correct++
		s.state.Feedback = FeedbackCorrect
	} else {
		s.state.Wrong++
		s.state.Feedback = FeedbackWrong
	}
	s.feedback = s.clock.AfterFunc(s.cfg.FeedbackDelay, s.advance)
	s.publishLocked()
	return true
}

func (s *Session) advance() {
	s.mu.Lock()
	s.feedback = nil
	if s.finalizing {
		s.mu.Unlock()
		return
	}
	if s.state.Index >= len(s.state.Questions)-1 {
		result, ctx := s.beginFinalizeLocked()
		s.mu.Unlock()
		s.finish(ctx, result, false)
		return
	}
	s.state.Index++
	s.state.Selected = nil
	s.state.Feedback = FeedbackNone
	s.state.Locked = false
	s.publishLocked()
	s.mu.Unlock()
}

func (s *Session) onTick() {
	s.mu.Lock()
	if s.finalizing {
		s.mu.Unlock()
		return
	}
	remaining := s.cfg.Duration - s.clock.Now().Sub(s.startedAt)
	if remaining > 0 {
		s.state.Remaining = remaining
		s.tick = s.clock.AfterFunc(s.cfg.TickInterval, s.onTick)
		s.publishLocked()
		s.mu.Unlock()
		return
	}

	s.state.Remaining = 0
	if s.feedback != nil {
		s.feedback.Stop()
		s.feedback = nil
	}
	s.state.Selected = nil
	s.state.Feedback = FeedbackNone
	s.state.Locked = false
	result, ctx := s.beginFinalizeLocked()
	s.mu.Unlock()
	s.finish(ctx, result, true)
}

// beginFinalizeLocked marks the session as finalizing and captures the result to submit.
func (s *Session) beginFinalizeLocked() (domain.FinalResult, context.Context) {
	s.finalizing = true
	if s.tick != nil {
		s.tick.Stop()
		s.tick = nil
	}

	now := s.clock.Now()
	elapsed := now.Sub(s.startedAt)
	if elapsed > s.cfg.Duration {
		elapsed = s.cfg.Duration
	}
	result := domain.FinalResult{
		TotalQuestions:   len(s.state.Questions),
		CorrectAnswers:   s.state.Correct,
		WrongAnswers:     s.state.Wrong,
		TimeTakenSeconds: int(math.Ceil(elapsed.Seconds())),
		PlayedAt:         now,
	}
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return result, ctx
}

func (s *Session) finish(ctx context.Context, result domain.FinalResult, timedOut bool) {
	if s.recorder != nil && s.playerID != "" {
		bestEffort(s.logger, "record result", func() error {
			return s.recorder.RecordResult(ctx, s.playerID, result)
		})
	}

	summary := summarize(result, timedOut, s.cfg.Duration)

	s.mu.Lock()
	s.state.Phase = PhaseFinished
	s.state.Summary = &summary
	s.publishLocked()
	s.mu.Unlock()
	close(s.done)
}

func summarize(result domain.FinalResult, timedOut bool, duration time.Duration) Summary {
	attempted := result.CorrectAnswers + result.WrongAnswers
	accuracy := 0
	if attempted > 0 {
		accuracy = int(math.Round(100 * float64(result.CorrectAnswers) / float64(attempted)))
	}
	summary := Summary{
		Total:            result.TotalQuestions,
		Correct:          result.CorrectAnswers,
		Wrong:            result.WrongAnswers,
		Accuracy:         accuracy,
		TimeTakenSeconds: result.TimeTakenSeconds,
		IsPerfect:        result.CorrectAnswers == result.TotalQuestions && !timedOut,
		TimedOut:         timedOut,
		Title:            "Score submitted!",
		Subtitle:         "Leaderboard updated with your score and time.",
	}
	if timedOut {
		summary.Title = "Time's up!"
		summary.Subtitle = fmt.Sprintf("%d seconds are over. Try again for a better rank.", int(duration.Seconds()))
	}
	return summary
}

// bestEffort runs op and logs its failure instead of returning it.
func bestEffort(logger *zap.Logger, what string, op func() error) {
	if err := op(); err != nil {
		logger.Warn(what+" failed", zap.Error(err))
	}
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Updates delivers the latest state after every change. Readers that fall behind only see the newest state.
func (s *Session) Updates() <-chan State {
	return s.updates
}

// Done is closed once the session has finished and the result was submitted.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Summary returns the end-of-game report, or false while the session is still running.
func (s *Session) Summary() (Summary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Summary == nil {
		return Summary{}, false
	}
	return *s.state.Summary, true
}

func (s *Session) snapshotLocked() State {
	out := s.state
	out.Questions = append([]domain.Question(nil), s.state.Questions...)
	if s.state.Selected != nil {
		selected := *s.state.Selected
		out.Selected = &selected
	}
	if s.state.Summary != nil {
		summary := *s.state.Summary
		out.Summary = &summary
	}
	return out
}

func (s *Session) publishLocked() {
	snap := s.snapshotLocked()
	select {
	case s.updates <- snap:
	default:
		select {
		case <-s.updates:
		default:
		}
		s.updates <- snap
	}
}
