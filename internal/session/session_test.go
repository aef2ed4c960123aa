package session

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"trivia-service/internal/domain"
)

func TestPerfectRunSubmitsOnce(t *testing.T) {
	clock := newFakeClock()
	recorder := &recordingRecorder{}
	s := newTestSession(t, sampleQuestions(5), Config{}, clock, recorder)
	s.Start(context.Background())

	for i := 0; i < 5; i++ {
		q, ok := s.Snapshot().Current()
		if !ok {
			t.Fatalf("question %d: session no longer active", i)
		}
		if !s.HandleChoice(q.CorrectOptionIndex) {
			t.Fatalf("question %d: choice ignored", i)
		}
		if s.HandleChoice(0) {
			t.Fatalf("question %d: second choice accepted while locked", i)
		}
		clock.Advance(DefaultFeedbackDelay)
	}

	select {
	case <-s.Done():
	default:
		t.Fatalf("session not done after last answer")
	}
	summary, ok := s.Summary()
	if !ok {
		t.Fatalf("expected summary")
	}
	if summary.Correct != 5 || summary.Wrong != 0 || summary.Accuracy != 100 || !summary.IsPerfect || summary.TimedOut {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Title != "Score submitted!" {
		t.Fatalf("unexpected title %q", summary.Title)
	}

	calls := recorder.results()
	if len(calls) != 1 {
		t.Fatalf("expected one submission, got %d", len(calls))
	}
	got := calls[0]
	if got.TotalQuestions != 5 || got.CorrectAnswers != 5 || got.WrongAnswers != 0 {
		t.Fatalf("unexpected submission %+v", got)
	}
	// 5 * 850ms = 4.25s, rounded up
	if got.TimeTakenSeconds != 5 {
		t.Fatalf("expected 5 seconds taken, got %d", got.TimeTakenSeconds)
	}
}

func TestTimeoutFinalizesWithCountsSoFar(t *testing.T) {
	clock := newFakeClock()
	recorder := &recordingRecorder{}
	s := newTestSession(t, sampleQuestions(5), Config{}, clock, recorder)
	s.Start(context.Background())

	answer(t, s, clock, true)
	answer(t, s, clock, true)
	q, _ := s.Snapshot().Current()
	if !s.HandleChoice((q.CorrectOptionIndex + 1) % len(q.Options)) {
		t.Fatalf("wrong answer ignored")
	}

	clock.Advance(DefaultDuration)

	summary, ok := s.Summary()
	if !ok {
		t.Fatalf("expected summary after timeout")
	}
	if !summary.TimedOut || summary.Correct != 2 || summary.Wrong != 1 || summary.Accuracy != 67 || summary.IsPerfect {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Title != "Time's up!" {
		t.Fatalf("unexpected title %q", summary.Title)
	}
	calls := recorder.results()
	if len(calls) != 1 || calls[0].TimeTakenSeconds != 120 {
		t.Fatalf("expected one submission capped at 120s, got %+v", calls)
	}

	state := s.Snapshot()
	if state.Phase != PhaseFinished || state.Locked || state.Selected != nil || state.Remaining != 0 {
		t.Fatalf("unexpected final state %+v", state)
	}
	if s.HandleChoice(0) {
		t.Fatalf("choice accepted after finish")
	}
}

func TestNoAttemptsYieldsZeroAccuracy(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(t, sampleQuestions(3), Config{}, clock, &recordingRecorder{})
	s.Start(context.Background())
	clock.Advance(DefaultDuration)

	summary, ok := s.Summary()
	if !ok {
		t.Fatalf("expected summary")
	}
	if summary.Accuracy != 0 || summary.Correct != 0 || summary.IsPerfect {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestTimeoutCancelsPendingAdvance(t *testing.T) {
	clock := newFakeClock()
	recorder := &recordingRecorder{}
	cfg := Config{Duration: time.Second, FeedbackDelay: 850 * time.Millisecond, TickInterval: 100 * time.Millisecond}
	s := newTestSession(t, sampleQuestions(1), cfg, clock, recorder)
	s.Start(context.Background())

	clock.Advance(500 * time.Millisecond)
	answer(t, s, clock, false)
	clock.Advance(2 * time.Second)

	summary, _ := s.Summary()
	if !summary.TimedOut || summary.Correct != 1 || summary.IsPerfect {
		t.Fatalf("expected timed out summary with the answer counted, got %+v", summary)
	}
	if n := len(recorder.results()); n != 1 {
		t.Fatalf("expected one submission, got %d", n)
	}
}

func TestLastAnswerBeatsTimeout(t *testing.T) {
	clock := newFakeClock()
	recorder := &recordingRecorder{}
	cfg := Config{Duration: time.Second, FeedbackDelay: 850 * time.Millisecond, TickInterval: 100 * time.Millisecond}
	s := newTestSession(t, sampleQuestions(1), cfg, clock, recorder)
	s.Start(context.Background())

	answer(t, s, clock, false)
	clock.Advance(2 * time.Second)

	summary, _ := s.Summary()
	if summary.TimedOut || !summary.IsPerfect {
		t.Fatalf("expected completed summary, got %+v", summary)
	}
	if n := len(recorder.results()); n != 1 {
		t.Fatalf("expected one submission, got %d", n)
	}
}

func TestChoiceRejectedOnceTimeRunsOutBeforeTick(t *testing.T) {
	clock := newFakeClock()
	recorder := &recordingRecorder{}
	// ticks at 700ms and 1.4s, so time expires at 1s with no tick to notice it
	cfg := Config{Duration: time.Second, FeedbackDelay: 850 * time.Millisecond, TickInterval: 700 * time.Millisecond}
	s := newTestSession(t, sampleQuestions(3), cfg, clock, recorder)
	s.Start(context.Background())

	clock.Advance(1100 * time.Millisecond)
	if state := s.Snapshot(); state.Phase != PhaseActive {
		t.Fatalf("expected session still active before the tick, got %v", state.Phase)
	}
	q, _ := s.Snapshot().Current()
	if s.HandleChoice(q.CorrectOptionIndex) {
		t.Fatalf("choice accepted after the time limit")
	}
	if state := s.Snapshot(); state.Correct != 0 || state.Locked {
		t.Fatalf("rejected choice changed state: %+v", state)
	}

	clock.Advance(300 * time.Millisecond)
	summary, ok := s.Summary()
	if !ok || !summary.TimedOut || summary.Correct != 0 || summary.TimeTakenSeconds != 1 {
		t.Fatalf("expected timed out summary with no answers, got %+v", summary)
	}
	if n := len(recorder.results()); n != 1 {
		t.Fatalf("expected one submission, got %d", n)
	}
}

func TestFinalizeRunsOnceWithRealTimers(t *testing.T) {
	for i := 0; i < 20; i++ {
		recorder := &recordingRecorder{}
		cfg := Config{Duration: 20 * time.Millisecond, FeedbackDelay: 20 * time.Millisecond, TickInterval: time.Millisecond}
		s, err := New(sampleQuestions(1), cfg, WithRecorder("p1", recorder))
		if err != nil {
			t.Fatalf("new session: %v", err)
		}
		s.Start(context.Background())
		s.HandleChoice(0)

		select {
		case <-s.Done():
		case <-time.After(2 * time.Second):
			t.Fatalf("session did not finish")
		}
		time.Sleep(30 * time.Millisecond)
		if n := len(recorder.results()); n != 1 {
			t.Fatalf("run %d: expected one submission, got %d", i, n)
		}
	}
}

func TestRecorderFailureIsSwallowed(t *testing.T) {
	clock := newFakeClock()
	recorder := &recordingRecorder{err: errors.New("network down")}
	s := newTestSession(t, sampleQuestions(1), Config{}, clock, recorder)
	s.Start(context.Background())
	answer(t, s, clock, true)

	summary, ok := s.Summary()
	if !ok || !summary.IsPerfect {
		t.Fatalf("expected summary despite recorder failure, got %+v", summary)
	}
}

func TestShuffleHappensOnce(t *testing.T) {
	clock := newFakeClock()
	questions := sampleQuestions(6)
	s := newTestSession(t, questions, Config{}, clock, nil)
	order := s.Snapshot().Questions

	texts := make([]string, 0, len(order))
	for _, q := range order {
		texts = append(texts, q.Text)
	}
	sort.Strings(texts)
	for i, q := range questions {
		if texts[i] != q.Text {
			t.Fatalf("shuffle is not a permutation: %v", texts)
		}
	}

	s.Start(context.Background())
	for i := 0; i < 3; i++ {
		q, _ := s.Snapshot().Current()
		if q.Text != order[i].Text {
			t.Fatalf("question %d changed order: %q vs %q", i, q.Text, order[i].Text)
		}
		answer(t, s, clock, true)
	}
}

func TestEmptyBank(t *testing.T) {
	if _, err := New(nil, Config{}); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}

func TestIgnoresOutOfRangeOption(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(t, sampleQuestions(2), Config{}, clock, nil)
	if s.HandleChoice(0) {
		t.Fatalf("choice accepted before start")
	}
	s.Start(context.Background())
	if s.HandleChoice(-1) || s.HandleChoice(9) {
		t.Fatalf("out of range choice accepted")
	}
}

func TestUpdatesKeepLatestState(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(t, sampleQuestions(3), Config{}, clock, nil)
	s.Start(context.Background())
	clock.Advance(time.Second)

	state := <-s.Updates()
	if state.Remaining != DefaultDuration-time.Second {
		t.Fatalf("expected latest remaining %v, got %v", DefaultDuration-time.Second, state.Remaining)
	}
}

// answer picks the correct option and, when advance is set, lets the feedback delay elapse.
func answer(t *testing.T, s *Session, clock *fakeClock, advance bool) {
	t.Helper()
	q, ok := s.Snapshot().Current()
	if !ok {
		t.Fatalf("no current question")
	}
	if !s.HandleChoice(q.CorrectOptionIndex) {
		t.Fatalf("choice ignored")
	}
	if advance {
		clock.Advance(s.cfg.FeedbackDelay)
	}
}

func newTestSession(t *testing.T, questions []domain.Question, cfg Config, clock *fakeClock, recorder ScoreRecorder) *Session {
	t.Helper()
	opts := []Option{WithClock(clock), WithRand(rand.New(rand.NewSource(7)))}
	if recorder != nil {
		opts = append(opts, WithRecorder("player-1", recorder))
	}
	s, err := New(questions, cfg, opts...)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s
}

func sampleQuestions(n int) []domain.Question {
	out := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Question{
			Text:               string(rune('a'+i)) + "?",
			Options:            []string{"one", "two", "three"},
			CorrectOptionIndex: i % 3,
		})
	}
	return out
}

type recordingRecorder struct {
	mu    sync.Mutex
	calls []domain.FinalResult
	err   error
}

func (r *recordingRecorder) RecordResult(_ context.Context, _ string, result domain.FinalResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, result)
	return r.err
}

func (r *recordingRecorder) results() []domain.FinalResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.FinalResult(nil), r.calls...)
}

// fakeClock runs due callbacks synchronously inside Advance.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock *fakeClock
	at    time.Time
	f     func()
	done  bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	timer := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, timer)
	return timer
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		var next *fakeTimer
		for _, timer := range c.timers {
			if timer.done || timer.at.After(target) {
				continue
			}
			if next == nil || timer.at.Before(next.at) {
				next = timer
			}
		}
		if next == nil {
			break
		}
		next.done = true
		c.now = next.at
		c.mu.Unlock()
		next.f()
		c.mu.Lock()
	}
	c.now = target
	live := c.timers[:0]
	for _, timer := range c.timers {
		if !timer.done {
			live = append(live, timer)
		}
	}
	c.timers = live
	c.mu.Unlock()
}
