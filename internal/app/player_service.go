package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trivia-service/internal/domain"
	"trivia-service/internal/metrics"
)

// PlayerRepository abstracts where player records live (in-memory, Postgres, cached).
type PlayerRepository interface {
	Create(ctx context.Context, record domain.PlayerRecord) (domain.PlayerRecord, error)
	Get(ctx context.Context, id string) (domain.PlayerRecord, error)
	Save(ctx context.Context, record domain.PlayerRecord) (domain.PlayerRecord, error)
	ResetAll(ctx context.Context, at time.Time) (domain.ResetResult, error)
	LeaderboardReader
}

// EventPublisher announces record store writes to other systems.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// PlayerService implements the player record store use cases.
type PlayerService struct {
	players PlayerRepository
	events  EventPublisher
	feed    *LeaderboardFeed
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string
}

// PlayerOption customizes a PlayerService.
type PlayerOption func(*PlayerService)

// WithEvents publishes a domain event after every successful write.
func WithEvents(events EventPublisher) PlayerOption {
	return func(s *PlayerService) {
		if events != nil {
			s.events = events
		}
	}
}

// WithFeed refreshes the live leaderboard after every successful write.
func WithFeed(feed *LeaderboardFeed) PlayerOption {
	return func(s *PlayerService) { s.feed = feed }
}

// WithLogger sets the logger used for best-effort failures.
func WithLogger(logger *zap.Logger) PlayerOption {
	return func(s *PlayerService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock is for deterministic timestamps in tests.
func WithClock(now func() time.Time) PlayerOption {
	return func(s *PlayerService) { s.now = now }
}

func NewPlayerService(players PlayerRepository, opts ...PlayerOption) *PlayerService {
	s := &PlayerService{
		players: players,
		events:  noopPublisher{},
		logger:  zap.NewNop(),
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a fresh attempt for the named player.
func (s *PlayerService) Create(ctx context.Context, input domain.NewPlayer) (domain.PlayerView, error) {
	record, err := input.Record(s.now())
	if err != nil {
		return domain.PlayerView{}, err
	}
	record.ID = s.newID()

	created, err := s.players.Create(ctx, record)
	if err != nil {
		return domain.PlayerView{}, domain.StoreFailure("create player", err)
	}
	metrics.PlayersCreated.Inc()

	view := created.View()
	s.afterWrite(ctx, domain.Event{Type: domain.EventPlayerCreated, Player: &view})
	return view, nil
}

// Update applies a partial update. Validation runs against the merged record.
func (s *PlayerService) Update(ctx context.Context, id string, patch domain.PlayerPatch) (domain.PlayerView, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.PlayerView{}, domain.Invalid("id", "Invalid player id.")
	}

	existing, err := s.players.Get(ctx, id)
	if err != nil {
		return domain.PlayerView{}, domain.StoreFailure("load player", err)
	}

	merged, err := patch.Apply(existing, s.now())
	if err != nil {
		return domain.PlayerView{}, err
	}

	saved, err := s.players.Save(ctx, merged)
	if err != nil {
		return domain.PlayerView{}, domain.StoreFailure("update player", err)
	}
	if patch.CorrectAnswers != nil || patch.WrongAnswers != nil {
		metrics.ResultsRecorded.Inc()
	}

	view := saved.View()
	s.afterWrite(ctx, domain.Event{Type: domain.EventPlayerUpdated, Player: &view})
	return view, nil
}

// ResetAll zeroes every record's counters and stamps playedAt with the current time.
func (s *PlayerService) ResetAll(ctx context.Context) (domain.ResetResult, error) {
	result, err := s.players.ResetAll(ctx, s.now().UTC())
	if err != nil {
		return domain.ResetResult{}, domain.StoreFailure("reset players", err)
	}
	metrics.Resets.Inc()

	s.afterWrite(ctx, domain.Event{Type: domain.EventPlayersReset, Reset: &result})
	return result, nil
}

// afterWrite never fails the write it follows; event and feed problems are only logged.
func (s *PlayerService) afterWrite(ctx context.Context, event domain.Event) {
	event.OccurredAt = s.now().UTC()
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event failed", zap.String("type", event.Type), zap.Error(err))
	}
	if s.feed != nil {
		if err := s.feed.Refresh(ctx); err != nil {
			s.logger.Warn("refresh leaderboard feed failed", zap.Error(err))
		}
	}
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, domain.Event) error { return nil }
