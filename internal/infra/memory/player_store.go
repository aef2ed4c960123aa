package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"trivia-service/internal/domain"
)

// PlayerStore is an in-memory implementation of app.PlayerRepository.
type PlayerStore struct {
	mu      sync.RWMutex
	players map[string]domain.PlayerRecord
}

func NewPlayerStore() *PlayerStore {
	return &PlayerStore{
		players: make(map[string]domain.PlayerRecord),
	}
}

func (s *PlayerStore) Create(_ context.Context, record domain.PlayerRecord) (domain.PlayerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[record.ID] = record
	return record, nil
}

func (s *PlayerStore) Get(_ context.Context, id string) (domain.PlayerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.players[id]
	if !ok {
		return domain.PlayerRecord{}, domain.ErrPlayerNotFound
	}
	return record, nil
}

func (s *PlayerStore) Save(_ context.Context, record domain.PlayerRecord) (domain.PlayerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[record.ID]; !ok {
		return domain.PlayerRecord{}, domain.ErrPlayerNotFound
	}
	s.players[record.ID] = record
	return record, nil
}

func (s *PlayerStore) ResetAll(_ context.Context, at time.Time) (domain.ResetResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := domain.ResetResult{}
	for id, record := range s.players {
		result.MatchedCount++
		reset := record
		reset.TotalQuestions = 0
		reset.CorrectAnswers = 0
		reset.WrongAnswers = 0
		reset.TimeTakenSeconds = 0
		reset.PlayedAt = at
		if reset != record {
			result.ModifiedCount++
		}
		reset.UpdatedAt = at
		s.players[id] = reset
	}
	return result, nil
}

// Leaderboard filters, sorts and slices the stored records for q.
func (s *PlayerStore) Leaderboard(_ context.Context, q domain.LeaderboardQuery) ([]domain.PlayerRecord, error) {
	s.mu.RLock()
	matched := make([]domain.PlayerRecord, 0, len(s.players))
	for _, record := range s.players {
		if q.Matches(record) {
			matched = append(matched, record)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return domain.RanksBefore(matched[i], matched[j])
	})

	if q.Offset >= len(matched) {
		return []domain.PlayerRecord{}, nil
	}
	end := len(matched)
	if q.Limit > 0 && q.Offset+q.Limit < end {
		end = q.Offset + q.Limit
	}
	return matched[q.Offset:end], nil
}
