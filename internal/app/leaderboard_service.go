package app

import (
	"context"

	"trivia-service/internal/domain"
)

// LeaderboardReader returns one sorted, filtered page of records for a normalized query.
type LeaderboardReader interface {
	Leaderboard(ctx context.Context, q domain.LeaderboardQuery) ([]domain.PlayerRecord, error)
}

// LeaderboardService computes ranked, paginated views over the player records.
type LeaderboardService struct {
	reader       LeaderboardReader
	defaultLimit int
	maxLimit     int
}

func NewLeaderboardService(reader LeaderboardReader, defaultLimit, maxLimit int) *LeaderboardService {
	if defaultLimit <= 0 {
		defaultLimit = domain.DefaultLeaderboardLimit
	}
	if maxLimit <= 0 {
		maxLimit = domain.MaxLeaderboardLimit
	}
	return &LeaderboardService{reader: reader, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

// Query returns the ranked page selected by q after applying the paging defaults.
func (s *LeaderboardService) Query(ctx context.Context, q domain.LeaderboardQuery) (domain.LeaderboardPage, error) {
	q = q.Normalize(s.defaultLimit, s.maxLimit)
	records, err := s.reader.Leaderboard(ctx, q)
	if err != nil {
		return domain.LeaderboardPage{}, domain.StoreFailure("fetch leaderboard", err)
	}
	return domain.BuildPage(q, records), nil
}
