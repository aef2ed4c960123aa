package domain

const (
	DefaultLeaderboardLimit = 20
	MaxLeaderboardLimit     = 100
)

// Normalize applies the paging defaults: non-positive limits fall back to defaultLimit,
// limits above maxLimit are clamped, negative offsets become zero.
func (q LeaderboardQuery) Normalize(defaultLimit, maxLimit int) LeaderboardQuery {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLeaderboardLimit
	}
	if maxLimit <= 0 {
		maxLimit = MaxLeaderboardLimit
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

// Matches reports whether p belongs on the leaderboard selected by q.
// Records that never attempted a question are never ranked.
func (q LeaderboardQuery) Matches(p PlayerRecord) bool {
	if p.TotalQuestions <= 0 {
		return false
	}
	if q.OnlyPerfect {
		return p.IsPerfectScore()
	}
	return true
}

// RanksBefore orders records by correct answers desc, time taken asc, played at asc,
// and finally id so that distinct records never tie.
func RanksBefore(a, b PlayerRecord) bool {
	if a.CorrectAnswers != b.CorrectAnswers {
		return a.CorrectAnswers > b.CorrectAnswers
	}
	if a.TimeTakenSeconds != b.TimeTakenSeconds {
		return a.TimeTakenSeconds < b.TimeTakenSeconds
	}
	if !a.PlayedAt.Equal(b.PlayedAt) {
		return a.PlayedAt.Before(b.PlayedAt)
	}
	return a.ID < b.ID
}

// BuildPage ranks an already sorted page of records fetched for q.
func BuildPage(q LeaderboardQuery, records []PlayerRecord) LeaderboardPage {
	entries := make([]RankedEntry, 0, len(records))
	for i, p := range records {
		entries = append(entries, RankedEntry{
			Rank:             q.Offset + i + 1,
			ID:               p.ID,
			Name:             p.Name,
			TotalQuestions:   p.TotalQuestions,
			CorrectAnswers:   p.CorrectAnswers,
			WrongAnswers:     p.WrongAnswers,
			TimeTakenSeconds: p.TimeTakenSeconds,
			PlayedAt:         p.PlayedAt,
			IsPerfectScore:   p.IsPerfectScore(),
		})
	}
	return LeaderboardPage{
		Leaderboard: entries,
		Pagination: Pagination{
			Limit:   q.Limit,
			Offset:  q.Offset,
			HasMore: len(entries) == q.Limit,
		},
	}
}
