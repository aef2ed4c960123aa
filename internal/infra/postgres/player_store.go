package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-service/internal/domain"
)

const playerColumns = `id, name, total_questions, correct_answers, wrong_answers, time_taken_seconds, played_at, created_at, updated_at`

// PlayerStore persists player records in the players table.
type PlayerStore struct {
	pool *pgxpool.Pool
}

func NewPlayerStore(pool *pgxpool.Pool) *PlayerStore {
	return &PlayerStore{pool: pool}
}

func (s *PlayerStore) Create(ctx context.Context, record domain.PlayerRecord) (domain.PlayerRecord, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO players (id, name, total_questions, correct_answers, wrong_answers, time_taken_seconds, played_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+playerColumns,
		record.ID,
		record.Name,
		record.TotalQuestions,
		record.CorrectAnswers,
		record.WrongAnswers,
		record.TimeTakenSeconds,
		record.PlayedAt,
		record.CreatedAt,
		record.UpdatedAt,
	)
	created, err := scanPlayer(row)
	if err != nil {
		return domain.PlayerRecord{}, fmt.Errorf("insert player: %w", err)
	}
	return created, nil
}

func (s *PlayerStore) Get(ctx context.Context, id string) (domain.PlayerRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`, id)
	record, err := scanPlayer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PlayerRecord{}, domain.ErrPlayerNotFound
	}
	if err != nil {
		return domain.PlayerRecord{}, fmt.Errorf("select player: %w", err)
	}
	return record, nil
}

func (s *PlayerStore) Save(ctx context.Context, record domain.PlayerRecord) (domain.PlayerRecord, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE players
		SET name = $2, total_questions = $3, correct_answers = $4, wrong_answers = $5,
			time_taken_seconds = $6, played_at = $7, updated_at = $8
		WHERE id = $1
		RETURNING `+playerColumns,
		record.ID,
		record.Name,
		record.TotalQuestions,
		record.CorrectAnswers,
		record.WrongAnswers,
		record.TimeTakenSeconds,
		record.PlayedAt,
		record.UpdatedAt,
	)
	saved, err := scanPlayer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PlayerRecord{}, domain.ErrPlayerNotFound
	}
	if err != nil {
		return domain.PlayerRecord{}, fmt.Errorf("update player: %w", err)
	}
	return saved, nil
}

// ResetAll is a single bulk UPDATE; every row changes because played_at is restamped.
func (s *PlayerStore) ResetAll(ctx context.Context, at time.Time) (domain.ResetResult, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE players
		SET total_questions = 0, correct_answers = 0, wrong_answers = 0,
			time_taken_seconds = 0, played_at = $1, updated_at = $1`, at)
	if err != nil {
		return domain.ResetResult{}, fmt.Errorf("reset players: %w", err)
	}
	n := tag.RowsAffected()
	return domain.ResetResult{MatchedCount: n, ModifiedCount: n}, nil
}

func (s *PlayerStore) Leaderboard(ctx context.Context, q domain.LeaderboardQuery) ([]domain.PlayerRecord, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE total_questions > 0`
	if q.OnlyPerfect {
		query += ` AND correct_answers = total_questions`
	}
	query += `
		ORDER BY correct_answers DESC, time_taken_seconds ASC, played_at ASC, id ASC
		LIMIT $1 OFFSET $2`

	rows, err := s.pool.Query(ctx, query, q.Limit, q.Offset)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	records := make([]domain.PlayerRecord, 0, q.Limit)
	for rows.Next() {
		record, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard: %w", err)
	}
	return records, nil
}

func scanPlayer(row pgx.Row) (domain.PlayerRecord, error) {
	var record domain.PlayerRecord
	err := row.Scan(
		&record.ID,
		&record.Name,
		&record.TotalQuestions,
		&record.CorrectAnswers,
		&record.WrongAnswers,
		&record.TimeTakenSeconds,
		&record.PlayedAt,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return domain.PlayerRecord{}, err
	}
	record.PlayedAt = record.PlayedAt.UTC()
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	return record, nil
}
