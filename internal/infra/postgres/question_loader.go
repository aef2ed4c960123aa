package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-service/internal/domain"
)

// QuestionLoader loads question bank JSONB from Postgres.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadBank(ctx context.Context, bankID string) (domain.QuestionBank, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM question_banks WHERE id=$1`, bankID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuestionBank{}, domain.ErrQuestionBankNotFound
	}
	if err != nil {
		return domain.QuestionBank{}, fmt.Errorf("load question bank: %w", err)
	}
	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return domain.QuestionBank{}, fmt.Errorf("unmarshal question bank: %w", err)
	}
	return domain.QuestionBank{ID: bankID, Questions: questions}, nil
}

// SaveBank upserts a bank, replacing its questions.
func (l *QuestionLoader) SaveBank(ctx context.Context, bank domain.QuestionBank) error {
	data, err := json.Marshal(bank.Questions)
	if err != nil {
		return fmt.Errorf("marshal question bank: %w", err)
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO question_banks (id, data, updated_at) VALUES ($1, $2::jsonb, now())
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		bank.ID, string(data))
	if err != nil {
		return fmt.Errorf("save question bank: %w", err)
	}
	return nil
}
