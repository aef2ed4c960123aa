package app

import (
	"context"

	"trivia-service/internal/domain"
)

// QuestionRepository loads question banks (from cache/backing store).
type QuestionRepository interface {
	GetBank(ctx context.Context, bankID string) (domain.QuestionBank, error)
}

// QuestionService serves the question bank sessions draw from.
type QuestionService struct {
	questions QuestionRepository
	bankID    string
}

func NewQuestionService(questions QuestionRepository, bankID string) *QuestionService {
	return &QuestionService{questions: questions, bankID: bankID}
}

// Questions returns the configured bank in its stored order; clients shuffle per session.
func (s *QuestionService) Questions(ctx context.Context) ([]domain.Question, error) {
	bank, err := s.questions.GetBank(ctx, s.bankID)
	if err != nil {
		return nil, err
	}
	return bank.Questions, nil
}
