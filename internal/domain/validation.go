package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	NameMinLength = 2
	NameMaxLength = 40
)

// NormalizeName trims raw and checks the length bounds of a player name.
func NormalizeName(raw string, emptyMessage string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", Invalid("name", emptyMessage)
	}
	if n := utf8.RuneCountInString(name); n < NameMinLength || n > NameMaxLength {
		return "", Invalid("name", "Name must be between 2 and 40 characters.")
	}
	return name, nil
}

// CheckAnswerCounts enforces correct + wrong <= total for attempted runs.
func CheckAnswerCounts(total, correct, wrong int) error {
	if total > 0 && correct+wrong > total {
		return Invalid("correctAnswers", "correctAnswers + wrongAnswers cannot exceed totalQuestions.")
	}
	return nil
}

// ParseTimestamp accepts RFC 3339 timestamps, with or without fractional seconds.
func ParseTimestamp(field, raw string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, Invalid(field, "Invalid timestamp.")
	}
	return ts.UTC(), nil
}

// Record validates the create request and builds the record to persist.
// The caller assigns the id.
func (n NewPlayer) Record(now time.Time) (PlayerRecord, error) {
	name, err := NormalizeName(n.Name, "Name is required.")
	if err != nil {
		return PlayerRecord{}, err
	}

	record := PlayerRecord{
		Name:           name,
		TotalQuestions: nonNegative(n.TotalQuestions),
		CorrectAnswers: nonNegative(n.CorrectAnswers),
		WrongAnswers:   nonNegative(n.WrongAnswers),
		PlayedAt:       now.UTC(),
		CreatedAt:      now.UTC(),
		UpdatedAt:      now.UTC(),
	}
	if err := CheckAnswerCounts(record.TotalQuestions, record.CorrectAnswers, record.WrongAnswers); err != nil {
		return PlayerRecord{}, err
	}
	if n.PlayedAt != nil {
		playedAt, err := ParseTimestamp("playedAt", *n.PlayedAt)
		if err != nil {
			return PlayerRecord{}, err
		}
		record.PlayedAt = playedAt
	}
	return record, nil
}

// Apply merges the patch onto existing and validates the merged record.
func (p PlayerPatch) Apply(existing PlayerRecord, now time.Time) (PlayerRecord, error) {
	merged := existing
	if p.Name != nil {
		name, err := NormalizeName(*p.Name, "Name cannot be empty.")
		if err != nil {
			return PlayerRecord{}, err
		}
		merged.Name = name
	}
	if p.TotalQuestions != nil {
		merged.TotalQuestions = nonNegative(p.TotalQuestions)
	}
	if p.CorrectAnswers != nil {
		merged.CorrectAnswers = nonNegative(p.CorrectAnswers)
	}
	if p.WrongAnswers != nil {
		merged.WrongAnswers = nonNegative(p.WrongAnswers)
	}
	if p.TimeTakenSeconds != nil {
		merged.TimeTakenSeconds = nonNegative(p.TimeTakenSeconds)
	}
	if p.PlayedAt != nil {
		playedAt, err := ParseTimestamp("playedAt", *p.PlayedAt)
		if err != nil {
			return PlayerRecord{}, err
		}
		merged.PlayedAt = playedAt
	}
	if err := CheckAnswerCounts(merged.TotalQuestions, merged.CorrectAnswers, merged.WrongAnswers); err != nil {
		return PlayerRecord{}, err
	}
	merged.UpdatedAt = now.UTC()
	return merged, nil
}

// Validate checks a question bank entry.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return Invalid("questionText", "Question text is required.")
	}
	if len(q.Options) < 2 {
		return Invalid("options", "A question needs at least two options.")
	}
	if q.CorrectOptionIndex < 0 || q.CorrectOptionIndex >= len(q.Options) {
		return Invalid("correctOptionIndex", "Correct option index is out of range.")
	}
	return nil
}

func nonNegative(v *int) int {
	if v == nil || *v < 0 {
		return 0
	}
	return *v
}
