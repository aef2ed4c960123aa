package domain

import "time"

// PlayerRecord is one stored game attempt. A new record is created per play-through.
type PlayerRecord struct {
	ID               string
	Name             string
	TotalQuestions   int
	CorrectAnswers   int
	WrongAnswers     int
	TimeTakenSeconds int
	PlayedAt         time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsPerfectScore reports whether every question of a non-empty run was answered correctly.
func (p PlayerRecord) IsPerfectScore() bool {
	return p.TotalQuestions > 0 && p.CorrectAnswers == p.TotalQuestions
}

// View converts the stored record into its response shape.
func (p PlayerRecord) View() PlayerView {
	return PlayerView{
		ID:               p.ID,
		Name:             p.Name,
		TotalQuestions:   p.TotalQuestions,
		CorrectAnswers:   p.CorrectAnswers,
		WrongAnswers:     p.WrongAnswers,
		TimeTakenSeconds: p.TimeTakenSeconds,
		PlayedAt:         p.PlayedAt,
	}
}

// NewPlayer is the create request body. Counters default to zero and PlayedAt to now.
type NewPlayer struct {
	Name           string  `json:"name"`
	TotalQuestions *int    `json:"totalQuestions,omitempty"`
	CorrectAnswers *int    `json:"correctAnswers,omitempty"`
	WrongAnswers   *int    `json:"wrongAnswers,omitempty"`
	PlayedAt       *string `json:"playedAt,omitempty"`
}

// PlayerPatch is a partial update; nil fields are left untouched.
type PlayerPatch struct {
	Name             *string `json:"name,omitempty"`
	TotalQuestions   *int    `json:"totalQuestions,omitempty"`
	CorrectAnswers   *int    `json:"correctAnswers,omitempty"`
	WrongAnswers     *int    `json:"wrongAnswers,omitempty"`
	TimeTakenSeconds *int    `json:"timeTakenSeconds,omitempty"`
	PlayedAt         *string `json:"playedAt,omitempty"`
}

// PlayerView is the read model returned from create and update.
type PlayerView struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	TotalQuestions   int       `json:"totalQuestions"`
	CorrectAnswers   int       `json:"correctAnswers"`
	WrongAnswers     int       `json:"wrongAnswers"`
	TimeTakenSeconds int       `json:"timeTakenSeconds"`
	PlayedAt         time.Time `json:"playedAt"`
}

// ResetResult reports how many records a bulk reset touched.
type ResetResult struct {
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

// LeaderboardQuery selects one page of the ranked leaderboard.
type LeaderboardQuery struct {
	Limit       int
	Offset      int
	OnlyPerfect bool
}

// RankedEntry is a leaderboard row annotated with its rank.
type RankedEntry struct {
	Rank             int       `json:"rank"`
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	TotalQuestions   int       `json:"totalQuestions"`
	CorrectAnswers   int       `json:"correctAnswers"`
	WrongAnswers     int       `json:"wrongAnswers"`
	TimeTakenSeconds int       `json:"timeTakenSeconds"`
	PlayedAt         time.Time `json:"playedAt"`
	IsPerfectScore   bool      `json:"isPerfectScore"`
}

// Pagination echoes the effective paging parameters of a leaderboard page.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

// LeaderboardPage is the body of GET /leaderboard.
type LeaderboardPage struct {
	Leaderboard []RankedEntry `json:"leaderboard"`
	Pagination  Pagination    `json:"pagination"`
}

// Question is a static multiple-choice question.
type Question struct {
	Text               string   `json:"questionText" yaml:"questionText"`
	Options            []string `json:"options" yaml:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex" yaml:"correctOptionIndex"`
	HelperText         string   `json:"helperText,omitempty" yaml:"helperText,omitempty"`
}

// IsCorrect reports whether option is the right answer.
func (q Question) IsCorrect(option int) bool {
	return option == q.CorrectOptionIndex
}

// QuestionBank is the full read-only set of questions a session draws from.
type QuestionBank struct {
	ID        string     `json:"id" yaml:"id"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// FinalResult is what a finished session writes back to its player record.
type FinalResult struct {
	TotalQuestions   int
	CorrectAnswers   int
	WrongAnswers     int
	TimeTakenSeconds int
	PlayedAt         time.Time
}

// Patch converts a final result into the partial update sent to the record store.
func (r FinalResult) Patch() PlayerPatch {
	playedAt := r.PlayedAt.UTC().Format(time.RFC3339Nano)
	return PlayerPatch{
		TotalQuestions:   intPtr(r.TotalQuestions),
		CorrectAnswers:   intPtr(r.CorrectAnswers),
		WrongAnswers:     intPtr(r.WrongAnswers),
		TimeTakenSeconds: intPtr(r.TimeTakenSeconds),
		PlayedAt:         &playedAt,
	}
}

// Event is published after every successful write to the record store.
type Event struct {
	Type       string       `json:"type"`
	Player     *PlayerView  `json:"player,omitempty"`
	Reset      *ResetResult `json:"reset,omitempty"`
	OccurredAt time.Time    `json:"occurredAt"`
}

const (
	EventPlayerCreated = "player.created"
	EventPlayerUpdated = "player.updated"
	EventPlayersReset  = "players.reset"
)

func intPtr(v int) *int {
	return &v
}
