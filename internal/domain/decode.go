package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// UnmarshalJSON decodes the create body, coercing counters with parseCount.
func (n *NewPlayer) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name           string          `json:"name"`
		TotalQuestions json.RawMessage `json:"totalQuestions"`
		CorrectAnswers json.RawMessage `json:"correctAnswers"`
		WrongAnswers   json.RawMessage `json:"wrongAnswers"`
		PlayedAt       *string         `json:"playedAt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*n = NewPlayer{
		Name:           raw.Name,
		TotalQuestions: parseCount(raw.TotalQuestions),
		CorrectAnswers: parseCount(raw.CorrectAnswers),
		WrongAnswers:   parseCount(raw.WrongAnswers),
		PlayedAt:       raw.PlayedAt,
	}
	return nil
}

// UnmarshalJSON decodes a partial update, coercing counters with parseCount.
func (p *PlayerPatch) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name             *string         `json:"name"`
		TotalQuestions   json.RawMessage `json:"totalQuestions"`
		CorrectAnswers   json.RawMessage `json:"correctAnswers"`
		WrongAnswers     json.RawMessage `json:"wrongAnswers"`
		TimeTakenSeconds json.RawMessage `json:"timeTakenSeconds"`
		PlayedAt         *string         `json:"playedAt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = PlayerPatch{
		Name:             raw.Name,
		TotalQuestions:   parseCount(raw.TotalQuestions),
		CorrectAnswers:   parseCount(raw.CorrectAnswers),
		WrongAnswers:     parseCount(raw.WrongAnswers),
		TimeTakenSeconds: parseCount(raw.TimeTakenSeconds),
		PlayedAt:         raw.PlayedAt,
	}
	return nil
}

// parseCount reads a counter the way clients actually send it: numbers are
// truncated toward zero, strings contribute their leading integer ("12.7" is 12),
// anything else is 0. A missing or null field stays nil.
func parseCount(raw json.RawMessage) *int {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	n := 0
	var f float64
	var s string
	switch {
	case json.Unmarshal(raw, &f) == nil:
		n = clampCount(math.Trunc(f))
	case json.Unmarshal(raw, &s) == nil:
		n = leadingInt(s)
	}
	return &n
}

func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return clampCount(v)
}

func clampCount(f float64) int {
	switch {
	case f > math.MaxInt32:
		return math.MaxInt32
	case f < math.MinInt32:
		return math.MinInt32
	}
	return int(f)
}
