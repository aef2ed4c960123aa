// Package client is a typed HTTP client for the trivia API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"trivia-service/internal/domain"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
	Field   string
	Detail  string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// WebSocketURL returns the ws:// address of the live leaderboard feed.
func (c *Client) WebSocketURL() string {
	u := c.baseURL + "/ws/leaderboard"
	if strings.HasPrefix(u, "https://") {
		return "wss://" + strings.TrimPrefix(u, "https://")
	}
	return "ws://" + strings.TrimPrefix(u, "http://")
}

func (c *Client) CreatePlayer(ctx context.Context, input domain.NewPlayer) (domain.PlayerView, error) {
	var out domain.PlayerView
	err := c.do(ctx, http.MethodPost, "/players", input, &out)
	return out, err
}

func (c *Client) UpdatePlayer(ctx context.Context, id string, patch domain.PlayerPatch) (domain.PlayerView, error) {
	var out domain.PlayerView
	err := c.do(ctx, http.MethodPatch, "/players/"+url.PathEscape(id), patch, &out)
	return out, err
}

// RecordResult implements session.ScoreRecorder.
func (c *Client) RecordResult(ctx context.Context, playerID string, result domain.FinalResult) error {
	_, err := c.UpdatePlayer(ctx, playerID, result.Patch())
	return err
}

// Leaderboard implements leaderboard.Fetcher. A response without pagination
// reports more pages when the batch filled the requested limit.
func (c *Client) Leaderboard(ctx context.Context, q domain.LeaderboardQuery) (domain.LeaderboardPage, error) {
	params := url.Values{}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.OnlyPerfect {
		params.Set("onlyPerfect", "true")
	}
	path := "/leaderboard"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var raw struct {
		Leaderboard []domain.RankedEntry `json:"leaderboard"`
		Pagination  *domain.Pagination   `json:"pagination"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return domain.LeaderboardPage{}, err
	}

	page := domain.LeaderboardPage{Leaderboard: raw.Leaderboard}
	if raw.Pagination != nil {
		page.Pagination = *raw.Pagination
	} else {
		page.Pagination = domain.Pagination{
			Limit:   q.Limit,
			Offset:  q.Offset,
			HasMore: len(raw.Leaderboard) == q.Limit,
		}
	}
	return page, nil
}

// ResetResponse is the body of POST /players/reset.
type ResetResponse struct {
	Message string `json:"message"`
	domain.ResetResult
}

func (c *Client) ResetPlayers(ctx context.Context) (ResetResponse, error) {
	var out ResetResponse
	err := c.do(ctx, http.MethodPost, "/players/reset", nil, &out)
	return out, err
}

func (c *Client) Questions(ctx context.Context) ([]domain.Question, error) {
	var out struct {
		Questions []domain.Question `json:"questions"`
	}
	if err := c.do(ctx, http.MethodGet, "/questions", nil, &out); err != nil {
		return nil, err
	}
	return out.Questions, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var payload struct {
			Error  string `json:"error"`
			Field  string `json:"field"`
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
			apiErr.Message = payload.Error
			apiErr.Field = payload.Field
			apiErr.Detail = payload.Detail
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
