package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"trivia-service/internal/app"
	"trivia-service/internal/domain"
	"trivia-service/internal/infra/memory"
)

func TestCreateAndPatchPlayer(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/players", map[string]any{"name": "  Ana "})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created domain.PlayerView
	decode(t, rr, &created)
	if created.ID == "" || created.Name != "Ana" || created.TotalQuestions != 0 {
		t.Fatalf("unexpected created player %+v", created)
	}

	rr = doJSON(t, router, http.MethodPatch, "/players/"+created.ID, map[string]any{
		"totalQuestions":   5,
		"correctAnswers":   5,
		"wrongAnswers":     0,
		"timeTakenSeconds": 42,
		"playedAt":         "2026-10-19T10:00:00Z",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var updated domain.PlayerView
	decode(t, rr, &updated)
	if updated.CorrectAnswers != 5 || updated.TimeTakenSeconds != 42 {
		t.Fatalf("unexpected updated player %+v", updated)
	}
}

func TestPatchRejectsMergedInvariantViolation(t *testing.T) {
	router, _ := newTestRouter(t)
	id := createPlayer(t, router, map[string]any{"name": "Ana", "totalQuestions": 5})

	rr := doJSON(t, router, http.MethodPatch, "/players/"+id, map[string]any{
		"totalQuestions": 5,
		"correctAnswers": 4,
		"wrongAnswers":   3,
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestPatchTruncatesFractionalAndStringCounters(t *testing.T) {
	router, _ := newTestRouter(t)
	id := createPlayer(t, router, map[string]any{"name": "Ana", "totalQuestions": "5"})

	rr := doJSON(t, router, http.MethodPatch, "/players/"+id, map[string]any{
		"totalQuestions":   5,
		"correctAnswers":   "3",
		"wrongAnswers":     1.9,
		"timeTakenSeconds": 41.7,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var updated domain.PlayerView
	decode(t, rr, &updated)
	if updated.TotalQuestions != 5 || updated.CorrectAnswers != 3 || updated.WrongAnswers != 1 || updated.TimeTakenSeconds != 41 {
		t.Fatalf("unexpected updated player %+v", updated)
	}

	rr = doJSON(t, router, http.MethodPatch, "/players/"+id, map[string]any{"timeTakenSeconds": "fast"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for non-numeric counter, got %d: %s", rr.Code, rr.Body.String())
	}
	decode(t, rr, &updated)
	if updated.TimeTakenSeconds != 0 {
		t.Fatalf("expected non-numeric counter to become 0, got %d", updated.TimeTakenSeconds)
	}
}

func TestCreateAcceptsStringCounters(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/players", map[string]any{
		"name":           "Bo",
		"totalQuestions": "5",
		"correctAnswers": 2.5,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created domain.PlayerView
	decode(t, rr, &created)
	if created.TotalQuestions != 5 || created.CorrectAnswers != 2 {
		t.Fatalf("unexpected created player %+v", created)
	}
}

func TestPatchErrors(t *testing.T) {
	router, _ := newTestRouter(t)
	id := createPlayer(t, router, map[string]any{"name": "Ana"})

	cases := []struct {
		name string
		path string
		body map[string]any
		want int
	}{
		{"malformed id", "/players/not-a-uuid", map[string]any{"name": "Bo"}, http.StatusBadRequest},
		{"unknown id", "/players/6f1c1f7e-8a53-4bb4-9d7c-2f1f0f7f7a10", map[string]any{"name": "Bo"}, http.StatusNotFound},
		{"empty name", "/players/" + id, map[string]any{"name": "   "}, http.StatusBadRequest},
		{"api prefix", "/api/players/" + id, map[string]any{"name": "Bo"}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doJSON(t, router, http.MethodPatch, tc.path, tc.body)
			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, body := range []map[string]any{
		{"name": ""},
		{"name": "Ana", "totalQuestions": 2, "correctAnswers": 2, "wrongAnswers": 1},
	} {
		rr := doJSON(t, router, http.MethodPost, "/players", body)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %v, got %d", body, rr.Code)
		}
		var resp map[string]any
		decode(t, rr, &resp)
		if resp["error"] == "" {
			t.Fatalf("expected error message, got %v", resp)
		}
	}
}

func TestLeaderboardPaginationMatchesFullListing(t *testing.T) {
	router, _ := newTestRouter(t)
	for i := 0; i < 7; i++ {
		createPlayer(t, router, map[string]any{
			"name":           fmt.Sprintf("player-%d", i),
			"totalQuestions": 5,
			"correctAnswers": i % 4,
			"wrongAnswers":   5 - i%4,
		})
	}
	createPlayer(t, router, map[string]any{"name": "idle"})

	full := getLeaderboard(t, router, "/leaderboard?limit=100")
	if len(full.Leaderboard) != 7 {
		t.Fatalf("expected 7 ranked entries (idle excluded), got %d", len(full.Leaderboard))
	}

	var paged []domain.RankedEntry
	for offset := 0; ; offset += 3 {
		page := getLeaderboard(t, router, fmt.Sprintf("/leaderboard?limit=3&offset=%d", offset))
		paged = append(paged, page.Leaderboard...)
		if !page.Pagination.HasMore {
			break
		}
	}
	if len(paged) != len(full.Leaderboard) {
		t.Fatalf("expected %d paged entries, got %d", len(full.Leaderboard), len(paged))
	}
	for i := range paged {
		if paged[i].ID != full.Leaderboard[i].ID || paged[i].Rank != i+1 {
			t.Fatalf("position %d: paged %+v vs full %+v", i, paged[i], full.Leaderboard[i])
		}
	}
}

func TestLeaderboardOnlyPerfectIsSubset(t *testing.T) {
	router, _ := newTestRouter(t)
	createPlayer(t, router, map[string]any{"name": "Ana", "totalQuestions": 5, "correctAnswers": 5})
	createPlayer(t, router, map[string]any{"name": "Bo", "totalQuestions": 5, "correctAnswers": 4, "wrongAnswers": 1})

	all := getLeaderboard(t, router, "/leaderboard")
	perfect := getLeaderboard(t, router, "/leaderboard?onlyPerfect=true")
	if len(perfect.Leaderboard) != 1 || perfect.Leaderboard[0].Name != "Ana" || !perfect.Leaderboard[0].IsPerfectScore {
		t.Fatalf("unexpected perfect leaderboard %+v", perfect.Leaderboard)
	}
	found := false
	for _, entry := range all.Leaderboard {
		if entry.ID == perfect.Leaderboard[0].ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("perfect entry missing from full leaderboard")
	}
}

func TestLeaderboardQueryDefaults(t *testing.T) {
	router, _ := newTestRouter(t)

	page := getLeaderboard(t, router, "/leaderboard?limit=abc&offset=-5")
	if page.Pagination.Limit != 20 || page.Pagination.Offset != 0 {
		t.Fatalf("expected defaults, got %+v", page.Pagination)
	}
	page = getLeaderboard(t, router, "/api/leaderboard?limit=1000")
	if page.Pagination.Limit != 100 {
		t.Fatalf("expected clamp to 100, got %+v", page.Pagination)
	}
	if page.Leaderboard == nil {
		t.Fatalf("expected empty array, not null")
	}
}

func TestResetPlayers(t *testing.T) {
	router, _ := newTestRouter(t)
	createPlayer(t, router, map[string]any{"name": "Ana", "totalQuestions": 5, "correctAnswers": 5})

	rr := doJSON(t, router, http.MethodPost, "/players/reset", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp struct {
		Message       string `json:"message"`
		MatchedCount  int64  `json:"matchedCount"`
		ModifiedCount int64  `json:"modifiedCount"`
	}
	decode(t, rr, &resp)
	if resp.MatchedCount != 1 || resp.ModifiedCount != 1 || resp.Message == "" {
		t.Fatalf("unexpected reset response %+v", resp)
	}
	if page := getLeaderboard(t, router, "/leaderboard"); len(page.Leaderboard) != 0 {
		t.Fatalf("expected empty leaderboard after reset, got %+v", page.Leaderboard)
	}
}

func TestResetIsRateLimited(t *testing.T) {
	router, _ := newTestRouter(t)
	for i := 0; i < 2; i++ {
		if rr := doJSON(t, router, http.MethodPost, "/players/reset", nil); rr.Code != http.StatusOK {
			t.Fatalf("reset %d: expected 200, got %d", i, rr.Code)
		}
	}
	if rr := doJSON(t, router, http.MethodPost, "/players/reset", nil); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
}

func TestQuestionsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := doJSON(t, router, http.MethodGet, "/questions", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp struct {
		Questions []domain.Question `json:"questions"`
	}
	decode(t, rr, &resp)
	if len(resp.Questions) != 2 || resp.Questions[0].Options[1] != "4" {
		t.Fatalf("unexpected questions %+v", resp.Questions)
	}
}

func newTestRouter(t *testing.T) (*gin.Engine, *app.LeaderboardFeed) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewPlayerStore()
	board := app.NewLeaderboardService(store, 0, 0)
	feed := app.NewLeaderboardFeed(board, 10)
	players := app.NewPlayerService(store, app.WithFeed(feed))
	questions := app.NewQuestionService(
		memory.NewQuestionRepository(memory.NewStaticQuestionLoader(sampleBanks()), time.Minute),
		"default",
	)
	handler := NewHandler(players, board, questions, nil)
	return NewRouter(handler, NewWSHandler(feed, nil), nil, RouterConfig{ResetPerMinute: 2}), feed
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
}

func createPlayer(t *testing.T, h http.Handler, body map[string]any) string {
	t.Helper()
	rr := doJSON(t, h, http.MethodPost, "/players", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create player: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created domain.PlayerView
	decode(t, rr, &created)
	return created.ID
}

func getLeaderboard(t *testing.T, h http.Handler, path string) domain.LeaderboardPage {
	t.Helper()
	rr := doJSON(t, h, http.MethodGet, path, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("leaderboard: expected 200, got %d", rr.Code)
	}
	var page domain.LeaderboardPage
	decode(t, rr, &page)
	return page
}

func sampleBanks() map[string]domain.QuestionBank {
	return map[string]domain.QuestionBank{
		"default": {
			ID: "default",
			Questions: []domain.Question{
				{Text: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectOptionIndex: 1},
				{Text: "Capital of France?", Options: []string{"Paris", "Rome"}, CorrectOptionIndex: 0},
			},
		},
	}
}
