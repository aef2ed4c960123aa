package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"trivia-service/internal/app"
	"trivia-service/internal/domain"
)

// Handler serves the REST API over the player, leaderboard and question services.
type Handler struct {
	players   *app.PlayerService
	board     *app.LeaderboardService
	questions *app.QuestionService
	logger    *zap.Logger
}

func NewHandler(players *app.PlayerService, board *app.LeaderboardService, questions *app.QuestionService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{players: players, board: board, questions: questions, logger: logger}
}

// Leaderboard handles GET /leaderboard?limit=&offset=&onlyPerfect=.
func (h *Handler) Leaderboard(c *gin.Context) {
	q := domain.LeaderboardQuery{
		Limit:       queryInt(c, "limit"),
		Offset:      queryInt(c, "offset"),
		OnlyPerfect: queryBool(c, "onlyPerfect"),
	}
	page, err := h.board.Query(c.Request.Context(), q)
	if err != nil {
		h.writeError(c, err, "Failed to fetch leaderboard.")
		return
	}
	c.JSON(http.StatusOK, page)
}

// CreatePlayer handles POST /players.
func (h *Handler) CreatePlayer(c *gin.Context) {
	var req domain.NewPlayer
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body.", "detail": err.Error()})
		return
	}

	player, err := h.players.Create(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err, "Failed to create player record.")
		return
	}
	c.JSON(http.StatusCreated, player)
}

// UpdatePlayer handles PATCH /players/:id.
func (h *Handler) UpdatePlayer(c *gin.Context) {
	var req domain.PlayerPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body.", "detail": err.Error()})
		return
	}

	player, err := h.players.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.writeError(c, err, "Failed to update player record.")
		return
	}
	c.JSON(http.StatusOK, player)
}

// ResetPlayers handles POST /players/reset.
func (h *Handler) ResetPlayers(c *gin.Context) {
	result, err := h.players.ResetAll(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "Failed to reset player stats.")
		return
	}
	h.logger.Info("player stats reset",
		zap.Int64("matched", result.MatchedCount),
		zap.Int64("modified", result.ModifiedCount),
	)
	c.JSON(http.StatusOK, gin.H{
		"message":       "Player stats reset successfully.",
		"matchedCount":  result.MatchedCount,
		"modifiedCount": result.ModifiedCount,
	})
}

// Questions handles GET /questions.
func (h *Handler) Questions(c *gin.Context) {
	questions, err := h.questions.Questions(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "Failed to load questions.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": questions})
}

func (h *Handler) writeError(c *gin.Context, err error, failure string) {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Message, "field": validationErr.Field})
	case errors.Is(err, domain.ErrPlayerNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Player not found."})
	case errors.Is(err, domain.ErrQuestionBankNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Question bank not found."})
	default:
		h.logger.Error(failure, zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": failure, "detail": err.Error()})
	}
}

// queryInt returns 0 for missing or malformed values so the service applies its defaults.
func queryInt(c *gin.Context, key string) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return v
}

func queryBool(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(c.Query(key))
	return err == nil && v
}
