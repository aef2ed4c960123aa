package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"trivia-service/internal/metrics"
)

// RouterConfig tunes the HTTP surface.
type RouterConfig struct {
	// ResetPerMinute bounds POST /players/reset per client; zero disables the limit.
	ResetPerMinute int
}

// NewRouter wires every route twice: at the root and under /api.
func NewRouter(h *Handler, ws *WSHandler, logger *zap.Logger, cfg RouterConfig) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger), metrics.Middleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	router.GET("/metrics", metrics.Handler())

	reset := []gin.HandlerFunc{h.ResetPlayers}
	if cfg.ResetPerMinute > 0 {
		reset = append([]gin.HandlerFunc{RateLimiter(cfg.ResetPerMinute, time.Minute)}, reset...)
	}

	for _, group := range []*gin.RouterGroup{router.Group(""), router.Group("/api")} {
		group.GET("/leaderboard", h.Leaderboard)
		group.GET("/questions", h.Questions)
		group.POST("/players", h.CreatePlayer)
		group.POST("/players/reset", reset...)
		group.PATCH("/players/:id", h.UpdatePlayer)
		if ws != nil {
			group.GET("/ws/leaderboard", ws.ServeWS)
		}
	}
	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits requests per client IP; idle entries are pruned on access.
func RateLimiter(maxRequests int, window time.Duration) gin.HandlerFunc {
	store := make(map[string]*visitor)
	var mu sync.Mutex

	expiry := window * 3
	if expiry < time.Minute {
		expiry = time.Minute
	}
	r := rate.Every(window / time.Duration(maxRequests))

	return func(c *gin.Context) {
		key := c.ClientIP()
		now := time.Now()

		mu.Lock()
		for ip, v := range store {
			if now.Sub(v.lastSeen) > expiry {
				delete(store, ip)
			}
		}
		v, exists := store[key]
		if !exists {
			v = &visitor{limiter: rate.NewLimiter(r, maxRequests)}
			store[key] = v
		}
		v.lastSeen = now
		mu.Unlock()

		if !v.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
