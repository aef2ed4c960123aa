package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"trivia-service/internal/app"
	"trivia-service/internal/domain"
)

const writeWait = 10 * time.Second

type WSHandler struct {
	feed     *app.LeaderboardFeed
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(feed *app.LeaderboardFeed, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		feed:   feed,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and streams leaderboard snapshots until the client goes away.
func (h *WSHandler) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	updates, cancel, err := h.feed.Subscribe(c.Request.Context())
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	// The read loop only detects the client closing; inbound messages are ignored.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case page, ok := <-updates:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(outboundMessage[domain.LeaderboardPage]{Type: "leaderboard", Payload: page}); err != nil {
				h.logger.Debug("ws write error", zap.Error(err))
				return
			}
		case <-closed:
			return
		}
	}
}
