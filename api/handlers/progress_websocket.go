package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yourusername/obidl-go/internal/app"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// ProgressWebSocketHandler streams live progress samples for one download
// over a WebSocket connection.
type ProgressWebSocketHandler struct {
	manager *app.DownloadManager
	logger  *zap.Logger
}

// NewProgressWebSocketHandler creates a new WebSocket progress handler
func NewProgressWebSocketHandler(manager *app.DownloadManager, log *zap.Logger) *ProgressWebSocketHandler {
	return &ProgressWebSocketHandler{
		manager: manager,
		logger:  log,
	}
}

// HandleWebSocket handles GET /api/v1/downloads/:id/progress
func (h *ProgressWebSocketHandler) HandleWebSocket(c *gin.Context) {
	id := c.Param("id")

	samples, unsubscribe, ok := h.manager.Subscribe(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active download with that id"})
		return
	}
	defer unsubscribe()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Info("WebSocket client connected",
		zap.String("download_id", id),
		zap.String("remote_addr", c.Request.RemoteAddr))

	// Read messages from client (for close detection)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// The ticker lets us notice the download finishing even when no new
	// samples arrive.
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case sample := <-samples:
			data, err := json.Marshal(sample)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if !h.manager.IsActive(id) {
				record, err := h.manager.Get(id)
				if err == nil {
					data, _ := json.Marshal(record)
					conn.WriteMessage(websocket.TextMessage, data)
				}
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "download finished"))
				return
			}
		}
	}
}
