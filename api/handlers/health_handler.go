package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/obidl-go/internal/app"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	manager *app.DownloadManager
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(manager *app.DownloadManager) *HealthHandler {
	return &HealthHandler{manager: manager}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Active  int    `json:"active_downloads"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: "1.0.0",
		Active:  h.manager.ActiveCount(),
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
