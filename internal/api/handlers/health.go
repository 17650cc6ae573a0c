package handlers

import (
	"net/http"

	"github.com/Conceptual-Machines/yiyun-api/internal/config"
	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	cfg    *config.Config
	pingDB func() error // nil when no database is configured
}

func NewHealthHandler(cfg *config.Config, pingDB func() error) *HealthHandler {
	return &HealthHandler{cfg: cfg, pingDB: pingDB}
}

func enabled(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}

// HealthCheck returns the health status of the API and which upstreams are configured
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	status := http.StatusOK
	database := "disabled"
	if h.pingDB != nil {
		database = "ok"
		if err := h.pingDB(); err != nil {
			database = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "degraded"
	}

	c.JSON(status, gin.H{
		"status":   overall,
		"database": database,
		"auth":     h.cfg.AuthMode,
		"upstreams": gin.H{
			"analysis":   h.cfg.AnalysisProvider,
			"generation": enabled(h.cfg.CozeToken != "" && h.cfg.CozeBotID != ""),
		},
	})
}
