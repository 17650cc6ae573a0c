package handlers

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/Conceptual-Machines/yiyun-api/internal/models"
	"github.com/gin-gonic/gin"
)

// SessionLister is the part of the session store the runtime stats need
type SessionLister interface {
	List() []*models.Session
}

type MetricsHandler struct {
	startTime time.Time
	version   string
	sessions  SessionLister
}

func NewMetricsHandler(version string, sessions SessionLister) *MetricsHandler {
	return &MetricsHandler{
		startTime: time.Now(),
		version:   version,
		sessions:  sessions,
	}
}

const bytesToMB = 1024 * 1024

// formatUptime renders d as 1h2m3.45s, dropping leading zero units
func formatUptime(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := d.Seconds() - float64(hours*3600) - float64(minutes*60)

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh%dm%.2fs", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm%.2fs", minutes, seconds)
	default:
		return fmt.Sprintf("%.2fs", seconds)
	}
}

type MetricsResponse struct {
	Status    string         `json:"status"`
	Uptime    string         `json:"uptime"`
	Timestamp string         `json:"timestamp"`
	Version   string         `json:"version"`
	StartTime string         `json:"start_time"`
	System    SystemMetrics  `json:"system"`
	Sessions  SessionMetrics `json:"sessions"`
}

type SystemMetrics struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	MemAllocMB   uint64 `json:"mem_alloc_mb"`
	MemTotalMB   uint64 `json:"mem_total_mb"`
	NumGC        uint32 `json:"num_gc"`
}

// SessionMetrics counts the in-memory sessions, overall and per status
type SessionMetrics struct {
	Total    int                          `json:"total"`
	ByStatus map[models.SessionStatus]int `json:"by_status"`
}

func (h *MetricsHandler) sessionMetrics() SessionMetrics {
	out := SessionMetrics{ByStatus: map[models.SessionStatus]int{}}
	if h.sessions == nil {
		return out
	}
	for _, s := range h.sessions.List() {
		out.Total++
		out.ByStatus[s.Status]++
	}
	return out
}

// GetMetrics handles GET /api/metrics
func (h *MetricsHandler) GetMetrics(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	c.JSON(http.StatusOK, MetricsResponse{
		Status:    "healthy",
		Uptime:    formatUptime(time.Since(h.startTime)),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
		StartTime: h.startTime.UTC().Format(time.RFC3339),
		System: SystemMetrics{
			GoVersion:    runtime.Version(),
			NumGoroutine: runtime.NumGoroutine(),
			MemAllocMB:   m.Alloc / bytesToMB,
			MemTotalMB:   m.TotalAlloc / bytesToMB,
			NumGC:        m.NumGC,
		},
		Sessions: h.sessionMetrics(),
	})
}
