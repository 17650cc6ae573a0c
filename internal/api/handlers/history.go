package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Conceptual-Machines/yiyun-api/internal/logger"
	"github.com/Conceptual-Machines/yiyun-api/internal/middleware"
	"github.com/Conceptual-Machines/yiyun-api/internal/models"
	"github.com/gin-gonic/gin"
)

type HistoryLister interface {
	ListForUser(ctx context.Context, userID uint, limit int) ([]models.GenerationRecord, error)
}

type HistoryHandler struct {
	history HistoryLister
}

func NewHistoryHandler(history HistoryLister) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// ListMine handles GET /api/me/generations
func (h *HistoryHandler) ListMine(c *gin.Context) {
	if h.history == nil {
		respondError(c, http.StatusServiceUnavailable, msgDatabaseDisabled, "")
		return
	}
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Authorization required", "")
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(maxHistoryPageSize)))
	if err != nil || limit <= 0 || limit > maxHistoryPageSize {
		limit = maxHistoryPageSize
	}

	records, err := h.history.ListForUser(c.Request.Context(), userID, limit)
	if err != nil {
		logger.Error("Failed to list generation history", err, logger.Fields{"user_id": userID})
		respondError(c, http.StatusInternalServerError, "Failed to load history", "")
		return
	}

	respondOK(c, "Generation history", gin.H{
		"generations": records,
		"total":       len(records),
	}, "")
}
