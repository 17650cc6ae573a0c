package handlers

import (
	"errors"
	"net/http"

	"github.com/Conceptual-Machines/yiyun-api/internal/services"
	"github.com/Conceptual-Machines/yiyun-api/internal/session"
	"github.com/gin-gonic/gin"
)

// APIResponse is the envelope of every JSON response
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	SessionID string      `json:"session_id,omitempty"`
}

func respondOK(c *gin.Context, message string, data interface{}, sessionID string) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Message: message, Data: data, SessionID: sessionID})
}

func respondError(c *gin.Context, status int, message, sessionID string) {
	c.JSON(status, APIResponse{Success: false, Message: message, SessionID: sessionID})
}

// respondServiceError maps pipeline errors onto HTTP statuses
func respondServiceError(c *gin.Context, err error, sessionID string) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		respondError(c, http.StatusNotFound, msgSessionNotFound, sessionID)
	case errors.Is(err, services.ErrNoFinalPrompt):
		respondError(c, http.StatusBadRequest,
			"No music prompt found: finish the clarification questions or send music parameters", sessionID)
	case errors.Is(err, session.ErrNoPendingQuestions),
		errors.Is(err, session.ErrUnknownQuestion),
		errors.Is(err, session.ErrAlreadyAnswered):
		respondError(c, http.StatusConflict, err.Error(), sessionID)
	default:
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Internal server error", sessionID)
	}
}
