package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/Conceptual-Machines/yiyun-api/internal/analysis"
	"github.com/Conceptual-Machines/yiyun-api/internal/config"
	"github.com/Conceptual-Machines/yiyun-api/internal/logger"
	"github.com/Conceptual-Machines/yiyun-api/internal/middleware"
	"github.com/Conceptual-Machines/yiyun-api/internal/models"
	"github.com/Conceptual-Machines/yiyun-api/internal/services"
	"github.com/gin-gonic/gin"
)

// MusicHandler serves the analyse, clarify and generate routes
type MusicHandler struct {
	svc *services.MusicService
	cfg *config.Config
}

func NewMusicHandler(svc *services.MusicService, cfg *config.Config) *MusicHandler {
	return &MusicHandler{svc: svc, cfg: cfg}
}

type AnalyzeTextRequest struct {
	TextContent string `form:"text_content" json:"text_content"`
	SessionID   string `form:"session_id" json:"session_id"`
}

type analysisData struct {
	Understanding          string                         `json:"understanding"`
	MusicElements          map[string]interface{}         `json:"music_elements"`
	NeedsClarification     bool                           `json:"needs_clarification"`
	ClarificationQuestions []models.ClarificationQuestion `json:"clarification_questions,omitempty"`
}

func analysisResponse(a *models.AnalysisResult) analysisData {
	if a == nil {
		return analysisData{MusicElements: map[string]interface{}{}}
	}
	data := analysisData{
		Understanding:      a.Understanding,
		MusicElements:      a.MusicElements,
		NeedsClarification: a.NeedsClarification,
	}
	if a.NeedsClarification {
		data.ClarificationQuestions = a.ClarificationQuestions
	}
	return data
}

// AnalyzeText handles POST /api/analyze/text
func (h *MusicHandler) AnalyzeText(c *gin.Context) {
	var req AnalyzeTextRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	if strings.TrimSpace(req.TextContent) == "" {
		respondError(c, http.StatusBadRequest, "text_content is required", req.SessionID)
		return
	}

	input := models.UserInput{InputType: models.InputTypeText, TextContent: req.TextContent}
	sess, err := h.svc.Analyze(c.Request.Context(), req.SessionID, input, nil)
	if err != nil {
		respondServiceError(c, err, req.SessionID)
		return
	}

	respondOK(c, "Text analysis complete", analysisResponse(sess.Analysis), sess.SessionID)
}

// AnalyzeImage handles POST /api/analyze/image. The upload stays in memory.
func (h *MusicHandler) AnalyzeImage(c *gin.Context) {
	sessionID := c.PostForm("session_id")

	file, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "image file is required", sessionID)
		return
	}
	if file.Filename == "" {
		respondError(c, http.StatusBadRequest, "image filename is missing", sessionID)
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	mimeType, ok := allowedImageTypes[ext]
	if !ok {
		respondError(c, http.StatusBadRequest,
			"Unsupported file type. Supported: .jpg, .jpeg, .png, .gif, .bmp, .webp", sessionID)
		return
	}
	if file.Size > h.cfg.MaxFileSize {
		respondError(c, http.StatusBadRequest, tooLargeMessage(h.cfg.MaxFileSize), sessionID)
		return
	}

	f, err := file.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "could not read image", sessionID)
		return
	}
	defer f.Close()

	// one byte past the limit catches a lying Content-Length
	data, err := io.ReadAll(io.LimitReader(f, h.cfg.MaxFileSize+1))
	if err != nil {
		respondError(c, http.StatusBadRequest, "could not read image", sessionID)
		return
	}
	if int64(len(data)) > h.cfg.MaxFileSize {
		respondError(c, http.StatusBadRequest, tooLargeMessage(h.cfg.MaxFileSize), sessionID)
		return
	}

	input := models.UserInput{InputType: models.InputTypeImage, ImageFilename: file.Filename}
	image := &analysis.Image{Data: data, MIMEType: mimeType}
	sess, err := h.svc.Analyze(c.Request.Context(), sessionID, input, image)
	if err != nil {
		respondServiceError(c, err, sessionID)
		return
	}

	respondOK(c, "Image analysis complete", analysisResponse(sess.Analysis), sess.SessionID)
}

func tooLargeMessage(limit int64) string {
	return fmt.Sprintf("File too large. Maximum size: %.1fMB", float64(limit)/1024/1024)
}

// Clarify handles POST /api/clarify
func (h *MusicHandler) Clarify(c *gin.Context) {
	var answer models.ClarificationAnswer
	if err := c.ShouldBindJSON(&answer); err != nil {
		respondError(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	out, err := h.svc.Clarify(c.Request.Context(), answer)
	if err != nil {
		respondServiceError(c, err, answer.SessionID)
		return
	}

	if !out.Done() {
		respondOK(c, "Answer received, please answer the remaining questions", gin.H{
			"needs_more_clarification": true,
			"remaining_questions":      out.Remaining,
		}, answer.SessionID)
		return
	}

	respondOK(c, "Clarification complete, music prompt ready", gin.H{
		"needs_more_clarification": false,
		"final_prompt":             out.Prompt,
		"ready_for_generation":     true,
	}, answer.SessionID)
}

// Generate handles POST /api/generate/:session_id
func (h *MusicHandler) Generate(c *gin.Context) {
	sessionID := c.Param("session_id")

	params, err := bindMusicParams(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid music parameters: "+err.Error(), sessionID)
		return
	}

	var userID *uint
	if id, ok := middleware.GetCurrentUserID(c); ok {
		userID = &id
	}

	out, err := h.svc.Generate(c.Request.Context(), sessionID, params, userID)
	if err != nil {
		respondServiceError(c, err, sessionID)
		return
	}

	if !out.Result.Success {
		fields := logger.WithContext(c)
		fields["session_id"] = sessionID
		fields["detail"] = out.Result.Message
		logger.Warn("Music generation failed", fields)

		c.JSON(http.StatusBadGateway, APIResponse{
			Success: false,
			Message: out.Message,
			Data: gin.H{
				"error_detail": out.Result.Message,
				"suggestions":  out.Suggestions,
			},
			SessionID: sessionID,
		})
		return
	}

	data := gin.H{
		"music_url":            out.Result.AudioURL,
		"music_prompt":         out.Prompt,
		"generation_completed": true,
	}
	if out.Result.Lyrics != "" {
		data["lyrics"] = out.Result.Lyrics
	}
	respondOK(c, out.Message, data, sessionID)
}

// bindMusicParams returns nil when the body is absent or an empty object
func bindMusicParams(c *gin.Context) (*models.UserMusicParams, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}
	if len(probe) == 0 {
		return nil, nil
	}

	var params models.UserMusicParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, err
	}
	return &params, nil
}

// GetSession handles GET /api/session/:session_id
func (h *MusicHandler) GetSession(c *gin.Context) {
	sessionID := c.Param("session_id")
	sess, err := h.svc.Store().Get(sessionID)
	if err != nil {
		respondServiceError(c, err, sessionID)
		return
	}
	respondOK(c, "Session found", sess, sessionID)
}

// ListSessions handles GET /api/sessions
func (h *MusicHandler) ListSessions(c *gin.Context) {
	sessions := h.svc.Store().List()
	respondOK(c, fmt.Sprintf("%d sessions", len(sessions)), gin.H{
		"sessions": sessions,
		"total":    len(sessions),
	}, "")
}
