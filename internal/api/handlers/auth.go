package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Conceptual-Machines/yiyun-api/internal/config"
	"github.com/Conceptual-Machines/yiyun-api/internal/logger"
	"github.com/Conceptual-Machines/yiyun-api/internal/middleware"
	"github.com/Conceptual-Machines/yiyun-api/internal/models"
	"github.com/Conceptual-Machines/yiyun-api/internal/services"
	"github.com/gin-gonic/gin"
)

// Accounts is the user storage behind register and login
type Accounts interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
}

type AuthHandler struct {
	accounts Accounts
	cfg      *config.Config
	now      func() time.Time
}

// NewAuthHandler creates the handler; a nil accounts store makes every route answer 503
func NewAuthHandler(accounts Accounts, cfg *config.Config) *AuthHandler {
	return &AuthHandler{accounts: accounts, cfg: cfg, now: time.Now}
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Email    string `json:"email" binding:"omitempty,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	User        models.User `json:"user"`
	AccessToken string      `json:"access_token"`
	ExpiresIn   int64       `json:"expires_in"` // seconds
}

// Register creates a new user account
func (h *AuthHandler) Register(c *gin.Context) {
	if h.accounts == nil {
		respondError(c, http.StatusServiceUnavailable, msgDatabaseDisabled, "")
		return
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if errors.Is(err, services.ErrUsernameTaken) {
		respondError(c, http.StatusConflict, "Username already exists", "")
		return
	}
	if err != nil {
		logger.Error("Registration failed", err, logger.WithContext(c))
		respondError(c, http.StatusInternalServerError, "Registration failed", "")
		return
	}

	logger.Info("User registered", logger.Fields{"user_id": user.ID, "username": user.Username})
	c.JSON(http.StatusCreated, APIResponse{Success: true, Message: "Registration successful", Data: user})
}

// Login exchanges a username and password for an access token
func (h *AuthHandler) Login(c *gin.Context) {
	if h.accounts == nil {
		respondError(c, http.StatusServiceUnavailable, msgDatabaseDisabled, "")
		return
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	user, err := h.accounts.Authenticate(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		respondError(c, http.StatusUnauthorized, "Invalid username or password", "")
		return
	}
	if err != nil {
		logger.Error("Login failed", err, logger.WithContext(c))
		respondError(c, http.StatusInternalServerError, "Login failed", "")
		return
	}
	if !user.IsActive {
		respondError(c, http.StatusForbidden, "Account is disabled", "")
		return
	}

	now := h.now()
	token, expiresAt, err := middleware.IssueToken(h.cfg, user, now)
	if err != nil {
		logger.Error("Failed to sign token", err, logger.Fields{"user_id": user.ID})
		respondError(c, http.StatusInternalServerError, "Login failed", "")
		return
	}

	respondOK(c, "Login successful", AuthResponse{
		User:        *user,
		AccessToken: token,
		ExpiresIn:   int64(expiresAt.Sub(now).Seconds()),
	}, "")
}
