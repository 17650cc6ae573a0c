package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Conceptual-Machines/yiyun-api/internal/config"
	"github.com/Conceptual-Machines/yiyun-api/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	bearerPrefix        = "Bearer"
	accessTokenDuration = 24 * time.Hour
	tokenIssuer         = "yiyun-api"
)

type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserFinder loads the account behind a token. A nil finder trusts the token claims.
type UserFinder interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
}

// IssueToken signs an HS256 access token for user
func IssueToken(cfg *config.Config, user *models.User, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(accessTokenDuration)
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   fmt.Sprintf("%d", user.ID),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func parseToken(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) == 2 && parts[0] == bearerPrefix {
		return parts[1]
	}
	return ""
}

// resolveUser validates the bearer token and loads its user
func resolveUser(c *gin.Context, users UserFinder, cfg *config.Config) (*models.User, int, string) {
	tokenString := bearerToken(c)
	if tokenString == "" {
		return nil, http.StatusUnauthorized, "Authorization required"
	}

	claims, err := parseToken(tokenString, cfg.JWTSecret)
	if err != nil {
		return nil, http.StatusUnauthorized, "Invalid or expired token"
	}

	if users == nil {
		return &models.User{ID: claims.UserID, Username: claims.Username, IsActive: true}, 0, ""
	}

	user, err := users.FindByID(c.Request.Context(), claims.UserID)
	if err != nil {
		return nil, http.StatusUnauthorized, "User not found"
	}
	if !user.IsActive {
		return nil, http.StatusForbidden, "Account is disabled"
	}
	return user, 0, ""
}

// JWTAuth middleware validates JWT tokens and attaches user to context
func JWTAuth(users UserFinder, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, status, msg := resolveUser(c, users, cfg)
		if user == nil {
			c.JSON(status, gin.H{"success": false, "message": msg})
			c.Abort()
			return
		}

		c.Set("user", *user)
		c.Set("user_id", user.ID)
		c.Next()
	}
}

// OptionalJWTAuth is like JWTAuth but lets anonymous and invalid requests through
func OptionalJWTAuth(users UserFinder, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, _, _ := resolveUser(c, users, cfg); user != nil {
			c.Set("user", *user)
			c.Set("user_id", user.ID)
		}
		c.Next()
	}
}

// ForMode picks the middleware guarding the music routes for AUTH_MODE
func ForMode(users UserFinder, cfg *config.Config) gin.HandlerFunc {
	if cfg.IsJWTMode() {
		return JWTAuth(users, cfg)
	}
	return OptionalJWTAuth(users, cfg)
}

// GetCurrentUser retrieves the user from context
func GetCurrentUser(c *gin.Context) (*models.User, bool) {
	userVal, exists := c.Get("user")
	if !exists {
		return nil, false
	}
	user, ok := userVal.(models.User)
	return &user, ok
}

// GetCurrentUserID retrieves the user ID from context
func GetCurrentUserID(c *gin.Context) (uint, bool) {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	userID, ok := userIDVal.(uint)
	return userID, ok
}
