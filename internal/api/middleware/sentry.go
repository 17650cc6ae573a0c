package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Conceptual-Machines/yiyun-api/internal/logger"
	"github.com/Conceptual-Machines/yiyun-api/internal/metrics"
	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	httpStatusBadRequest          = http.StatusBadRequest
	httpStatusInternalServerError = http.StatusInternalServerError
	sentryFlushTimeout            = 2 * time.Second
	unmatchedRoute                = "unmatched"
)

// RequestTracking adds request ID and logging to all requests
func RequestTracking(recorder metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.New().String()
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		fields := logger.Fields{
			"request_id":  requestID,
			"duration_ms": duration.Milliseconds(),
			"status_code": statusCode,
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"client_ip":   c.ClientIP(),
		}
		if userID, exists := c.Get("user_id"); exists {
			fields["user_id"] = userID
		}

		if statusCode >= httpStatusInternalServerError {
			logger.Error("Request failed with server error", nil, fields)
		} else if statusCode >= httpStatusBadRequest {
			logger.Warn("Request failed with client error", fields)
		} else {
			logger.Info("Request completed", fields)
		}

		// route template, so session ids don't explode label cardinality
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = unmatchedRoute
		}
		recorder.RecordAPIRequest(c.Request.Context(), endpoint, statusCode, duration)
	}
}

// SentryMiddleware returns the Sentry middleware with custom configuration
func SentryMiddleware() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         sentryFlushTimeout,
	})
}

// RecoverWithSentry turns a panic into a 500 envelope and reports it to Sentry
func RecoverWithSentry() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				reportPanic(c, recovered)
				c.AbortWithStatusJSON(httpStatusInternalServerError, gin.H{
					"success":    false,
					"message":    "Internal server error",
					"request_id": c.GetString("request_id"),
				})
			}
		}()
		c.Next()
	}
}

func reportPanic(c *gin.Context, recovered interface{}) {
	requestID := c.GetString("request_id")
	logger.Error("Panic recovered", fmt.Errorf("panic: %v", recovered), logger.Fields{
		"request_id": requestID,
		"path":       c.Request.URL.Path,
		"session_id": c.Param("session_id"),
	})

	hub := sentrygin.GetHubFromContext(c)
	if hub == nil {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(c.Request)
		scope.SetTag("request_id", requestID)
		if userID, exists := c.Get("user_id"); exists {
			scope.SetUser(sentry.User{ID: fmt.Sprint(userID)})
		}
		hub.RecoverWithContext(c.Request.Context(), recovered)
	})
}
