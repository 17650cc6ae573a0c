package logger

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
)

// Fields represents structured log fields
type Fields map[string]interface{}

// fields promoted to Sentry tags so events can be filtered by them
var tagKeys = []string{"request_id", "session_id", "interface", "stage", "provider", "model"}

var debugEnabled atomic.Bool

func init() {
	debugEnabled.Store(true)
}

// SetDebug turns Debug output on or off
func SetDebug(on bool) {
	debugEnabled.Store(on)
}

// WithContext extracts request context for logging
func WithContext(c *gin.Context) Fields {
	fields := Fields{
		"request_id": c.GetString("request_id"),
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
	}

	if userID, exists := c.Get("user_id"); exists {
		fields["user_id"] = userID
	}
	if sessionID := c.Param("session_id"); sessionID != "" {
		fields["session_id"] = sessionID
	}

	return fields
}

// Info logs an informational message with structured fields
func Info(msg string, fields Fields) {
	log.Printf("[INFO] %s %s", msg, formatFields(fields))
	breadcrumb("info", sentry.LevelInfo, msg, fields)
}

// Warn logs a warning message with structured fields
func Warn(msg string, fields Fields) {
	log.Printf("[WARN] %s %s", msg, formatFields(fields))
	breadcrumb("warning", sentry.LevelWarning, msg, fields)
}

// Debug is dropped unless SetDebug(true)
func Debug(msg string, fields Fields) {
	if !debugEnabled.Load() {
		return
	}
	log.Printf("[DEBUG] %s %s", msg, formatFields(fields))
	breadcrumb("debug", sentry.LevelDebug, msg, fields)
}

// Error logs an error message with structured fields and sends it to Sentry.
// err may be nil, in which case msg is captured as a message event.
func Error(msg string, err error, fields Fields) {
	if err != nil {
		log.Printf("[ERROR] %s: %v %s", msg, err, formatFields(fields))
	} else {
		log.Printf("[ERROR] %s %s", msg, formatFields(fields))
	}

	hub := sentry.CurrentHub()
	if hub.Client() == nil {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelError)
		for key, value := range fields {
			scope.SetContext(key, map[string]interface{}{"value": value})
		}
		for _, key := range tagKeys {
			if v, ok := fields[key]; ok {
				scope.SetTag(key, fmt.Sprint(v))
			}
		}

		if err != nil {
			hub.CaptureException(err)
		} else {
			hub.CaptureMessage(msg)
		}
	})
}

// LogUpstreamCall logs one completed LLM call and its token usage
func LogUpstreamCall(ctx context.Context, model string, duration time.Duration, tokenUsage map[string]interface{}, fields Fields) {
	if fields == nil {
		fields = Fields{}
	}

	fields["model"] = model
	fields["duration_ms"] = duration.Milliseconds()
	for _, key := range []string{"total_tokens", "input_tokens", "output_tokens"} {
		if v, ok := tokenUsage[key]; ok {
			fields[key] = v
		}
	}

	Info("Upstream LLM call completed", fields)

	if span := sentry.SpanFromContext(ctx); span != nil {
		child := span.StartChild("llm.complete")
		child.Description = model
		child.SetData("tokens", tokenUsage)
		child.Finish()
	}
}

func breadcrumb(kind string, level sentry.Level, msg string, fields Fields) {
	if hub := sentry.CurrentHub(); hub.Client() != nil {
		hub.AddBreadcrumb(&sentry.Breadcrumb{
			Type:     kind,
			Category: "log",
			Message:  msg,
			Data:     convertFieldsToMap(fields),
			Level:    level,
		}, nil)
	}
}

// formatFields renders fields as {k=v, ...} with keys sorted
func formatFields(fields Fields) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(formatValue(fields[k]))
	}
	b.WriteByte('}')
	return b.String()
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return fmt.Sprintf("%.2f", val)
	case error:
		return val.Error()
	default:
		return fmt.Sprintf("%v", val)
	}
}

func convertFieldsToMap(fields Fields) map[string]interface{} {
	result := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		result[k] = v
	}
	return result
}
