package logger

import (
	"bytes"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevFlags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
	})
	return &buf
}

func TestFormatFieldsIsSorted(t *testing.T) {
	got := formatFields(Fields{"b": 2, "a": "x", "c": 1.5})

	assert.Equal(t, "{a=x, b=2, c=1.50}", got)
	assert.Equal(t, "", formatFields(nil))
}

func TestLevels(t *testing.T) {
	buf := captureLog(t)

	Info("hello", Fields{"session_id": "s1"})
	Warn("careful", nil)
	Error("broken", errors.New("boom"), Fields{"stage": "analysis"})
	Error("no error value", nil, nil)

	out := buf.String()
	assert.Contains(t, out, "[INFO] hello {session_id=s1}")
	assert.Contains(t, out, "[WARN] careful")
	assert.Contains(t, out, "[ERROR] broken: boom {stage=analysis}")
	assert.Contains(t, out, "[ERROR] no error value")
}

func TestDebugCanBeSilenced(t *testing.T) {
	buf := captureLog(t)
	t.Cleanup(func() { SetDebug(true) })

	SetDebug(false)
	Debug("hidden", nil)
	SetDebug(true)
	Debug("shown", nil)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[DEBUG] shown")
}

func TestWithContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var got Fields
	r := gin.New()
	r.GET("/api/session/:session_id", func(c *gin.Context) {
		c.Set("request_id", "req-1")
		c.Set("user_id", uint(5))
		got = WithContext(c)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/session/abc", nil))

	assert.Equal(t, "req-1", got["request_id"])
	assert.Equal(t, uint(5), got["user_id"])
	assert.Equal(t, "abc", got["session_id"])
	assert.Equal(t, http.MethodGet, got["method"])
}
