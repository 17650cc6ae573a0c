package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "AUTH_MODE", "ANALYSIS_TIMEOUT", "GENERATION_MAX_WAIT", "MAX_FILE_SIZE", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "none", cfg.AuthMode)
	assert.False(t, cfg.IsJWTMode())
	assert.Equal(t, 60*time.Second, cfg.AnalysisTimeout)
	assert.Equal(t, 2*time.Second, cfg.GenerationPollInterval)
	assert.Equal(t, 300*time.Second, cfg.GenerationMaxWait)
	assert.Equal(t, int64(10485760), cfg.MaxFileSize)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "happy", cfg.DefaultBGMMood)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AUTH_MODE", "JWT")
	t.Setenv("ANALYSIS_TIMEOUT", "15s")
	t.Setenv("GENERATION_MAX_WAIT", "120")
	t.Setenv("ANALYSIS_CACHE_SIZE", "0")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("DATABASE_URL", "postgres://localhost/yiyun")

	cfg := Load()

	assert.True(t, cfg.IsJWTMode())
	assert.Equal(t, 15*time.Second, cfg.AnalysisTimeout)
	assert.Equal(t, 120*time.Second, cfg.GenerationMaxWait)
	assert.Equal(t, 0, cfg.AnalysisCacheSize)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.HasDatabase())
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("ANALYSIS_TIMEOUT", "soon")
	t.Setenv("MAX_FILE_SIZE", "-1")

	cfg := Load()

	assert.Equal(t, 60*time.Second, cfg.AnalysisTimeout)
	assert.Equal(t, int64(10485760), cfg.MaxFileSize)
}
