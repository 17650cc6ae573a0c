package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	// Environment
	Environment string
	Port        string

	// Auth mode
	// - "none": music routes are open, a bearer token is optional
	// - "jwt": music routes require a bearer token
	AuthMode    string
	JWTSecret   string
	DatabaseURL string // empty disables users and history

	CORSAllowedOrigins []string

	// Analysis upstream
	AnalysisProvider  string // dashscope, openai or gemini
	DashScopeAPIKey   string
	DashScopeURL      string
	DashScopeModel    string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	GeminiAPIKey      string
	GeminiModel       string
	AnalysisTimeout   time.Duration
	AnalysisCacheSize int

	// Generation upstream (Coze bot)
	CozeAPIBase            string
	CozeToken              string
	CozeBotID              string
	CozeUserID             string
	GenerationPollInterval time.Duration
	GenerationMaxWait      time.Duration

	// Validation defaults; illegal values fall back to the built-in ones
	DefaultBGMMood   string
	DefaultSongMood  string
	DefaultSongGenre string
	DefaultTimbre    string
	DefaultGender    string

	// Uploads
	MaxFileSize int64

	// Observability
	SentryDSN         string // Sentry DSN for error tracking
	LangfusePublicKey string // Langfuse public key
	LangfuseSecretKey string // Langfuse secret key
	LangfuseHost      string // Langfuse host URL (cloud or self-hosted)
	LangfuseEnabled   bool   // Feature flag for Langfuse
}

func Load() *Config {
	return &Config{
		Environment:        getEnv("ENVIRONMENT", "development"),
		Port:               getEnv("PORT", "8080"),
		AuthMode:           strings.ToLower(getEnv("AUTH_MODE", "none")),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),

		AnalysisProvider:  getEnv("ANALYSIS_PROVIDER", "dashscope"),
		DashScopeAPIKey:   getEnv("DASHSCOPE_API_KEY", ""),
		DashScopeURL:      getEnv("DASHSCOPE_API_URL", ""),
		DashScopeModel:    getEnv("DASHSCOPE_MODEL", "qwen-vl-max"),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		AnalysisTimeout:   getDuration("ANALYSIS_TIMEOUT", 60*time.Second),
		AnalysisCacheSize: getInt("ANALYSIS_CACHE_SIZE", 128),

		CozeAPIBase:            getEnv("COZE_API_BASE", "https://api.coze.cn"),
		CozeToken:              getEnv("COZE_TOKEN", ""),
		CozeBotID:              getEnv("COZE_BOT_ID", ""),
		CozeUserID:             getEnv("COZE_USER_ID", "music_generator_user"),
		GenerationPollInterval: getDuration("GENERATION_POLL_INTERVAL", 2*time.Second),
		GenerationMaxWait:      getDuration("GENERATION_MAX_WAIT", 300*time.Second),

		DefaultBGMMood:   getEnv("DEFAULT_BGM_MOOD", "happy"),
		DefaultSongMood:  getEnv("DEFAULT_SONG_MOOD", "Happy"),
		DefaultSongGenre: getEnv("DEFAULT_SONG_GENRE", "Pop"),
		DefaultTimbre:    getEnv("DEFAULT_TIMBRE", "Warm"),
		DefaultGender:    getEnv("DEFAULT_GENDER", "Male"),

		MaxFileSize: int64(getInt("MAX_FILE_SIZE", 10485760)),

		SentryDSN:         getEnv("SENTRY_DSN", ""),
		LangfusePublicKey: getEnv("LANGFUSE_PUBLIC_KEY", ""),
		LangfuseSecretKey: getEnv("LANGFUSE_SECRET_KEY", ""),
		LangfuseHost:      getEnv("LANGFUSE_HOST", "https://cloud.langfuse.com"),
		LangfuseEnabled:   getEnv("LANGFUSE_ENABLED", "false") == "true",
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		log.Printf("⚠️  Invalid %s=%q, using %d", key, raw, defaultValue)
		return defaultValue
	}
	return n
}

// getDuration accepts Go durations ("90s") or a bare number of seconds
func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	log.Printf("⚠️  Invalid %s=%q, using %s", key, raw, defaultValue)
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsJWTMode returns true when music routes require a bearer token
func (c *Config) IsJWTMode() bool {
	return c.AuthMode == "jwt"
}

// HasDatabase reports whether user accounts and history are available
func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}
