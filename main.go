package main

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/Conceptual-Machines/yiyun-api/internal/analysis"
	"github.com/Conceptual-Machines/yiyun-api/internal/api"
	"github.com/Conceptual-Machines/yiyun-api/internal/config"
	"github.com/Conceptual-Machines/yiyun-api/internal/database"
	"github.com/Conceptual-Machines/yiyun-api/internal/generation"
	"github.com/Conceptual-Machines/yiyun-api/internal/llm"
	"github.com/Conceptual-Machines/yiyun-api/internal/logger"
	"github.com/Conceptual-Machines/yiyun-api/internal/metrics"
	"github.com/Conceptual-Machines/yiyun-api/internal/observability"
	"github.com/Conceptual-Machines/yiyun-api/internal/prompt"
	"github.com/Conceptual-Machines/yiyun-api/internal/services"
	"github.com/Conceptual-Machines/yiyun-api/internal/session"
	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

const (
	sentryFlushTimeout    = 2 * time.Second
	environmentProduction = "production"
	upstreamHTTPTimeout   = 90 * time.Second
)

// releaseVersion is set via ldflags during build
var releaseVersion = "dev"

// GetVersion returns the current release version
func GetVersion() string {
	return releaseVersion
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	ctx := context.Background()
	logger.SetDebug(cfg.Environment != environmentProduction)

	// Initialize Sentry
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			Release:          "yiyun-api@" + releaseVersion,
			EnableTracing:    true,
			TracesSampleRate: 1.0,
			EnableLogs:       true,
			Debug:            cfg.Environment != environmentProduction,
			BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
				if event.Request != nil {
					event.Request.Headers = filterSensitiveHeaders(event.Request.Headers)
				}
				return event
			},
		}); err != nil {
			log.Printf("Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s, release: %s)", cfg.Environment, releaseVersion)
			defer sentry.Flush(sentryFlushTimeout)
		}
	} else {
		log.Println("⚠️  Sentry not configured (SENTRY_DSN not set)")
	}

	observability.InitializeLangfuse(ctx, cfg)

	recorder, prom := setupMetrics(ctx, cfg)

	// Database is optional; without it accounts and history answer 503
	var db *gorm.DB
	if cfg.HasDatabase() {
		var err error
		db, err = database.Connect(cfg.DatabaseURL)
		if err != nil {
			sentry.CaptureException(err)
			log.Fatal("Failed to connect to database:", err)
		}
		if err := database.Migrate(db); err != nil {
			sentry.CaptureException(err)
			log.Fatal("Failed to run migrations:", err)
		}
	} else {
		log.Println("⚠️  DATABASE_URL not set: user accounts and history disabled")
	}

	music, err := buildMusicService(ctx, cfg, recorder, db)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to build music service:", err)
	}

	deps := api.Dependencies{
		Music:      music,
		Metrics:    recorder,
		Prometheus: prom.Handler(),
	}
	if db != nil {
		users := services.NewUserService(db)
		history := services.NewHistoryService(db)
		deps.Accounts = users
		deps.Users = users
		deps.History = history
		deps.PingDB = func() error { return database.Ping(db) }
	}

	if cfg.Environment == environmentProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.SetupRouter(cfg, GetVersion(), deps)

	log.Printf("🚀 Starting server on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to start server:", err)
	}
}

// setupMetrics fans out to Sentry and Prometheus, plus CloudWatch in production
func setupMetrics(ctx context.Context, cfg *config.Config) (metrics.Recorder, *metrics.PrometheusMetrics) {
	prom := metrics.NewPrometheusMetrics()
	recorders := metrics.Multi{metrics.NewSentryMetrics(), prom}

	if cfg.Environment == environmentProduction {
		cw, err := metrics.NewClient(ctx, cfg.Environment)
		if err != nil {
			log.Printf("⚠️  CloudWatch metrics disabled: %v", err)
		} else {
			recorders = append(recorders, cw)
		}
	}
	return recorders, prom
}

func buildMusicService(ctx context.Context, cfg *config.Config, recorder metrics.Recorder, db *gorm.DB) (*services.MusicService, error) {
	factory := llm.NewProviderFactory(llm.FactoryConfig{
		DashScopeAPIKey: cfg.DashScopeAPIKey,
		DashScopeURL:    cfg.DashScopeURL,
		DashScopeModel:  cfg.DashScopeModel,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		OpenAIBaseURL:   cfg.OpenAIBaseURL,
		OpenAIModel:     cfg.OpenAIModel,
		GeminiAPIKey:    cfg.GeminiAPIKey,
		GeminiModel:     cfg.GeminiModel,
		HTTPClient:      &http.Client{Timeout: upstreamHTTPTimeout},
	})
	provider, err := factory.GetProvider(ctx, cfg.AnalysisProvider)
	if err != nil {
		log.Printf("⚠️  Analysis provider unavailable, using local heuristics: %v", err)
		provider = nil // GetProvider may hand back a typed nil
	}

	analyzer := analysis.NewAnalyzer(provider,
		analysis.WithTimeout(cfg.AnalysisTimeout),
		analysis.WithCacheSize(cfg.AnalysisCacheSize),
		analysis.WithMetrics(recorder),
	)

	validator := prompt.NewValidator(prompt.DefaultCatalog, prompt.Defaults{
		BGMMood:   cfg.DefaultBGMMood,
		SongMood:  cfg.DefaultSongMood,
		SongGenre: cfg.DefaultSongGenre,
		Timbre:    cfg.DefaultTimbre,
		Gender:    cfg.DefaultGender,
	})
	synthesizer, err := prompt.NewSynthesizer(provider, validator, cfg.AnalysisTimeout, recorder)
	if err != nil {
		return nil, err
	}

	coze := generation.NewClient(cfg.CozeAPIBase, cfg.CozeToken, cfg.CozeBotID, cfg.CozeUserID,
		&http.Client{Timeout: upstreamHTTPTimeout})
	if !coze.Configured() {
		log.Println("⚠️  COZE_TOKEN or COZE_BOT_ID not set: music generation will fail")
	}
	generator := generation.NewGenerator(coze,
		generation.WithPollInterval(cfg.GenerationPollInterval),
		generation.WithMaxWait(cfg.GenerationMaxWait),
		generation.WithMetrics(recorder),
	)

	var history services.HistoryRecorder
	if db != nil {
		history = services.NewHistoryService(db)
	}

	return services.NewMusicService(session.NewMemoryStore(), analyzer, synthesizer, validator, generator, history), nil
}

func filterSensitiveHeaders(headers map[string]string) map[string]string {
	filtered := make(map[string]string)
	sensitiveKeys := map[string]bool{
		"authorization": true,
		"cookie":        true,
		"x-api-key":     true,
	}

	for k, v := range headers {
		if sensitiveKeys[strings.ToLower(k)] {
			filtered[k] = "[REDACTED]"
		} else {
			filtered[k] = v
		}
	}
	return filtered
}
