package api

import (
	"net/http"

	"github.com/Conceptual-Machines/yiyun-api/internal/api/handlers"
	apimiddleware "github.com/Conceptual-Machines/yiyun-api/internal/api/middleware"
	"github.com/Conceptual-Machines/yiyun-api/internal/config"
	"github.com/Conceptual-Machines/yiyun-api/internal/metrics"
	"github.com/Conceptual-Machines/yiyun-api/internal/middleware"
	"github.com/Conceptual-Machines/yiyun-api/internal/services"
	"github.com/gin-gonic/gin"
)

// Dependencies are the wired services the routes need.
// Accounts, Users, History and PingDB stay nil when no database is configured.
type Dependencies struct {
	Music      *services.MusicService
	Accounts   handlers.Accounts
	Users      middleware.UserFinder
	History    handlers.HistoryLister
	PingDB     func() error
	Metrics    metrics.Recorder
	Prometheus http.Handler
}

func SetupRouter(cfg *config.Config, version string, deps Dependencies) *gin.Engine {
	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())
	router.Use(apimiddleware.SentryMiddleware())

	recorder := deps.Metrics
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	router.Use(apimiddleware.RequestTracking(recorder))
	router.Use(apimiddleware.CORS(cfg.CORSAllowedOrigins))

	healthHandler := handlers.NewHealthHandler(cfg, deps.PingDB)
	router.GET("/health", healthHandler.HealthCheck)

	metricsHandler := handlers.NewMetricsHandler(version, deps.Music.Store())
	router.GET("/api/metrics", metricsHandler.GetMetrics)
	if deps.Prometheus != nil {
		router.GET("/metrics", gin.WrapH(deps.Prometheus))
	}

	api := router.Group("/api")

	// Accounts (public)
	authHandler := handlers.NewAuthHandler(deps.Accounts, cfg)
	api.POST("/register", authHandler.Register)
	api.POST("/login", authHandler.Login)

	historyHandler := handlers.NewHistoryHandler(deps.History)
	api.GET("/me/generations", middleware.JWTAuth(deps.Users, cfg), historyHandler.ListMine)

	// Music flow; AUTH_MODE decides whether a token is required
	music := api.Group("")
	music.Use(middleware.ForMode(deps.Users, cfg))
	{
		musicHandler := handlers.NewMusicHandler(deps.Music, cfg)
		music.POST("/analyze/text", musicHandler.AnalyzeText)
		music.POST("/analyze/image", musicHandler.AnalyzeImage)
		music.POST("/clarify", musicHandler.Clarify)
		music.POST("/generate/:session_id", musicHandler.Generate)
		music.GET("/session/:session_id", musicHandler.GetSession)
		music.GET("/sessions", musicHandler.ListSessions)
	}

	return router
}
