package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httpapi "github.com/healthpalm/aisha/backend/internal/api/http"
	"github.com/healthpalm/aisha/backend/internal/api/middleware"
	"github.com/healthpalm/aisha/backend/internal/api/ws"
	"github.com/healthpalm/aisha/backend/internal/domain/chat"
	"github.com/healthpalm/aisha/backend/internal/domain/session"
	"github.com/healthpalm/aisha/backend/internal/infrastructure/config"
	"github.com/healthpalm/aisha/backend/internal/infrastructure/logging"
	"github.com/healthpalm/aisha/backend/internal/infrastructure/monitoring"
	"github.com/healthpalm/aisha/backend/internal/infrastructure/tracing"
	"github.com/healthpalm/aisha/backend/internal/storage"
	"github.com/healthpalm/aisha/backend/internal/transport/assistant"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	router     *gin.Engine
	store      *session.Store
	controller *chat.Controller
	client     *assistant.Client
	logger     *logging.Logger
	config     *config.Config
	metrics    *monitoring.Metrics
}

// NewServer creates a new server instance.
func NewServer(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("Initializing Aisha chat gateway",
		zap.String("port", cfg.Server.Port),
		zap.String("assistant_url", cfg.Assistant.URL),
		zap.String("data_dir", cfg.Storage.Dir),
	)

	metrics := monitoring.NewMetrics()

	persist := storage.New(cfg.Storage.Dir, logger)
	store := session.NewStore(persist, logger).WithMetrics(metrics)

	client := assistant.New(assistant.Config{
		URL:     cfg.Assistant.URL,
		Timeout: time.Duration(cfg.Assistant.TimeoutSeconds) * time.Second,
	}, logger)
	if cfg.Assistant.RPS > 0 {
		logger.Info("Assistant rate cap enabled", zap.Float64("rps", cfg.Assistant.RPS))
		client.SetRateLimit(cfg.Assistant.RPS)
	}

	controller := chat.NewController(store, client, logger).WithMetrics(metrics)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.Middleware(logger))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := httpapi.NewHandlers(store, controller, client, client, metrics, logger)
	wsHandler := ws.NewHandler(store, controller, logger).WithMetrics(metrics)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Session management
	router.GET("/sessions", handlers.ListSessions)
	router.POST("/sessions", handlers.CreateSession)
	router.POST("/sessions/:id/select", handlers.SelectSession)
	router.DELETE("/sessions/:id", handlers.DeleteSession)
	router.GET("/sessions/:id/messages", handlers.GetMessages)
	router.GET("/export", handlers.Export)

	// Chat
	router.POST("/chat", handlers.Submit)

	// WebSocket
	router.GET("/stream", wsHandler.HandleConnection)

	// Metrics
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))

	logger.Info("Server initialized successfully")

	return &Server{
		router:     router,
		store:      store,
		controller: controller,
		client:     client,
		logger:     logger,
		config:     cfg,
		metrics:    metrics,
	}, nil
}

// Router exposes the configured engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Close gracefully shuts down the server.
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")
	s.logger.Sync()
	return nil
}
