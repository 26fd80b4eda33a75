// Package server exposes the Mini App HTTP and WebSocket API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nanobanana/internal/credential"
	"nanobanana/internal/logging"
	"nanobanana/internal/session"
)

// Config controls the HTTP listener.
type Config struct {
	Host         string
	Port         int
	Debug        bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}
}

// Deps carries the constructed application pieces the server serves.
type Deps struct {
	Orchestrator *session.Orchestrator
	History      *session.History
	Media        *session.MediaCache
	Gate         *credential.PromptGate
	Hub          *Hub
	// Auth guards the /api group; nil leaves it open (local development).
	Auth gin.HandlerFunc
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
	Logger   logging.Logger
}

// Server is the Mini App backend's outer surface.
type Server struct {
	cfg        Config
	deps       Deps
	engine     *gin.Engine
	httpServer *http.Server
	logger     logging.Logger
	startTime  time.Time
}

func New(cfg Config, deps Deps) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if deps.Hub == nil {
		deps.Hub = NewHub(deps.Logger)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Telegram-Init-Data"}
	corsConfig.AllowWebSockets = true
	engine.Use(cors.New(corsConfig))

	s := &Server{
		cfg:       cfg,
		deps:      deps,
		engine:    engine,
		logger:    logging.OrNop(deps.Logger),
		startTime: time.Now(),
	}
	s.routes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.handleHealth)

	gatherer := s.deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := s.engine.Group("/api")
	if s.deps.Auth != nil {
		api.Use(s.deps.Auth)
	}
	api.POST("/generate", s.handleGenerate)
	api.GET("/history/:mode", s.handleHistory)
	api.GET("/media/:id", s.handleMedia)
	api.GET("/ws", s.handleWebSocket)
	api.POST("/credential/selected", s.handleCredentialSelected)
}

// Handler exposes the routed engine, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until the listener fails or Stop is called.
func (s *Server) Start() error {
	s.logger.Info("listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Stop drains in-flight generations and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down")
	if s.deps.Orchestrator != nil {
		if err := s.deps.Orchestrator.Drain(ctx); err != nil {
			s.logger.Warn("shutdown with generations still in flight: %v", err)
		}
	}
	s.deps.Hub.Close()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	})
}

func (s *Server) handleWebSocket(c *gin.Context) {
	if err := s.deps.Hub.Serve(c.Writer, c.Request); err != nil {
		s.logger.Warn("websocket upgrade failed: %v", err)
	}
}

func (s *Server) handleCredentialSelected(c *gin.Context) {
	s.deps.Gate.Selected()
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
