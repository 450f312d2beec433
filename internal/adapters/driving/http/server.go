package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tallybooks/docfeed-core/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	// Services
	sourceService driving.SourceService
	oauthService  driving.OAuthService
	syncService   driving.SyncService
	cronService   driving.CronService

	// Infrastructure
	tokenParser TokenParser
	serviceKey  string
	db          Pinger // PostgreSQL health check
	redisClient Pinger // Redis health check (optional)
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string

	// ServiceKey is the deployment-wide key accepted on unattended cron
	// endpoints. Empty disables the service-key path.
	ServiceKey string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// ServerDeps bundles the server's collaborators.
type ServerDeps struct {
	SourceService driving.SourceService
	OAuthService  driving.OAuthService
	SyncService   driving.SyncService
	CronService   driving.CronService
	TokenParser   TokenParser
	DB            Pinger
	RedisClient   Pinger // can be nil
	Logger        *slog.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps ServerDeps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:        http.NewServeMux(),
		version:       cfg.Version,
		logger:        logger,
		sourceService: deps.SourceService,
		oauthService:  deps.OAuthService,
		syncService:   deps.SyncService,
		cronService:   deps.CronService,
		tokenParser:   deps.TokenParser,
		serviceKey:    cfg.ServiceKey,
		db:            deps.DB,
		redisClient:   deps.RedisClient,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.buildHandler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// buildHandler configures routes and wraps them with the outer
// middleware stack.
func (s *Server) buildHandler() http.Handler {
	s.setupRoutes()

	var h http.Handler = s.router
	h = NewLoggingMiddleware(s.logger).Handler(h)
	h = NewRecoveryMiddleware(s.logger).Handler(h)
	return h
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.tokenParser)
	cronAuth := NewCronAuthMiddleware(s.cronService, s.serviceKey)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Source endpoints (admin-only for mutations)
	s.router.Handle("GET /api/v1/sources",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListSources)))
	s.router.Handle("POST /api/v1/sources",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleUpsertSource))))
	s.router.Handle("GET /api/v1/sources/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetSource)))
	s.router.Handle("GET /api/v1/sources/{id}/status",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleSourceStatus)))
	s.router.Handle("POST /api/v1/sources/{id}/enable",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleEnableSource))))
	s.router.Handle("POST /api/v1/sources/{id}/disable",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleDisableSource))))

	// Sync endpoints (admin-only)
	s.router.Handle("POST /api/v1/sources/{id}/test",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleTestSource))))
	s.router.Handle("POST /api/v1/sources/{id}/import",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleImportFiles))))

	// OAuth flow endpoints (admin-only for initiation)
	s.router.Handle("POST /api/v1/oauth/start",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleOAuthStart))))
	// Callback carries the browser back from the provider; the state
	// token plus the session bearer token authenticate it
	s.router.Handle("GET /api/v1/oauth/callback",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleOAuthCallback)))
	s.router.Handle("POST /api/v1/sources/{id}/oauth/disconnect",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleOAuthDisconnect))))

	// Cron credential management (admin-only, session auth)
	s.router.Handle("POST /api/v1/cron/rotate",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleCronRotate))))
	s.router.Handle("GET /api/v1/cron/status",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleCronStatus)))
	s.router.Handle("POST /api/v1/cron/enable",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleCronEnable))))
	s.router.Handle("POST /api/v1/cron/disable",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleCronDisable))))

	// Unattended run endpoint, authenticated by cron secret or service
	// key rather than a user session
	s.router.Handle("POST /api/v1/cron/{tenant}/run",
		cronAuth.Authenticate(http.HandlerFunc(s.handleCronRun)))
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	// Channel to listen for OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	<-stop
	s.logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
