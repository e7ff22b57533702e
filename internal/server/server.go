package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ridwanfathin/assistant-health-sync/internal/config"
	"github.com/ridwanfathin/assistant-health-sync/internal/logger"
	"github.com/ridwanfathin/assistant-health-sync/internal/metrics"
	"github.com/ridwanfathin/assistant-health-sync/internal/middleware"
	"github.com/ridwanfathin/assistant-health-sync/internal/model"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// shutdownTimeout bounds how long in-flight syncs may finish after a stop signal
const shutdownTimeout = 30 * time.Second

// RouteRegistrar is implemented by every handler
type RouteRegistrar interface {
	RegisterRoutes(router *gin.Engine, authMiddleware gin.HandlerFunc)
}

// Server represents the HTTP server for the health sync service
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     *config.Config
	logger     logger.Logger
	metrics    *metrics.Metrics
}

// NewServer creates and configures a new server instance
func NewServer(cfg *config.Config, log logger.Logger, stats *metrics.Metrics) *Server {
	// Create router
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.AppURL))
	router.Use(middleware.RequestResponseLogger(log, stats))

	// Create server
	server := &Server{
		router:  router,
		config:  cfg,
		logger:  log,
		metrics: stats,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}

	// Configure routes
	server.setupRoutes()

	return server
}

// RegisterHandlers mounts the API handlers behind the session middleware
func (s *Server) RegisterHandlers(authMiddleware gin.HandlerFunc, handlers ...RouteRegistrar) {
	for _, h := range handlers {
		h.RegisterRoutes(s.router, authMiddleware)
	}
}

// GetRouter returns the gin router instance
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// setupRoutes configures the operational routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, model.HealthResponse{Status: "ok"})
	})

	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	// API documentation endpoints
	// Access the Swagger UI at http://localhost:8080/api-docs/index.html
	swaggerHandler := ginSwagger.WrapHandler(swaggerFiles.Handler)
	s.router.GET("/api-docs/*any", swaggerHandler)

	s.router.GET("/api-docs", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/api-docs/index.html")
	})
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	// Start server in a goroutine
	go func() {
		s.logger.Info().Int("port", s.config.Port).Msg("server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down server")
	if err := s.Shutdown(); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	s.logger.Info().Msg("server exited gracefully")
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}
