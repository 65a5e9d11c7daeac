// Package api provides HTTP routing for the academy certificate registry.
// It wires together handlers, middleware, and services to create the
// application's API endpoints.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/takeyourtokenapp/tyt.app/internal/api/handlers"
	"github.com/takeyourtokenapp/tyt.app/internal/api/middleware"
	"github.com/takeyourtokenapp/tyt.app/internal/config"
	"github.com/takeyourtokenapp/tyt.app/internal/database"
	"github.com/takeyourtokenapp/tyt.app/internal/metrics"
	"github.com/takeyourtokenapp/tyt.app/internal/service"
	"go.uber.org/zap"
)

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, db *database.Database, logger *zap.Logger) *gin.Engine {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.CORSMiddleware(cfg))

	// Metrics registry
	promRegistry := prometheus.NewRegistry()

	// Initialize services
	userService := service.NewUserService(db, cfg)
	registryService := service.NewRegistryService(db, metrics.New(promRegistry))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, logger)
	registryHandler := handlers.NewRegistryHandler(registryService, logger)
	certHandler := handlers.NewCertificateHandler(registryService, logger)
	eventsHandler := handlers.NewEventsHandler(registryService, logger)

	// Public routes
	public := router.Group("/api/v1")
	{
		// Account routes
		public.POST("/auth/register", authHandler.Register)
		public.POST("/auth/login", authHandler.Login)

		// Read-only registry surface: verification and info are unrestricted
		public.GET("/registry", registryHandler.GetConfig)
		public.GET("/certificates/:user/:course_id", certHandler.GetInfo)
		public.GET("/certificates/:user/:course_id/verify", certHandler.Verify)

		// Event outbox for off-chain indexers
		public.GET("/events", eventsHandler.List)
	}

	// Protected routes (require an authenticated signer)
	protected := router.Group("/api/v1")
	protected.Use(middleware.AuthMiddleware(cfg))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)

		// Registry bootstrap and authority rotation
		protected.POST("/registry/initialize", registryHandler.Initialize)
		protected.PUT("/registry/authority", registryHandler.UpdateAuthority)

		// Certificate lifecycle
		protected.POST("/certificates", certHandler.Issue)
		protected.PUT("/certificates/:user/:course_id/revoke", certHandler.Revoke)
		protected.DELETE("/certificates/:user/:course_id", certHandler.Burn)
	}

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{})))

	return router
}
