package http

import (
	"github.com/findalleasy/vitrin/config"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RequestIDMiddleware())
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	if cfg.RateLimit.PerIP > 0 {
		v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))
	}
	{
		vitrin := v1.Group("/vitrin")
		{
			vitrin.POST("/search", handler.Search)
			vitrin.POST("/rank", handler.Rank)
			vitrin.POST("/optimize-query", handler.OptimizeQuery)
		}

		v1.GET("/products/barcode/:code", handler.LookupBarcode)

		status := v1.Group("/status")
		{
			status.GET("", handler.Status)
			status.GET("/stream", handler.StatusStream)
		}

		hints := v1.Group("/hints")
		{
			hints.GET("/:session", handler.GetHint)
			hints.PUT("/:session", handler.PutHint)
		}
	}

	return router
}
