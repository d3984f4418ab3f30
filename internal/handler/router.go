package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/acmeid/login-orchestrator/internal/config"
	"github.com/acmeid/login-orchestrator/internal/middleware"
)

func NewRouter(
	cfg *config.Config,
	healthHandler *HealthHandler,
	loginHandler *LoginHandler,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware (order matters!)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.SecurityHeaders(cfg.Server.HTTPS))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.CORS))

	// Health endpoints (no auth required)
	r.GET("/health", healthHandler.Shallow)
	r.GET("/health/ready", healthHandler.Ready)

	// Prometheus metrics, restricted to internal callers
	metrics := r.Group("/metrics")
	if cfg.Security.InternalServiceSecret != "" {
		metrics.Use(middleware.InternalOnly(cfg.Security.InternalServiceSecret))
	}
	metrics.GET("", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		login := v1.Group("/login")
		{
			login.POST("", loginHandler.Start)
			login.GET("/:id", loginHandler.Status)
			login.POST("/:id/mfa", loginHandler.SubmitCode)
		}
	}

	return r
}
