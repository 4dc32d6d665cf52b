// Package http exposes the batch builder over a gin HTTP API.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MolGraph/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolGraph/internal/interfaces/http/handlers"
	"github.com/turtacn/MolGraph/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies of the
// route tree.  Nil handlers leave their routes unmounted.
type RouterConfig struct {
	BatchHandler  *handlers.BatchHandler
	HealthHandler *handlers.HealthHandler

	Logger  logging.Logger
	Logging *middleware.LoggingConfig
	Metrics middleware.HTTPMetrics

	// RateLimiter, when set, limits requests with RateLimit or the default
	// per-IP config.
	RateLimiter middleware.RateLimiter
	RateLimit   *middleware.RateLimitConfig

	// MetricsHandler is mounted at MetricsPath (default /metrics).
	MetricsHandler http.Handler
	MetricsPath    string

	// Mode is the gin mode: debug, release or test.
	Mode string
}

// NewRouter constructs the route tree.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logCfg := middleware.DefaultLoggingConfig()
	if cfg.Logging != nil {
		logCfg = *cfg.Logging
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogging(logger, logCfg))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		rlCfg := middleware.DefaultRateLimitConfig()
		if cfg.RateLimit != nil {
			rlCfg = *cfg.RateLimit
		}
		r.Use(middleware.RateLimit(cfg.RateLimiter, rlCfg))
	}
	r.Use(middleware.Recovery(logger))

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}

	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.MetricsHandler))
	}

	api := r.Group("/api/v1")
	registerBatchRoutes(api, cfg.BatchHandler)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.ErrorResponse{
			Code:      "COMMON_005",
			Message:   "route not found",
			RequestID: middleware.GetRequestID(c),
		})
	})
	return r
}

func registerBatchRoutes(r *gin.RouterGroup, h *handlers.BatchHandler) {
	if h == nil {
		return
	}
	r.POST("/batches", h.Build)
	r.POST("/batches/export", h.Export)
	r.GET("/dataset", h.Dataset)
}
