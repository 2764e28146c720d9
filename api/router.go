// Package api exposes render jobs over HTTP.
package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/use-agent/prerender/api/handler"
	"github.com/use-agent/prerender/api/middleware"
	"github.com/use-agent/prerender/config"
	"github.com/use-agent/prerender/jobs"
	"github.com/use-agent/prerender/telemetry"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health and metrics sit outside auth so probes and scrapers always work.
// ctx bounds the rate limiter's background eviction.
func NewRouter(ctx context.Context, q *jobs.Queue, metrics *telemetry.Metrics, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	if metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(q, startTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.NewLimiter(ctx, cfg.RateLimit).Middleware())

	protected.POST("/render", handler.PostRender(q, cfg.Output.Dir))
	protected.GET("/render/:id", handler.GetRender(q))

	return r
}
