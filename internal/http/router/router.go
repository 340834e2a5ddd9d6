// Package router assembles the gin engine from the application modules.
package router

import (
	"context"
	"net/http"
	"time"

	apphttp "repair_ops_backend/internal/http"
	"repair_ops_backend/platform/apperr"
	"repair_ops_backend/platform/httpkit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const readyTimeout = 2 * time.Second

// New builds the engine: global middleware, health checks and module routes
// under /api/v1.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestID())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(corsMiddleware(app.Config))

	globalLimiter := httpkit.NewIPRateLimiter(rate.Limit(20), 40, app.Logger)
	engine.Use(globalLimiter.RateLimit())

	engine.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/api/ready", readyHandler(app.Health))

	authMiddleware := httpkit.AuthRequired(app.Config)
	v1 := engine.Group("/api/v1")
	protected := v1.Group("", authMiddleware)
	admin := protected.Group("/admin", httpkit.RequireRole(httpkit.RoleAdmin))

	routerCtx := &apphttp.RouterContext{
		Engine:              engine,
		V1:                  v1,
		Protected:           protected,
		Admin:               admin,
		Config:              app.Config,
		AuthMiddleware:      authMiddleware,
		MutationRateLimiter: httpkit.NewMutationRateLimiter(app.Logger),
	}

	for _, module := range app.Modules {
		module.RegisterRoutes(routerCtx)
		app.Logger.Info("registered module routes", "module", module.Name())
	}

	return engine
}

// Handler wraps the engine with OpenTelemetry server instrumentation when
// tracing is enabled.
func Handler(app *apphttp.App, engine *gin.Engine) http.Handler {
	if !app.Config.IsTracingEnabled() {
		return engine
	}
	return otelhttp.NewHandler(engine, app.Config.GetServiceName(),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

func corsMiddleware(cfg apphttp.RouterConfig) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", httpkit.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", httpkit.RequestIDHeader},
		AllowCredentials: cfg.GetCORSAllowCreds(),
		MaxAge:           12 * time.Hour,
	}
	if cfg.GetCORSAllowAll() {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.GetCORSOrigins()
	}
	return cors.New(corsCfg)
}

func readyHandler(checks []apphttp.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
		defer cancel()

		for _, check := range checks {
			if err := check.Ping(ctx); err != nil {
				_ = c.Error(err)
				httpkit.Error(c, http.StatusServiceUnavailable, apperr.CodeCollaboratorUnavailable, "not ready", nil)
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}
