package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"marketplace/internal/auth"
	"marketplace/internal/httpmiddleware"
	"marketplace/internal/logger"
	"marketplace/internal/queue"
	"marketplace/internal/trust"
)

// HealthCheck reports the state of one dependency.
type HealthCheck func(ctx context.Context) bool

// Deps is everything the router needs.
type Deps struct {
	Trust               *trust.Service
	Issuer              *auth.Issuer
	Queue               queue.Queue
	Limiter             *httpmiddleware.TokenBucket
	Log                 *logger.Logger
	InactivityThreshold time.Duration
	Health              map[string]HealthCheck
	MetricsHandler      http.Handler
}

type handler struct {
	Deps
}

// NewRouter wires the HTTP API.
func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	h := &handler{Deps: d}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	if d.Limiter != nil {
		r.Use(d.Limiter.GinMiddleware())
	}

	if d.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(d.MetricsHandler))
	}
	r.GET("/healthz", h.healthz)

	v1 := r.Group("/v1")
	v1.POST("/sessions", h.createSession)
	v1.POST("/sessions/refresh", h.refreshSession)

	authed := v1.Group("", auth.Require(d.Issuer))
	authed.GET("/vendors/:id/metrics", h.getVendorMetrics)
	authed.GET("/vendors/:id/contacts", h.listVendorContacts)

	student := v1.Group("", auth.Require(d.Issuer, auth.RoleStudent))
	student.POST("/contacts", h.logContact)
	student.POST("/contacts/:id/feedback", h.submitFeedback)
	student.GET("/feedback/pending", h.pendingFeedback)

	vendor := v1.Group("", auth.Require(d.Issuer, auth.RoleVendor))
	vendor.POST("/activity", h.recordActivity)

	admin := v1.Group("/admin", auth.Require(d.Issuer, auth.RoleAdmin))
	admin.POST("/vendors/:id/recompute", h.enqueueRecompute)
	admin.PUT("/vendors/:id/verification", h.setVerification)
	admin.POST("/sweep", h.sweep)

	return r
}

func (h *handler) healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range h.Health {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
