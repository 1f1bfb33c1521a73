package routes

import (
	"net/http"

	"roundsettle/internal/handlers"
	"roundsettle/internal/middleware"
	"roundsettle/internal/observability"

	"github.com/gin-gonic/gin"
)

// Options configures the router around the injected handler.
type Options struct {
	AllowedOrigins []string
	Auth           middleware.AdminAuthConfig
	RateLimit      middleware.RateLimiterConfig
	Metrics        *observability.Metrics
	// Stop ends background goroutines owned by middleware.
	Stop <-chan struct{}
}

// SetupRouter initializes and returns the Gin router with all routes configured
func SetupRouter(h *handlers.Handler, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Add health check endpoint
	r.Any("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	r.Use(corsMiddleware(opts.AllowedOrigins))

	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	// public
	r.GET("/rounds/:id/proofs/:wallet", h.GetProof)

	admin := r.Group("")
	admin.Use(middleware.AdminAuth(opts.Auth), middleware.RateLimiterMiddleware(opts.RateLimit, opts.Stop))

	// Setup routes for each module
	SetupRoundRoutes(admin, h)
	SetupIndexerRoutes(admin, h)
	SetupFeeRoutes(admin, h)
	SetupChainConfigRoutes(admin, h)
	SetupSystemLogRoutes(admin, h)

	return r
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowed[origin] {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		// 确保包含所有必要的请求头
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, Origin, Cache-Control, X-Requested-With, Idempotency-Key")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

		// Handle preflight requests
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
