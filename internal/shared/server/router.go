package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docscan-backend/internal/admin"
	"docscan-backend/internal/credits"
	"docscan-backend/internal/documents"
	"docscan-backend/internal/scans"
	"docscan-backend/internal/shared/config"
	"docscan-backend/internal/shared/metrics"
	"docscan-backend/internal/shared/server/middleware"
	"docscan-backend/internal/shared/server/respond"
	"docscan-backend/internal/similarity"
	"docscan-backend/internal/users"
)

const (
	rateGroupDefault = "DEFAULT"
	rateGroupMatches = "MATCHES"
)

// RouterDeps carries the handlers mounted by NewRouter.
type RouterDeps struct {
	Config          config.Config
	DocumentHandler *documents.Handler
	MatchHandler    *similarity.Handler
	ScanHandler     *scans.Handler
	CreditHandler   *credits.Handler
	UserHandler     *users.Handler
	AdminHandler    *admin.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})

	protected := api.Group("")
	protected.Use(middleware.Auth())
	// Buckets are keyed by user id, so the limiter runs after Auth but
	// before anything writes on the caller's behalf.
	if deps.Config.RateLimitRPS > 0 {
		protected.Use(middleware.RateLimit(rateLimitConfig(deps.Config)))
	}
	if deps.UserHandler != nil {
		protected.Use(deps.UserHandler.Track())
	}

	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(protected)
	}
	if deps.ScanHandler != nil {
		deps.ScanHandler.RegisterRoutes(protected)
	}
	if deps.MatchHandler != nil {
		deps.MatchHandler.RegisterRoutes(protected)
	}
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(protected)
	}
	if deps.CreditHandler != nil {
		deps.CreditHandler.RegisterRoutes(protected)
	}

	adminGroup := protected.Group("/admin")
	adminGroup.Use(middleware.RequireAdmin())
	if deps.CreditHandler != nil {
		deps.CreditHandler.RegisterAdminRoutes(adminGroup)
	}
	if deps.AdminHandler != nil {
		deps.AdminHandler.RegisterRoutes(adminGroup)
	}

	return r
}

// Similarity queries scan the whole corpus, so they get a tighter bucket.
func rateLimitConfig(cfg config.Config) middleware.RateLimitConfig {
	matchRate := cfg.RateLimitRPS / 5
	if matchRate < 0.5 {
		matchRate = 0.5
	}
	burst := cfg.RateLimitBurst
	if burst < 1 {
		burst = 1
	}
	matchBurst := burst / 2
	if matchBurst < 1 {
		matchBurst = 1
	}
	return middleware.RateLimitConfig{
		DefaultGroup: rateGroupDefault,
		GroupFor: func(c *gin.Context) string {
			if c.FullPath() == "/api/v1/matches/:id" {
				return rateGroupMatches
			}
			return rateGroupDefault
		},
		Rules: map[string]middleware.RateLimitRule{
			rateGroupDefault: {Rate: cfg.RateLimitRPS, Burst: burst},
			rateGroupMatches: {Rate: matchRate, Burst: matchBurst},
		},
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
