package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"complai-backend/internal/evidence"
	"complai-backend/internal/reviews"
	"complai-backend/internal/shared/config"
	"complai-backend/internal/shared/metrics"
	"complai-backend/internal/shared/server/middleware"
	"complai-backend/internal/shared/server/respond"
	"complai-backend/internal/uploads"
)

// RouterDeps carries the handlers and config the router wires together.
type RouterDeps struct {
	Config          config.Config
	EvidenceHandler *evidence.Handler
	ReviewsHandler  *reviews.Handler
	EnableUploads   bool
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" || deps.Config.Env == "staging" {
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
	api.Use(
		middleware.Auth(deps.Config.Env),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				"METRICS": {Rate: 2, Burst: 10},
				"MUTATE":  {Rate: 10, Burst: 30},
			},
			GroupFor: rateLimitGroup,
		}),
	)

	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})

	if deps.EvidenceHandler != nil {
		deps.EvidenceHandler.RegisterRoutes(api)
	}
	if deps.ReviewsHandler != nil {
		deps.ReviewsHandler.RegisterRoutes(api)
	}
	if deps.EnableUploads {
		uploads.RegisterRoutes(api)
	}

	return r
}

// rateLimitGroup buckets the metrics rollup endpoint separately from other
// mutating traffic.
func rateLimitGroup(c *gin.Context) string {
	if strings.HasSuffix(c.FullPath(), "/reviews/metrics") {
		return "METRICS"
	}
	if c.Request.Method != http.MethodGet {
		return "MUTATE"
	}
	return ""
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
