package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"prospectus-backend/internal/analysis"
	"prospectus-backend/internal/chat"
	"prospectus-backend/internal/documents"
	"prospectus-backend/internal/shared/config"
	"prospectus-backend/internal/shared/metrics"
	"prospectus-backend/internal/shared/server/middleware"
	"prospectus-backend/internal/shared/server/respond"
)

// RouterDeps carries the wired handlers into route registration.
type RouterDeps struct {
	Config           config.Config
	DocumentsHandler *documents.Handler
	AnalysisHandler  *analysis.Handler
	ChatHandler      *chat.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
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

	authed := api.Group("")
	authed.Use(middleware.Identity())
	deps.DocumentsHandler.RegisterRoutes(authed)

	// Model-backed routes share one token bucket per client; polling GETs
	// are registered on the same group and priced by the generous burst.
	limiter := middleware.NewRateLimiter(nil)
	model := authed.Group("")
	model.Use(middleware.RateLimit(limiter, "model", middleware.RateLimitRule{Rate: 2, Burst: 20}))
	deps.AnalysisHandler.RegisterRoutes(model)
	deps.ChatHandler.RegisterRoutes(model)

	return r
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
