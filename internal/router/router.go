package router

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"docanalyser/internal/handler"
	"docanalyser/internal/metrics"
	"docanalyser/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	logger *slog.Logger,
	m *metrics.Metrics,
	allowedOrigins []string,
	analysisH *handler.AnalysisHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(allowedOrigins))
	if m != nil {
		r.Use(middleware.Metrics(m))
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	analyses := v1.Group("/analyses")
	analyses.POST("", analysisH.Analyse)
	analyses.GET("", analysisH.List)
	analyses.GET("/:id", analysisH.GetByID)

	v1.GET("/key-usage", analysisH.KeyUsage)

	return r
}
