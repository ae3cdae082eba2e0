package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yourusername/video-dl-api/api/handlers"
	"github.com/yourusername/video-dl-api/api/middleware"
)

// SetupRouter sets up the HTTP router
func SetupRouter(service handlers.Downloader, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	healthHandler := handlers.NewHealthHandler()
	router.GET("/health", healthHandler.Health)

	downloadHandler := handlers.NewDownloadHandler(service, log)
	router.POST("/download", downloadHandler.Download)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
	})

	return router
}
