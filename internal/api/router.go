package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/picseek/internal/api/handler"
	"github.com/timmy/picseek/internal/api/middleware"
	"github.com/timmy/picseek/internal/config"
	"github.com/timmy/picseek/internal/service"
)

// SetupRouter configures the Gin router with all routes.
func SetupRouter(
	ingestService *service.IngestService,
	searchService *service.SearchService,
	cfg *config.ServerConfig,
) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.CORS.AllowAllOrigins,
	}))

	healthHandler := handler.NewHealthHandler()
	imageHandler := handler.NewImageHandler(ingestService, searchService)
	searchHandler := handler.NewSearchHandler(searchService)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/images", imageHandler.CreateImage)
		v1.GET("/images", imageHandler.ListImages)
		v1.GET("/images/:id", imageHandler.GetImage)
		v1.PATCH("/images/:id", imageHandler.UpdateImage)
		v1.DELETE("/images/:id", imageHandler.DeleteImage)

		v1.GET("/search/text", searchHandler.TextSearch)
		v1.POST("/search/image", searchHandler.ImageSearch)
	}

	return r
}
