package api

import (
	"github.com/gin-gonic/gin"

	"github.com/markoub/power-it-sub001/internal/infra/logger"
	"github.com/markoub/power-it-sub001/internal/pipeline"
	"github.com/markoub/power-it-sub001/internal/service/storage"
	"github.com/markoub/power-it-sub001/internal/store"
)

func NewRouter(st *store.Store, runner *pipeline.Runner, stg *storage.Service, log *logger.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))

	handler := NewHandler(st, runner, stg, log)

	r.GET("/health", handler.Health)

	v1 := r.Group("/v1")
	{
		v1.POST("/presentations", handler.CreatePresentation)
		v1.GET("/presentations", handler.ListPresentations)
		v1.GET("/presentations/:id", handler.GetPresentation)
		v1.DELETE("/presentations/:id", handler.DeletePresentation)
		v1.PUT("/presentations/:id/topic", handler.UpdateTopic)
		v1.PUT("/presentations/:id/research", handler.SaveResearch)
		v1.POST("/presentations/:id/steps/:step/run", handler.RunStep)
		v1.GET("/presentations/:id/steps/:step", handler.GetStep)
		v1.GET("/presentations/:id/download", handler.DownloadDeck)
	}

	// image URLs embedded in compiled decks resolve here, unversioned
	r.GET("/presentations/:id/images/:filename", handler.ServeImage)

	return r
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		log.Info("request started",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)
		c.Next()
		log.Info("request completed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
		)
	}
}
