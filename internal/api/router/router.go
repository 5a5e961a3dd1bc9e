package router

import (
	"github.com/wb-go/wbf/ginext"

	"github.com/abhonsle123/ripplefx/internal/api/handlers/pipeline"
	"github.com/abhonsle123/ripplefx/internal/middlewares"
)

func New(handler *pipeline.Handler) *ginext.Engine {
	e := ginext.New()
	e.Use(middlewares.CORSMiddleware())
	e.Use(ginext.Logger())
	e.Use(ginext.Recovery())

	api := e.Group("/api")
	{
		api.POST("/pipeline/ingest", handler.RunIngest)
		api.POST("/pipeline/dispatch", handler.RunDispatch)
		api.GET("/events", handler.ListEvents)
		api.POST("/events", handler.CreateEvent)
		api.POST("/events/cleanup", handler.Cleanup)
	}

	return e
}
