package app

import (
	"github.com/gin-gonic/gin"

	"github.com/conceptlens/conceptlens-backend/internal/logger"
	"github.com/conceptlens/conceptlens-backend/internal/middleware"
	"github.com/conceptlens/conceptlens-backend/internal/server"
)

func wireRouter(log *logger.Logger, handlers Handlers) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		RequestLog:       middleware.NewRequestLogMiddleware(log),
		HealthHandler:    handlers.Health,
		CourseHandler:    handlers.Course,
		UploadHandler:    handlers.Upload,
		GraphHandler:     handlers.Graph,
		ParameterHandler: handlers.Parameter,
		ComputeHandler:   handlers.Compute,
		ResultHandler:    handlers.Result,
		ExportHandler:    handlers.Export,
	})
}
