package app

import (
	"gorm.io/gorm"

	"github.com/conceptlens/conceptlens-backend/internal/handlers"
	"github.com/conceptlens/conceptlens-backend/internal/logger"
)

type Handlers struct {
	Health    *handlers.HealthHandler
	Course    *handlers.CourseHandler
	Upload    *handlers.UploadHandler
	Graph     *handlers.GraphHandler
	Parameter *handlers.ParameterHandler
	Compute   *handlers.ComputeHandler
	Result    *handlers.ResultHandler
	Export    *handlers.ExportHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:    handlers.NewHealthHandler(db),
		Course:    handlers.NewCourseHandler(log, services.Course),
		Upload:    handlers.NewUploadHandler(log, services.Upload),
		Graph:     handlers.NewGraphHandler(log, services.Graph),
		Parameter: handlers.NewParameterHandler(log, services.Parameter),
		Compute:   handlers.NewComputeHandler(log, services.Compute),
		Result:    handlers.NewResultHandler(log, services.Result),
		Export:    handlers.NewExportHandler(log, services.Export),
	}
}
