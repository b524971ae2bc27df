package server

import (
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/conceptlens/conceptlens-backend/internal/handlers"
	"github.com/conceptlens/conceptlens-backend/internal/middleware"
)

type RouterConfig struct {
	RequestLog       *middleware.RequestLogMiddleware
	HealthHandler    *handlers.HealthHandler
	CourseHandler    *handlers.CourseHandler
	UploadHandler    *handlers.UploadHandler
	GraphHandler     *handlers.GraphHandler
	ParameterHandler *handlers.ParameterHandler
	ComputeHandler   *handlers.ComputeHandler
	ResultHandler    *handlers.ResultHandler
	ExportHandler    *handlers.ExportHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cfg.RequestLog.Handler())
	router.Use(otelgin.Middleware("conceptlens-backend"))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", cfg.HealthHandler.Healthz)

	// Public per-student view, keyed by opaque share token.
	router.GET("/api/student/:token", cfg.ResultHandler.GetStudentViewByToken)

	api := router.Group("/api")
	{
		// Courses and exams
		api.POST("/courses", cfg.CourseHandler.CreateCourse)
		api.GET("/courses", cfg.CourseHandler.ListCourses)
		api.GET("/courses/:course_id", cfg.CourseHandler.GetCourse)
		api.DELETE("/courses/:course_id", cfg.CourseHandler.DeleteCourse)
		api.POST("/courses/:course_id/exams", cfg.CourseHandler.CreateExam)
		api.GET("/courses/:course_id/exams", cfg.CourseHandler.ListExams)

		exams := api.Group("/exams/:exam_id")
		{
			exams.GET("", cfg.CourseHandler.GetExam)
			exams.DELETE("", cfg.CourseHandler.DeleteExam)

			// CSV uploads
			exams.POST("/scores", cfg.UploadHandler.UploadScores)
			exams.POST("/mapping", cfg.UploadHandler.UploadMapping)

			// Concept graph
			exams.GET("/graph", cfg.GraphHandler.GetGraph)
			exams.GET("/graph/versions", cfg.GraphHandler.ListVersions)
			exams.POST("/graph", cfg.GraphHandler.CommitGraph)
			exams.POST("/graph/patch", cfg.GraphHandler.PatchGraph)
			exams.POST("/graph/revert", cfg.GraphHandler.RevertGraph)
			exams.POST("/graph/validate", cfg.GraphHandler.ValidateGraph)

			// Suggestion dry-runs
			exams.POST("/suggestions/edges/validate", cfg.GraphHandler.ValidateEdgeSuggestions)
			exams.POST("/suggestions/tags/validate", cfg.UploadHandler.ValidateTagSuggestions)

			// Parameters
			exams.GET("/parameters", cfg.ParameterHandler.GetParameters)
			exams.PUT("/parameters", cfg.ParameterHandler.UpdateParameters)

			// Compute
			exams.POST("/compute", cfg.ComputeHandler.TriggerCompute)
			exams.GET("/compute/latest", cfg.ComputeHandler.GetLatestRun)
			exams.GET("/compute/:run_id", cfg.ComputeHandler.GetRun)

			// Results
			exams.GET("/results", cfg.ResultHandler.GetClassView)
			exams.GET("/results/students/:student_id", cfg.ResultHandler.GetStudentView)
			exams.GET("/results/students/:student_id/trace/:concept_id", cfg.ResultHandler.GetTrace)
			exams.GET("/clusters", cfg.ResultHandler.GetClusters)
			exams.GET("/interventions", cfg.ResultHandler.GetInterventions)
			exams.GET("/audit", cfg.ResultHandler.GetAuditTrail)

			// Exports
			exams.POST("/export", cfg.ExportHandler.StartExport)
			exams.GET("/export", cfg.ExportHandler.ListExports)
			exams.GET("/export/:export_id", cfg.ExportHandler.GetExport)
		}
	}

	return router
}

func allowedOrigins() []string {
	raw := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if raw == "" {
		return []string{"http://localhost:3000", "http://localhost:5173"}
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
