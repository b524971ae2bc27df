package app

import (
	"gorm.io/gorm"

	redisclient "github.com/conceptlens/conceptlens-backend/internal/clients/redis"
	"github.com/conceptlens/conceptlens-backend/internal/jobs/computeworker"
	"github.com/conceptlens/conceptlens-backend/internal/logger"
	"github.com/conceptlens/conceptlens-backend/internal/platform/gcs"
	"github.com/conceptlens/conceptlens-backend/internal/platform/neo4jdb"
	"github.com/conceptlens/conceptlens-backend/internal/services"
)

type Services struct {
	Course    services.CourseService
	Upload    services.UploadService
	Graph     services.GraphService
	Parameter services.ParameterService
	Compute   services.ComputeService
	Result    services.ResultService
	Export    services.ExportService

	Worker *computeworker.Worker
	Queue  redisclient.ComputeQueue
	Neo4j  *neo4jdb.Client
	Bucket *gcs.Bucket
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos) (Services, error) {
	log.Info("Wiring services...")

	neo, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Warn("Neo4j mirror unavailable (continuing without it)", "error", err)
		neo = nil
	}
	bucket, err := gcs.NewFromEnv(log)
	if err != nil {
		log.Warn("GCS bucket unavailable (continuing without it)", "error", err)
		bucket = nil
	}
	var queue redisclient.ComputeQueue
	if cfg.WithRedis {
		queue, err = redisclient.NewComputeQueue(log)
		if err != nil {
			log.Warn("Redis compute queue unavailable (falling back to polling)", "error", err)
			queue = nil
		}
	}

	templates := services.LoadInterventionTemplates(log)

	courseSvc := services.NewCourseService(r.Course, r.Exam, r.Audit, log)
	uploadSvc := services.NewUploadService(db, r.Question, r.Score, r.Mapping, r.ConceptGraph, r.Audit, log)
	graphSvc := services.NewGraphService(db, r.ConceptGraph, r.Audit, neo, log)
	paramSvc := services.NewParameterService(r.Parameter, r.Audit, log)
	computeSvc := services.NewComputeService(db, r.Score, r.Question, r.Mapping, r.ComputeRun, r.Result, r.StudentToken, r.Audit, paramSvc, graphSvc, queue, templates, log)
	resultSvc := services.NewResultService(r.Result, r.StudentToken, r.Audit, log)
	exportSvc := services.NewExportService(r.Result, r.ExportRun, r.ComputeRun, r.Question, r.Mapping, graphSvc, paramSvc, bucket, log)

	var worker *computeworker.Worker
	if cfg.WithWorker {
		worker = computeworker.NewWorker(r.ComputeRun, computeSvc, queue, log)
	}

	return Services{
		Course:    courseSvc,
		Upload:    uploadSvc,
		Graph:     graphSvc,
		Parameter: paramSvc,
		Compute:   computeSvc,
		Result:    resultSvc,
		Export:    exportSvc,
		Worker:    worker,
		Queue:     queue,
		Neo4j:     neo,
		Bucket:    bucket,
	}, nil
}
