package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/conceptlens/conceptlens-backend/internal/logger"
	"github.com/conceptlens/conceptlens-backend/internal/types"
	"github.com/conceptlens/conceptlens-backend/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "conceptlens", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	log.Info("Connecting to Postgres...")
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		log.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		log.Error("Failed to enable uuid-ossp extension", "error", err)
		return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&types.Course{},
		&types.Exam{},
		&types.Question{},
		&types.Score{},
		&types.QuestionConceptMap{},
		&types.ConceptGraph{},
		&types.Parameter{},
		&types.ReadinessResult{},
		&types.ClassAggregate{},
		&types.Cluster{},
		&types.ClusterAssignment{},
		&types.InterventionResult{},
		&types.ComputeRun{},
		&types.StudentToken{},
		&types.AuditLog{},
		&types.ExportRun{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}

	// Function defaults are postgres DDL rather than struct tags so the
	// models stay portable across gorm drivers.
	s.log.Info("Applying column defaults for postgres tables...")
	tables := []string{
		"course", "exam", "question", "score", "question_concept_map",
		"concept_graph", "parameter", "readiness_result", "class_aggregate",
		"cluster", "cluster_assignment", "intervention_result", "compute_run",
		"student_token", "audit_log", "export_run",
	}
	for _, table := range tables {
		stmt := fmt.Sprintf(`
			ALTER TABLE %q
			ALTER COLUMN "id" SET DEFAULT uuid_generate_v4()`,
			table)
		if err := s.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to set id default on %s: %w", table, err)
		}
	}

	s.log.Info("Configuring foreign key relationships for postgres tables...")
	constraints := []struct {
		table, name, column, refTable string
	}{
		{"exam", "fk_exam_course_id", "course_id", "course"},
		{"question", "fk_question_exam_id", "exam_id", "exam"},
		{"score", "fk_score_exam_id", "exam_id", "exam"},
		{"question_concept_map", "fk_question_concept_map_exam_id", "exam_id", "exam"},
		{"concept_graph", "fk_concept_graph_exam_id", "exam_id", "exam"},
		{"parameter", "fk_parameter_exam_id", "exam_id", "exam"},
		{"readiness_result", "fk_readiness_result_exam_id", "exam_id", "exam"},
		{"class_aggregate", "fk_class_aggregate_exam_id", "exam_id", "exam"},
		{"cluster", "fk_cluster_exam_id", "exam_id", "exam"},
		{"cluster_assignment", "fk_cluster_assignment_exam_id", "exam_id", "exam"},
		{"intervention_result", "fk_intervention_result_exam_id", "exam_id", "exam"},
		{"compute_run", "fk_compute_run_exam_id", "exam_id", "exam"},
		{"student_token", "fk_student_token_exam_id", "exam_id", "exam"},
		{"export_run", "fk_export_run_exam_id", "exam_id", "exam"},
	}
	for _, fk := range constraints {
		stmt := fmt.Sprintf(`
			ALTER TABLE %q
			DROP CONSTRAINT IF EXISTS %q`,
			fk.table, fk.name)
		if err := s.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to reset %s: %w", fk.name, err)
		}
		stmt = fmt.Sprintf(`
			ALTER TABLE %q
			ADD CONSTRAINT %q
			FOREIGN KEY (%q)
			REFERENCES %q("id")
			ON DELETE CASCADE`,
			fk.table, fk.name, fk.column, fk.refTable)
		if err := s.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to add %s: %w", fk.name, err)
		}
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
