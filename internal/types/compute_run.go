package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ComputeRunQueued    = "queued"
	ComputeRunRunning   = "running"
	ComputeRunSucceeded = "succeeded"
	ComputeRunFailed    = "failed"
)

// ComputeRun tracks one compute invocation for an exam.
type ComputeRun struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	ExamID uuid.UUID `gorm:"type:uuid;not null;index:idx_compute_run_exam" json:"exam_id"`
	Exam   *Exam     `gorm:"constraint:OnDelete:CASCADE;foreignKey:ExamID;references:ID" json:"exam,omitempty"`

	Status            string         `gorm:"column:status;not null;default:queued;index:idx_compute_run_status" json:"status"`
	ParametersJSON    datatypes.JSON `gorm:"column:parameters_json;type:jsonb" json:"parameters_json,omitempty"`
	GraphVersion      int            `gorm:"column:graph_version" json:"graph_version"`
	StudentsProcessed int            `gorm:"column:students_processed" json:"students_processed"`
	ConceptsProcessed int            `gorm:"column:concepts_processed" json:"concepts_processed"`
	DurationMs        float64        `gorm:"column:duration_ms" json:"duration_ms"`
	ErrorMessage      string         `gorm:"column:error_message" json:"error_message,omitempty"`

	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

func (ComputeRun) TableName() string { return "compute_run" }
