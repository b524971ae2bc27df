package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ExportRunGenerating = "generating"
	ExportRunReady      = "ready"
	ExportRunFailed     = "failed"
)

// ExportRun tracks one export bundle build.
type ExportRun struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	ExamID uuid.UUID `gorm:"type:uuid;not null;index:idx_export_exam" json:"exam_id"`
	Exam   *Exam     `gorm:"constraint:OnDelete:CASCADE;foreignKey:ExamID;references:ID" json:"exam,omitempty"`

	ComputeRunID *uuid.UUID     `gorm:"type:uuid" json:"compute_run_id,omitempty"`
	Status       string         `gorm:"column:status;not null;default:generating" json:"status"`
	FilePath     string         `gorm:"column:file_path" json:"file_path,omitempty"`
	ObjectURL    string         `gorm:"column:object_url" json:"object_url,omitempty"`
	FileChecksum string         `gorm:"column:file_checksum" json:"file_checksum,omitempty"`
	ManifestJSON datatypes.JSON `gorm:"column:manifest_json;type:jsonb" json:"manifest_json,omitempty"`
	ErrorMessage string         `gorm:"column:error_message" json:"error_message,omitempty"`

	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

func (ExportRun) TableName() string { return "export_run" }
