package types

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ReadinessResult is one (student, concept) readiness score from a compute
// run. Results are regenerated wholesale per run and never mutated.
type ReadinessResult struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	ExamID uuid.UUID `gorm:"type:uuid;not null;index:idx_readiness_unique,unique,priority:1" json:"exam_id"`
	Exam   *Exam     `gorm:"constraint:OnDelete:CASCADE;foreignKey:ExamID;references:ID" json:"exam,omitempty"`
	RunID  uuid.UUID `gorm:"type:uuid;index:idx_readiness_run" json:"run_id"`

	StudentIDExternal string `gorm:"column:student_id_external;not null;index:idx_readiness_unique,unique,priority:2" json:"student_id_external"`
	ConceptID         string `gorm:"column:concept_id;not null;index:idx_readiness_unique,unique,priority:3" json:"concept_id"`

	// DirectReadiness stays nil when the concept has no tagged questions
	// (inferred-only score).
	DirectReadiness     *float64 `gorm:"column:direct_readiness" json:"direct_readiness"`
	PrerequisitePenalty float64  `gorm:"column:prerequisite_penalty;not null;default:0" json:"prerequisite_penalty"`
	DownstreamBoost     float64  `gorm:"column:downstream_boost;not null;default:0" json:"downstream_boost"`
	FinalReadiness      float64  `gorm:"column:final_readiness;not null" json:"final_readiness"`
	Confidence          string   `gorm:"column:confidence;not null" json:"confidence"`

	ExplanationTraceJSON datatypes.JSON `gorm:"column:explanation_trace_json;type:jsonb" json:"explanation_trace_json,omitempty"`
}

func (ReadinessResult) TableName() string { return "readiness_result" }

// ClassAggregate is the per-concept class-wide summary for a run.
type ClassAggregate struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	ExamID uuid.UUID `gorm:"type:uuid;not null;index:idx_aggregate_unique,unique,priority:1" json:"exam_id"`
	Exam   *Exam     `gorm:"constraint:OnDelete:CASCADE;foreignKey:ExamID;references:ID" json:"exam,omitempty"`
	RunID  uuid.UUID `gorm:"type:uuid" json:"run_id"`

	ConceptID           string  `gorm:"column:concept_id;not null;index:idx_aggregate_unique,unique,priority:2" json:"concept_id"`
	MeanReadiness       float64 `gorm:"column:mean_readiness;not null" json:"mean_readiness"`
	MedianReadiness     float64 `gorm:"column:median_readiness;not null" json:"median_readiness"`
	StdReadiness        float64 `gorm:"column:std_readiness;not null" json:"std_readiness"`
	BelowThresholdCount int     `gorm:"column:below_threshold_count;not null" json:"below_threshold_count"`
}

func (ClassAggregate) TableName() string { return "class_aggregate" }
