package types

import (
	"time"

	"github.com/google/uuid"
)

// InterventionResult is one impact-ranked intervention recommendation.
type InterventionResult struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	ExamID uuid.UUID `gorm:"type:uuid;not null;index:idx_intervention_exam" json:"exam_id"`
	Exam   *Exam     `gorm:"constraint:OnDelete:CASCADE;foreignKey:ExamID;references:ID" json:"exam,omitempty"`
	RunID  uuid.UUID `gorm:"type:uuid" json:"run_id"`

	ConceptID          string  `gorm:"column:concept_id;not null" json:"concept_id"`
	StudentsAffected   int     `gorm:"column:students_affected;not null" json:"students_affected"`
	DownstreamConcepts int     `gorm:"column:downstream_concepts;not null" json:"downstream_concepts"`
	CurrentReadiness   float64 `gorm:"column:current_readiness;not null" json:"current_readiness"`
	Impact             float64 `gorm:"column:impact;not null" json:"impact"`
	Rationale          string  `gorm:"column:rationale" json:"rationale,omitempty"`
	SuggestedFormat    string  `gorm:"column:suggested_format" json:"suggested_format,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (InterventionResult) TableName() string { return "intervention_result" }
