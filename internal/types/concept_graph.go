package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ConceptGraph is one immutable version of an exam's prerequisite graph.
// Every accepted mutation writes a new row with version = head + 1.
type ConceptGraph struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	ExamID uuid.UUID `gorm:"type:uuid;not null;index:idx_graph_exam_version,unique,priority:1" json:"exam_id"`
	Exam   *Exam     `gorm:"constraint:OnDelete:CASCADE;foreignKey:ExamID;references:ID" json:"exam,omitempty"`

	Version    int            `gorm:"column:version;not null;default:1;index:idx_graph_exam_version,unique,priority:2" json:"version"`
	GraphJSON  datatypes.JSON `gorm:"column:graph_json;type:jsonb;not null" json:"graph_json"`
	Annotation string         `gorm:"column:annotation" json:"annotation,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (ConceptGraph) TableName() string { return "concept_graph" }
