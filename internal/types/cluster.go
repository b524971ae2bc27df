package types

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Cluster is one k-means misconception cluster from a compute run.
type Cluster struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	ExamID uuid.UUID `gorm:"type:uuid;not null;index:idx_cluster_exam" json:"exam_id"`
	Exam   *Exam     `gorm:"constraint:OnDelete:CASCADE;foreignKey:ExamID;references:ID" json:"exam,omitempty"`
	RunID  uuid.UUID `gorm:"type:uuid" json:"run_id"`

	ClusterLabel string `gorm:"column:cluster_label;not null" json:"cluster_label"`
	StudentCount int    `gorm:"column:student_count;not null;default:0" json:"student_count"`

	// CentroidJSON is the concept_id -> readiness mapping of the centroid.
	CentroidJSON datatypes.JSON `gorm:"column:centroid_json;type:jsonb" json:"centroid_json,omitempty"`
	// TopWeakConceptsJSON is the ordered list of distinguishing weak concepts.
	TopWeakConceptsJSON datatypes.JSON `gorm:"column:top_weak_concepts_json;type:jsonb" json:"top_weak_concepts_json,omitempty"`
	// SuggestedInterventionsJSON is the template-suggested intervention list.
	SuggestedInterventionsJSON datatypes.JSON `gorm:"column:suggested_interventions_json;type:jsonb" json:"suggested_interventions_json,omitempty"`
}

func (Cluster) TableName() string { return "cluster" }

type ClusterAssignment struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	ExamID uuid.UUID `gorm:"type:uuid;not null;index:idx_cluster_assignment_unique,unique,priority:1" json:"exam_id"`
	Exam   *Exam     `gorm:"constraint:OnDelete:CASCADE;foreignKey:ExamID;references:ID" json:"exam,omitempty"`

	StudentIDExternal string    `gorm:"column:student_id_external;not null;index:idx_cluster_assignment_unique,unique,priority:2" json:"student_id_external"`
	ClusterID         uuid.UUID `gorm:"type:uuid;not null" json:"cluster_id"`
	Cluster           *Cluster  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ClusterID;references:ID" json:"cluster,omitempty"`
}

func (ClusterAssignment) TableName() string { return "cluster_assignment" }
