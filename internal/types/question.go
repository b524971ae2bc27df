package types

import (
	"time"

	"github.com/google/uuid"
)

// Question is one exam question, keyed by the external id that appears in the
// uploaded scores/mapping files.
type Question struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	ExamID uuid.UUID `gorm:"type:uuid;not null;index:idx_question_exam_external,unique,priority:1" json:"exam_id"`
	Exam   *Exam     `gorm:"constraint:OnDelete:CASCADE;foreignKey:ExamID;references:ID" json:"exam,omitempty"`

	QuestionIDExternal string  `gorm:"column:question_id_external;not null;index:idx_question_exam_external,unique,priority:2" json:"question_id_external"`
	QuestionText       string  `gorm:"column:question_text" json:"question_text,omitempty"`
	MaxScore           float64 `gorm:"column:max_score;not null;default:1" json:"max_score"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Question) TableName() string { return "question" }

// Score is one (student, question) result row from a scores upload batch.
type Score struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	ExamID uuid.UUID `gorm:"type:uuid;not null;index:idx_score_unique,unique,priority:1" json:"exam_id"`
	Exam   *Exam     `gorm:"constraint:OnDelete:CASCADE;foreignKey:ExamID;references:ID" json:"exam,omitempty"`

	StudentIDExternal string    `gorm:"column:student_id_external;not null;index:idx_score_unique,unique,priority:2" json:"student_id_external"`
	QuestionID        uuid.UUID `gorm:"type:uuid;not null;index:idx_score_unique,unique,priority:3" json:"question_id"`
	Question          *Question `gorm:"constraint:OnDelete:CASCADE;foreignKey:QuestionID;references:ID" json:"question,omitempty"`

	Score float64 `gorm:"column:score;not null" json:"score"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Score) TableName() string { return "score" }

// QuestionConceptMap tags a question with a concept. A question may map to
// many concepts (one row each).
type QuestionConceptMap struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	QuestionID uuid.UUID `gorm:"type:uuid;not null;index:idx_qcm_question" json:"question_id"`
	Question   *Question `gorm:"constraint:OnDelete:CASCADE;foreignKey:QuestionID;references:ID" json:"question,omitempty"`

	ConceptID string  `gorm:"column:concept_id;not null;index:idx_qcm_concept" json:"concept_id"`
	Weight    float64 `gorm:"column:weight;not null;default:1" json:"weight"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (QuestionConceptMap) TableName() string { return "question_concept_map" }
