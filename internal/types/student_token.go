package types

import (
	"time"

	"github.com/google/uuid"
)

// StudentToken is the stable shareable token for a student's read-only
// report on one exam. Minted on first compute, never rotated automatically.
type StudentToken struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	ExamID uuid.UUID `gorm:"type:uuid;not null;index:idx_token_exam_student,unique,priority:1" json:"exam_id"`
	Exam   *Exam     `gorm:"constraint:OnDelete:CASCADE;foreignKey:ExamID;references:ID" json:"exam,omitempty"`

	StudentIDExternal string    `gorm:"column:student_id_external;not null;index:idx_token_exam_student,unique,priority:2" json:"student_id_external"`
	Token             uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_token_value" json:"token"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (StudentToken) TableName() string { return "student_token" }
