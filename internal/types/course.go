package types

import (
	"time"

	"github.com/google/uuid"
)

type Course struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Name string `gorm:"column:name;not null" json:"name"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Course) TableName() string { return "course" }

type Exam struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	CourseID uuid.UUID `gorm:"type:uuid;not null;index:idx_exam_course" json:"course_id"`
	Course   *Course   `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`

	Name string `gorm:"column:name;not null" json:"name"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Exam) TableName() string { return "exam" }
