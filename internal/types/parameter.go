package types

import (
	"time"

	"github.com/google/uuid"
)

// Parameter is the single active parameter set for an exam. Versionless:
// writes overwrite in place.
type Parameter struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	ExamID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_parameter_exam" json:"exam_id"`
	Exam   *Exam     `gorm:"constraint:OnDelete:CASCADE;foreignKey:ExamID;references:ID" json:"exam,omitempty"`

	Alpha     float64 `gorm:"column:alpha;not null;default:1" json:"alpha"`
	Beta      float64 `gorm:"column:beta;not null;default:0.3" json:"beta"`
	Gamma     float64 `gorm:"column:gamma;not null;default:0.2" json:"gamma"`
	Threshold float64 `gorm:"column:threshold;not null;default:0.6" json:"threshold"`
	K         int     `gorm:"column:k;not null;default:4" json:"k"`

	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Parameter) TableName() string { return "parameter" }
