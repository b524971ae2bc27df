package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AuditLog records state-changing operations (uploads, graph mutations,
// parameter writes, computes).
type AuditLog struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	ExamID *uuid.UUID `gorm:"type:uuid;index:idx_audit_exam" json:"exam_id,omitempty"`

	Actor      string         `gorm:"column:actor;not null" json:"actor"`
	Action     string         `gorm:"column:action;not null" json:"action"`
	EntityType string         `gorm:"column:entity_type;not null" json:"entity_type"`
	EntityID   string         `gorm:"column:entity_id" json:"entity_id,omitempty"`
	Metadata   datatypes.JSON `gorm:"column:metadata_json;type:jsonb" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_log" }
