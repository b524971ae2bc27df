package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/conceptlens/conceptlens-backend/internal/logger"
	"github.com/conceptlens/conceptlens-backend/internal/types"
)

type AuditRepo interface {
	Record(ctx context.Context, tx *gorm.DB, entry *types.AuditLog) error
	ListByExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID, limit int) ([]*types.AuditLog, error)
}

type auditRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAuditRepo(db *gorm.DB, baseLog *logger.Logger) AuditRepo {
	return &auditRepo{db: db, log: baseLog.With("repo", "AuditRepo")}
}

func (ar *auditRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return ar.db
}

func (ar *auditRepo) Record(ctx context.Context, tx *gorm.DB, entry *types.AuditLog) error {
	return MapError(ar.tx(tx).WithContext(ctx).Create(entry).Error)
}

func (ar *auditRepo) ListByExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID, limit int) ([]*types.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var results []*types.AuditLog
	err := ar.tx(tx).WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, MapError(err)
	}
	return results, nil
}
