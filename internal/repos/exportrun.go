package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/conceptlens/conceptlens-backend/internal/logger"
	"github.com/conceptlens/conceptlens-backend/internal/types"
)

type ExportRunRepo interface {
	Create(ctx context.Context, tx *gorm.DB, run *types.ExportRun) (*types.ExportRun, error)
	Update(ctx context.Context, tx *gorm.DB, run *types.ExportRun) error
	GetByID(ctx context.Context, tx *gorm.DB, runID uuid.UUID) (*types.ExportRun, error)
	ListByExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID) ([]*types.ExportRun, error)
}

type exportRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExportRunRepo(db *gorm.DB, baseLog *logger.Logger) ExportRunRepo {
	return &exportRunRepo{db: db, log: baseLog.With("repo", "ExportRunRepo")}
}

func (er *exportRunRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return er.db
}

func (er *exportRunRepo) Create(ctx context.Context, tx *gorm.DB, run *types.ExportRun) (*types.ExportRun, error) {
	if err := er.tx(tx).WithContext(ctx).Create(run).Error; err != nil {
		return nil, MapError(err)
	}
	return run, nil
}

func (er *exportRunRepo) Update(ctx context.Context, tx *gorm.DB, run *types.ExportRun) error {
	return MapError(er.tx(tx).WithContext(ctx).Save(run).Error)
}

func (er *exportRunRepo) GetByID(ctx context.Context, tx *gorm.DB, runID uuid.UUID) (*types.ExportRun, error) {
	var result types.ExportRun
	if err := er.tx(tx).WithContext(ctx).First(&result, "id = ?", runID).Error; err != nil {
		return nil, MapError(err)
	}
	return &result, nil
}

func (er *exportRunRepo) ListByExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID) ([]*types.ExportRun, error) {
	var results []*types.ExportRun
	err := er.tx(tx).WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("created_at DESC").
		Find(&results).Error
	if err != nil {
		return nil, MapError(err)
	}
	return results, nil
}
