package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/conceptlens/conceptlens-backend/internal/logger"
	"github.com/conceptlens/conceptlens-backend/internal/types"
)

type ParameterRepo interface {
	GetByExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID) (*types.Parameter, error)
	Upsert(ctx context.Context, tx *gorm.DB, param *types.Parameter) (*types.Parameter, error)
}

type parameterRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewParameterRepo(db *gorm.DB, baseLog *logger.Logger) ParameterRepo {
	return &parameterRepo{db: db, log: baseLog.With("repo", "ParameterRepo")}
}

func (pr *parameterRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return pr.db
}

func (pr *parameterRepo) GetByExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID) (*types.Parameter, error) {
	var result types.Parameter
	if err := pr.tx(tx).WithContext(ctx).First(&result, "exam_id = ?", examID).Error; err != nil {
		return nil, MapError(err)
	}
	return &result, nil
}

func (pr *parameterRepo) Upsert(ctx context.Context, tx *gorm.DB, param *types.Parameter) (*types.Parameter, error) {
	err := pr.tx(tx).WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "exam_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"alpha", "beta", "gamma", "threshold", "k", "updated_at"}),
	}).Create(param).Error
	if err != nil {
		return nil, MapError(err)
	}
	return param, nil
}
