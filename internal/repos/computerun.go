package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/conceptlens/conceptlens-backend/internal/logger"
	"github.com/conceptlens/conceptlens-backend/internal/types"
)

type ComputeRunRepo interface {
	Create(ctx context.Context, tx *gorm.DB, run *types.ComputeRun) (*types.ComputeRun, error)
	Update(ctx context.Context, tx *gorm.DB, run *types.ComputeRun) error
	GetByID(ctx context.Context, tx *gorm.DB, runID uuid.UUID) (*types.ComputeRun, error)
	GetLatestByExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID) (*types.ComputeRun, error)
	HasActiveRun(ctx context.Context, tx *gorm.DB, examID uuid.UUID) (bool, error)
	ClaimNextQueued(ctx context.Context, tx *gorm.DB) (*types.ComputeRun, error)
}

type computeRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewComputeRunRepo(db *gorm.DB, baseLog *logger.Logger) ComputeRunRepo {
	return &computeRunRepo{db: db, log: baseLog.With("repo", "ComputeRunRepo")}
}

func (rr *computeRunRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return rr.db
}

func (rr *computeRunRepo) Create(ctx context.Context, tx *gorm.DB, run *types.ComputeRun) (*types.ComputeRun, error) {
	if err := rr.tx(tx).WithContext(ctx).Create(run).Error; err != nil {
		return nil, MapError(err)
	}
	return run, nil
}

func (rr *computeRunRepo) Update(ctx context.Context, tx *gorm.DB, run *types.ComputeRun) error {
	return MapError(rr.tx(tx).WithContext(ctx).Save(run).Error)
}

func (rr *computeRunRepo) GetByID(ctx context.Context, tx *gorm.DB, runID uuid.UUID) (*types.ComputeRun, error) {
	var result types.ComputeRun
	if err := rr.tx(tx).WithContext(ctx).First(&result, "id = ?", runID).Error; err != nil {
		return nil, MapError(err)
	}
	return &result, nil
}

func (rr *computeRunRepo) GetLatestByExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID) (*types.ComputeRun, error) {
	var result types.ComputeRun
	err := rr.tx(tx).WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("created_at DESC").
		First(&result).Error
	if err != nil {
		return nil, MapError(err)
	}
	return &result, nil
}

func (rr *computeRunRepo) HasActiveRun(ctx context.Context, tx *gorm.DB, examID uuid.UUID) (bool, error) {
	var count int64
	err := rr.tx(tx).WithContext(ctx).
		Model(&types.ComputeRun{}).
		Where("exam_id = ? AND status IN ?", examID, []string{types.ComputeRunQueued, types.ComputeRunRunning}).
		Count(&count).Error
	if err != nil {
		return false, MapError(err)
	}
	return count > 0, nil
}

// ClaimNextQueued atomically picks the oldest queued run and flips it to
// running. SKIP LOCKED keeps concurrent workers from claiming the same row.
// Returns ErrNotFound when the queue is empty.
func (rr *computeRunRepo) ClaimNextQueued(ctx context.Context, tx *gorm.DB) (*types.ComputeRun, error) {
	var claimed *types.ComputeRun
	err := rr.tx(tx).WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		var run types.ComputeRun
		err := inner.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ?", types.ComputeRunQueued).
			Order("created_at").
			First(&run).Error
		if err != nil {
			return err
		}
		run.Status = types.ComputeRunRunning
		if err := inner.Save(&run).Error; err != nil {
			return err
		}
		claimed = &run
		return nil
	})
	if err != nil {
		return nil, MapError(err)
	}
	return claimed, nil
}
