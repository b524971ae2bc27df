package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/conceptlens/conceptlens-backend/internal/logger"
	"github.com/conceptlens/conceptlens-backend/internal/types"
)

// ResultBatch is everything one compute run writes.
type ResultBatch struct {
	Results       []*types.ReadinessResult
	Aggregates    []*types.ClassAggregate
	Clusters      []*types.Cluster
	Assignments   []*types.ClusterAssignment
	Interventions []*types.InterventionResult
}

type ResultRepo interface {
	ReplaceForExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID, batch ResultBatch) error
	GetByExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID) ([]*types.ReadinessResult, error)
	GetByStudent(ctx context.Context, tx *gorm.DB, examID uuid.UUID, studentID string) ([]*types.ReadinessResult, error)
	GetOne(ctx context.Context, tx *gorm.DB, examID uuid.UUID, studentID, conceptID string) (*types.ReadinessResult, error)
	GetAggregates(ctx context.Context, tx *gorm.DB, examID uuid.UUID) ([]*types.ClassAggregate, error)
	GetClusters(ctx context.Context, tx *gorm.DB, examID uuid.UUID) ([]*types.Cluster, error)
	GetAssignments(ctx context.Context, tx *gorm.DB, examID uuid.UUID) ([]*types.ClusterAssignment, error)
	GetInterventions(ctx context.Context, tx *gorm.DB, examID uuid.UUID) ([]*types.InterventionResult, error)
}

type resultRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewResultRepo(db *gorm.DB, baseLog *logger.Logger) ResultRepo {
	return &resultRepo{db: db, log: baseLog.With("repo", "ResultRepo")}
}

func (rr *resultRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return rr.db
}

// ReplaceForExam wipes the previous run's outputs and writes the new batch.
// Results are regenerated wholesale; there is no incremental update path.
func (rr *resultRepo) ReplaceForExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID, batch ResultBatch) error {
	transaction := rr.tx(tx).WithContext(ctx)

	for _, model := range []any{
		&types.ClusterAssignment{},
		&types.Cluster{},
		&types.InterventionResult{},
		&types.ClassAggregate{},
		&types.ReadinessResult{},
	} {
		if err := transaction.Delete(model, "exam_id = ?", examID).Error; err != nil {
			return MapError(err)
		}
	}

	if len(batch.Results) > 0 {
		if err := transaction.CreateInBatches(&batch.Results, 1000).Error; err != nil {
			return MapError(err)
		}
	}
	if len(batch.Aggregates) > 0 {
		if err := transaction.CreateInBatches(&batch.Aggregates, 1000).Error; err != nil {
			return MapError(err)
		}
	}
	if len(batch.Clusters) > 0 {
		if err := transaction.Create(&batch.Clusters).Error; err != nil {
			return MapError(err)
		}
	}
	if len(batch.Assignments) > 0 {
		if err := transaction.CreateInBatches(&batch.Assignments, 1000).Error; err != nil {
			return MapError(err)
		}
	}
	if len(batch.Interventions) > 0 {
		if err := transaction.CreateInBatches(&batch.Interventions, 1000).Error; err != nil {
			return MapError(err)
		}
	}
	return nil
}

func (rr *resultRepo) GetByExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID) ([]*types.ReadinessResult, error) {
	var results []*types.ReadinessResult
	err := rr.tx(tx).WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("student_id_external, concept_id").
		Find(&results).Error
	if err != nil {
		return nil, MapError(err)
	}
	return results, nil
}

func (rr *resultRepo) GetByStudent(ctx context.Context, tx *gorm.DB, examID uuid.UUID, studentID string) ([]*types.ReadinessResult, error) {
	var results []*types.ReadinessResult
	err := rr.tx(tx).WithContext(ctx).
		Where("exam_id = ? AND student_id_external = ?", examID, studentID).
		Order("concept_id").
		Find(&results).Error
	if err != nil {
		return nil, MapError(err)
	}
	return results, nil
}

func (rr *resultRepo) GetOne(ctx context.Context, tx *gorm.DB, examID uuid.UUID, studentID, conceptID string) (*types.ReadinessResult, error) {
	var result types.ReadinessResult
	err := rr.tx(tx).WithContext(ctx).
		Where("exam_id = ? AND student_id_external = ? AND concept_id = ?", examID, studentID, conceptID).
		First(&result).Error
	if err != nil {
		return nil, MapError(err)
	}
	return &result, nil
}

func (rr *resultRepo) GetAggregates(ctx context.Context, tx *gorm.DB, examID uuid.UUID) ([]*types.ClassAggregate, error) {
	var results []*types.ClassAggregate
	err := rr.tx(tx).WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("concept_id").
		Find(&results).Error
	if err != nil {
		return nil, MapError(err)
	}
	return results, nil
}

func (rr *resultRepo) GetClusters(ctx context.Context, tx *gorm.DB, examID uuid.UUID) ([]*types.Cluster, error) {
	var results []*types.Cluster
	err := rr.tx(tx).WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("cluster_label").
		Find(&results).Error
	if err != nil {
		return nil, MapError(err)
	}
	return results, nil
}

func (rr *resultRepo) GetAssignments(ctx context.Context, tx *gorm.DB, examID uuid.UUID) ([]*types.ClusterAssignment, error) {
	var results []*types.ClusterAssignment
	err := rr.tx(tx).WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("student_id_external").
		Find(&results).Error
	if err != nil {
		return nil, MapError(err)
	}
	return results, nil
}

func (rr *resultRepo) GetInterventions(ctx context.Context, tx *gorm.DB, examID uuid.UUID) ([]*types.InterventionResult, error) {
	var results []*types.InterventionResult
	err := rr.tx(tx).WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("impact DESC, concept_id").
		Find(&results).Error
	if err != nil {
		return nil, MapError(err)
	}
	return results, nil
}
