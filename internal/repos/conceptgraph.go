package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/conceptlens/conceptlens-backend/internal/logger"
	"github.com/conceptlens/conceptlens-backend/internal/types"
)

type ConceptGraphRepo interface {
	CreateVersion(ctx context.Context, tx *gorm.DB, graph *types.ConceptGraph) (*types.ConceptGraph, error)
	GetHead(ctx context.Context, tx *gorm.DB, examID uuid.UUID) (*types.ConceptGraph, error)
	GetVersion(ctx context.Context, tx *gorm.DB, examID uuid.UUID, version int) (*types.ConceptGraph, error)
	ListVersions(ctx context.Context, tx *gorm.DB, examID uuid.UUID) ([]*types.ConceptGraph, error)
}

type conceptGraphRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConceptGraphRepo(db *gorm.DB, baseLog *logger.Logger) ConceptGraphRepo {
	return &conceptGraphRepo{db: db, log: baseLog.With("repo", "ConceptGraphRepo")}
}

func (gr *conceptGraphRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return gr.db
}

// CreateVersion appends an immutable graph version. The version number is
// assigned here: head + 1, or 1 when the exam has no graph yet.
func (gr *conceptGraphRepo) CreateVersion(ctx context.Context, tx *gorm.DB, graph *types.ConceptGraph) (*types.ConceptGraph, error) {
	transaction := gr.tx(tx).WithContext(ctx)
	var head int
	row := transaction.Model(&types.ConceptGraph{}).
		Where("exam_id = ?", graph.ExamID).
		Select("COALESCE(MAX(version), 0)").
		Row()
	if err := row.Scan(&head); err != nil {
		return nil, MapError(err)
	}
	graph.Version = head + 1
	if err := transaction.Create(graph).Error; err != nil {
		return nil, MapError(err)
	}
	return graph, nil
}

func (gr *conceptGraphRepo) GetHead(ctx context.Context, tx *gorm.DB, examID uuid.UUID) (*types.ConceptGraph, error) {
	var result types.ConceptGraph
	err := gr.tx(tx).WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("version DESC").
		First(&result).Error
	if err != nil {
		return nil, MapError(err)
	}
	return &result, nil
}

func (gr *conceptGraphRepo) GetVersion(ctx context.Context, tx *gorm.DB, examID uuid.UUID, version int) (*types.ConceptGraph, error) {
	var result types.ConceptGraph
	err := gr.tx(tx).WithContext(ctx).
		Where("exam_id = ? AND version = ?", examID, version).
		First(&result).Error
	if err != nil {
		return nil, MapError(err)
	}
	return &result, nil
}

func (gr *conceptGraphRepo) ListVersions(ctx context.Context, tx *gorm.DB, examID uuid.UUID) ([]*types.ConceptGraph, error) {
	var results []*types.ConceptGraph
	err := gr.tx(tx).WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("version DESC").
		Find(&results).Error
	if err != nil {
		return nil, MapError(err)
	}
	return results, nil
}
