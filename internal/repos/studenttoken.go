package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/conceptlens/conceptlens-backend/internal/logger"
	"github.com/conceptlens/conceptlens-backend/internal/types"
)

type StudentTokenRepo interface {
	EnsureForStudents(ctx context.Context, tx *gorm.DB, examID uuid.UUID, studentIDs []string) error
	GetByToken(ctx context.Context, tx *gorm.DB, token uuid.UUID) (*types.StudentToken, error)
	ListByExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID) ([]*types.StudentToken, error)
}

type studentTokenRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudentTokenRepo(db *gorm.DB, baseLog *logger.Logger) StudentTokenRepo {
	return &studentTokenRepo{db: db, log: baseLog.With("repo", "StudentTokenRepo")}
}

func (tr *studentTokenRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return tr.db
}

// EnsureForStudents mints a token for every student that does not have one
// yet. Existing tokens are left alone so shared report links stay stable
// across recomputes.
func (tr *studentTokenRepo) EnsureForStudents(ctx context.Context, tx *gorm.DB, examID uuid.UUID, studentIDs []string) error {
	if len(studentIDs) == 0 {
		return nil
	}
	tokens := make([]*types.StudentToken, 0, len(studentIDs))
	for _, sid := range studentIDs {
		tokens = append(tokens, &types.StudentToken{
			ExamID:            examID,
			StudentIDExternal: sid,
			Token:             uuid.New(),
		})
	}
	err := tr.tx(tx).WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "exam_id"}, {Name: "student_id_external"}},
		DoNothing: true,
	}).CreateInBatches(&tokens, 1000).Error
	return MapError(err)
}

func (tr *studentTokenRepo) GetByToken(ctx context.Context, tx *gorm.DB, token uuid.UUID) (*types.StudentToken, error) {
	var result types.StudentToken
	if err := tr.tx(tx).WithContext(ctx).First(&result, "token = ?", token).Error; err != nil {
		return nil, MapError(err)
	}
	return &result, nil
}

func (tr *studentTokenRepo) ListByExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID) ([]*types.StudentToken, error) {
	var results []*types.StudentToken
	err := tr.tx(tx).WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("student_id_external").
		Find(&results).Error
	if err != nil {
		return nil, MapError(err)
	}
	return results, nil
}
