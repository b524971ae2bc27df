package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/conceptlens/conceptlens-backend/internal/logger"
	"github.com/conceptlens/conceptlens-backend/internal/types"
)

type QuestionRepo interface {
	UpsertBatch(ctx context.Context, tx *gorm.DB, questions []*types.Question) ([]*types.Question, error)
	GetByExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID) ([]*types.Question, error)
	GetByExternalIDs(ctx context.Context, tx *gorm.DB, examID uuid.UUID, externalIDs []string) ([]*types.Question, error)
	DeleteByExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID) error
}

type questionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionRepo(db *gorm.DB, baseLog *logger.Logger) QuestionRepo {
	return &questionRepo{db: db, log: baseLog.With("repo", "QuestionRepo")}
}

func (qr *questionRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return qr.db
}

func (qr *questionRepo) UpsertBatch(ctx context.Context, tx *gorm.DB, questions []*types.Question) ([]*types.Question, error) {
	if len(questions) == 0 {
		return []*types.Question{}, nil
	}
	err := qr.tx(tx).WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "exam_id"}, {Name: "question_id_external"}},
		DoUpdates: clause.AssignmentColumns([]string{"max_score", "question_text"}),
	}).Create(&questions).Error
	if err != nil {
		return nil, MapError(err)
	}
	return questions, nil
}

func (qr *questionRepo) GetByExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID) ([]*types.Question, error) {
	var results []*types.Question
	if err := qr.tx(tx).WithContext(ctx).Where("exam_id = ?", examID).Order("question_id_external").Find(&results).Error; err != nil {
		return nil, MapError(err)
	}
	return results, nil
}

func (qr *questionRepo) GetByExternalIDs(ctx context.Context, tx *gorm.DB, examID uuid.UUID, externalIDs []string) ([]*types.Question, error) {
	if len(externalIDs) == 0 {
		return []*types.Question{}, nil
	}
	var results []*types.Question
	if err := qr.tx(tx).WithContext(ctx).Where("exam_id = ? AND question_id_external IN ?", examID, externalIDs).Find(&results).Error; err != nil {
		return nil, MapError(err)
	}
	return results, nil
}

func (qr *questionRepo) DeleteByExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID) error {
	return MapError(qr.tx(tx).WithContext(ctx).Delete(&types.Question{}, "exam_id = ?", examID).Error)
}

type ScoreRepo interface {
	ReplaceForExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID, scores []*types.Score) error
	GetByExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID) ([]*types.Score, error)
	CountByExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID) (int64, error)
}

type scoreRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScoreRepo(db *gorm.DB, baseLog *logger.Logger) ScoreRepo {
	return &scoreRepo{db: db, log: baseLog.With("repo", "ScoreRepo")}
}

func (sr *scoreRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return sr.db
}

// ReplaceForExam swaps the full score set atomically; re-uploads overwrite
// rather than merge.
func (sr *scoreRepo) ReplaceForExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID, scores []*types.Score) error {
	transaction := sr.tx(tx).WithContext(ctx)
	if err := transaction.Delete(&types.Score{}, "exam_id = ?", examID).Error; err != nil {
		return MapError(err)
	}
	if len(scores) == 0 {
		return nil
	}
	return MapError(transaction.CreateInBatches(&scores, 1000).Error)
}

func (sr *scoreRepo) GetByExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID) ([]*types.Score, error) {
	var results []*types.Score
	if err := sr.tx(tx).WithContext(ctx).Where("exam_id = ?", examID).Find(&results).Error; err != nil {
		return nil, MapError(err)
	}
	return results, nil
}

func (sr *scoreRepo) CountByExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID) (int64, error) {
	var count int64
	if err := sr.tx(tx).WithContext(ctx).Model(&types.Score{}).Where("exam_id = ?", examID).Count(&count).Error; err != nil {
		return 0, MapError(err)
	}
	return count, nil
}

type MappingRepo interface {
	ReplaceForQuestions(ctx context.Context, tx *gorm.DB, questionIDs []uuid.UUID, mappings []*types.QuestionConceptMap) error
	GetByQuestionIDs(ctx context.Context, tx *gorm.DB, questionIDs []uuid.UUID) ([]*types.QuestionConceptMap, error)
	CreateBatch(ctx context.Context, tx *gorm.DB, mappings []*types.QuestionConceptMap) error
}

type mappingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMappingRepo(db *gorm.DB, baseLog *logger.Logger) MappingRepo {
	return &mappingRepo{db: db, log: baseLog.With("repo", "MappingRepo")}
}

func (mr *mappingRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return mr.db
}

func (mr *mappingRepo) ReplaceForQuestions(ctx context.Context, tx *gorm.DB, questionIDs []uuid.UUID, mappings []*types.QuestionConceptMap) error {
	transaction := mr.tx(tx).WithContext(ctx)
	if len(questionIDs) > 0 {
		if err := transaction.Delete(&types.QuestionConceptMap{}, "question_id IN ?", questionIDs).Error; err != nil {
			return MapError(err)
		}
	}
	if len(mappings) == 0 {
		return nil
	}
	return MapError(transaction.CreateInBatches(&mappings, 1000).Error)
}

func (mr *mappingRepo) GetByQuestionIDs(ctx context.Context, tx *gorm.DB, questionIDs []uuid.UUID) ([]*types.QuestionConceptMap, error) {
	if len(questionIDs) == 0 {
		return []*types.QuestionConceptMap{}, nil
	}
	var results []*types.QuestionConceptMap
	if err := mr.tx(tx).WithContext(ctx).Where("question_id IN ?", questionIDs).Find(&results).Error; err != nil {
		return nil, MapError(err)
	}
	return results, nil
}

func (mr *mappingRepo) CreateBatch(ctx context.Context, tx *gorm.DB, mappings []*types.QuestionConceptMap) error {
	if len(mappings) == 0 {
		return nil
	}
	return MapError(mr.tx(tx).WithContext(ctx).CreateInBatches(&mappings, 1000).Error)
}
