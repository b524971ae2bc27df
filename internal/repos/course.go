package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/conceptlens/conceptlens-backend/internal/logger"
	"github.com/conceptlens/conceptlens-backend/internal/types"
)

type CourseRepo interface {
	Create(ctx context.Context, tx *gorm.DB, course *types.Course) (*types.Course, error)
	GetByID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*types.Course, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.Course, error)
	Update(ctx context.Context, tx *gorm.DB, course *types.Course) error
	Delete(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return &courseRepo{db: db, log: baseLog.With("repo", "CourseRepo")}
}

func (cr *courseRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return cr.db
}

func (cr *courseRepo) Create(ctx context.Context, tx *gorm.DB, course *types.Course) (*types.Course, error) {
	if err := cr.tx(tx).WithContext(ctx).Create(course).Error; err != nil {
		return nil, MapError(err)
	}
	return course, nil
}

func (cr *courseRepo) GetByID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*types.Course, error) {
	var result types.Course
	if err := cr.tx(tx).WithContext(ctx).First(&result, "id = ?", courseID).Error; err != nil {
		return nil, MapError(err)
	}
	return &result, nil
}

func (cr *courseRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.Course, error) {
	var results []*types.Course
	if err := cr.tx(tx).WithContext(ctx).Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, MapError(err)
	}
	return results, nil
}

func (cr *courseRepo) Update(ctx context.Context, tx *gorm.DB, course *types.Course) error {
	return MapError(cr.tx(tx).WithContext(ctx).Save(course).Error)
}

func (cr *courseRepo) Delete(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error {
	return MapError(cr.tx(tx).WithContext(ctx).Delete(&types.Course{}, "id = ?", courseID).Error)
}

type ExamRepo interface {
	Create(ctx context.Context, tx *gorm.DB, exam *types.Exam) (*types.Exam, error)
	GetByID(ctx context.Context, tx *gorm.DB, examID uuid.UUID) (*types.Exam, error)
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.Exam, error)
	Update(ctx context.Context, tx *gorm.DB, exam *types.Exam) error
	Delete(ctx context.Context, tx *gorm.DB, examID uuid.UUID) error
}

type examRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExamRepo(db *gorm.DB, baseLog *logger.Logger) ExamRepo {
	return &examRepo{db: db, log: baseLog.With("repo", "ExamRepo")}
}

func (er *examRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return er.db
}

func (er *examRepo) Create(ctx context.Context, tx *gorm.DB, exam *types.Exam) (*types.Exam, error) {
	if err := er.tx(tx).WithContext(ctx).Create(exam).Error; err != nil {
		return nil, MapError(err)
	}
	return exam, nil
}

func (er *examRepo) GetByID(ctx context.Context, tx *gorm.DB, examID uuid.UUID) (*types.Exam, error) {
	var result types.Exam
	if err := er.tx(tx).WithContext(ctx).First(&result, "id = ?", examID).Error; err != nil {
		return nil, MapError(err)
	}
	return &result, nil
}

func (er *examRepo) ListByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.Exam, error) {
	var results []*types.Exam
	if err := er.tx(tx).WithContext(ctx).Where("course_id = ?", courseID).Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, MapError(err)
	}
	return results, nil
}

func (er *examRepo) Update(ctx context.Context, tx *gorm.DB, exam *types.Exam) error {
	return MapError(er.tx(tx).WithContext(ctx).Save(exam).Error)
}

func (er *examRepo) Delete(ctx context.Context, tx *gorm.DB, examID uuid.UUID) error {
	return MapError(er.tx(tx).WithContext(ctx).Delete(&types.Exam{}, "id = ?", examID).Error)
}
