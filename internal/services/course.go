package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/conceptlens/conceptlens-backend/internal/logger"
	"github.com/conceptlens/conceptlens-backend/internal/repos"
	"github.com/conceptlens/conceptlens-backend/internal/types"
)

type CourseService interface {
	CreateCourse(ctx context.Context, name string) (*types.Course, error)
	GetCourse(ctx context.Context, courseID uuid.UUID) (*types.Course, error)
	ListCourses(ctx context.Context) ([]*types.Course, error)
	DeleteCourse(ctx context.Context, courseID uuid.UUID) error
	CreateExam(ctx context.Context, courseID uuid.UUID, name string) (*types.Exam, error)
	GetExam(ctx context.Context, examID uuid.UUID) (*types.Exam, error)
	ListExams(ctx context.Context, courseID uuid.UUID) ([]*types.Exam, error)
	DeleteExam(ctx context.Context, examID uuid.UUID) error
}

type courseService struct {
	log        *logger.Logger
	courseRepo repos.CourseRepo
	examRepo   repos.ExamRepo
	auditRepo  repos.AuditRepo
}

func NewCourseService(courseRepo repos.CourseRepo, examRepo repos.ExamRepo, auditRepo repos.AuditRepo, baseLog *logger.Logger) CourseService {
	return &courseService{
		log:        baseLog.With("service", "CourseService"),
		courseRepo: courseRepo,
		examRepo:   examRepo,
		auditRepo:  auditRepo,
	}
}

func (cs *courseService) CreateCourse(ctx context.Context, name string) (*types.Course, error) {
	if name == "" {
		return nil, fmt.Errorf("course name is required")
	}
	course, err := cs.courseRepo.Create(ctx, nil, &types.Course{Name: name})
	if err != nil {
		return nil, err
	}
	cs.audit(ctx, nil, "course.create", "course", course.ID.String())
	return course, nil
}

func (cs *courseService) GetCourse(ctx context.Context, courseID uuid.UUID) (*types.Course, error) {
	return cs.courseRepo.GetByID(ctx, nil, courseID)
}

func (cs *courseService) ListCourses(ctx context.Context) ([]*types.Course, error) {
	return cs.courseRepo.List(ctx, nil)
}

func (cs *courseService) DeleteCourse(ctx context.Context, courseID uuid.UUID) error {
	if err := cs.courseRepo.Delete(ctx, nil, courseID); err != nil {
		return err
	}
	cs.audit(ctx, nil, "course.delete", "course", courseID.String())
	return nil
}

func (cs *courseService) CreateExam(ctx context.Context, courseID uuid.UUID, name string) (*types.Exam, error) {
	if name == "" {
		return nil, fmt.Errorf("exam name is required")
	}
	if _, err := cs.courseRepo.GetByID(ctx, nil, courseID); err != nil {
		return nil, err
	}
	exam, err := cs.examRepo.Create(ctx, nil, &types.Exam{CourseID: courseID, Name: name})
	if err != nil {
		return nil, err
	}
	cs.audit(ctx, &exam.ID, "exam.create", "exam", exam.ID.String())
	return exam, nil
}

func (cs *courseService) GetExam(ctx context.Context, examID uuid.UUID) (*types.Exam, error) {
	return cs.examRepo.GetByID(ctx, nil, examID)
}

func (cs *courseService) ListExams(ctx context.Context, courseID uuid.UUID) ([]*types.Exam, error) {
	return cs.examRepo.ListByCourse(ctx, nil, courseID)
}

func (cs *courseService) DeleteExam(ctx context.Context, examID uuid.UUID) error {
	if err := cs.examRepo.Delete(ctx, nil, examID); err != nil {
		return err
	}
	cs.audit(ctx, &examID, "exam.delete", "exam", examID.String())
	return nil
}

func (cs *courseService) audit(ctx context.Context, examID *uuid.UUID, action, entityType, entityID string) {
	entry := &types.AuditLog{
		ExamID:     examID,
		Actor:      "instructor",
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
	}
	if err := cs.auditRepo.Record(ctx, nil, entry); err != nil {
		cs.log.Warn("Failed to write audit entry", "action", action, "error", err)
	}
}
