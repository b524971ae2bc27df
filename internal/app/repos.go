package app

import (
	"gorm.io/gorm"

	"github.com/conceptlens/conceptlens-backend/internal/logger"
	"github.com/conceptlens/conceptlens-backend/internal/repos"
)

type Repos struct {
	Course       repos.CourseRepo
	Exam         repos.ExamRepo
	Question     repos.QuestionRepo
	Score        repos.ScoreRepo
	Mapping      repos.MappingRepo
	ConceptGraph repos.ConceptGraphRepo
	Parameter    repos.ParameterRepo
	Result       repos.ResultRepo
	ComputeRun   repos.ComputeRunRepo
	StudentToken repos.StudentTokenRepo
	Audit        repos.AuditRepo
	ExportRun    repos.ExportRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Course:       repos.NewCourseRepo(db, log),
		Exam:         repos.NewExamRepo(db, log),
		Question:     repos.NewQuestionRepo(db, log),
		Score:        repos.NewScoreRepo(db, log),
		Mapping:      repos.NewMappingRepo(db, log),
		ConceptGraph: repos.NewConceptGraphRepo(db, log),
		Parameter:    repos.NewParameterRepo(db, log),
		Result:       repos.NewResultRepo(db, log),
		ComputeRun:   repos.NewComputeRunRepo(db, log),
		StudentToken: repos.NewStudentTokenRepo(db, log),
		Audit:        repos.NewAuditRepo(db, log),
		ExportRun:    repos.NewExportRunRepo(db, log),
	}
}
