package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/conceptlens/conceptlens-backend/internal/engine"
	"github.com/conceptlens/conceptlens-backend/internal/logger"
	"github.com/conceptlens/conceptlens-backend/internal/repos"
	"github.com/conceptlens/conceptlens-backend/internal/types"
)

// ParamsRejectedError carries per-field violations for a rejected update.
type ParamsRejectedError struct {
	Errors []engine.ValidationError
}

func (e *ParamsRejectedError) Error() string {
	return "parameters out of range"
}

type ParameterService interface {
	Get(ctx context.Context, examID uuid.UUID) (engine.Params, error)
	Update(ctx context.Context, examID uuid.UUID, p engine.Params) (engine.Params, error)
}

type parameterService struct {
	log       *logger.Logger
	paramRepo repos.ParameterRepo
	auditRepo repos.AuditRepo
}

func NewParameterService(paramRepo repos.ParameterRepo, auditRepo repos.AuditRepo, baseLog *logger.Logger) ParameterService {
	return &parameterService{
		log:       baseLog.With("service", "ParameterService"),
		paramRepo: paramRepo,
		auditRepo: auditRepo,
	}
}

// Get returns the exam's parameter set, falling back to defaults when the
// instructor never tuned anything.
func (ps *parameterService) Get(ctx context.Context, examID uuid.UUID) (engine.Params, error) {
	row, err := ps.paramRepo.GetByExam(ctx, nil, examID)
	if errors.Is(err, repos.ErrNotFound) {
		return engine.DefaultParams(), nil
	}
	if err != nil {
		return engine.Params{}, err
	}
	return engine.Params{
		Alpha:     row.Alpha,
		Beta:      row.Beta,
		Gamma:     row.Gamma,
		Threshold: row.Threshold,
		K:         row.K,
	}, nil
}

func (ps *parameterService) Update(ctx context.Context, examID uuid.UUID, p engine.Params) (engine.Params, error) {
	if errs := p.Validate(); len(errs) > 0 {
		return engine.Params{}, &ParamsRejectedError{Errors: errs}
	}
	row := &types.Parameter{
		ExamID:    examID,
		Alpha:     p.Alpha,
		Beta:      p.Beta,
		Gamma:     p.Gamma,
		Threshold: p.Threshold,
		K:         p.K,
	}
	if _, err := ps.paramRepo.Upsert(ctx, nil, row); err != nil {
		return engine.Params{}, err
	}

	entry := &types.AuditLog{
		ExamID:     &examID,
		Actor:      "instructor",
		Action:     "parameters.update",
		EntityType: "parameter",
		EntityID:   examID.String(),
	}
	if err := ps.auditRepo.Record(ctx, nil, entry); err != nil {
		ps.log.Warn("Failed to write audit entry", "action", "parameters.update", "error", err)
	}
	return p, nil
}
