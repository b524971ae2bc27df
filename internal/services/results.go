package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/conceptlens/conceptlens-backend/internal/logger"
	"github.com/conceptlens/conceptlens-backend/internal/repos"
	"github.com/conceptlens/conceptlens-backend/internal/types"
)

// HeatmapCell is one (student, concept) entry of the class view.
type HeatmapCell struct {
	StudentID       string   `json:"student_id"`
	ConceptID       string   `json:"concept_id"`
	FinalReadiness  float64  `json:"final_readiness"`
	DirectReadiness *float64 `json:"direct_readiness"`
	Confidence      string   `json:"confidence"`
}

// ClassView is the instructor dashboard payload.
type ClassView struct {
	Cells      []HeatmapCell           `json:"cells"`
	Aggregates []*types.ClassAggregate `json:"aggregates"`
}

// StudentView is one student's full result set with traces.
type StudentView struct {
	StudentID string                   `json:"student_id"`
	Concepts  []*types.ReadinessResult `json:"concepts"`
}

// ClusterView pairs the stored clusters with their member assignments.
type ClusterView struct {
	Clusters    []*types.Cluster  `json:"clusters"`
	Assignments map[string]string `json:"assignments"`
}

type ResultService interface {
	ClassView(ctx context.Context, examID uuid.UUID) (*ClassView, error)
	StudentView(ctx context.Context, examID uuid.UUID, studentID string) (*StudentView, error)
	StudentViewByToken(ctx context.Context, token uuid.UUID) (*StudentView, error)
	Trace(ctx context.Context, examID uuid.UUID, studentID, conceptID string) (json.RawMessage, error)
	Clusters(ctx context.Context, examID uuid.UUID) (*ClusterView, error)
	Interventions(ctx context.Context, examID uuid.UUID) ([]*types.InterventionResult, error)
	AuditTrail(ctx context.Context, examID uuid.UUID, limit int) ([]*types.AuditLog, error)
}

type resultService struct {
	log        *logger.Logger
	resultRepo repos.ResultRepo
	tokenRepo  repos.StudentTokenRepo
	auditRepo  repos.AuditRepo
}

func NewResultService(resultRepo repos.ResultRepo, tokenRepo repos.StudentTokenRepo, auditRepo repos.AuditRepo, baseLog *logger.Logger) ResultService {
	return &resultService{
		log:        baseLog.With("service", "ResultService"),
		resultRepo: resultRepo,
		tokenRepo:  tokenRepo,
		auditRepo:  auditRepo,
	}
}

func (rs *resultService) ClassView(ctx context.Context, examID uuid.UUID) (*ClassView, error) {
	results, err := rs.resultRepo.GetByExam(ctx, nil, examID)
	if err != nil {
		return nil, err
	}
	aggregates, err := rs.resultRepo.GetAggregates(ctx, nil, examID)
	if err != nil {
		return nil, err
	}
	cells := make([]HeatmapCell, 0, len(results))
	for _, r := range results {
		cells = append(cells, HeatmapCell{
			StudentID:       r.StudentIDExternal,
			ConceptID:       r.ConceptID,
			FinalReadiness:  r.FinalReadiness,
			DirectReadiness: r.DirectReadiness,
			Confidence:      r.Confidence,
		})
	}
	return &ClassView{Cells: cells, Aggregates: aggregates}, nil
}

func (rs *resultService) StudentView(ctx context.Context, examID uuid.UUID, studentID string) (*StudentView, error) {
	results, err := rs.resultRepo.GetByStudent(ctx, nil, examID, studentID)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, repos.ErrNotFound
	}
	return &StudentView{StudentID: studentID, Concepts: results}, nil
}

// StudentViewByToken resolves a shared report link. The token embeds no
// student data; it is a random uuid minted at compute time.
func (rs *resultService) StudentViewByToken(ctx context.Context, token uuid.UUID) (*StudentView, error) {
	st, err := rs.tokenRepo.GetByToken(ctx, nil, token)
	if err != nil {
		return nil, err
	}
	return rs.StudentView(ctx, st.ExamID, st.StudentIDExternal)
}

func (rs *resultService) Trace(ctx context.Context, examID uuid.UUID, studentID, conceptID string) (json.RawMessage, error) {
	result, err := rs.resultRepo.GetOne(ctx, nil, examID, studentID, conceptID)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(result.ExplanationTraceJSON), nil
}

func (rs *resultService) Clusters(ctx context.Context, examID uuid.UUID) (*ClusterView, error) {
	clusters, err := rs.resultRepo.GetClusters(ctx, nil, examID)
	if err != nil {
		return nil, err
	}
	assignments, err := rs.resultRepo.GetAssignments(ctx, nil, examID)
	if err != nil {
		return nil, err
	}
	labelByID := make(map[uuid.UUID]string, len(clusters))
	for _, c := range clusters {
		labelByID[c.ID] = c.ClusterLabel
	}
	byStudent := make(map[string]string, len(assignments))
	for _, a := range assignments {
		byStudent[a.StudentIDExternal] = labelByID[a.ClusterID]
	}
	return &ClusterView{Clusters: clusters, Assignments: byStudent}, nil
}

func (rs *resultService) Interventions(ctx context.Context, examID uuid.UUID) ([]*types.InterventionResult, error) {
	return rs.resultRepo.GetInterventions(ctx, nil, examID)
}

func (rs *resultService) AuditTrail(ctx context.Context, examID uuid.UUID, limit int) ([]*types.AuditLog, error) {
	return rs.auditRepo.ListByExam(ctx, nil, examID, limit)
}
