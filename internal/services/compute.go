package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	redisclient "github.com/conceptlens/conceptlens-backend/internal/clients/redis"
	"github.com/conceptlens/conceptlens-backend/internal/engine"
	"github.com/conceptlens/conceptlens-backend/internal/logger"
	"github.com/conceptlens/conceptlens-backend/internal/repos"
	"github.com/conceptlens/conceptlens-backend/internal/types"
)

var (
	ErrNoScores    = errors.New("exam has no uploaded scores")
	ErrRunInFlight = errors.New("a compute run is already queued or running for this exam")
)

type ComputeService interface {
	Enqueue(ctx context.Context, examID uuid.UUID) (*types.ComputeRun, error)
	Execute(ctx context.Context, runID uuid.UUID) error
	RunStatus(ctx context.Context, runID uuid.UUID) (*types.ComputeRun, error)
	LatestRun(ctx context.Context, examID uuid.UUID) (*types.ComputeRun, error)
}

type computeService struct {
	log          *logger.Logger
	db           *gorm.DB
	scoreRepo    repos.ScoreRepo
	questionRepo repos.QuestionRepo
	mappingRepo  repos.MappingRepo
	runRepo      repos.ComputeRunRepo
	resultRepo   repos.ResultRepo
	tokenRepo    repos.StudentTokenRepo
	auditRepo    repos.AuditRepo
	paramSvc     ParameterService
	graphSvc     GraphService
	queue        redisclient.ComputeQueue
	templates    engine.InterventionTemplates
}

func NewComputeService(
	db *gorm.DB,
	scoreRepo repos.ScoreRepo,
	questionRepo repos.QuestionRepo,
	mappingRepo repos.MappingRepo,
	runRepo repos.ComputeRunRepo,
	resultRepo repos.ResultRepo,
	tokenRepo repos.StudentTokenRepo,
	auditRepo repos.AuditRepo,
	paramSvc ParameterService,
	graphSvc GraphService,
	queue redisclient.ComputeQueue,
	templates engine.InterventionTemplates,
	baseLog *logger.Logger,
) ComputeService {
	return &computeService{
		log:          baseLog.With("service", "ComputeService"),
		db:           db,
		scoreRepo:    scoreRepo,
		questionRepo: questionRepo,
		mappingRepo:  mappingRepo,
		runRepo:      runRepo,
		resultRepo:   resultRepo,
		tokenRepo:    tokenRepo,
		auditRepo:    auditRepo,
		paramSvc:     paramSvc,
		graphSvc:     graphSvc,
		queue:        queue,
		templates:    templates,
	}
}

// Enqueue validates preconditions and creates a queued run. At most one run
// per exam is in flight at a time; a second request while one is pending is
// rejected rather than coalesced.
func (cs *computeService) Enqueue(ctx context.Context, examID uuid.UUID) (*types.ComputeRun, error) {
	count, err := cs.scoreRepo.CountByExam(ctx, nil, examID)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNoScores
	}

	active, err := cs.runRepo.HasActiveRun(ctx, nil, examID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, ErrRunInFlight
	}

	params, err := cs.paramSvc.Get(ctx, examID)
	if err != nil {
		return nil, err
	}
	paramsRaw, _ := json.Marshal(params)

	run := &types.ComputeRun{
		ExamID:         examID,
		Status:         types.ComputeRunQueued,
		ParametersJSON: paramsRaw,
	}
	if _, err := cs.runRepo.Create(ctx, nil, run); err != nil {
		return nil, err
	}

	if cs.queue != nil {
		msg := redisclient.WakeMessage{RunID: run.ID, ExamID: examID}
		if err := cs.queue.NotifyEnqueued(ctx, msg); err != nil {
			// The worker polls the table anyway, so the run still executes.
			cs.log.Warn("Failed to publish compute wake-up", "run_id", run.ID.String(), "error", err)
		}
	}

	cs.log.Info("Compute run enqueued", "exam_id", examID.String(), "run_id", run.ID.String())
	return run, nil
}

// Execute runs the full pipeline for a claimed run and persists the results
// wholesale. The run row records status, timing and failure detail.
func (cs *computeService) Execute(ctx context.Context, runID uuid.UUID) error {
	run, err := cs.runRepo.GetByID(ctx, nil, runID)
	if err != nil {
		return err
	}
	if run.Status == types.ComputeRunQueued {
		run.Status = types.ComputeRunRunning
		if err := cs.runRepo.Update(ctx, nil, run); err != nil {
			return err
		}
	}

	started := time.Now()
	output, err := cs.execute(ctx, run)
	elapsed := time.Since(started)

	now := time.Now().UTC()
	run.DurationMs = float64(elapsed.Milliseconds())
	run.CompletedAt = &now
	if err != nil {
		run.Status = types.ComputeRunFailed
		run.ErrorMessage = err.Error()
		cs.log.Error("Compute run failed", "run_id", run.ID.String(), "error", err)
	} else {
		run.Status = types.ComputeRunSucceeded
		run.StudentsProcessed = len(output.Students)
		run.ConceptsProcessed = len(output.Order)
		cs.log.Info("Compute run succeeded",
			"run_id", run.ID.String(),
			"students", len(output.Students),
			"concepts", len(output.Order),
			"duration_ms", run.DurationMs)
	}
	if uerr := cs.runRepo.Update(ctx, nil, run); uerr != nil {
		return uerr
	}
	return err
}

func (cs *computeService) execute(ctx context.Context, run *types.ComputeRun) (*engine.ComputeOutput, error) {
	examID := run.ExamID

	ev, err := cs.loadEvidence(ctx, examID)
	if err != nil {
		return nil, err
	}
	if len(ev.Students) == 0 {
		return nil, ErrNoScores
	}

	params := engine.DefaultParams()
	if len(run.ParametersJSON) > 0 {
		if perr := json.Unmarshal(run.ParametersJSON, &params); perr != nil {
			return nil, fmt.Errorf("run parameters are unreadable: %w", perr)
		}
	}

	graph, graphVersion, err := cs.graphSvc.EnsureGraph(ctx, nil, examID, ev.Concepts())
	if err != nil {
		return nil, err
	}
	run.GraphVersion = graphVersion

	output, err := engine.Compute(ctx, graph, ev, params)
	if err != nil {
		return nil, err
	}

	batch, err := cs.buildBatch(examID, run.ID, graph, ev, params, output)
	if err != nil {
		return nil, err
	}

	err = cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := cs.resultRepo.ReplaceForExam(ctx, tx, examID, batch); err != nil {
			return err
		}
		return cs.tokenRepo.EnsureForStudents(ctx, tx, examID, ev.Students)
	})
	if err != nil {
		return nil, err
	}

	entry := &types.AuditLog{
		ExamID:     &examID,
		Actor:      "system",
		Action:     "compute.run",
		EntityType: "compute_run",
		EntityID:   run.ID.String(),
	}
	if aerr := cs.auditRepo.Record(ctx, nil, entry); aerr != nil {
		cs.log.Warn("Failed to write audit entry", "action", "compute.run", "error", aerr)
	}
	return output, nil
}

// loadEvidence reconstitutes engine records from the persisted scores,
// questions and mappings.
func (cs *computeService) loadEvidence(ctx context.Context, examID uuid.UUID) (engine.Evidence, error) {
	questions, err := cs.questionRepo.GetByExam(ctx, nil, examID)
	if err != nil {
		return engine.Evidence{}, err
	}
	externalByID := make(map[uuid.UUID]string, len(questions))
	maxByID := make(map[uuid.UUID]float64, len(questions))
	ids := make([]uuid.UUID, 0, len(questions))
	for _, q := range questions {
		externalByID[q.ID] = q.QuestionIDExternal
		maxByID[q.ID] = q.MaxScore
		ids = append(ids, q.ID)
	}

	scores, err := cs.scoreRepo.GetByExam(ctx, nil, examID)
	if err != nil {
		return engine.Evidence{}, err
	}
	scoreRecords := make([]engine.ScoreRecord, 0, len(scores))
	for _, s := range scores {
		qid, ok := externalByID[s.QuestionID]
		if !ok {
			continue
		}
		scoreRecords = append(scoreRecords, engine.ScoreRecord{
			StudentID:  s.StudentIDExternal,
			QuestionID: qid,
			Score:      s.Score,
			MaxScore:   maxByID[s.QuestionID],
		})
	}

	mappings, err := cs.mappingRepo.GetByQuestionIDs(ctx, nil, ids)
	if err != nil {
		return engine.Evidence{}, err
	}
	mappingRecords := make([]engine.MappingRecord, 0, len(mappings))
	for _, m := range mappings {
		qid, ok := externalByID[m.QuestionID]
		if !ok {
			continue
		}
		mappingRecords = append(mappingRecords, engine.MappingRecord{
			QuestionID: qid,
			ConceptID:  m.ConceptID,
			Weight:     m.Weight,
		})
	}

	return engine.BuildEvidence(scoreRecords, mappingRecords), nil
}

// buildBatch converts engine output into the persistence batch: per-student
// results with embedded traces, class aggregates, clusters with assignments,
// and ranked interventions.
func (cs *computeService) buildBatch(examID, runID uuid.UUID, graph *engine.Graph, ev engine.Evidence, params engine.Params, output *engine.ComputeOutput) (repos.ResultBatch, error) {
	var batch repos.ResultBatch

	for _, sr := range output.Students {
		for _, cid := range output.Order {
			cr := sr.Concepts[cid]
			if cr == nil {
				continue
			}
			trace := engine.BuildTrace(graph, ev, params, sr.StudentID, cid, sr)
			traceRaw, err := json.Marshal(trace)
			if err != nil {
				return batch, err
			}
			batch.Results = append(batch.Results, &types.ReadinessResult{
				ExamID:               examID,
				RunID:                runID,
				StudentIDExternal:    sr.StudentID,
				ConceptID:            cid,
				DirectReadiness:      cr.Direct,
				PrerequisitePenalty:  cr.PrerequisitePenalty,
				DownstreamBoost:      cr.DownstreamBoost,
				FinalReadiness:       cr.Final,
				Confidence:           cr.Confidence,
				ExplanationTraceJSON: traceRaw,
			})
		}
	}

	for _, agg := range engine.Aggregate(output, params.Threshold) {
		batch.Aggregates = append(batch.Aggregates, &types.ClassAggregate{
			ExamID:              examID,
			RunID:               runID,
			ConceptID:           agg.ConceptID,
			MeanReadiness:       agg.Mean,
			MedianReadiness:     agg.Median,
			StdReadiness:        agg.Std,
			BelowThresholdCount: agg.BelowThresholdCount,
		})
	}

	clusterOut := engine.Cluster(output, params.K)
	clusterIDs := make(map[string]uuid.UUID, len(clusterOut.Clusters))
	for _, c := range clusterOut.Clusters {
		centroidRaw, err := json.Marshal(c.Centroid)
		if err != nil {
			return batch, err
		}
		weakRaw, err := json.Marshal(c.TopWeakConcepts)
		if err != nil {
			return batch, err
		}
		row := &types.Cluster{
			ID:                  uuid.New(),
			ExamID:              examID,
			RunID:               runID,
			ClusterLabel:        c.Label,
			StudentCount:        c.StudentCount,
			CentroidJSON:        centroidRaw,
			TopWeakConceptsJSON: weakRaw,
		}
		clusterIDs[c.Label] = row.ID
		batch.Clusters = append(batch.Clusters, row)
	}
	for _, sid := range ev.Students {
		label, ok := clusterOut.Assignments[sid]
		if !ok {
			continue
		}
		batch.Assignments = append(batch.Assignments, &types.ClusterAssignment{
			ExamID:            examID,
			StudentIDExternal: sid,
			ClusterID:         clusterIDs[label],
		})
	}

	for _, iv := range engine.RankInterventions(graph, output, params.Threshold, cs.templates) {
		batch.Interventions = append(batch.Interventions, &types.InterventionResult{
			ExamID:             examID,
			RunID:              runID,
			ConceptID:          iv.ConceptID,
			StudentsAffected:   iv.StudentsAffected,
			DownstreamConcepts: iv.DownstreamConcepts,
			CurrentReadiness:   iv.CurrentReadiness,
			Impact:             iv.Impact,
			Rationale:          iv.Rationale,
			SuggestedFormat:    iv.SuggestedFormat,
		})
	}

	return batch, nil
}

func (cs *computeService) RunStatus(ctx context.Context, runID uuid.UUID) (*types.ComputeRun, error) {
	return cs.runRepo.GetByID(ctx, nil, runID)
}

func (cs *computeService) LatestRun(ctx context.Context, examID uuid.UUID) (*types.ComputeRun, error) {
	return cs.runRepo.GetLatestByExam(ctx, nil, examID)
}
