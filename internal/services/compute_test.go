package services

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/conceptlens/conceptlens-backend/internal/engine"
	"github.com/conceptlens/conceptlens-backend/internal/types"
)

// seedExam uploads a two-concept chain (a prerequisite of b) with one
// question per concept and a single student scoring 2/10 on a and 8/10 on b.
func seedExam(t *testing.T, env *testEnv) uuid.UUID {
	t.Helper()
	examID := env.newExam(t)
	ctx := context.Background()

	scores := "student_id,question_id,score,max_score\ns1,qa,2,10\ns1,qb,8,10\n"
	if _, err := env.uploadService().IngestScores(ctx, examID, strings.NewReader(scores), int64(len(scores))); err != nil {
		t.Fatalf("IngestScores: %v", err)
	}
	mapping := "question_id,concept_id,weight\nqa,a,1\nqb,b,1\n"
	if _, err := env.uploadService().IngestMapping(ctx, examID, strings.NewReader(mapping), int64(len(mapping))); err != nil {
		t.Fatalf("IngestMapping: %v", err)
	}
	g := engine.Graph{
		Nodes: []engine.Node{{ID: "a"}, {ID: "b"}},
		Edges: []engine.Edge{{Source: "a", Target: "b", Weight: 1}},
	}
	if _, err := env.graphService().Commit(ctx, examID, g, ""); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return examID
}

func runCompute(t *testing.T, env *testEnv, examID uuid.UUID) *types.ComputeRun {
	t.Helper()
	ctx := context.Background()
	svc := env.computeService()

	run, err := svc.Enqueue(ctx, examID)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := svc.Execute(ctx, run.ID); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	run, err = svc.RunStatus(ctx, run.ID)
	if err != nil {
		t.Fatalf("RunStatus: %v", err)
	}
	return run
}

func TestComputeEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	examID := seedExam(t, env)
	run := runCompute(t, env, examID)

	if run.Status != types.ComputeRunSucceeded {
		t.Fatalf("run status: want=%s got=%s (%s)", types.ComputeRunSucceeded, run.Status, run.ErrorMessage)
	}
	if run.StudentsProcessed != 1 || run.ConceptsProcessed != 2 {
		t.Fatalf("run counts: students=%d concepts=%d", run.StudentsProcessed, run.ConceptsProcessed)
	}
	if run.GraphVersion != 1 {
		t.Fatalf("run graph version: want=1 got=%d", run.GraphVersion)
	}

	view, err := env.resultService().ClassView(context.Background(), examID)
	if err != nil {
		t.Fatalf("ClassView: %v", err)
	}
	if len(view.Cells) != 2 {
		t.Fatalf("cells: want=2 got=%d", len(view.Cells))
	}
	byConcept := map[string]float64{}
	for _, cell := range view.Cells {
		byConcept[cell.ConceptID] = cell.FinalReadiness
	}
	// a: direct 0.2, boosted by b's 0.8 direct capped at 0.2: 0.2 + 0.2*0.2.
	if math.Abs(byConcept["a"]-0.24) > 1e-9 {
		t.Fatalf("final(a): want=0.24 got=%v", byConcept["a"])
	}
	// b: direct 0.8, penalized 0.3 * max(0, 0.6-0.2).
	if math.Abs(byConcept["b"]-0.68) > 1e-9 {
		t.Fatalf("final(b): want=0.68 got=%v", byConcept["b"])
	}
	if len(view.Aggregates) != 2 {
		t.Fatalf("aggregates: want=2 got=%d", len(view.Aggregates))
	}
}

func TestComputeWritesTraces(t *testing.T) {
	env := newTestEnv(t)
	examID := seedExam(t, env)
	runCompute(t, env, examID)

	raw, err := env.resultService().Trace(context.Background(), examID, "s1", "b")
	if err != nil {
		t.Fatalf("Trace: %v", err)
	}
	var trace engine.Trace
	if err := json.Unmarshal(raw, &trace); err != nil {
		t.Fatalf("unmarshal trace: %v", err)
	}
	if trace.ConceptID != "b" {
		t.Fatalf("trace concept: want=b got=%s", trace.ConceptID)
	}
	if len(trace.Penalties) != 1 {
		t.Fatalf("trace penalties: want=1 got=%d", len(trace.Penalties))
	}
	if math.Abs(trace.Final-0.68) > 1e-9 {
		t.Fatalf("trace final: want=0.68 got=%v", trace.Final)
	}
}

func TestComputeCreatesStudentTokens(t *testing.T) {
	env := newTestEnv(t)
	examID := seedExam(t, env)
	runCompute(t, env, examID)
	ctx := context.Background()

	tokens, err := env.token.ListByExam(ctx, nil, examID)
	if err != nil {
		t.Fatalf("ListByExam: %v", err)
	}
	if len(tokens) != 1 {
		t.Fatalf("tokens: want=1 got=%d", len(tokens))
	}

	view, err := env.resultService().StudentViewByToken(ctx, tokens[0].Token)
	if err != nil {
		t.Fatalf("StudentViewByToken: %v", err)
	}
	if view.StudentID != "s1" || len(view.Concepts) != 2 {
		t.Fatalf("token view: student=%s concepts=%d", view.StudentID, len(view.Concepts))
	}
}

func TestComputeClustersAndInterventions(t *testing.T) {
	env := newTestEnv(t)
	examID := seedExam(t, env)
	runCompute(t, env, examID)
	ctx := context.Background()

	clusters, err := env.resultService().Clusters(ctx, examID)
	if err != nil {
		t.Fatalf("Clusters: %v", err)
	}
	if len(clusters.Clusters) != 1 {
		t.Fatalf("clusters for one student: want=1 got=%d", len(clusters.Clusters))
	}
	if got := clusters.Assignments["s1"]; got != "cluster_1" {
		t.Fatalf("assignment: want=cluster_1 got=%q", got)
	}

	interventions, err := env.resultService().Interventions(ctx, examID)
	if err != nil {
		t.Fatalf("Interventions: %v", err)
	}
	// Only a is below the default 0.6 threshold.
	if len(interventions) != 1 {
		t.Fatalf("interventions: want=1 got=%d", len(interventions))
	}
	if interventions[0].ConceptID != "a" {
		t.Fatalf("intervention concept: want=a got=%s", interventions[0].ConceptID)
	}
	if interventions[0].SuggestedFormat != "one-on-one tutoring" {
		t.Fatalf("format: want=one-on-one tutoring got=%q", interventions[0].SuggestedFormat)
	}
}

func TestComputePreconditions(t *testing.T) {
	env := newTestEnv(t)
	examID := env.newExam(t)
	svc := env.computeService()
	ctx := context.Background()

	if _, err := svc.Enqueue(ctx, examID); !errors.Is(err, ErrNoScores) {
		t.Fatalf("expected ErrNoScores, got=%v", err)
	}

	seeded := seedExam(t, env)
	if _, err := svc.Enqueue(ctx, seeded); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := svc.Enqueue(ctx, seeded); !errors.Is(err, ErrRunInFlight) {
		t.Fatalf("expected ErrRunInFlight, got=%v", err)
	}
}

func TestComputeRerunReplacesResults(t *testing.T) {
	env := newTestEnv(t)
	examID := seedExam(t, env)
	runCompute(t, env, examID)
	runCompute(t, env, examID)

	view, err := env.resultService().ClassView(context.Background(), examID)
	if err != nil {
		t.Fatalf("ClassView: %v", err)
	}
	if len(view.Cells) != 2 {
		t.Fatalf("cells after rerun: want=2 got=%d", len(view.Cells))
	}
}
