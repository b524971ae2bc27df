package services

import (
	"context"
	"errors"
	"testing"

	"github.com/conceptlens/conceptlens-backend/internal/engine"
	"github.com/conceptlens/conceptlens-backend/internal/repos"
)

func chain() engine.Graph {
	return engine.Graph{
		Nodes: []engine.Node{{ID: "a", Label: "A"}, {ID: "b", Label: "B"}},
		Edges: []engine.Edge{{Source: "a", Target: "b", Weight: 1}},
	}
}

func TestGraphCommitAndHead(t *testing.T) {
	env := newTestEnv(t)
	examID := env.newExam(t)
	svc := env.graphService()
	ctx := context.Background()

	version, err := svc.Commit(ctx, examID, chain(), "initial")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if version != 1 {
		t.Fatalf("first version: want=1 got=%d", version)
	}

	head, headVersion, err := svc.GetHead(ctx, examID)
	if err != nil {
		t.Fatalf("GetHead: %v", err)
	}
	if headVersion != 1 || len(head.Nodes) != 2 || len(head.Edges) != 1 {
		t.Fatalf("head mismatch: version=%d nodes=%d edges=%d", headVersion, len(head.Nodes), len(head.Edges))
	}
}

func TestGraphCommitRejectsCycle(t *testing.T) {
	env := newTestEnv(t)
	examID := env.newExam(t)
	svc := env.graphService()

	g := chain()
	g.Edges = append(g.Edges, engine.Edge{Source: "b", Target: "a", Weight: 1})
	_, err := svc.Commit(context.Background(), examID, g, "")

	var rejected *GraphRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected GraphRejectedError, got=%v", err)
	}
	if len(rejected.Validation.CyclePath) == 0 {
		t.Fatalf("expected cycle path in rejection: %+v", rejected.Validation)
	}

	// Nothing was stored.
	if _, _, err := svc.GetHead(context.Background(), examID); !errors.Is(err, repos.ErrNotFound) {
		t.Fatalf("expected no head after rejection, got err=%v", err)
	}
}

func TestGraphPatchCreatesNewVersion(t *testing.T) {
	env := newTestEnv(t)
	examID := env.newExam(t)
	svc := env.graphService()
	ctx := context.Background()

	if _, err := svc.Commit(ctx, examID, chain(), ""); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	patch := engine.GraphPatch{
		AddNodes: []engine.Node{{ID: "c", Label: "C"}},
		AddEdges: []engine.Edge{{Source: "b", Target: "c", Weight: 0.5}},
	}
	version, err := svc.ApplyPatch(ctx, examID, patch, "add c")
	if err != nil {
		t.Fatalf("ApplyPatch: %v", err)
	}
	if version != 2 {
		t.Fatalf("patched version: want=2 got=%d", version)
	}

	head, _, err := svc.GetHead(ctx, examID)
	if err != nil {
		t.Fatalf("GetHead: %v", err)
	}
	if len(head.Nodes) != 3 || len(head.Edges) != 2 {
		t.Fatalf("patched head: nodes=%d edges=%d", len(head.Nodes), len(head.Edges))
	}
}

func TestGraphRevertIsANewHead(t *testing.T) {
	env := newTestEnv(t)
	examID := env.newExam(t)
	svc := env.graphService()
	ctx := context.Background()

	if _, err := svc.Commit(ctx, examID, chain(), "v1"); err != nil {
		t.Fatalf("Commit v1: %v", err)
	}
	patch := engine.GraphPatch{AddNodes: []engine.Node{{ID: "c"}}}
	if _, err := svc.ApplyPatch(ctx, examID, patch, "v2"); err != nil {
		t.Fatalf("ApplyPatch: %v", err)
	}

	version, err := svc.Revert(ctx, examID, 1)
	if err != nil {
		t.Fatalf("Revert: %v", err)
	}
	if version != 3 {
		t.Fatalf("revert version: want=3 got=%d", version)
	}

	head, headVersion, err := svc.GetHead(ctx, examID)
	if err != nil {
		t.Fatalf("GetHead: %v", err)
	}
	if headVersion != 3 || len(head.Nodes) != 2 {
		t.Fatalf("reverted head: version=%d nodes=%d", headVersion, len(head.Nodes))
	}

	versions, err := svc.ListVersions(ctx, examID)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("history length: want=3 got=%d", len(versions))
	}
}

func TestGraphEnsureGraphSynthesizesWhenMissing(t *testing.T) {
	env := newTestEnv(t)
	examID := env.newExam(t)
	svc := env.graphService()

	g, version, err := svc.EnsureGraph(context.Background(), nil, examID, []string{"b", "a", "a"})
	if err != nil {
		t.Fatalf("EnsureGraph: %v", err)
	}
	if version != 0 {
		t.Fatalf("synthesized version: want=0 got=%d", version)
	}
	if len(g.Nodes) != 2 || len(g.Edges) != 0 {
		t.Fatalf("synthesized graph: nodes=%d edges=%d", len(g.Nodes), len(g.Edges))
	}
	if g.Nodes[0].ID != "a" || g.Nodes[1].ID != "b" {
		t.Fatalf("synthesized nodes not sorted: %+v", g.Nodes)
	}
}

func TestGraphValidateEdgeSuggestions(t *testing.T) {
	env := newTestEnv(t)
	examID := env.newExam(t)
	svc := env.graphService()
	ctx := context.Background()

	if _, err := svc.Commit(ctx, examID, chain(), ""); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	verdicts, err := svc.ValidateEdgeSuggestions(ctx, examID, []engine.EdgeSuggestion{
		{Source: "b", Target: "a", Weight: 1},
		{Source: "a", Target: "b", Weight: 1},
	})
	if err != nil {
		t.Fatalf("ValidateEdgeSuggestions: %v", err)
	}
	if verdicts[0].Accepted {
		t.Fatalf("cycle-creating suggestion should be rejected")
	}
	if verdicts[1].Accepted {
		t.Fatalf("duplicate edge suggestion should be rejected")
	}
}
