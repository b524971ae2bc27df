package engine

import (
	"reflect"
	"strings"
	"testing"
)

func chainGraph() Graph {
	return Graph{
		Nodes: []Node{{ID: "a", Label: "A"}, {ID: "b", Label: "B"}, {ID: "c", Label: "C"}},
		Edges: []Edge{
			{Source: "a", Target: "b", Weight: 1.0},
			{Source: "b", Target: "c", Weight: 0.5},
		},
	}
}

func TestValidateGraphAcceptsDAG(t *testing.T) {
	v := ValidateGraph(chainGraph())
	if !v.Valid {
		t.Fatalf("expected valid graph, got errors: %v", v.Errors)
	}
	if v.CyclePath != nil {
		t.Fatalf("expected no cycle path, got %v", v.CyclePath)
	}
}

func TestValidateGraphRejections(t *testing.T) {
	tests := []struct {
		name    string
		graph   Graph
		wantErr string
	}{
		{
			name: "empty node id",
			graph: Graph{
				Nodes: []Node{{ID: ""}},
			},
			wantErr: "node id must not be empty",
		},
		{
			name: "duplicate node id",
			graph: Graph{
				Nodes: []Node{{ID: "a"}, {ID: "a"}},
			},
			wantErr: `duplicate node id "a"`,
		},
		{
			name: "self loop",
			graph: Graph{
				Nodes: []Node{{ID: "a"}},
				Edges: []Edge{{Source: "a", Target: "a", Weight: 0.5}},
			},
			wantErr: "self-loop",
		},
		{
			name: "dangling source",
			graph: Graph{
				Nodes: []Node{{ID: "a"}},
				Edges: []Edge{{Source: "ghost", Target: "a", Weight: 0.5}},
			},
			wantErr: `source node "ghost" does not exist`,
		},
		{
			name: "dangling target",
			graph: Graph{
				Nodes: []Node{{ID: "a"}},
				Edges: []Edge{{Source: "a", Target: "ghost", Weight: 0.5}},
			},
			wantErr: `target node "ghost" does not exist`,
		},
		{
			name: "weight out of range",
			graph: Graph{
				Nodes: []Node{{ID: "a"}, {ID: "b"}},
				Edges: []Edge{{Source: "a", Target: "b", Weight: 1.5}},
			},
			wantErr: "out of [0, 1]",
		},
		{
			name: "duplicate edge",
			graph: Graph{
				Nodes: []Node{{ID: "a"}, {ID: "b"}},
				Edges: []Edge{
					{Source: "a", Target: "b", Weight: 0.5},
					{Source: "a", Target: "b", Weight: 0.7},
				},
			},
			wantErr: "duplicate edge a -> b",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := ValidateGraph(tc.graph)
			if v.Valid {
				t.Fatal("expected invalid graph")
			}
			found := false
			for _, e := range v.Errors {
				if strings.Contains(e.Message, tc.wantErr) {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, v.Errors)
			}
		})
	}
}

func TestValidateGraphReportsCyclePath(t *testing.T) {
	g := Graph{
		Nodes: []Node{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		Edges: []Edge{
			{Source: "a", Target: "b", Weight: 0.5},
			{Source: "b", Target: "c", Weight: 0.5},
			{Source: "c", Target: "a", Weight: 0.5},
		},
	}
	v := ValidateGraph(g)
	if v.Valid {
		t.Fatal("expected cyclic graph to be invalid")
	}
	want := []string{"a", "b", "c", "a"}
	if !reflect.DeepEqual(v.CyclePath, want) {
		t.Fatalf("cycle path = %v, want %v", v.CyclePath, want)
	}
}

func TestTopologicalOrderDeterministic(t *testing.T) {
	g := Graph{
		Nodes: []Node{{ID: "z"}, {ID: "m"}, {ID: "a"}, {ID: "q"}},
		Edges: []Edge{
			{Source: "z", Target: "a", Weight: 0.5},
			{Source: "m", Target: "a", Weight: 0.5},
		},
	}
	first, err := TopologicalOrder(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Roots sort lexicographically; a waits for both parents.
	want := []string{"m", "q", "z", "a"}
	if !reflect.DeepEqual(first, want) {
		t.Fatalf("order = %v, want %v", first, want)
	}
	for i := 0; i < 10; i++ {
		again, err := TopologicalOrder(g)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(again, first) {
			t.Fatalf("order changed between runs: %v vs %v", again, first)
		}
	}
}

func TestTopologicalOrderCycleError(t *testing.T) {
	g := Graph{
		Nodes: []Node{{ID: "a"}, {ID: "b"}},
		Edges: []Edge{
			{Source: "a", Target: "b", Weight: 0.5},
			{Source: "b", Target: "a", Weight: 0.5},
		},
	}
	_, err := TopologicalOrder(g)
	cerr, ok := err.(*CycleError)
	if !ok {
		t.Fatalf("expected *CycleError, got %T: %v", err, err)
	}
	if len(cerr.Path) < 3 || cerr.Path[0] != cerr.Path[len(cerr.Path)-1] {
		t.Fatalf("cycle path should start and end at the same node, got %v", cerr.Path)
	}
}

func TestApplyPatchAddAndRemove(t *testing.T) {
	g := chainGraph()
	patched, v := ApplyPatch(g, GraphPatch{
		AddNodes: []Node{{ID: "d", Label: "D"}},
		AddEdges: []Edge{{Source: "c", Target: "d", Weight: 0.8}},
	})
	if !v.Valid {
		t.Fatalf("expected valid patch, got %v", v.Errors)
	}
	if !patched.HasNode("d") {
		t.Fatal("expected node d after patch")
	}
	if len(g.Edges) != 2 {
		t.Fatal("original graph mutated by patch")
	}

	patched, v = ApplyPatch(patched, GraphPatch{RemoveNodes: []string{"b"}})
	if !v.Valid {
		t.Fatalf("expected valid removal, got %v", v.Errors)
	}
	for _, e := range patched.Edges {
		if e.Source == "b" || e.Target == "b" {
			t.Fatalf("edge %s -> %s should have been cascaded away", e.Source, e.Target)
		}
	}
}

func TestApplyPatchRejectsCycle(t *testing.T) {
	g := chainGraph()
	_, v := ApplyPatch(g, GraphPatch{
		AddEdges: []Edge{{Source: "c", Target: "a", Weight: 0.5}},
	})
	if v.Valid {
		t.Fatal("expected patch introducing a cycle to be rejected")
	}
	if v.CyclePath == nil {
		t.Fatal("expected cycle path in validation result")
	}
}

func TestSynthesizeGraphIsolatedNodes(t *testing.T) {
	g := SynthesizeGraph([]string{"c2", "c1", "c1", "c3"})
	if len(g.Edges) != 0 {
		t.Fatalf("synthesized graph must have no edges, got %d", len(g.Edges))
	}
	if got, want := g.NodeIDs(), []string{"c1", "c2", "c3"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("node ids = %v, want %v", got, want)
	}
}

func TestExpandGraphAddsMissingConcepts(t *testing.T) {
	g := chainGraph()
	expanded := ExpandGraph(g, []string{"a", "c", "isolated"})
	if !expanded.HasNode("isolated") {
		t.Fatal("expected missing concept to be added as isolated node")
	}
	if len(expanded.Edges) != len(g.Edges) {
		t.Fatal("expansion must not change edges")
	}
}

func TestParseGraphRoundTrip(t *testing.T) {
	raw := []byte(`{"nodes":[{"id":"a","label":"A"}],"edges":[]}`)
	g, err := ParseGraph(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !g.HasNode("a") {
		t.Fatal("expected node a")
	}
	if _, err := ParseGraph([]byte("{not json")); err == nil {
		t.Fatal("expected parse error for malformed json")
	}
}
