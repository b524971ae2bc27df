package engine

import (
	"strings"
	"testing"
)

func TestValidateEdgeSuggestions(t *testing.T) {
	g := chainGraph()
	verdicts := ValidateEdgeSuggestions(&g, []EdgeSuggestion{
		{Source: "a", Target: "c", Weight: 0.5},   // ok
		{Source: "c", Target: "a", Weight: 0.5},   // cycle
		{Source: "a", Target: "b", Weight: 0.5},   // exists
		{Source: "a", Target: "a", Weight: 0.5},   // self loop
		{Source: "ghost", Target: "a", Weight: 1}, // unknown node
		{Source: "a", Target: "c", Weight: 2},     // bad weight
	})
	want := []struct {
		accepted bool
		reason   string
	}{
		{accepted: true},
		{reason: "cycle"},
		{reason: "already exists"},
		{reason: "self-loop"},
		{reason: "unknown concept"},
		{reason: "weight"},
	}
	for i, w := range want {
		v := verdicts[i]
		if v.Accepted != w.accepted {
			t.Fatalf("verdict %d accepted = %v, want %v (%+v)", i, v.Accepted, w.accepted, v)
		}
		if !w.accepted && !strings.Contains(v.Reason, w.reason) {
			t.Fatalf("verdict %d reason %q, want substring %q", i, v.Reason, w.reason)
		}
	}
}

func TestValidateEdgeSuggestionsAccumulate(t *testing.T) {
	// The second suggestion closes a cycle only through the first accepted
	// one, so it must be checked against the updated graph.
	g := SynthesizeGraph([]string{"x", "y", "z"})
	verdicts := ValidateEdgeSuggestions(&g, []EdgeSuggestion{
		{Source: "x", Target: "y", Weight: 0.5},
		{Source: "y", Target: "z", Weight: 0.5},
		{Source: "z", Target: "x", Weight: 0.5},
	})
	if !verdicts[0].Accepted || !verdicts[1].Accepted {
		t.Fatalf("first two suggestions should pass: %+v", verdicts)
	}
	if verdicts[2].Accepted {
		t.Fatal("closing edge should be rejected as a cycle")
	}
	if len(g.Edges) != 0 {
		t.Fatal("input graph must not be mutated")
	}
}

func TestValidateTagSuggestions(t *testing.T) {
	g := chainGraph()
	tagged := map[[2]string]bool{{"q1", "a"}: true}
	verdicts := ValidateTagSuggestions(&g, tagged, []TagSuggestion{
		{QuestionID: "q2", ConceptID: "b", Weight: 1},
		{QuestionID: "q1", ConceptID: "a", Weight: 1},
		{QuestionID: "q3", ConceptID: "nope", Weight: 1},
		{QuestionID: "q4", ConceptID: "a", Weight: -2},
		{QuestionID: "", ConceptID: "a", Weight: 1},
	})
	wantAccepted := []bool{true, false, false, false, false}
	for i, w := range wantAccepted {
		if verdicts[i].Accepted != w {
			t.Fatalf("verdict %d = %+v, want accepted=%v", i, verdicts[i], w)
		}
	}
}
