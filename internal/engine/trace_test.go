package engine

import (
	"context"
	"testing"
)

func TestBuildTraceMatchesComputedResult(t *testing.T) {
	g, ev := twoConceptFixture(2, 8)
	p := DefaultParams()
	out, err := Compute(context.Background(), g, ev, p)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	sr := out.Students[0]

	tr := BuildTrace(g, ev, p, "s1", "b", sr)
	if tr == nil {
		t.Fatal("expected trace for b")
	}
	if tr.Final != sr.Concepts["b"].Final {
		t.Fatalf("trace final %v != stored final %v", tr.Final, sr.Concepts["b"].Final)
	}
	if len(tr.Evidence) != 1 || tr.Evidence[0].QuestionID != "qb" {
		t.Fatalf("evidence = %+v", tr.Evidence)
	}
	if len(tr.Penalties) != 1 {
		t.Fatalf("expected one penalty contribution, got %d", len(tr.Penalties))
	}
	pen := tr.Penalties[0]
	if pen.Source != "a" || !almostEqual(pen.Delta, -p.Beta*1.0*(p.Threshold-0.2)) {
		t.Fatalf("penalty contribution = %+v", pen)
	}
	// Waterfall parts must sum to the pre-clamp total.
	sum := tr.DirectTerm
	for _, c := range tr.Penalties {
		sum += c.Delta
	}
	for _, c := range tr.Boosts {
		sum += c.Delta
	}
	if !almostEqual(sum, tr.PreClamp) {
		t.Fatalf("waterfall sum %v != pre-clamp %v", sum, tr.PreClamp)
	}
}

func TestBuildTraceBoostCapScalesParts(t *testing.T) {
	g, ev := twoConceptFixture(2, 8)
	p := DefaultParams()
	out, err := Compute(context.Background(), g, ev, p)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	sr := out.Students[0]

	// Raw boost on a is 0.32 which exceeds the 0.2 cap.
	tr := BuildTrace(g, ev, p, "s1", "a", sr)
	if !tr.BoostCapped {
		t.Fatal("expected boost cap to be flagged")
	}
	var boostSum float64
	for _, c := range tr.Boosts {
		boostSum += c.Delta
	}
	if !almostEqual(boostSum, p.Gamma*0.2) {
		t.Fatalf("scaled boost deltas sum to %v, want %v", boostSum, p.Gamma*0.2)
	}
	sum := tr.DirectTerm + boostSum
	for _, c := range tr.Penalties {
		sum += c.Delta
	}
	if !almostEqual(sum, tr.PreClamp) {
		t.Fatalf("waterfall sum %v != pre-clamp %v", sum, tr.PreClamp)
	}
}

func TestBuildTraceNullDirect(t *testing.T) {
	g := SynthesizeGraph([]string{"a"})
	ev := BuildEvidence(nil, []MappingRecord{{Row: 2, QuestionID: "q1", ConceptID: "a", Weight: 1}})
	ev.Students = []string{"s1"}
	sr := StudentResult{StudentID: "s1", Concepts: map[string]*ConceptResult{
		"a": {ConceptID: "a", Confidence: ConfidenceLow},
	}}

	tr := BuildTrace(&g, ev, DefaultParams(), "s1", "a", sr)
	if tr.Direct != nil {
		t.Fatalf("direct should be null, got %v", *tr.Direct)
	}
	if tr.DirectTerm != 0 || len(tr.Evidence) != 0 {
		t.Fatalf("null direct must contribute nothing: %+v", tr)
	}
	if tr.Confidence != ConfidenceLow {
		t.Fatalf("confidence = %q", tr.Confidence)
	}
}

func TestBuildTraceUnknownConcept(t *testing.T) {
	g, ev := twoConceptFixture(2, 8)
	out, err := Compute(context.Background(), g, ev, DefaultParams())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if tr := BuildTrace(g, ev, DefaultParams(), "s1", "ghost", out.Students[0]); tr != nil {
		t.Fatalf("expected nil trace for unknown concept, got %+v", tr)
	}
}
