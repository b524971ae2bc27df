package engine

import (
	"context"
	"math"
	"reflect"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// one student, two questions, a -> b with full weight.
func twoConceptFixture(scoreA, scoreB float64) (*Graph, Evidence) {
	g := &Graph{
		Nodes: []Node{{ID: "a", Label: "A"}, {ID: "b", Label: "B"}},
		Edges: []Edge{{Source: "a", Target: "b", Weight: 1.0}},
	}
	scores := []ScoreRecord{
		{Row: 2, StudentID: "s1", QuestionID: "qa", Score: scoreA, MaxScore: 10},
		{Row: 3, StudentID: "s1", QuestionID: "qb", Score: scoreB, MaxScore: 10},
	}
	mappings := []MappingRecord{
		{Row: 2, QuestionID: "qa", ConceptID: "a", Weight: 1},
		{Row: 3, QuestionID: "qb", ConceptID: "b", Weight: 1},
	}
	return g, BuildEvidence(scores, mappings)
}

func TestComputeFourStages(t *testing.T) {
	g, ev := twoConceptFixture(2, 8)
	out, err := Compute(context.Background(), g, ev, DefaultParams())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(out.Students) != 1 {
		t.Fatalf("expected one student, got %d", len(out.Students))
	}
	res := out.Students[0].Concepts

	a := res["a"]
	if a.Direct == nil || !almostEqual(*a.Direct, 0.2) {
		t.Fatalf("direct(a) = %v, want 0.2", a.Direct)
	}
	// Child b has direct 0.8; raw boost 1.0*0.4*0.8 = 0.32 caps at 0.2.
	if !almostEqual(a.DownstreamBoost, 0.2) {
		t.Fatalf("boost(a) = %v, want capped 0.2", a.DownstreamBoost)
	}
	if !almostEqual(a.Final, 0.24) {
		t.Fatalf("final(a) = %v, want 0.24", a.Final)
	}

	b := res["b"]
	if b.Direct == nil || !almostEqual(*b.Direct, 0.8) {
		t.Fatalf("direct(b) = %v, want 0.8", b.Direct)
	}
	// Parent a sits 0.4 below threshold with edge weight 1.
	if !almostEqual(b.PrerequisitePenalty, 0.4) {
		t.Fatalf("penalty(b) = %v, want 0.4", b.PrerequisitePenalty)
	}
	if !almostEqual(b.Final, 0.68) {
		t.Fatalf("final(b) = %v, want 0.68", b.Final)
	}
}

func TestComputeNullParentContributesNoPenalty(t *testing.T) {
	g := &Graph{
		Nodes: []Node{{ID: "a"}, {ID: "b"}},
		Edges: []Edge{{Source: "a", Target: "b", Weight: 1.0}},
	}
	// Nothing tagged to a, so its direct is null and b must see no gap.
	scores := []ScoreRecord{{Row: 2, StudentID: "s1", QuestionID: "qb", Score: 8, MaxScore: 10}}
	mappings := []MappingRecord{{Row: 2, QuestionID: "qb", ConceptID: "b", Weight: 1}}
	ev := BuildEvidence(scores, mappings)

	out, err := Compute(context.Background(), g, ev, DefaultParams())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	res := out.Students[0].Concepts
	if res["a"].Direct != nil {
		t.Fatalf("direct(a) should be null, got %v", *res["a"].Direct)
	}
	// Propagation-only score for a: gamma * min(0.4*0.8, 0.2).
	if !almostEqual(res["a"].Final, 0.04) {
		t.Fatalf("final(a) = %v, want 0.04", res["a"].Final)
	}
	if !almostEqual(res["a"].DownstreamBoost, 0.2) {
		t.Fatalf("boost(a) = %v, want 0.2", res["a"].DownstreamBoost)
	}
	if res["b"].PrerequisitePenalty != 0 {
		t.Fatalf("penalty(b) = %v, want 0 for evidence-free parent", res["b"].PrerequisitePenalty)
	}
	if !almostEqual(res["b"].Final, 0.8) {
		t.Fatalf("final(b) = %v, want 0.8", res["b"].Final)
	}
}

func TestComputeFinalBounded(t *testing.T) {
	g, ev := twoConceptFixture(0, 10)
	p := Params{Alpha: 5, Beta: 5, Gamma: 5, Threshold: 1, K: 4}
	out, err := Compute(context.Background(), g, ev, p)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	for _, sr := range out.Students {
		for cid, cr := range sr.Concepts {
			if cr.Final < 0 || cr.Final > 1 {
				t.Fatalf("final(%s) = %v out of [0, 1]", cid, cr.Final)
			}
			if math.IsNaN(cr.Final) {
				t.Fatalf("final(%s) is NaN", cid)
			}
		}
	}
}

func TestComputeIsolatedConceptDirectOnly(t *testing.T) {
	g := SynthesizeGraph([]string{"solo"})
	scores := []ScoreRecord{{Row: 2, StudentID: "s1", QuestionID: "q1", Score: 6, MaxScore: 10}}
	mappings := []MappingRecord{{Row: 2, QuestionID: "q1", ConceptID: "solo", Weight: 1}}
	ev := BuildEvidence(scores, mappings)

	out, err := Compute(context.Background(), &g, ev, DefaultParams())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	cr := out.Students[0].Concepts["solo"]
	if cr.PrerequisitePenalty != 0 || cr.DownstreamBoost != 0 {
		t.Fatalf("isolated concept must have zero penalty and boost, got %v / %v", cr.PrerequisitePenalty, cr.DownstreamBoost)
	}
	if !almostEqual(cr.Final, 0.6) {
		t.Fatalf("final = %v, want direct 0.6", cr.Final)
	}
}

func TestComputeDeterministicAcrossRuns(t *testing.T) {
	g := &Graph{
		Nodes: []Node{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		Edges: []Edge{
			{Source: "a", Target: "c", Weight: 0.7},
			{Source: "b", Target: "c", Weight: 0.3},
		},
	}
	var scores []ScoreRecord
	var mappings []MappingRecord
	students := []string{"s3", "s1", "s2", "s10"}
	questions := map[string]string{"q1": "a", "q2": "b", "q3": "c"}
	row := 2
	for _, sid := range students {
		for qid := range questions {
			scores = append(scores, ScoreRecord{Row: row, StudentID: sid, QuestionID: qid, Score: float64(row % 7), MaxScore: 10})
			row++
		}
	}
	for qid, cid := range questions {
		mappings = append(mappings, MappingRecord{Row: row, QuestionID: qid, ConceptID: cid, Weight: 1})
		row++
	}
	ev := BuildEvidence(scores, mappings)

	first, err := Compute(context.Background(), g, ev, DefaultParams())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Compute(context.Background(), g, ev, DefaultParams())
		if err != nil {
			t.Fatalf("compute: %v", err)
		}
		if !reflect.DeepEqual(again, first) {
			t.Fatal("compute output differs between identical runs")
		}
	}
}

func TestComputeRejectsCyclicGraph(t *testing.T) {
	g := &Graph{
		Nodes: []Node{{ID: "a"}, {ID: "b"}},
		Edges: []Edge{
			{Source: "a", Target: "b", Weight: 0.5},
			{Source: "b", Target: "a", Weight: 0.5},
		},
	}
	_, err := Compute(context.Background(), g, Evidence{}, DefaultParams())
	if _, ok := err.(*CycleError); !ok {
		t.Fatalf("expected *CycleError, got %v", err)
	}
}

func TestParamsValidate(t *testing.T) {
	if errs := DefaultParams().Validate(); len(errs) != 0 {
		t.Fatalf("defaults must validate, got %v", errs)
	}
	bad := Params{Alpha: -1, Beta: 6, Gamma: math.NaN(), Threshold: 1.5, K: 1}
	errs := bad.Validate()
	if len(errs) != 5 {
		t.Fatalf("expected 5 violations, got %d: %v", len(errs), errs)
	}
}

func TestComputeConfidenceSeesNeighborhoodSpread(t *testing.T) {
	g := &Graph{
		Nodes: []Node{{ID: "p"}, {ID: "c"}},
		Edges: []Edge{{Source: "p", Target: "c", Weight: 1.0}},
	}
	// Three perfect answers on c, one zero on p: strong direct evidence for
	// c, but the gap to its prerequisite spreads the neighborhood.
	scores := []ScoreRecord{
		{Row: 2, StudentID: "s1", QuestionID: "qp", Score: 0, MaxScore: 10},
		{Row: 3, StudentID: "s1", QuestionID: "qc1", Score: 10, MaxScore: 10},
		{Row: 4, StudentID: "s1", QuestionID: "qc2", Score: 10, MaxScore: 10},
		{Row: 5, StudentID: "s1", QuestionID: "qc3", Score: 10, MaxScore: 10},
	}
	mappings := []MappingRecord{
		{Row: 2, QuestionID: "qp", ConceptID: "p", Weight: 1},
		{Row: 3, QuestionID: "qc1", ConceptID: "c", Weight: 1},
		{Row: 4, QuestionID: "qc2", ConceptID: "c", Weight: 1},
		{Row: 5, QuestionID: "qc3", ConceptID: "c", Weight: 1},
	}
	ev := BuildEvidence(scores, mappings)

	out, err := Compute(context.Background(), g, ev, DefaultParams())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	res := out.Students[0].Concepts["c"]
	if res.Direct == nil || !almostEqual(*res.Direct, 1.0) {
		t.Fatalf("direct(c) = %v, want 1.0", res.Direct)
	}
	// Direct values {0.0, 1.0} over the neighborhood put the variance at
	// 0.25, inside the medium band.
	if res.Confidence != ConfidenceMedium {
		t.Fatalf("confidence(c) = %q, want %q", res.Confidence, ConfidenceMedium)
	}
}

func TestComputeUnevidencedIsolatedConcept(t *testing.T) {
	g := &Graph{
		Nodes: []Node{{ID: "a"}, {ID: "orphan"}},
		Edges: []Edge{},
	}
	scores := []ScoreRecord{{Row: 2, StudentID: "s1", QuestionID: "qa", Score: 6, MaxScore: 10}}
	mappings := []MappingRecord{{Row: 2, QuestionID: "qa", ConceptID: "a", Weight: 1}}
	ev := BuildEvidence(scores, mappings)

	out, err := Compute(context.Background(), g, ev, DefaultParams())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	res := out.Students[0].Concepts["orphan"]
	if res.Direct != nil {
		t.Fatalf("direct(orphan) = %v, want nil", *res.Direct)
	}
	if res.PrerequisitePenalty != 0 || res.DownstreamBoost != 0 {
		t.Fatalf("orphan penalty=%v boost=%v, want both 0", res.PrerequisitePenalty, res.DownstreamBoost)
	}
	if res.Final != 0 {
		t.Fatalf("final(orphan) = %v, want 0", res.Final)
	}
	if res.Confidence != ConfidenceLow {
		t.Fatalf("confidence(orphan) = %q, want %q", res.Confidence, ConfidenceLow)
	}
}
