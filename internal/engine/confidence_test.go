package engine

import "testing"

func TestEstimateConfidence(t *testing.T) {
	isolated := &Graph{Nodes: []Node{{ID: "c"}}}
	chain := &Graph{
		Nodes: []Node{{ID: "p"}, {ID: "c"}},
		Edges: []Edge{{Source: "p", Target: "c", Weight: 1}},
	}
	threeTags := []QuestionWeight{{QuestionID: "q1", Weight: 1}, {QuestionID: "q2", Weight: 1}, {QuestionID: "q3", Weight: 1}}

	tests := []struct {
		name   string
		g      *Graph
		direct map[string]*float64
		max    map[string]float64
		tagged []QuestionWeight
		want   string
	}{
		{
			name:   "no tagged questions",
			g:      isolated,
			direct: map[string]*float64{"c": nil},
			max:    map[string]float64{},
			tagged: nil,
			want:   ConfidenceLow,
		},
		{
			name:   "three questions with coverage and a flat neighborhood",
			g:      isolated,
			direct: map[string]*float64{"c": f(0.8)},
			max:    map[string]float64{"q1": 10, "q2": 10, "q3": 10},
			tagged: threeTags,
			want:   ConfidenceHigh,
		},
		{
			name:   "two questions caps at medium",
			g:      isolated,
			direct: map[string]*float64{"c": f(0.8)},
			max:    map[string]float64{"q1": 10, "q2": 10},
			tagged: []QuestionWeight{{QuestionID: "q1", Weight: 1}, {QuestionID: "q2", Weight: 1}},
			want:   ConfidenceMedium,
		},
		{
			name:   "thin coverage drags high count down",
			g:      isolated,
			direct: map[string]*float64{"c": f(0.8)},
			max:    map[string]float64{"q1": 1, "q2": 1, "q3": 1},
			tagged: threeTags,
			want:   ConfidenceLow,
		},
		{
			name:   "weak prerequisite spreads the neighborhood",
			g:      chain,
			direct: map[string]*float64{"p": f(0.0), "c": f(1.0)},
			max:    map[string]float64{"q1": 10, "q2": 10, "q3": 10},
			tagged: threeTags,
			want:   ConfidenceMedium,
		},
		{
			name:   "evidence-free neighbor is skipped",
			g:      chain,
			direct: map[string]*float64{"p": nil, "c": f(1.0)},
			max:    map[string]float64{"q1": 10, "q2": 10, "q3": 10},
			tagged: threeTags,
			want:   ConfidenceHigh,
		},
		{
			name:   "tagged rows count even when unanswered",
			g:      isolated,
			direct: map[string]*float64{"c": nil},
			max:    map[string]float64{"q1": 5, "q2": 5, "q3": 5},
			tagged: threeTags,
			want:   ConfidenceHigh,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := EstimateConfidence(tc.g, "c", tc.direct, tc.max, tc.tagged)
			if got != tc.want {
				t.Fatalf("confidence = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestConfidenceMoreTagsNeverLower(t *testing.T) {
	// Tagging another covered question must not reduce confidence.
	g := &Graph{Nodes: []Node{{ID: "c"}}}
	direct := map[string]*float64{"c": f(0.7)}
	max := map[string]float64{"q1": 10, "q2": 10, "q3": 10, "q4": 10}
	var tagged []QuestionWeight
	prev := ConfidenceLow
	for i, qid := range []string{"q1", "q2", "q3", "q4"} {
		tagged = append(tagged, QuestionWeight{QuestionID: qid, Weight: 1})
		got := EstimateConfidence(g, "c", direct, max, tagged)
		if confidenceRank(got) < confidenceRank(prev) {
			t.Fatalf("confidence dropped from %q to %q after question %d", prev, got, i+1)
		}
		prev = got
	}
}
