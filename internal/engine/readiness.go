package engine

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Params are the tunable knobs of the readiness computation.
type Params struct {
	Alpha     float64 `json:"alpha"`
	Beta      float64 `json:"beta"`
	Gamma     float64 `json:"gamma"`
	Threshold float64 `json:"threshold"`
	K         int     `json:"k"`
}

// DefaultParams returns the shipped defaults.
func DefaultParams() Params {
	return Params{Alpha: 1.0, Beta: 0.3, Gamma: 0.2, Threshold: 0.6, K: 4}
}

// Validate checks every parameter against its allowed range and reports all
// violations at once.
func (p Params) Validate() []ValidationError {
	var errs []ValidationError
	rangeCheck := func(field string, v, lo, hi float64) {
		if math.IsNaN(v) || v < lo || v > hi {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("%s must be in [%v, %v], got %v", field, lo, hi, v)})
		}
	}
	rangeCheck("alpha", p.Alpha, 0, 5)
	rangeCheck("beta", p.Beta, 0, 5)
	rangeCheck("gamma", p.Gamma, 0, 5)
	rangeCheck("threshold", p.Threshold, 0, 1)
	if p.K < 2 || p.K > 20 {
		errs = append(errs, ValidationError{Field: "k", Message: fmt.Sprintf("k must be in [2, 20], got %d", p.K)})
	}
	return errs
}

// ConceptResult is the per-(student, concept) outcome of the pipeline.
// Direct is nil when no answered question is tagged to the concept.
type ConceptResult struct {
	ConceptID           string   `json:"concept_id"`
	Direct              *float64 `json:"direct_readiness"`
	PrerequisitePenalty float64  `json:"prerequisite_penalty"`
	DownstreamBoost     float64  `json:"downstream_boost"`
	Final               float64  `json:"final_readiness"`
	Confidence          string   `json:"confidence"`
}

// StudentResult holds one student's results keyed by concept id.
type StudentResult struct {
	StudentID string
	Concepts  map[string]*ConceptResult
}

// ComputeOutput is the full deterministic result set for one exam.
type ComputeOutput struct {
	Order    []string
	Students []StudentResult
}

// directReadiness is stage 1: the weighted average of normalized scores over
// the questions tagged to the concept that the student actually answered.
// Returns nil when the student answered no tagged question.
func directReadiness(scores map[string]float64, maxScores map[string]float64, tagged []QuestionWeight) *float64 {
	var num, den float64
	for _, qw := range tagged {
		raw, answered := scores[qw.QuestionID]
		if !answered {
			continue
		}
		max := maxScores[qw.QuestionID]
		if max <= 0 || qw.Weight <= 0 {
			continue
		}
		num += qw.Weight * (raw / max)
		den += qw.Weight
	}
	if den == 0 {
		return nil
	}
	v := num / den
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// computeStudent runs the four stages for a single student in topological
// order. Direct values feed the penalty and boost stages through the shared
// direct map, so parents are always resolved before their children.
func computeStudent(g *Graph, order []string, ev Evidence, p Params, studentID string) StudentResult {
	scores := ev.Scores[studentID]
	direct := make(map[string]*float64, len(order))
	results := make(map[string]*ConceptResult, len(order))

	for _, cid := range order {
		direct[cid] = directReadiness(scores, ev.MaxScores, ev.ConceptQuestions[cid])
	}

	for _, cid := range order {
		// Stage 2: weighted prerequisite gaps. Parents with no direct
		// evidence contribute zero rather than an assumed gap.
		var penalty float64
		for _, e := range g.Parents(cid) {
			pd := direct[e.Source]
			if pd == nil {
				continue
			}
			if gap := p.Threshold - *pd; gap > 0 {
				penalty += e.Weight * gap
			}
		}

		// Stage 3: capped downstream boost from children with evidence.
		var boost float64
		for _, e := range g.Children(cid) {
			cd := direct[e.Target]
			if cd == nil {
				continue
			}
			boost += e.Weight * 0.4 * *cd
		}
		if boost > 0.2 {
			boost = 0.2
		}

		var d float64
		if direct[cid] != nil {
			d = *direct[cid]
		}
		final := clamp01(p.Alpha*d - p.Beta*penalty + p.Gamma*boost)

		results[cid] = &ConceptResult{
			ConceptID:           cid,
			Direct:              direct[cid],
			PrerequisitePenalty: penalty,
			DownstreamBoost:     boost,
			Final:               final,
		}
	}

	for _, cid := range order {
		results[cid].Confidence = EstimateConfidence(g, cid, direct, ev.MaxScores, ev.ConceptQuestions[cid])
	}

	return StudentResult{StudentID: studentID, Concepts: results}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Compute runs the full pipeline for every student. Students are independent
// once the shared graph order is fixed, so they fan out across a bounded
// worker group; output order is restored by sorting afterwards so results are
// byte-identical across runs.
func Compute(ctx context.Context, g *Graph, ev Evidence, p Params) (*ComputeOutput, error) {
	order, cerr := TopologicalOrder(*g)
	if cerr != nil {
		return nil, cerr
	}

	out := &ComputeOutput{
		Order:    order,
		Students: make([]StudentResult, len(ev.Students)),
	}

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(runtime.GOMAXPROCS(0))
	for i, sid := range ev.Students {
		i, sid := i, sid
		grp.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out.Students[i] = computeStudent(g, order, ev, p, sid)
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(out.Students, func(i, j int) bool { return out.Students[i].StudentID < out.Students[j].StudentID })
	return out, nil
}
