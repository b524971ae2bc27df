package engine

import (
	"math"
	"sort"
)

// ConceptAggregate summarizes final readiness across the class for one concept.
type ConceptAggregate struct {
	ConceptID           string  `json:"concept_id"`
	Mean                float64 `json:"mean"`
	Median              float64 `json:"median"`
	Std                 float64 `json:"std"`
	BelowThresholdCount int     `json:"below_threshold_count"`
	StudentCount        int     `json:"student_count"`
}

// Aggregate computes per-concept class statistics over the compute output.
// Results come back in topological concept order.
func Aggregate(out *ComputeOutput, threshold float64) []ConceptAggregate {
	aggs := make([]ConceptAggregate, 0, len(out.Order))
	for _, cid := range out.Order {
		var finals []float64
		below := 0
		for _, sr := range out.Students {
			cr := sr.Concepts[cid]
			if cr == nil {
				continue
			}
			finals = append(finals, cr.Final)
			if cr.Final < threshold {
				below++
			}
		}
		agg := ConceptAggregate{ConceptID: cid, BelowThresholdCount: below, StudentCount: len(finals)}
		if len(finals) > 0 {
			agg.Mean = mean(finals)
			agg.Median = median(finals)
			agg.Std = stddev(finals, agg.Mean)
		}
		aggs = append(aggs, agg)
	}
	return aggs
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func median(xs []float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func stddev(xs []float64, mu float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		d := x - mu
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}
