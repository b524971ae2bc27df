package engine

// Confidence labels, ordered low < medium < high.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// EstimateConfidence labels how much a readiness value can be trusted: the
// minimum of three factors. Tagged-count: at least 3 questions tagged to the
// concept is high, exactly 2 medium, fewer low. Coverage: total max points
// over the tagged questions at least 10 is high, 5 to 9 medium, under 5 low.
// Variance of the student's direct readiness over the concept and its
// immediate prerequisites and dependents: under 0.15 high, up to 0.30
// medium, above low. A concept with no tagged questions is always low.
func EstimateConfidence(g *Graph, conceptID string, direct map[string]*float64, maxScores map[string]float64, tagged []QuestionWeight) string {
	countLevel := ConfidenceLow
	switch {
	case len(tagged) >= 3:
		countLevel = ConfidenceHigh
	case len(tagged) == 2:
		countLevel = ConfidenceMedium
	}

	var totalPoints float64
	for _, qw := range tagged {
		max := maxScores[qw.QuestionID]
		if max <= 0 {
			max = 1
		}
		totalPoints += max
	}
	coverageLevel := ConfidenceLow
	switch {
	case totalPoints >= 10:
		coverageLevel = ConfidenceHigh
	case totalPoints >= 5:
		coverageLevel = ConfidenceMedium
	}

	varianceLevel := ConfidenceHigh
	if v := neighborhoodVariance(g, conceptID, direct); v > 0.30 {
		varianceLevel = ConfidenceLow
	} else if v >= 0.15 {
		varianceLevel = ConfidenceMedium
	}

	return minConfidence(countLevel, coverageLevel, varianceLevel)
}

// neighborhoodVariance measures how much the student's direct readiness
// spreads across the concept and its immediate neighbors. Concepts without
// direct evidence are skipped; fewer than two evidenced values leave no
// spread to measure and yield zero.
func neighborhoodVariance(g *Graph, conceptID string, direct map[string]*float64) float64 {
	ids := []string{conceptID}
	seen := map[string]bool{conceptID: true}
	for _, e := range g.Parents(conceptID) {
		if !seen[e.Source] {
			seen[e.Source] = true
			ids = append(ids, e.Source)
		}
	}
	for _, e := range g.Children(conceptID) {
		if !seen[e.Target] {
			seen[e.Target] = true
			ids = append(ids, e.Target)
		}
	}

	var vals []float64
	for _, id := range ids {
		if d := direct[id]; d != nil {
			vals = append(vals, *d)
		}
	}
	return variance(vals)
}

func variance(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var sum float64
	for _, x := range xs {
		d := x - mean
		sum += d * d
	}
	return sum / float64(len(xs))
}

func confidenceRank(c string) int {
	switch c {
	case ConfidenceHigh:
		return 2
	case ConfidenceMedium:
		return 1
	default:
		return 0
	}
}

func minConfidence(levels ...string) string {
	out := ConfidenceHigh
	for _, l := range levels {
		if confidenceRank(l) < confidenceRank(out) {
			out = l
		}
	}
	return out
}
