package engine

// TraceContribution is one signed component of the waterfall: where the value
// came from and how much it moved the running total.
type TraceContribution struct {
	Source string  `json:"source"`
	Label  string  `json:"label"`
	Weight float64 `json:"weight"`
	Value  float64 `json:"value"`
	Delta  float64 `json:"delta"`
}

// TraceEvidence is one answered tagged question backing the direct stage.
type TraceEvidence struct {
	QuestionID string  `json:"question_id"`
	Score      float64 `json:"score"`
	MaxScore   float64 `json:"max_score"`
	Weight     float64 `json:"weight"`
}

// Trace explains one (student, concept) final readiness as a waterfall:
// start at zero, add the scaled direct term, subtract each prerequisite gap,
// add each downstream boost, then clamp. PreClamp preserves the unclamped
// sum so a reader can see when clamping bit.
type Trace struct {
	ConceptID   string              `json:"concept_id"`
	Direct      *float64            `json:"direct_readiness"`
	DirectTerm  float64             `json:"direct_term"`
	Evidence    []TraceEvidence     `json:"evidence"`
	Penalties   []TraceContribution `json:"penalties"`
	Boosts      []TraceContribution `json:"boosts"`
	BoostCapped bool                `json:"boost_capped"`
	PreClamp    float64             `json:"pre_clamp"`
	Final       float64             `json:"final_readiness"`
	Confidence  string              `json:"confidence"`
}

// BuildTrace reconstructs the waterfall for one student and concept from the
// same inputs the propagator used, so the trace always matches the stored
// result exactly.
func BuildTrace(g *Graph, ev Evidence, p Params, studentID, conceptID string, sr StudentResult) *Trace {
	cr := sr.Concepts[conceptID]
	if cr == nil {
		return nil
	}
	labels := make(map[string]string, len(g.Nodes))
	for _, n := range g.Nodes {
		labels[n.ID] = n.Label
	}
	scores := ev.Scores[studentID]

	tr := &Trace{
		ConceptID:  conceptID,
		Direct:     cr.Direct,
		Final:      cr.Final,
		Confidence: cr.Confidence,
	}

	for _, qw := range ev.ConceptQuestions[conceptID] {
		raw, answered := scores[qw.QuestionID]
		if !answered {
			continue
		}
		tr.Evidence = append(tr.Evidence, TraceEvidence{
			QuestionID: qw.QuestionID,
			Score:      raw,
			MaxScore:   ev.MaxScores[qw.QuestionID],
			Weight:     qw.Weight,
		})
	}

	var d float64
	if cr.Direct != nil {
		d = *cr.Direct
	}
	tr.DirectTerm = p.Alpha * d

	for _, e := range g.Parents(conceptID) {
		pr := sr.Concepts[e.Source]
		if pr == nil || pr.Direct == nil {
			continue
		}
		gap := p.Threshold - *pr.Direct
		if gap <= 0 {
			continue
		}
		tr.Penalties = append(tr.Penalties, TraceContribution{
			Source: e.Source,
			Label:  labels[e.Source],
			Weight: e.Weight,
			Value:  *pr.Direct,
			Delta:  -p.Beta * e.Weight * gap,
		})
	}

	var rawBoost float64
	for _, e := range g.Children(conceptID) {
		ch := sr.Concepts[e.Target]
		if ch == nil || ch.Direct == nil {
			continue
		}
		contrib := e.Weight * 0.4 * *ch.Direct
		rawBoost += contrib
		tr.Boosts = append(tr.Boosts, TraceContribution{
			Source: e.Target,
			Label:  labels[e.Target],
			Weight: e.Weight,
			Value:  *ch.Direct,
			Delta:  p.Gamma * contrib,
		})
	}
	if rawBoost > 0.2 {
		tr.BoostCapped = true
		// Scale each boost delta down so the displayed parts still sum to
		// the capped total.
		scale := 0.2 / rawBoost
		for i := range tr.Boosts {
			tr.Boosts[i].Delta *= scale
		}
	}

	tr.PreClamp = p.Alpha*d - p.Beta*cr.PrerequisitePenalty + p.Gamma*cr.DownstreamBoost
	return tr
}
