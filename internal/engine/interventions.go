package engine

import (
	"fmt"
	"sort"
)

// Intervention is one ranked teaching recommendation.
type Intervention struct {
	ConceptID          string  `json:"concept_id"`
	ConceptLabel       string  `json:"concept_label"`
	StudentsAffected   int     `json:"students_affected"`
	DownstreamConcepts int     `json:"downstream_concepts"`
	CurrentReadiness   float64 `json:"current_readiness"`
	Impact             float64 `json:"impact"`
	Rationale          string  `json:"rationale"`
	SuggestedFormat    string  `json:"suggested_format"`
}

// InterventionTemplates supplies the phrasing for rationale and format
// recommendations. Callers can load overrides; zero value falls back to the
// built-in text.
type InterventionTemplates struct {
	Rationale  string `yaml:"rationale"`
	FormatFew  string `yaml:"format_few"`
	FormatSome string `yaml:"format_some"`
	FormatMany string `yaml:"format_many"`
}

// DefaultInterventionTemplates returns the built-in recommendation phrasing.
func DefaultInterventionTemplates() InterventionTemplates {
	return InterventionTemplates{
		Rationale:  "%d students are below threshold on %s, which gates %d downstream concepts",
		FormatFew:  "one-on-one tutoring",
		FormatSome: "small-group session",
		FormatMany: "whole-class review",
	}
}

func (t InterventionTemplates) withDefaults() InterventionTemplates {
	d := DefaultInterventionTemplates()
	if t.Rationale == "" {
		t.Rationale = d.Rationale
	}
	if t.FormatFew == "" {
		t.FormatFew = d.FormatFew
	}
	if t.FormatSome == "" {
		t.FormatSome = d.FormatSome
	}
	if t.FormatMany == "" {
		t.FormatMany = d.FormatMany
	}
	return t
}

// RankInterventions scores every concept with at least one below-threshold
// student by impact and returns them highest first. Impact weighs how many
// students are behind, how much of the graph the concept unlocks, and how far
// the class is from mastery:
//
//	impact = studentsAffected * max(1, directChildren) * (1 - meanFinal)
//
// Ties break lexicographically by concept id so the ranking is stable.
func RankInterventions(g *Graph, out *ComputeOutput, threshold float64, tmpl InterventionTemplates) []Intervention {
	tmpl = tmpl.withDefaults()
	labels := make(map[string]string, len(g.Nodes))
	for _, n := range g.Nodes {
		labels[n.ID] = n.Label
	}

	var items []Intervention
	for _, cid := range out.Order {
		affected := 0
		var finals []float64
		for _, sr := range out.Students {
			cr := sr.Concepts[cid]
			if cr == nil {
				continue
			}
			finals = append(finals, cr.Final)
			if cr.Final < threshold {
				affected++
			}
		}
		if affected == 0 {
			continue
		}

		children := len(g.Children(cid))
		effChildren := children
		if effChildren < 1 {
			effChildren = 1
		}
		m := mean(finals)
		impact := float64(affected) * float64(effChildren) * (1 - m)

		format := tmpl.FormatMany
		switch {
		case affected <= 3:
			format = tmpl.FormatFew
		case affected <= 10:
			format = tmpl.FormatSome
		}

		items = append(items, Intervention{
			ConceptID:          cid,
			ConceptLabel:       labels[cid],
			StudentsAffected:   affected,
			DownstreamConcepts: children,
			CurrentReadiness:   m,
			Impact:             impact,
			Rationale:          fmt.Sprintf(tmpl.Rationale, affected, labels[cid], children),
			SuggestedFormat:    format,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Impact != items[j].Impact {
			return items[i].Impact > items[j].Impact
		}
		return items[i].ConceptID < items[j].ConceptID
	})
	return items
}
