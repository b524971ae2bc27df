package engine

import (
	"fmt"
	"strings"
)

// EdgeSuggestion is a proposed prerequisite edge awaiting instructor review.
type EdgeSuggestion struct {
	Source    string  `json:"source"`
	Target    string  `json:"target"`
	Weight    float64 `json:"weight"`
	Rationale string  `json:"rationale"`
}

// TagSuggestion proposes tagging a question to a concept.
type TagSuggestion struct {
	QuestionID string  `json:"question_id"`
	ConceptID  string  `json:"concept_id"`
	Weight     float64 `json:"weight"`
}

// SuggestionVerdict is the per-suggestion outcome of a validation pass.
type SuggestionVerdict struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// ValidateEdgeSuggestions checks each proposed edge against the current
// graph in order: endpoints must exist, weight must be in range, the edge
// must not already exist, and adding it must keep the graph acyclic.
// Accepted suggestions accumulate, so a later suggestion is checked against
// the graph with all earlier accepted edges applied.
func ValidateEdgeSuggestions(g *Graph, suggestions []EdgeSuggestion) []SuggestionVerdict {
	working := &Graph{
		Nodes: append([]Node(nil), g.Nodes...),
		Edges: append([]Edge(nil), g.Edges...),
	}
	known := make(map[string]bool, len(working.Nodes))
	for _, n := range working.Nodes {
		known[n.ID] = true
	}
	existing := make(map[[2]string]bool, len(working.Edges))
	for _, e := range working.Edges {
		existing[[2]string{e.Source, e.Target}] = true
	}

	verdicts := make([]SuggestionVerdict, len(suggestions))
	for i, s := range suggestions {
		src := strings.TrimSpace(s.Source)
		tgt := strings.TrimSpace(s.Target)
		switch {
		case src == "" || tgt == "":
			verdicts[i] = SuggestionVerdict{Reason: "source and target are required"}
			continue
		case !known[src]:
			verdicts[i] = SuggestionVerdict{Reason: fmt.Sprintf("unknown concept %q", src)}
			continue
		case !known[tgt]:
			verdicts[i] = SuggestionVerdict{Reason: fmt.Sprintf("unknown concept %q", tgt)}
			continue
		case src == tgt:
			verdicts[i] = SuggestionVerdict{Reason: "self-loop is not allowed"}
			continue
		case s.Weight < 0 || s.Weight > 1:
			verdicts[i] = SuggestionVerdict{Reason: fmt.Sprintf("weight must be in [0, 1], got %v", s.Weight)}
			continue
		case existing[[2]string{src, tgt}]:
			verdicts[i] = SuggestionVerdict{Reason: "edge already exists"}
			continue
		}
		if reachable(working, tgt, src) {
			verdicts[i] = SuggestionVerdict{Reason: fmt.Sprintf("edge %s -> %s would create a cycle", src, tgt)}
			continue
		}
		working.Edges = append(working.Edges, Edge{Source: src, Target: tgt, Weight: s.Weight, Rationale: s.Rationale})
		existing[[2]string{src, tgt}] = true
		verdicts[i] = SuggestionVerdict{Accepted: true}
	}
	return verdicts
}

// ValidateTagSuggestions checks proposed question tags: the concept must be a
// graph node, the weight non-negative, and the (question, concept) pair not
// already tagged.
func ValidateTagSuggestions(g *Graph, tagged map[[2]string]bool, suggestions []TagSuggestion) []SuggestionVerdict {
	known := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		known[n.ID] = true
	}

	verdicts := make([]SuggestionVerdict, len(suggestions))
	for i, s := range suggestions {
		qid := strings.TrimSpace(s.QuestionID)
		cid := strings.TrimSpace(s.ConceptID)
		switch {
		case qid == "" || cid == "":
			verdicts[i] = SuggestionVerdict{Reason: "question_id and concept_id are required"}
		case !known[cid]:
			verdicts[i] = SuggestionVerdict{Reason: fmt.Sprintf("unknown concept %q", cid)}
		case s.Weight < 0:
			verdicts[i] = SuggestionVerdict{Reason: fmt.Sprintf("weight must be >= 0, got %v", s.Weight)}
		case tagged[[2]string{qid, cid}]:
			verdicts[i] = SuggestionVerdict{Reason: "question is already tagged to this concept"}
		default:
			verdicts[i] = SuggestionVerdict{Accepted: true}
		}
	}
	return verdicts
}

// reachable reports whether to can be reached from from along edges.
func reachable(g *Graph, from, to string) bool {
	adj := map[string][]string{}
	for _, e := range g.Edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
	}
	seen := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == to {
			return true
		}
		for _, next := range adj[cur] {
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}
