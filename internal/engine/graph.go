package engine

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Node is one concept in the prerequisite graph.
type Node struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Edge is a directed prerequisite edge: Source should be mastered before
// Target. Weight is the prerequisite strength in [0,1].
type Edge struct {
	Source    string  `json:"source"`
	Target    string  `json:"target"`
	Weight    float64 `json:"weight"`
	Rationale string  `json:"rationale,omitempty"`
}

// Graph is one version of an exam's concept prerequisite graph.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// EdgeRef identifies an edge by endpoints, for patch removals.
type EdgeRef struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// GraphPatch is a proposed incremental mutation. It is applied to a working
// copy and the result validated before anything is committed.
type GraphPatch struct {
	AddNodes    []Node    `json:"add_nodes,omitempty"`
	RemoveNodes []string  `json:"remove_nodes,omitempty"`
	AddEdges    []Edge    `json:"add_edges,omitempty"`
	RemoveEdges []EdgeRef `json:"remove_edges,omitempty"`
}

// GraphValidation is the outcome of validating a candidate graph.
type GraphValidation struct {
	Valid     bool              `json:"valid"`
	Errors    []ValidationError `json:"errors,omitempty"`
	CyclePath []string          `json:"cycle_path,omitempty"`
}

func ParseGraph(raw []byte) (Graph, error) {
	var g Graph
	if err := json.Unmarshal(raw, &g); err != nil {
		return Graph{}, fmt.Errorf("parse graph json: %w", err)
	}
	return g, nil
}

func (g Graph) MarshalJSONBytes() ([]byte, error) {
	cp := g
	if cp.Nodes == nil {
		cp.Nodes = []Node{}
	}
	if cp.Edges == nil {
		cp.Edges = []Edge{}
	}
	return json.Marshal(cp)
}

// NodeIDs returns all node ids sorted lexicographically.
func (g Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		ids = append(ids, n.ID)
	}
	sort.Strings(ids)
	return ids
}

func (g Graph) HasNode(id string) bool {
	for _, n := range g.Nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}

// Parents returns the sources of edges pointing at id, sorted.
func (g Graph) Parents(id string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.Target == id {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

// Children returns the targets of edges leaving id, sorted.
func (g Graph) Children(id string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.Source == id {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Target < out[j].Target })
	return out
}

// ValidateGraph checks structural rules and the DAG invariant for a candidate
// graph. Structural failures (empty/duplicate node ids, dangling edge
// endpoints, self-loops, duplicate edges, weight out of [0,1]) are collected
// as row-style errors; a cycle additionally yields CyclePath.
func ValidateGraph(g Graph) GraphValidation {
	v := GraphValidation{}

	nodeSet := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		id := strings.TrimSpace(n.ID)
		if id == "" {
			v.Errors = append(v.Errors, ValidationError{Field: "node", Message: "node id must not be empty"})
			continue
		}
		if nodeSet[id] {
			v.Errors = append(v.Errors, ValidationError{Field: "node", Message: fmt.Sprintf("duplicate node id %q", id)})
			continue
		}
		nodeSet[id] = true
	}

	edgeSet := make(map[EdgeRef]bool, len(g.Edges))
	for _, e := range g.Edges {
		switch {
		case e.Source == e.Target:
			v.Errors = append(v.Errors, ValidationError{Field: "edge", Message: fmt.Sprintf("self-loop on %q", e.Source)})
		case !nodeSet[e.Source]:
			v.Errors = append(v.Errors, ValidationError{Field: "edge", Message: fmt.Sprintf("source node %q does not exist in graph", e.Source)})
		case !nodeSet[e.Target]:
			v.Errors = append(v.Errors, ValidationError{Field: "edge", Message: fmt.Sprintf("target node %q does not exist in graph", e.Target)})
		case e.Weight < 0 || e.Weight > 1:
			v.Errors = append(v.Errors, ValidationError{Field: "edge", Message: fmt.Sprintf("edge weight %v out of [0, 1] for %s -> %s", e.Weight, e.Source, e.Target)})
		case edgeSet[EdgeRef{e.Source, e.Target}]:
			v.Errors = append(v.Errors, ValidationError{Field: "edge", Message: fmt.Sprintf("duplicate edge %s -> %s", e.Source, e.Target)})
		default:
			edgeSet[EdgeRef{e.Source, e.Target}] = true
		}
	}

	if cycle := findCycle(g); cycle != nil {
		v.CyclePath = cycle
		v.Errors = append(v.Errors, ValidationError{Field: "graph", Message: (&CycleError{Path: cycle}).Error()})
	}

	v.Valid = len(v.Errors) == 0
	return v
}

// TopologicalOrder returns the node ids leaves-first (prerequisites before
// dependents) using Kahn's algorithm. Nodes with no ordering constraint
// between them are tie-broken lexicographically by id, so the order is
// reproducible across runs. Returns ErrNotDAG wrapped in a CycleError when
// the graph is cyclic.
func TopologicalOrder(g Graph) ([]string, error) {
	ids := g.NodeIDs()
	indeg := make(map[string]int, len(ids))
	adj := make(map[string][]string, len(ids))
	for _, id := range ids {
		indeg[id] = 0
	}
	for _, e := range g.Edges {
		indeg[e.Target]++
		adj[e.Source] = append(adj[e.Source], e.Target)
	}
	for _, targets := range adj {
		sort.Strings(targets)
	}

	// Lexicographic ready set keeps ties deterministic.
	ready := make([]string, 0, len(ids))
	for _, id := range ids {
		if indeg[id] == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]string, 0, len(ids))
	for len(ready) > 0 {
		sort.Strings(ready)
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)
		for _, t := range adj[n] {
			indeg[t]--
			if indeg[t] == 0 {
				ready = append(ready, t)
			}
		}
	}

	if len(order) != len(ids) {
		if cycle := findCycle(g); cycle != nil {
			return nil, &CycleError{Path: cycle}
		}
		return nil, ErrNotDAG
	}
	return order, nil
}

// findCycle returns one cycle as a node path (start repeated at the end), or
// nil when the graph is acyclic. DFS with an explicit recursion stack;
// neighbors visited in sorted order so the reported path is deterministic.
func findCycle(g Graph) []string {
	adj := make(map[string][]string, len(g.Nodes))
	for _, e := range g.Edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
	}
	for _, targets := range adj {
		sort.Strings(targets)
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.Nodes))
	var stack []string

	var visit func(id string) []string
	visit = func(id string) []string {
		color[id] = gray
		stack = append(stack, id)
		for _, t := range adj[id] {
			switch color[t] {
			case white:
				if cycle := visit(t); cycle != nil {
					return cycle
				}
			case gray:
				// Unwind the stack to the first occurrence of t.
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == t {
						cycle := append([]string{}, stack[i:]...)
						return append(cycle, t)
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return nil
	}

	for _, id := range g.NodeIDs() {
		if color[id] == white {
			if cycle := visit(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// ApplyPatch applies a proposed patch to a working copy and validates the
// result. The input graph is never mutated; callers commit the returned graph
// only when the validation is clean.
func ApplyPatch(g Graph, p GraphPatch) (Graph, GraphValidation) {
	out := Graph{
		Nodes: append([]Node{}, g.Nodes...),
		Edges: append([]Edge{}, g.Edges...),
	}
	var errs []ValidationError

	for _, n := range p.AddNodes {
		if out.HasNode(n.ID) {
			errs = append(errs, ValidationError{Field: "node", Message: fmt.Sprintf("node %q already exists", n.ID)})
			continue
		}
		out.Nodes = append(out.Nodes, n)
	}

	for _, id := range p.RemoveNodes {
		if !out.HasNode(id) {
			errs = append(errs, ValidationError{Field: "node", Message: fmt.Sprintf("node %q does not exist", id)})
			continue
		}
		kept := out.Nodes[:0]
		for _, n := range out.Nodes {
			if n.ID != id {
				kept = append(kept, n)
			}
		}
		out.Nodes = kept
		// Removing a node removes every edge touching it.
		keptEdges := out.Edges[:0]
		for _, e := range out.Edges {
			if e.Source != id && e.Target != id {
				keptEdges = append(keptEdges, e)
			}
		}
		out.Edges = keptEdges
	}

	for _, ref := range p.RemoveEdges {
		found := false
		kept := out.Edges[:0]
		for _, e := range out.Edges {
			if e.Source == ref.Source && e.Target == ref.Target {
				found = true
				continue
			}
			kept = append(kept, e)
		}
		out.Edges = kept
		if !found {
			errs = append(errs, ValidationError{Field: "edge", Message: fmt.Sprintf("edge %s -> %s does not exist", ref.Source, ref.Target)})
		}
	}

	for _, e := range p.AddEdges {
		out.Edges = append(out.Edges, e)
	}

	v := ValidateGraph(out)
	if len(errs) > 0 {
		v.Errors = append(errs, v.Errors...)
		v.Valid = false
	}
	return out, v
}

// SynthesizeGraph builds a graph of isolated nodes, one per concept id, for
// exams where no graph was uploaded. Isolated nodes carry no upstream or
// downstream contributions, so readiness degrades to direct-only per concept.
func SynthesizeGraph(conceptIDs []string) Graph {
	ids := append([]string{}, conceptIDs...)
	sort.Strings(ids)
	g := Graph{Nodes: make([]Node, 0, len(ids)), Edges: []Edge{}}
	seen := map[string]bool{}
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		g.Nodes = append(g.Nodes, Node{ID: id, Label: id})
	}
	return g
}

// ExpandGraph adds isolated nodes for any concept id referenced by the
// mapping but missing from the graph, leaving existing structure untouched.
func ExpandGraph(g Graph, conceptIDs []string) Graph {
	out := Graph{
		Nodes: append([]Node{}, g.Nodes...),
		Edges: append([]Edge{}, g.Edges...),
	}
	have := make(map[string]bool, len(out.Nodes))
	for _, n := range out.Nodes {
		have[n.ID] = true
	}
	sorted := append([]string{}, conceptIDs...)
	sort.Strings(sorted)
	for _, id := range sorted {
		if id == "" || have[id] {
			continue
		}
		have[id] = true
		out.Nodes = append(out.Nodes, Node{ID: id, Label: id})
	}
	return out
}
