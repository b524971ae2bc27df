package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError is one row-level input failure. Uploads collect every
// failing row in one pass; a batch is never aborted at the first bad row.
type ValidationError struct {
	Row     int    `json:"row,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	switch {
	case e.Row > 0 && e.Field != "":
		return fmt.Sprintf("row %d, field %s: %s", e.Row, e.Field, e.Message)
	case e.Row > 0:
		return fmt.Sprintf("row %d: %s", e.Row, e.Message)
	case e.Field != "":
		return fmt.Sprintf("field %s: %s", e.Field, e.Message)
	default:
		return e.Message
	}
}

// CycleError reports a rejected graph mutation. Path holds the offending
// cycle in traversal order, with the starting node repeated at the end.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "graph contains a cycle: " + strings.Join(e.Path, " -> ")
}

// ErrNotDAG marks a compute precondition violation. The validator gate makes
// this unreachable for user input; hitting it is a programming fault and the
// current compute call fails loudly.
var ErrNotDAG = errors.New("concept graph is not acyclic")
