package engine

import (
	"fmt"
	"sort"
	"strings"
)

// Upload limits mirror the product caps: 50 MB, 500k rows per file.
const (
	MaxUploadBytes = 50 * 1024 * 1024
	MaxUploadRows  = 500_000
)

// ScoreRecord is one parsed row of a scores upload. Row is the 1-indexed
// file line (header counted) for error reporting.
type ScoreRecord struct {
	Row        int     `json:"row"`
	StudentID  string  `json:"student_id"`
	QuestionID string  `json:"question_id"`
	Score      float64 `json:"score"`
	MaxScore   float64 `json:"max_score"`
}

// MappingRecord is one parsed row of a question-to-concept mapping upload.
type MappingRecord struct {
	Row        int     `json:"row"`
	QuestionID string  `json:"question_id"`
	ConceptID  string  `json:"concept_id"`
	Weight     float64 `json:"weight"`
}

// QuestionWeight is one tagged question on a concept.
type QuestionWeight struct {
	QuestionID string  `json:"question_id"`
	Weight     float64 `json:"weight"`
}

// Evidence is the normalized score/mapping structure the propagator consumes:
// per-student raw scores, per-question max scores, and per-concept tagged
// question lists. Students and question lists are kept sorted so downstream
// computation is deterministic.
type Evidence struct {
	Students         []string
	Scores           map[string]map[string]float64
	MaxScores        map[string]float64
	ConceptQuestions map[string][]QuestionWeight
}

// Concepts returns the sorted concept ids referenced by the mapping.
func (ev Evidence) Concepts() []string {
	ids := make([]string, 0, len(ev.ConceptQuestions))
	for c := range ev.ConceptQuestions {
		ids = append(ids, c)
	}
	sort.Strings(ids)
	return ids
}

// ValidateFileLimits enforces the upload size/row caps before any row-level
// work happens.
func ValidateFileLimits(sizeBytes int64, rowCount int) []ValidationError {
	var errs []ValidationError
	if sizeBytes > MaxUploadBytes {
		errs = append(errs, ValidationError{Message: fmt.Sprintf("file exceeds maximum size of %d MB", MaxUploadBytes/(1024*1024))})
	}
	if rowCount > MaxUploadRows {
		errs = append(errs, ValidationError{Message: fmt.Sprintf("file exceeds maximum row count of %d", MaxUploadRows)})
	}
	return errs
}

// ValidateScoreRecords runs the row-level score rules in order: null-id,
// duplicate (student, question) key, score range, max-score positivity. The
// first failing rule per row produces one error; validation continues across
// rows so the caller sees the complete error set in one pass.
func ValidateScoreRecords(rows []ScoreRecord) []ValidationError {
	var errs []ValidationError
	seen := make(map[[2]string]bool, len(rows))

	for _, r := range rows {
		sid := strings.TrimSpace(r.StudentID)
		qid := strings.TrimSpace(r.QuestionID)
		if sid == "" {
			errs = append(errs, ValidationError{Row: r.Row, Field: "StudentID", Message: "StudentID must not be null or empty"})
			continue
		}
		if qid == "" {
			errs = append(errs, ValidationError{Row: r.Row, Field: "QuestionID", Message: "QuestionID must not be null or empty"})
			continue
		}
		key := [2]string{sid, qid}
		if seen[key] {
			errs = append(errs, ValidationError{Row: r.Row, Field: "StudentID,QuestionID", Message: fmt.Sprintf("duplicate (StudentID=%s, QuestionID=%s)", sid, qid)})
			continue
		}
		seen[key] = true
		if r.Score < 0 || (r.MaxScore > 0 && r.Score > r.MaxScore) {
			errs = append(errs, ValidationError{Row: r.Row, Field: "Score", Message: fmt.Sprintf("Score must be in [0, %v], got %v", r.MaxScore, r.Score)})
			continue
		}
		if r.MaxScore <= 0 {
			errs = append(errs, ValidationError{Row: r.Row, Field: "MaxScore", Message: fmt.Sprintf("MaxScore must be > 0, got %v", r.MaxScore)})
		}
	}
	return errs
}

// ValidateMappingRecords runs the row-level mapping rules: null ids,
// non-negative weight, duplicate (question, concept) pair.
func ValidateMappingRecords(rows []MappingRecord) []ValidationError {
	var errs []ValidationError
	seen := make(map[[2]string]bool, len(rows))

	for _, r := range rows {
		qid := strings.TrimSpace(r.QuestionID)
		cid := strings.TrimSpace(r.ConceptID)
		if qid == "" {
			errs = append(errs, ValidationError{Row: r.Row, Field: "QuestionID", Message: "QuestionID must not be null or empty"})
			continue
		}
		if cid == "" {
			errs = append(errs, ValidationError{Row: r.Row, Field: "ConceptID", Message: "ConceptID must not be null or empty"})
			continue
		}
		key := [2]string{qid, cid}
		if seen[key] {
			errs = append(errs, ValidationError{Row: r.Row, Field: "QuestionID,ConceptID", Message: fmt.Sprintf("duplicate mapping (QuestionID=%s, ConceptID=%s)", qid, cid)})
			continue
		}
		seen[key] = true
		if r.Weight < 0 {
			errs = append(errs, ValidationError{Row: r.Row, Field: "Weight", Message: fmt.Sprintf("Weight must be >= 0, got %v", r.Weight)})
		}
	}
	return errs
}

// CrossCheckMapping confirms every id reference resolves: every question that
// appears in scores must be mapped, and when a graph exists every mapped
// concept must be a graph node. Missing references are referential errors,
// reported as validation errors, never a crash.
func CrossCheckMapping(scores []ScoreRecord, mappings []MappingRecord, graph *Graph) []ValidationError {
	var errs []ValidationError

	mappedQuestions := make(map[string]bool, len(mappings))
	for _, m := range mappings {
		mappedQuestions[strings.TrimSpace(m.QuestionID)] = true
	}

	unmapped := map[string]bool{}
	for _, s := range scores {
		qid := strings.TrimSpace(s.QuestionID)
		if qid != "" && !mappedQuestions[qid] {
			unmapped[qid] = true
		}
	}
	if len(unmapped) > 0 {
		ids := make([]string, 0, len(unmapped))
		for q := range unmapped {
			ids = append(ids, q)
		}
		sort.Strings(ids)
		errs = append(errs, ValidationError{
			Field:   "QuestionID",
			Message: "questions in scores but not in mapping: " + strings.Join(ids, ", "),
		})
	}

	if graph != nil {
		known := make(map[string]bool, len(graph.Nodes))
		for _, n := range graph.Nodes {
			known[n.ID] = true
		}
		missing := map[string]bool{}
		for _, m := range mappings {
			cid := strings.TrimSpace(m.ConceptID)
			if cid != "" && !known[cid] {
				missing[cid] = true
			}
		}
		if len(missing) > 0 {
			ids := make([]string, 0, len(missing))
			for c := range missing {
				ids = append(ids, c)
			}
			sort.Strings(ids)
			errs = append(errs, ValidationError{
				Field:   "ConceptID",
				Message: "concepts in mapping but not in graph: " + strings.Join(ids, ", "),
			})
		}
	}

	return errs
}

// BuildEvidence reshapes validated score and mapping records into the sparse
// evidence structure the propagator consumes. Inputs are assumed to have
// passed ValidateScoreRecords/ValidateMappingRecords.
func BuildEvidence(scores []ScoreRecord, mappings []MappingRecord) Evidence {
	ev := Evidence{
		Scores:           map[string]map[string]float64{},
		MaxScores:        map[string]float64{},
		ConceptQuestions: map[string][]QuestionWeight{},
	}

	for _, s := range scores {
		sid := strings.TrimSpace(s.StudentID)
		qid := strings.TrimSpace(s.QuestionID)
		if sid == "" || qid == "" {
			continue
		}
		if ev.Scores[sid] == nil {
			ev.Scores[sid] = map[string]float64{}
		}
		ev.Scores[sid][qid] = s.Score
		ev.MaxScores[qid] = s.MaxScore
	}

	for _, m := range mappings {
		qid := strings.TrimSpace(m.QuestionID)
		cid := strings.TrimSpace(m.ConceptID)
		if qid == "" || cid == "" {
			continue
		}
		ev.ConceptQuestions[cid] = append(ev.ConceptQuestions[cid], QuestionWeight{QuestionID: qid, Weight: m.Weight})
	}
	for cid := range ev.ConceptQuestions {
		qs := ev.ConceptQuestions[cid]
		sort.Slice(qs, func(i, j int) bool { return qs[i].QuestionID < qs[j].QuestionID })
		ev.ConceptQuestions[cid] = qs
	}

	ev.Students = make([]string, 0, len(ev.Scores))
	for sid := range ev.Scores {
		ev.Students = append(ev.Students, sid)
	}
	sort.Strings(ev.Students)

	return ev
}
