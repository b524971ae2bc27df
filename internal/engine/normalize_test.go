package engine

import (
	"reflect"
	"strings"
	"testing"
)

func TestValidateScoreRecordsCollectsAllRows(t *testing.T) {
	rows := []ScoreRecord{
		{Row: 2, StudentID: "", QuestionID: "q1", Score: 5, MaxScore: 10},
		{Row: 3, StudentID: "s1", QuestionID: "q1", Score: 12, MaxScore: 10},
		{Row: 4, StudentID: "s1", QuestionID: "q2", Score: 5, MaxScore: 0},
		{Row: 5, StudentID: "s2", QuestionID: "q1", Score: 5, MaxScore: 10},
		{Row: 6, StudentID: "s2", QuestionID: "q1", Score: 6, MaxScore: 10},
	}
	errs := ValidateScoreRecords(rows)
	if len(errs) != 4 {
		t.Fatalf("expected 4 errors, got %d: %v", len(errs), errs)
	}
	wantRows := []int{2, 3, 4, 6}
	for i, e := range errs {
		if e.Row != wantRows[i] {
			t.Fatalf("error %d on row %d, want %d (%v)", i, e.Row, wantRows[i], e)
		}
	}
}

func TestValidateScoreRecordsRuleOrder(t *testing.T) {
	// A row failing several rules reports only the first, in the fixed
	// order: null id, duplicate, range, max-score positivity.
	rows := []ScoreRecord{
		{Row: 2, StudentID: "", QuestionID: "", Score: -1, MaxScore: 0},
	}
	errs := ValidateScoreRecords(rows)
	if len(errs) != 1 {
		t.Fatalf("expected a single error, got %v", errs)
	}
	if errs[0].Field != "StudentID" {
		t.Fatalf("first failing rule should be the null check, got field %q", errs[0].Field)
	}
}

func TestValidateScoreRecordsScoreAtBounds(t *testing.T) {
	rows := []ScoreRecord{
		{Row: 2, StudentID: "s1", QuestionID: "q1", Score: 0, MaxScore: 10},
		{Row: 3, StudentID: "s1", QuestionID: "q2", Score: 10, MaxScore: 10},
	}
	if errs := ValidateScoreRecords(rows); len(errs) != 0 {
		t.Fatalf("boundary scores should be accepted, got %v", errs)
	}
}

func TestValidateMappingRecords(t *testing.T) {
	rows := []MappingRecord{
		{Row: 2, QuestionID: "q1", ConceptID: "c1", Weight: 1},
		{Row: 3, QuestionID: "q1", ConceptID: "c1", Weight: 2},
		{Row: 4, QuestionID: "q2", ConceptID: "", Weight: 1},
		{Row: 5, QuestionID: "q3", ConceptID: "c2", Weight: -1},
	}
	errs := ValidateMappingRecords(rows)
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %v", errs)
	}
}

func TestValidateFileLimits(t *testing.T) {
	if errs := ValidateFileLimits(MaxUploadBytes, MaxUploadRows); len(errs) != 0 {
		t.Fatalf("at-limit file should pass, got %v", errs)
	}
	errs := ValidateFileLimits(MaxUploadBytes+1, MaxUploadRows+1)
	if len(errs) != 2 {
		t.Fatalf("expected size and row errors, got %v", errs)
	}
}

func TestCrossCheckMapping(t *testing.T) {
	scores := []ScoreRecord{
		{Row: 2, StudentID: "s1", QuestionID: "q1", Score: 5, MaxScore: 10},
		{Row: 3, StudentID: "s1", QuestionID: "q_untagged", Score: 5, MaxScore: 10},
	}
	mappings := []MappingRecord{
		{Row: 2, QuestionID: "q1", ConceptID: "c1", Weight: 1},
		{Row: 3, QuestionID: "q1", ConceptID: "c_missing", Weight: 1},
	}
	g := SynthesizeGraph([]string{"c1"})

	errs := CrossCheckMapping(scores, mappings, &g)
	if len(errs) != 2 {
		t.Fatalf("expected unmapped-question and unknown-concept errors, got %v", errs)
	}
	if !strings.Contains(errs[0].Message, "q_untagged") {
		t.Fatalf("expected q_untagged in %q", errs[0].Message)
	}
	if !strings.Contains(errs[1].Message, "c_missing") {
		t.Fatalf("expected c_missing in %q", errs[1].Message)
	}

	if errs := CrossCheckMapping(scores[:1], mappings[:1], nil); len(errs) != 0 {
		t.Fatalf("nil graph skips concept check, got %v", errs)
	}
}

func TestBuildEvidence(t *testing.T) {
	scores := []ScoreRecord{
		{Row: 2, StudentID: "s2", QuestionID: "q1", Score: 7, MaxScore: 10},
		{Row: 3, StudentID: "s1", QuestionID: "q1", Score: 3, MaxScore: 10},
		{Row: 4, StudentID: "s1", QuestionID: "q2", Score: 4, MaxScore: 5},
	}
	mappings := []MappingRecord{
		{Row: 2, QuestionID: "q2", ConceptID: "c1", Weight: 2},
		{Row: 3, QuestionID: "q1", ConceptID: "c1", Weight: 1},
	}
	ev := BuildEvidence(scores, mappings)

	if !reflect.DeepEqual(ev.Students, []string{"s1", "s2"}) {
		t.Fatalf("students = %v, want sorted [s1 s2]", ev.Students)
	}
	if ev.Scores["s1"]["q2"] != 4 || ev.MaxScores["q2"] != 5 {
		t.Fatalf("unexpected score layout: %v / %v", ev.Scores, ev.MaxScores)
	}
	qs := ev.ConceptQuestions["c1"]
	if len(qs) != 2 || qs[0].QuestionID != "q1" || qs[1].QuestionID != "q2" {
		t.Fatalf("tagged questions should be sorted by id, got %v", qs)
	}
	if !reflect.DeepEqual(ev.Concepts(), []string{"c1"}) {
		t.Fatalf("concepts = %v", ev.Concepts())
	}
}
