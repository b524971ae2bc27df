package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/conceptlens/conceptlens-backend/internal/engine"
	"github.com/conceptlens/conceptlens-backend/internal/logger"
	"github.com/conceptlens/conceptlens-backend/internal/repos"
	"github.com/conceptlens/conceptlens-backend/internal/types"
)

// UploadSummary is returned to the instructor after a successful ingest.
type UploadSummary struct {
	RowsIngested  int `json:"rows_ingested"`
	StudentCount  int `json:"student_count"`
	QuestionCount int `json:"question_count"`
	ConceptCount  int `json:"concept_count"`
}

// UploadValidationError carries the complete row-level error set for a
// rejected file. Nothing is persisted when it is returned.
type UploadValidationError struct {
	Errors []engine.ValidationError
}

func (e *UploadValidationError) Error() string {
	return fmt.Sprintf("upload rejected with %d validation errors", len(e.Errors))
}

type UploadService interface {
	IngestScores(ctx context.Context, examID uuid.UUID, r io.Reader, sizeBytes int64) (*UploadSummary, error)
	IngestMapping(ctx context.Context, examID uuid.UUID, r io.Reader, sizeBytes int64) (*UploadSummary, error)
	ValidateTagSuggestions(ctx context.Context, examID uuid.UUID, suggestions []engine.TagSuggestion) ([]engine.SuggestionVerdict, error)
}

type uploadService struct {
	log          *logger.Logger
	db           *gorm.DB
	questionRepo repos.QuestionRepo
	scoreRepo    repos.ScoreRepo
	mappingRepo  repos.MappingRepo
	graphRepo    repos.ConceptGraphRepo
	auditRepo    repos.AuditRepo
}

func NewUploadService(db *gorm.DB, questionRepo repos.QuestionRepo, scoreRepo repos.ScoreRepo, mappingRepo repos.MappingRepo, graphRepo repos.ConceptGraphRepo, auditRepo repos.AuditRepo, baseLog *logger.Logger) UploadService {
	return &uploadService{
		log:          baseLog.With("service", "UploadService"),
		db:           db,
		questionRepo: questionRepo,
		scoreRepo:    scoreRepo,
		mappingRepo:  mappingRepo,
		graphRepo:    graphRepo,
		auditRepo:    auditRepo,
	}
}

// IngestScores parses, validates and persists a scores CSV. The file is
// all-or-nothing: any validation error rejects the whole upload, and a clean
// re-upload replaces the previous score set.
func (us *uploadService) IngestScores(ctx context.Context, examID uuid.UUID, r io.Reader, sizeBytes int64) (*UploadSummary, error) {
	records, errs := parseScoresCSV(r)
	errs = append(errs, engine.ValidateFileLimits(sizeBytes, len(records))...)
	if len(errs) == 0 {
		errs = engine.ValidateScoreRecords(records)
	}
	if len(errs) > 0 {
		return nil, &UploadValidationError{Errors: errs}
	}

	questionMax := map[string]float64{}
	students := map[string]bool{}
	for _, rec := range records {
		questionMax[rec.QuestionID] = rec.MaxScore
		students[rec.StudentID] = true
	}

	questions := make([]*types.Question, 0, len(questionMax))
	for qid, max := range questionMax {
		questions = append(questions, &types.Question{
			ExamID:             examID,
			QuestionIDExternal: qid,
			MaxScore:           max,
		})
	}

	err := us.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := us.questionRepo.UpsertBatch(ctx, tx, questions); err != nil {
			return err
		}
		byExternal, err := us.questionIndex(ctx, tx, examID)
		if err != nil {
			return err
		}
		scores := make([]*types.Score, 0, len(records))
		for _, rec := range records {
			q, ok := byExternal[rec.QuestionID]
			if !ok {
				return fmt.Errorf("question %q missing after upsert", rec.QuestionID)
			}
			scores = append(scores, &types.Score{
				ExamID:            examID,
				StudentIDExternal: rec.StudentID,
				QuestionID:        q.ID,
				Score:             rec.Score,
			})
		}
		return us.scoreRepo.ReplaceForExam(ctx, tx, examID, scores)
	})
	if err != nil {
		return nil, err
	}

	us.audit(ctx, examID, "upload.scores", map[string]int{"rows": len(records)})
	return &UploadSummary{
		RowsIngested:  len(records),
		StudentCount:  len(students),
		QuestionCount: len(questionMax),
	}, nil
}

// IngestMapping parses, validates and persists a question-to-concept mapping
// CSV. Concepts referenced by the mapping but absent from the head graph are
// a validation error when a graph exists; with no graph yet the mapping
// defines the concept universe.
func (us *uploadService) IngestMapping(ctx context.Context, examID uuid.UUID, r io.Reader, sizeBytes int64) (*UploadSummary, error) {
	records, errs := parseMappingCSV(r)
	errs = append(errs, engine.ValidateFileLimits(sizeBytes, len(records))...)
	if len(errs) == 0 {
		errs = engine.ValidateMappingRecords(records)
	}
	if len(errs) == 0 {
		scored, serr := us.scoredQuestions(ctx, examID)
		if serr != nil {
			return nil, serr
		}
		var g *engine.Graph
		if head, err := us.graphRepo.GetHead(ctx, nil, examID); err == nil {
			if parsed, perr := engine.ParseGraph(head.GraphJSON); perr == nil {
				g = &parsed
			}
		}
		errs = engine.CrossCheckMapping(scored, records, g)
	}
	if len(errs) > 0 {
		return nil, &UploadValidationError{Errors: errs}
	}

	concepts := map[string]bool{}
	questionIDs := map[string]bool{}
	for _, rec := range records {
		concepts[rec.ConceptID] = true
		questionIDs[rec.QuestionID] = true
	}

	err := us.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Questions referenced only by the mapping are created as
		// placeholders; a later scores upload fills in max_score.
		placeholders := make([]*types.Question, 0, len(questionIDs))
		for qid := range questionIDs {
			placeholders = append(placeholders, &types.Question{
				ExamID:             examID,
				QuestionIDExternal: qid,
				MaxScore:           1,
			})
		}
		byExternal, err := us.questionIndex(ctx, tx, examID)
		if err != nil {
			return err
		}
		missing := make([]*types.Question, 0, len(placeholders))
		for _, q := range placeholders {
			if _, exists := byExternal[q.QuestionIDExternal]; !exists {
				missing = append(missing, q)
			}
		}
		if _, err := us.questionRepo.UpsertBatch(ctx, tx, missing); err != nil {
			return err
		}
		byExternal, err = us.questionIndex(ctx, tx, examID)
		if err != nil {
			return err
		}

		ids := make([]uuid.UUID, 0, len(byExternal))
		for _, q := range byExternal {
			ids = append(ids, q.ID)
		}
		mappings := make([]*types.QuestionConceptMap, 0, len(records))
		for _, rec := range records {
			q, ok := byExternal[rec.QuestionID]
			if !ok {
				return fmt.Errorf("question %q missing after upsert", rec.QuestionID)
			}
			mappings = append(mappings, &types.QuestionConceptMap{
				QuestionID: q.ID,
				ConceptID:  rec.ConceptID,
				Weight:     rec.Weight,
			})
		}
		return us.mappingRepo.ReplaceForQuestions(ctx, tx, ids, mappings)
	})
	if err != nil {
		return nil, err
	}

	us.audit(ctx, examID, "upload.mapping", map[string]int{"rows": len(records)})
	return &UploadSummary{
		RowsIngested:  len(records),
		QuestionCount: len(questionIDs),
		ConceptCount:  len(concepts),
	}, nil
}

// ValidateTagSuggestions dry-runs proposed question-to-concept tags against
// the head graph and the already stored mapping. Nothing is persisted.
func (us *uploadService) ValidateTagSuggestions(ctx context.Context, examID uuid.UUID, suggestions []engine.TagSuggestion) ([]engine.SuggestionVerdict, error) {
	g := engine.Graph{}
	if head, err := us.graphRepo.GetHead(ctx, nil, examID); err == nil {
		parsed, perr := engine.ParseGraph(head.GraphJSON)
		if perr != nil {
			return nil, perr
		}
		g = parsed
	} else if !errors.Is(err, repos.ErrNotFound) {
		return nil, err
	}

	byExternal, err := us.questionIndex(ctx, nil, examID)
	if err != nil {
		return nil, err
	}
	externalByID := make(map[uuid.UUID]string, len(byExternal))
	ids := make([]uuid.UUID, 0, len(byExternal))
	for ext, q := range byExternal {
		externalByID[q.ID] = ext
		ids = append(ids, q.ID)
	}
	tagged := map[[2]string]bool{}
	if len(ids) > 0 {
		mappings, err := us.mappingRepo.GetByQuestionIDs(ctx, nil, ids)
		if err != nil {
			return nil, err
		}
		for _, m := range mappings {
			tagged[[2]string{externalByID[m.QuestionID], m.ConceptID}] = true
		}
	}
	return engine.ValidateTagSuggestions(&g, tagged, suggestions), nil
}

// scoredQuestions reflects the stored score rows back as records so a
// mapping upload is checked against the questions that already have scores.
func (us *uploadService) scoredQuestions(ctx context.Context, examID uuid.UUID) ([]engine.ScoreRecord, error) {
	stored, err := us.scoreRepo.GetByExam(ctx, nil, examID)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, nil
	}
	byExternal, err := us.questionIndex(ctx, nil, examID)
	if err != nil {
		return nil, err
	}
	externalByID := make(map[uuid.UUID]string, len(byExternal))
	for ext, q := range byExternal {
		externalByID[q.ID] = ext
	}
	seen := map[string]bool{}
	records := make([]engine.ScoreRecord, 0, len(stored))
	for _, s := range stored {
		ext := externalByID[s.QuestionID]
		if ext == "" || seen[ext] {
			continue
		}
		seen[ext] = true
		records = append(records, engine.ScoreRecord{StudentID: s.StudentIDExternal, QuestionID: ext, Score: s.Score, MaxScore: 1})
	}
	return records, nil
}

func (us *uploadService) questionIndex(ctx context.Context, tx *gorm.DB, examID uuid.UUID) (map[string]*types.Question, error) {
	existing, err := us.questionRepo.GetByExam(ctx, tx, examID)
	if err != nil {
		return nil, err
	}
	byExternal := make(map[string]*types.Question, len(existing))
	for _, q := range existing {
		byExternal[q.QuestionIDExternal] = q
	}
	return byExternal, nil
}

func (us *uploadService) audit(ctx context.Context, examID uuid.UUID, action string, meta map[string]int) {
	entry := &types.AuditLog{
		ExamID:     &examID,
		Actor:      "instructor",
		Action:     action,
		EntityType: "exam",
		EntityID:   examID.String(),
	}
	if raw, err := json.Marshal(meta); err == nil {
		entry.Metadata = raw
	}
	if err := us.auditRepo.Record(ctx, nil, entry); err != nil {
		us.log.Warn("Failed to write audit entry", "action", action, "error", err)
	}
}

// parseScoresCSV reads rows of (StudentID, QuestionID, Score, MaxScore).
// Header order is fixed; row numbers in errors count the header as row 1.
func parseScoresCSV(r io.Reader) ([]engine.ScoreRecord, []engine.ValidationError) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, []engine.ValidationError{{Message: fmt.Sprintf("malformed CSV: %v", err)}}
	}
	if len(rows) == 0 {
		return nil, []engine.ValidationError{{Message: "file is empty"}}
	}

	var errs []engine.ValidationError
	records := make([]engine.ScoreRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rowNum := i + 2
		if len(row) < 4 {
			errs = append(errs, engine.ValidationError{Row: rowNum, Message: fmt.Sprintf("expected 4 columns, got %d", len(row))})
			continue
		}
		score, serr := parseFloatField(row[2])
		max, merr := parseFloatField(row[3])
		if serr != nil {
			errs = append(errs, engine.ValidationError{Row: rowNum, Field: "Score", Message: fmt.Sprintf("Score is not numeric: %q", row[2])})
			continue
		}
		if merr != nil {
			errs = append(errs, engine.ValidationError{Row: rowNum, Field: "MaxScore", Message: fmt.Sprintf("MaxScore is not numeric: %q", row[3])})
			continue
		}
		records = append(records, engine.ScoreRecord{
			Row:        rowNum,
			StudentID:  strings.TrimSpace(row[0]),
			QuestionID: strings.TrimSpace(row[1]),
			Score:      score,
			MaxScore:   max,
		})
	}
	return records, errs
}

// parseMappingCSV reads rows of (QuestionID, ConceptID, Weight). Weight is
// optional and defaults to 1.
func parseMappingCSV(r io.Reader) ([]engine.MappingRecord, []engine.ValidationError) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, []engine.ValidationError{{Message: fmt.Sprintf("malformed CSV: %v", err)}}
	}
	if len(rows) == 0 {
		return nil, []engine.ValidationError{{Message: "file is empty"}}
	}

	var errs []engine.ValidationError
	records := make([]engine.MappingRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rowNum := i + 2
		if len(row) < 2 {
			errs = append(errs, engine.ValidationError{Row: rowNum, Message: fmt.Sprintf("expected at least 2 columns, got %d", len(row))})
			continue
		}
		weight := 1.0
		if len(row) >= 3 && strings.TrimSpace(row[2]) != "" {
			w, werr := parseFloatField(row[2])
			if werr != nil {
				errs = append(errs, engine.ValidationError{Row: rowNum, Field: "Weight", Message: fmt.Sprintf("Weight is not numeric: %q", row[2])})
				continue
			}
			weight = w
		}
		records = append(records, engine.MappingRecord{
			Row:        rowNum,
			QuestionID: strings.TrimSpace(row[0]),
			ConceptID:  strings.TrimSpace(row[1]),
			Weight:     weight,
		})
	}
	return records, errs
}

func parseFloatField(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
