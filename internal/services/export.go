package services

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/conceptlens/conceptlens-backend/internal/engine"
	"github.com/conceptlens/conceptlens-backend/internal/logger"
	"github.com/conceptlens/conceptlens-backend/internal/platform/gcs"
	"github.com/conceptlens/conceptlens-backend/internal/repos"
	"github.com/conceptlens/conceptlens-backend/internal/types"
)

type ExportService interface {
	Start(ctx context.Context, examID uuid.UUID) (*types.ExportRun, error)
	Get(ctx context.Context, runID uuid.UUID) (*types.ExportRun, error)
	List(ctx context.Context, examID uuid.UUID) ([]*types.ExportRun, error)
}

type exportService struct {
	log          *logger.Logger
	resultRepo   repos.ResultRepo
	exportRepo   repos.ExportRunRepo
	runRepo      repos.ComputeRunRepo
	questionRepo repos.QuestionRepo
	mappingRepo  repos.MappingRepo
	graphSvc     GraphService
	paramSvc     ParameterService
	bucket       *gcs.Bucket
	exportDir    string
}

func NewExportService(resultRepo repos.ResultRepo, exportRepo repos.ExportRunRepo, runRepo repos.ComputeRunRepo, questionRepo repos.QuestionRepo, mappingRepo repos.MappingRepo, graphSvc GraphService, paramSvc ParameterService, bucket *gcs.Bucket, baseLog *logger.Logger) ExportService {
	dir := os.Getenv("EXPORT_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return &exportService{
		log:          baseLog.With("service", "ExportService"),
		resultRepo:   resultRepo,
		exportRepo:   exportRepo,
		runRepo:      runRepo,
		questionRepo: questionRepo,
		mappingRepo:  mappingRepo,
		graphSvc:     graphSvc,
		paramSvc:     paramSvc,
		bucket:       bucket,
		exportDir:    dir,
	}
}

// Start builds the export bundle synchronously: readiness results as CSV and
// JSON, class aggregates, clusters with assignments, interventions, the
// parameter set, the question-to-concept mapping, the head graph as JSON plus
// node and edge CSVs, and a manifest with a sha256 per member. The zip lands
// in the export dir and, when a bucket is configured, in object storage.
func (es *exportService) Start(ctx context.Context, examID uuid.UUID) (*types.ExportRun, error) {
	latest, err := es.runRepo.GetLatestByExam(ctx, nil, examID)
	if err != nil {
		return nil, err
	}
	if latest.Status != types.ComputeRunSucceeded {
		return nil, fmt.Errorf("latest compute run is %s; export needs a successful run", latest.Status)
	}

	run := &types.ExportRun{
		ExamID:       examID,
		ComputeRunID: &latest.ID,
		Status:       types.ExportRunGenerating,
	}
	if _, err := es.exportRepo.Create(ctx, nil, run); err != nil {
		return nil, err
	}

	if err := es.build(ctx, run); err != nil {
		now := time.Now().UTC()
		run.Status = types.ExportRunFailed
		run.ErrorMessage = err.Error()
		run.CompletedAt = &now
		if uerr := es.exportRepo.Update(ctx, nil, run); uerr != nil {
			es.log.Error("Failed to mark export failed", "run_id", run.ID.String(), "error", uerr)
		}
		return nil, err
	}

	now := time.Now().UTC()
	run.Status = types.ExportRunReady
	run.CompletedAt = &now
	if err := es.exportRepo.Update(ctx, nil, run); err != nil {
		return nil, err
	}
	return run, nil
}

func (es *exportService) build(ctx context.Context, run *types.ExportRun) error {
	examID := run.ExamID

	results, err := es.resultRepo.GetByExam(ctx, nil, examID)
	if err != nil {
		return err
	}
	aggregates, err := es.resultRepo.GetAggregates(ctx, nil, examID)
	if err != nil {
		return err
	}
	interventions, err := es.resultRepo.GetInterventions(ctx, nil, examID)
	if err != nil {
		return err
	}

	clusters, err := es.resultRepo.GetClusters(ctx, nil, examID)
	if err != nil {
		return err
	}
	assignments, err := es.resultRepo.GetAssignments(ctx, nil, examID)
	if err != nil {
		return err
	}
	params, err := es.paramSvc.Get(ctx, examID)
	if err != nil {
		return err
	}
	mapping, err := es.mappingCSVBytes(ctx, examID)
	if err != nil {
		return err
	}
	resultsRaw, err := resultsJSON(results)
	if err != nil {
		return err
	}
	clustersRaw, err := clustersJSON(clusters)
	if err != nil {
		return err
	}
	paramsRaw, err := json.MarshalIndent(params, "", "  ")
	if err != nil {
		return err
	}

	members := map[string][]byte{
		"results.csv":                  resultsCSV(results),
		"results.json":                 resultsRaw,
		"aggregates.csv":               aggregatesCSV(aggregates),
		"clusters.json":                clustersRaw,
		"cluster_assignments.csv":      assignmentsCSV(clusters, assignments),
		"interventions.csv":            interventionsCSV(interventions),
		"parameters.json":              paramsRaw,
		"question_concept_mapping.csv": mapping,
	}
	if head, version, gerr := es.graphSvc.GetHead(ctx, examID); gerr == nil {
		raw, merr := head.MarshalJSONBytes()
		if merr != nil {
			return merr
		}
		members[fmt.Sprintf("graph_v%d.json", version)] = raw
		members["graph_nodes.csv"] = graphNodesCSV(head)
		members["graph_edges.csv"] = graphEdgesCSV(head)
	}

	manifest := map[string]any{
		"exam_id":      examID.String(),
		"export_id":    run.ID.String(),
		"generated_at": time.Now().UTC().Format(time.RFC3339),
		"files":        map[string]string{},
	}
	checksums := manifest["files"].(map[string]string)
	for name, data := range members {
		sum := sha256.Sum256(data)
		checksums[name] = hex.EncodeToString(sum[:])
	}
	manifestRaw, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	members["manifest.json"] = manifestRaw

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	// Fixed member order keeps the archive reproducible.
	ordered := []string{
		"manifest.json", "results.csv", "results.json", "aggregates.csv",
		"clusters.json", "cluster_assignments.csv", "interventions.csv",
		"parameters.json", "question_concept_mapping.csv",
		"graph_nodes.csv", "graph_edges.csv",
	}
	for _, name := range ordered {
		data, ok := members[name]
		if !ok {
			continue
		}
		if err := writeZipMember(zw, name, data); err != nil {
			return err
		}
		delete(members, name)
	}
	for name, data := range members {
		if err := writeZipMember(zw, name, data); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return err
	}

	archive := buf.Bytes()
	archiveSum := sha256.Sum256(archive)
	fileName := fmt.Sprintf("export_%s_%s.zip", examID.String(), run.ID.String())
	path := filepath.Join(es.exportDir, fileName)
	if err := os.WriteFile(path, archive, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}

	run.FilePath = path
	run.FileChecksum = hex.EncodeToString(archiveSum[:])
	run.ManifestJSON = manifestRaw

	if es.bucket != nil {
		key := "exports/" + fileName
		if err := es.bucket.Upload(ctx, key, bytes.NewReader(archive)); err != nil {
			es.log.Warn("Failed to upload export to bucket", "key", key, "error", err)
		} else {
			run.ObjectURL = es.bucket.PublicURL(key)
		}
	}
	return nil
}

func (es *exportService) Get(ctx context.Context, runID uuid.UUID) (*types.ExportRun, error) {
	return es.exportRepo.GetByID(ctx, nil, runID)
}

func (es *exportService) List(ctx context.Context, examID uuid.UUID) ([]*types.ExportRun, error) {
	return es.exportRepo.ListByExam(ctx, nil, examID)
}

func writeZipMember(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func resultsCSV(results []*types.ReadinessResult) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"student_id", "concept_id", "direct_readiness", "prerequisite_penalty", "downstream_boost", "final_readiness", "confidence"})
	for _, r := range results {
		direct := ""
		if r.DirectReadiness != nil {
			direct = formatFloat(*r.DirectReadiness)
		}
		_ = w.Write([]string{
			r.StudentIDExternal,
			r.ConceptID,
			direct,
			formatFloat(r.PrerequisitePenalty),
			formatFloat(r.DownstreamBoost),
			formatFloat(r.FinalReadiness),
			r.Confidence,
		})
	}
	w.Flush()
	return buf.Bytes()
}

func aggregatesCSV(aggregates []*types.ClassAggregate) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"concept_id", "mean", "median", "std", "below_threshold_count"})
	for _, a := range aggregates {
		_ = w.Write([]string{
			a.ConceptID,
			formatFloat(a.MeanReadiness),
			formatFloat(a.MedianReadiness),
			formatFloat(a.StdReadiness),
			strconv.Itoa(a.BelowThresholdCount),
		})
	}
	w.Flush()
	return buf.Bytes()
}

func interventionsCSV(interventions []*types.InterventionResult) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"concept_id", "students_affected", "downstream_concepts", "current_readiness", "impact", "suggested_format", "rationale"})
	for _, iv := range interventions {
		_ = w.Write([]string{
			iv.ConceptID,
			strconv.Itoa(iv.StudentsAffected),
			strconv.Itoa(iv.DownstreamConcepts),
			formatFloat(iv.CurrentReadiness),
			formatFloat(iv.Impact),
			iv.SuggestedFormat,
			iv.Rationale,
		})
	}
	w.Flush()
	return buf.Bytes()
}

func resultsJSON(results []*types.ReadinessResult) ([]byte, error) {
	type row struct {
		StudentID           string   `json:"student_id"`
		ConceptID           string   `json:"concept_id"`
		DirectReadiness     *float64 `json:"direct_readiness"`
		PrerequisitePenalty float64  `json:"prerequisite_penalty"`
		DownstreamBoost     float64  `json:"downstream_boost"`
		FinalReadiness      float64  `json:"final_readiness"`
		Confidence          string   `json:"confidence"`
	}
	rows := make([]row, 0, len(results))
	for _, r := range results {
		rows = append(rows, row{
			StudentID:           r.StudentIDExternal,
			ConceptID:           r.ConceptID,
			DirectReadiness:     r.DirectReadiness,
			PrerequisitePenalty: r.PrerequisitePenalty,
			DownstreamBoost:     r.DownstreamBoost,
			FinalReadiness:      r.FinalReadiness,
			Confidence:          r.Confidence,
		})
	}
	return json.MarshalIndent(rows, "", "  ")
}

func clustersJSON(clusters []*types.Cluster) ([]byte, error) {
	type row struct {
		Label                  string          `json:"label"`
		StudentCount           int             `json:"student_count"`
		Centroid               json.RawMessage `json:"centroid,omitempty"`
		TopWeakConcepts        json.RawMessage `json:"top_weak_concepts,omitempty"`
		SuggestedInterventions json.RawMessage `json:"suggested_interventions,omitempty"`
	}
	rows := make([]row, 0, len(clusters))
	for _, c := range clusters {
		rows = append(rows, row{
			Label:                  c.ClusterLabel,
			StudentCount:           c.StudentCount,
			Centroid:               json.RawMessage(c.CentroidJSON),
			TopWeakConcepts:        json.RawMessage(c.TopWeakConceptsJSON),
			SuggestedInterventions: json.RawMessage(c.SuggestedInterventionsJSON),
		})
	}
	return json.MarshalIndent(rows, "", "  ")
}

func assignmentsCSV(clusters []*types.Cluster, assignments []*types.ClusterAssignment) []byte {
	labels := make(map[uuid.UUID]string, len(clusters))
	for _, c := range clusters {
		labels[c.ID] = c.ClusterLabel
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"student_id", "cluster_label"})
	for _, a := range assignments {
		_ = w.Write([]string{a.StudentIDExternal, labels[a.ClusterID]})
	}
	w.Flush()
	return buf.Bytes()
}

func graphNodesCSV(g *engine.Graph) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"concept_id", "label"})
	for _, n := range g.Nodes {
		_ = w.Write([]string{n.ID, n.Label})
	}
	w.Flush()
	return buf.Bytes()
}

func graphEdgesCSV(g *engine.Graph) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"source", "target", "weight", "rationale"})
	for _, e := range g.Edges {
		_ = w.Write([]string{e.Source, e.Target, formatFloat(e.Weight), e.Rationale})
	}
	w.Flush()
	return buf.Bytes()
}

func (es *exportService) mappingCSVBytes(ctx context.Context, examID uuid.UUID) ([]byte, error) {
	questions, err := es.questionRepo.GetByExam(ctx, nil, examID)
	if err != nil {
		return nil, err
	}
	external := make(map[uuid.UUID]string, len(questions))
	ids := make([]uuid.UUID, 0, len(questions))
	for _, q := range questions {
		external[q.ID] = q.QuestionIDExternal
		ids = append(ids, q.ID)
	}
	var mappings []*types.QuestionConceptMap
	if len(ids) > 0 {
		mappings, err = es.mappingRepo.GetByQuestionIDs(ctx, nil, ids)
		if err != nil {
			return nil, err
		}
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"question_id", "concept_id", "weight"})
	for _, m := range mappings {
		_ = w.Write([]string{external[m.QuestionID], m.ConceptID, formatFloat(m.Weight)})
	}
	w.Flush()
	return buf.Bytes(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
