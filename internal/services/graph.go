package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/conceptlens/conceptlens-backend/internal/engine"
	"github.com/conceptlens/conceptlens-backend/internal/graphsync"
	"github.com/conceptlens/conceptlens-backend/internal/logger"
	"github.com/conceptlens/conceptlens-backend/internal/platform/neo4jdb"
	"github.com/conceptlens/conceptlens-backend/internal/repos"
	"github.com/conceptlens/conceptlens-backend/internal/types"
)

// GraphRejectedError carries the full validation result for a rejected graph
// mutation. The stored head is untouched when it is returned.
type GraphRejectedError struct {
	Validation engine.GraphValidation
}

func (e *GraphRejectedError) Error() string {
	if len(e.Validation.CyclePath) > 0 {
		return (&engine.CycleError{Path: e.Validation.CyclePath}).Error()
	}
	return fmt.Sprintf("graph rejected with %d validation errors", len(e.Validation.Errors))
}

// GraphVersionInfo is the list-versions projection.
type GraphVersionInfo struct {
	Version    int    `json:"version"`
	Annotation string `json:"annotation,omitempty"`
	NodeCount  int    `json:"node_count"`
	EdgeCount  int    `json:"edge_count"`
	CreatedAt  string `json:"created_at"`
}

type GraphService interface {
	GetHead(ctx context.Context, examID uuid.UUID) (*engine.Graph, int, error)
	GetVersion(ctx context.Context, examID uuid.UUID, version int) (*engine.Graph, error)
	ListVersions(ctx context.Context, examID uuid.UUID) ([]GraphVersionInfo, error)
	Commit(ctx context.Context, examID uuid.UUID, g engine.Graph, annotation string) (int, error)
	ApplyPatch(ctx context.Context, examID uuid.UUID, patch engine.GraphPatch, annotation string) (int, error)
	Revert(ctx context.Context, examID uuid.UUID, toVersion int) (int, error)
	Validate(ctx context.Context, g engine.Graph) engine.GraphValidation
	ValidateEdgeSuggestions(ctx context.Context, examID uuid.UUID, suggestions []engine.EdgeSuggestion) ([]engine.SuggestionVerdict, error)
	EnsureGraph(ctx context.Context, tx *gorm.DB, examID uuid.UUID, conceptIDs []string) (*engine.Graph, int, error)
}

type graphService struct {
	log       *logger.Logger
	db        *gorm.DB
	graphRepo repos.ConceptGraphRepo
	auditRepo repos.AuditRepo
	neo       *neo4jdb.Client
}

func NewGraphService(db *gorm.DB, graphRepo repos.ConceptGraphRepo, auditRepo repos.AuditRepo, neo *neo4jdb.Client, baseLog *logger.Logger) GraphService {
	return &graphService{
		log:       baseLog.With("service", "GraphService"),
		db:        db,
		graphRepo: graphRepo,
		auditRepo: auditRepo,
		neo:       neo,
	}
}

func (gs *graphService) GetHead(ctx context.Context, examID uuid.UUID) (*engine.Graph, int, error) {
	head, err := gs.graphRepo.GetHead(ctx, nil, examID)
	if err != nil {
		return nil, 0, err
	}
	g, err := engine.ParseGraph(head.GraphJSON)
	if err != nil {
		return nil, 0, fmt.Errorf("stored graph is unreadable: %w", err)
	}
	return &g, head.Version, nil
}

func (gs *graphService) GetVersion(ctx context.Context, examID uuid.UUID, version int) (*engine.Graph, error) {
	row, err := gs.graphRepo.GetVersion(ctx, nil, examID, version)
	if err != nil {
		return nil, err
	}
	g, err := engine.ParseGraph(row.GraphJSON)
	if err != nil {
		return nil, fmt.Errorf("stored graph is unreadable: %w", err)
	}
	return &g, nil
}

func (gs *graphService) ListVersions(ctx context.Context, examID uuid.UUID) ([]GraphVersionInfo, error) {
	rows, err := gs.graphRepo.ListVersions(ctx, nil, examID)
	if err != nil {
		return nil, err
	}
	infos := make([]GraphVersionInfo, 0, len(rows))
	for _, row := range rows {
		info := GraphVersionInfo{
			Version:    row.Version,
			Annotation: row.Annotation,
			CreatedAt:  row.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		}
		if g, perr := engine.ParseGraph(row.GraphJSON); perr == nil {
			info.NodeCount = len(g.Nodes)
			info.EdgeCount = len(g.Edges)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Commit validates and stores a full replacement graph as a new version.
func (gs *graphService) Commit(ctx context.Context, examID uuid.UUID, g engine.Graph, annotation string) (int, error) {
	if v := engine.ValidateGraph(g); !v.Valid {
		return 0, &GraphRejectedError{Validation: v}
	}
	return gs.persist(ctx, examID, g, annotation, "graph.commit")
}

// ApplyPatch applies a node/edge patch to the head (or an empty graph when
// none exists) and stores the result as a new version if it validates.
func (gs *graphService) ApplyPatch(ctx context.Context, examID uuid.UUID, patch engine.GraphPatch, annotation string) (int, error) {
	base := engine.Graph{Nodes: []engine.Node{}, Edges: []engine.Edge{}}
	if head, _, err := gs.GetHead(ctx, examID); err == nil {
		base = *head
	} else if !errors.Is(err, repos.ErrNotFound) {
		return 0, err
	}

	patched, v := engine.ApplyPatch(base, patch)
	if !v.Valid {
		return 0, &GraphRejectedError{Validation: v}
	}
	return gs.persist(ctx, examID, patched, annotation, "graph.patch")
}

// Revert stores the contents of an older version as a brand-new head
// version, preserving linear history.
func (gs *graphService) Revert(ctx context.Context, examID uuid.UUID, toVersion int) (int, error) {
	g, err := gs.GetVersion(ctx, examID, toVersion)
	if err != nil {
		return 0, err
	}
	annotation := fmt.Sprintf("revert to version %d", toVersion)
	return gs.persist(ctx, examID, *g, annotation, "graph.revert")
}

func (gs *graphService) Validate(ctx context.Context, g engine.Graph) engine.GraphValidation {
	return engine.ValidateGraph(g)
}

func (gs *graphService) ValidateEdgeSuggestions(ctx context.Context, examID uuid.UUID, suggestions []engine.EdgeSuggestion) ([]engine.SuggestionVerdict, error) {
	head, _, err := gs.GetHead(ctx, examID)
	if err != nil {
		return nil, err
	}
	return engine.ValidateEdgeSuggestions(head, suggestions), nil
}

// EnsureGraph returns the head graph expanded with any mapped concepts it is
// missing, or a synthesized isolated-node graph when the exam has no graph
// at all. The synthesized graph is not persisted.
func (gs *graphService) EnsureGraph(ctx context.Context, tx *gorm.DB, examID uuid.UUID, conceptIDs []string) (*engine.Graph, int, error) {
	head, err := gs.graphRepo.GetHead(ctx, tx, examID)
	if errors.Is(err, repos.ErrNotFound) {
		g := engine.SynthesizeGraph(conceptIDs)
		return &g, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	g, perr := engine.ParseGraph(head.GraphJSON)
	if perr != nil {
		return nil, 0, fmt.Errorf("stored graph is unreadable: %w", perr)
	}
	expanded := engine.ExpandGraph(g, conceptIDs)
	return &expanded, head.Version, nil
}

func (gs *graphService) persist(ctx context.Context, examID uuid.UUID, g engine.Graph, annotation, action string) (int, error) {
	raw, err := g.MarshalJSONBytes()
	if err != nil {
		return 0, err
	}
	row := &types.ConceptGraph{
		ExamID:     examID,
		GraphJSON:  raw,
		Annotation: annotation,
	}
	if _, err := gs.graphRepo.CreateVersion(ctx, nil, row); err != nil {
		return 0, err
	}

	if err := graphsync.UpsertExamConceptGraph(ctx, gs.neo, gs.log, examID, row.Version, g); err != nil {
		// The relational store is authoritative; mirror failures only log.
		gs.log.Warn("Failed to mirror graph to neo4j", "exam_id", examID.String(), "error", err)
	}

	entry := &types.AuditLog{
		ExamID:     &examID,
		Actor:      "instructor",
		Action:     action,
		EntityType: "concept_graph",
		EntityID:   fmt.Sprintf("v%d", row.Version),
	}
	if err := gs.auditRepo.Record(ctx, nil, entry); err != nil {
		gs.log.Warn("Failed to write audit entry", "action", action, "error", err)
	}
	return row.Version, nil
}
