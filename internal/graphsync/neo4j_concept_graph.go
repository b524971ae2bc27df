package graphsync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/conceptlens/conceptlens-backend/internal/engine"
	"github.com/conceptlens/conceptlens-backend/internal/logger"
	"github.com/conceptlens/conceptlens-backend/internal/platform/neo4jdb"
)

// UpsertExamConceptGraph mirrors one committed graph version into neo4j so
// prerequisite chains can be explored with graph queries. The relational
// store stays the source of truth; a nil client makes this a no-op.
func UpsertExamConceptGraph(ctx context.Context, client *neo4jdb.Client, log *logger.Logger, examID uuid.UUID, version int, g engine.Graph) error {
	if client == nil || client.Driver == nil {
		return nil
	}
	if examID == uuid.Nil {
		return fmt.Errorf("neo4j concept graph sync: missing examID")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	nodes := make([]map[string]any, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		nodes = append(nodes, map[string]any{
			"exam_id":    examID.String(),
			"concept_id": n.ID,
			"label":      n.Label,
			"version":    int64(version),
			"synced_at":  now,
		})
	}

	rels := make([]map[string]any, 0, len(g.Edges))
	for _, e := range g.Edges {
		rels = append(rels, map[string]any{
			"exam_id":   examID.String(),
			"from_id":   e.Source,
			"to_id":     e.Target,
			"weight":    e.Weight,
			"rationale": e.Rationale,
			"version":   int64(version),
			"synced_at": now,
		})
	}

	session := client.Session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		// Drop the previous mirror of this exam before writing the new
		// version; the mirror only ever holds the head.
		if _, err := tx.Run(ctx, `
			MATCH (c:Concept {exam_id: $exam_id})
			DETACH DELETE c
		`, map[string]any{"exam_id": examID.String()}); err != nil {
			return nil, fmt.Errorf("clear previous mirror: %w", err)
		}

		if _, err := tx.Run(ctx, `
			UNWIND $nodes AS node
			MERGE (c:Concept {exam_id: node.exam_id, concept_id: node.concept_id})
			SET c.label = node.label,
			    c.version = node.version,
			    c.synced_at = node.synced_at
		`, map[string]any{"nodes": nodes}); err != nil {
			return nil, fmt.Errorf("upsert concept nodes: %w", err)
		}

		if len(rels) > 0 {
			if _, err := tx.Run(ctx, `
				UNWIND $rels AS rel
				MATCH (from:Concept {exam_id: rel.exam_id, concept_id: rel.from_id})
				MATCH (to:Concept {exam_id: rel.exam_id, concept_id: rel.to_id})
				MERGE (from)-[r:PREREQUISITE_OF]->(to)
				SET r.weight = rel.weight,
				    r.rationale = rel.rationale,
				    r.version = rel.version,
				    r.synced_at = rel.synced_at
			`, map[string]any{"rels": rels}); err != nil {
				return nil, fmt.Errorf("upsert prerequisite edges: %w", err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("neo4j concept graph sync: %w", err)
	}

	if log != nil {
		log.Debug("Mirrored concept graph to neo4j", "exam_id", examID.String(), "version", version, "nodes", len(nodes), "edges", len(rels))
	}
	return nil
}
