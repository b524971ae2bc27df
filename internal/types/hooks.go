package types

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Primary keys default to uuid_generate_v4() in postgres; these hooks cover
// drivers without that function (sqlite in tests).

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (c *Course) BeforeCreate(_ *gorm.DB) error             { ensureID(&c.ID); return nil }
func (e *Exam) BeforeCreate(_ *gorm.DB) error               { ensureID(&e.ID); return nil }
func (q *Question) BeforeCreate(_ *gorm.DB) error           { ensureID(&q.ID); return nil }
func (s *Score) BeforeCreate(_ *gorm.DB) error              { ensureID(&s.ID); return nil }
func (m *QuestionConceptMap) BeforeCreate(_ *gorm.DB) error { ensureID(&m.ID); return nil }
func (g *ConceptGraph) BeforeCreate(_ *gorm.DB) error       { ensureID(&g.ID); return nil }
func (p *Parameter) BeforeCreate(_ *gorm.DB) error          { ensureID(&p.ID); return nil }
func (r *ReadinessResult) BeforeCreate(_ *gorm.DB) error    { ensureID(&r.ID); return nil }
func (a *ClassAggregate) BeforeCreate(_ *gorm.DB) error     { ensureID(&a.ID); return nil }
func (c *Cluster) BeforeCreate(_ *gorm.DB) error            { ensureID(&c.ID); return nil }
func (a *ClusterAssignment) BeforeCreate(_ *gorm.DB) error  { ensureID(&a.ID); return nil }
func (i *InterventionResult) BeforeCreate(_ *gorm.DB) error { ensureID(&i.ID); return nil }
func (r *ComputeRun) BeforeCreate(_ *gorm.DB) error         { ensureID(&r.ID); return nil }
func (t *StudentToken) BeforeCreate(_ *gorm.DB) error       { ensureID(&t.ID); return nil }
func (l *AuditLog) BeforeCreate(_ *gorm.DB) error           { ensureID(&l.ID); return nil }
func (r *ExportRun) BeforeCreate(_ *gorm.DB) error          { ensureID(&r.ID); return nil }
