package topology

import (
	"fmt"

	"topolab/internal/domain"
	"topolab/internal/rules"
	"topolab/internal/spatial"
)

// LoadReport lists the records a load skipped
type LoadReport struct {
	Skipped []domain.SkippedRecord `json:"skipped"`
}

// Add records a skipped entry
func (r *LoadReport) Add(kind domain.RecordKind, index int, id string, err error) {
	r.Skipped = append(r.Skipped, domain.SkippedRecord{
		Kind:   kind,
		Index:  index,
		ID:     id,
		Reason: err.Error(),
	})
}

// Merge appends the skipped records of other
func (r *LoadReport) Merge(other []domain.SkippedRecord) {
	r.Skipped = append(r.Skipped, other...)
}

// Clean reports whether nothing was skipped
func (r LoadReport) Clean() bool {
	return len(r.Skipped) == 0
}

// Document returns the persisted form of the graph in insertion order
func (g *Graph) Document() *domain.Document {
	doc := domain.NewDocument()
	for _, c := range g.Components() {
		doc.AddComponent(c)
	}
	for _, c := range g.Connections() {
		doc.AddConnection(c)
	}
	return doc
}

// FromDocument rebuilds a graph from a persisted document. Each record goes
// through the same checks as an interactive edit; records that fail are
// skipped and listed in the report while the rest still load. Stored
// positions were accepted when written, so non-client components may sit in
// a client zone; client flags are still slot-checked and pinned.
func FromDocument(doc *domain.Document, engine *rules.Engine, zones spatial.ZoneLayout, opts ...Option) (*Graph, LoadReport, error) {
	var report LoadReport
	if doc == nil {
		return nil, report, fmt.Errorf("nil document")
	}
	if doc.Version > domain.DocumentVersion {
		return nil, report, fmt.Errorf("unsupported document version %d", doc.Version)
	}

	g := New(engine, zones, opts...)
	for i, c := range doc.Components {
		if err := g.AddComponent(c, true); err != nil {
			report.Add(domain.RecordComponent, i, c.ID, err)
		}
	}
	for i, c := range doc.Connections {
		if c.Kind == "" {
			c.Kind = domain.ConnectionWired
		}
		if g.Connected(c.FromID, c.ToID) {
			report.Add(domain.RecordConnection, i, c.ID, fmt.Errorf("duplicate connection between %s and %s", c.FromID, c.ToID))
			continue
		}
		if _, err := g.insertConnection(c); err != nil {
			report.Add(domain.RecordConnection, i, c.ID, err)
		}
	}
	return g, report, nil
}
