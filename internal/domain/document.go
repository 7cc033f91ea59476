package domain

// DocumentVersion is the current persisted format version
const DocumentVersion = 1

// Document is the persisted form of a topology. List order is not semantically
// significant but is preserved for diff-friendly output.
type Document struct {
	Version     int          `json:"version" yaml:"version"`
	Components  []Component  `json:"components" yaml:"components"`
	Connections []Connection `json:"connections" yaml:"connections"`
}

// NewDocument creates an empty document at the current version
func NewDocument() *Document {
	return &Document{
		Version:     DocumentVersion,
		Components:  make([]Component, 0),
		Connections: make([]Connection, 0),
	}
}

// AddComponent appends a component record
func (d *Document) AddComponent(c Component) {
	d.Components = append(d.Components, c)
}

// AddConnection appends a connection record
func (d *Document) AddConnection(c Connection) {
	d.Connections = append(d.Connections, c)
}

// RecordKind identifies which list a skipped record came from
type RecordKind string

const (
	RecordComponent  RecordKind = "component"
	RecordConnection RecordKind = "connection"
)

// SkippedRecord describes a persisted record that could not be loaded.
// Loaders skip such records and continue with the rest of the document.
type SkippedRecord struct {
	Kind   RecordKind `json:"kind"`
	Index  int        `json:"index"`
	ID     string     `json:"id,omitempty"`
	Reason string     `json:"reason"`
}
