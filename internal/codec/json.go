package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"topolab/internal/domain"
)

// JSONCodec handles JSON import/export
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// jsonDocument defers record decoding so one bad record does not fail the file
type jsonDocument struct {
	Version     int               `json:"version"`
	Components  []json.RawMessage `json:"components"`
	Connections []json.RawMessage `json:"connections"`
}

// idOnly recovers the id of a record that failed to decode, when possible
type idOnly struct {
	ID string `json:"id"`
}

// Parse imports a topology document from JSON
func (c *JSONCodec) Parse(r io.Reader) (*Result, error) {
	var raw jsonDocument
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	version, err := checkVersion(raw.Version)
	if err != nil {
		return nil, err
	}

	result := newResult()
	result.Document.Version = version

	for i, msg := range raw.Components {
		var comp domain.Component
		if err := json.Unmarshal(msg, &comp); err != nil {
			var id idOnly
			_ = json.Unmarshal(msg, &id)
			result.skip(domain.RecordComponent, i, id.ID, fmt.Errorf("failed to decode component: %w", err))
			continue
		}
		if err := comp.Validate(); err != nil {
			result.skip(domain.RecordComponent, i, comp.ID, err)
			continue
		}
		result.Document.AddComponent(comp)
	}

	for i, msg := range raw.Connections {
		var conn domain.Connection
		if err := json.Unmarshal(msg, &conn); err != nil {
			var id idOnly
			_ = json.Unmarshal(msg, &id)
			result.skip(domain.RecordConnection, i, id.ID, fmt.Errorf("failed to decode connection: %w", err))
			continue
		}
		if err := checkConnection(&conn); err != nil {
			result.skip(domain.RecordConnection, i, conn.ID, err)
			continue
		}
		result.Document.AddConnection(conn)
	}

	return result, nil
}

// Export exports a topology document to JSON
func (c *JSONCodec) Export(doc *domain.Document, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
