package codec

import (
	"fmt"
	"io"

	"topolab/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML import/export
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// yamlDocument keeps each record as a node so records decode independently
type yamlDocument struct {
	Version     int         `yaml:"version"`
	Components  []yaml.Node `yaml:"components"`
	Connections []yaml.Node `yaml:"connections"`
}

func nodeID(n *yaml.Node) string {
	var id struct {
		ID string `yaml:"id"`
	}
	_ = n.Decode(&id)
	return id.ID
}

// Parse imports a topology document from YAML
func (c *YAMLCodec) Parse(r io.Reader) (*Result, error) {
	var yd yamlDocument
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&yd); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	version, err := checkVersion(yd.Version)
	if err != nil {
		return nil, err
	}

	result := newResult()
	result.Document.Version = version

	for i := range yd.Components {
		node := &yd.Components[i]
		var comp domain.Component
		if err := node.Decode(&comp); err != nil {
			result.skip(domain.RecordComponent, i, nodeID(node), fmt.Errorf("failed to decode component: %w", err))
			continue
		}
		if err := comp.Validate(); err != nil {
			result.skip(domain.RecordComponent, i, comp.ID, err)
			continue
		}
		result.Document.AddComponent(comp)
	}

	for i := range yd.Connections {
		node := &yd.Connections[i]
		var conn domain.Connection
		if err := node.Decode(&conn); err != nil {
			result.skip(domain.RecordConnection, i, nodeID(node), fmt.Errorf("failed to decode connection: %w", err))
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

// Export exports a topology document to YAML
func (c *YAMLCodec) Export(doc *domain.Document, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}
