package codec

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topolab/internal/domain"
	"topolab/internal/rules"
	"topolab/internal/spatial"
	"topolab/internal/topology"
)

func sampleDocument(t *testing.T) *domain.Document {
	t.Helper()
	g, ids, err := topology.Sample(rules.Default(), spatial.DefaultZones(1000, 600, 120))
	require.NoError(t, err)

	room := domain.NewComponent(domain.ComponentTypeAreaRoom, domain.Pt(500, 480))
	require.NoError(t, g.AddComponent(room, false))
	require.NoError(t, g.SetColor(room.ID, &domain.RGB{R: 12, G: 200, B: 99}))
	require.NoError(t, g.SetAreaSize(room.ID, &domain.Size{Width: 240, Height: 160}))

	sw := domain.NewComponent(domain.ComponentTypeSwitch, domain.Pt(620, 200))
	require.NoError(t, g.AddComponent(sw, false))
	_, err = g.AddConnection(ids.Router, sw.ID, domain.ConnectionFiber,
		topology.WithAttachment(domain.SideTopRight, ""),
		topology.WithCurve(domain.Pt(450, 150), domain.CurveBezier),
	)
	require.NoError(t, err)
	return g.Document()
}

func TestRoundTrip(t *testing.T) {
	for _, format := range []string{"json", "yaml"} {
		t.Run(format, func(t *testing.T) {
			c, err := Lookup(format)
			require.NoError(t, err)

			doc := sampleDocument(t)
			var buf bytes.Buffer
			require.NoError(t, c.Export(doc, &buf))

			result, err := c.Parse(&buf)
			require.NoError(t, err)
			assert.Empty(t, result.Skipped)
			assert.Equal(t, doc, result.Document)

			g, report, err := topology.FromDocument(result.Document, rules.Default(), spatial.DefaultZones(1000, 600, 120))
			require.NoError(t, err)
			assert.True(t, report.Clean())
			assert.Equal(t, doc, g.Document())
		})
	}
}

func TestJSONSkipsCorruptRecords(t *testing.T) {
	input := `{
  "version": 1,
  "components": [
    {"id": "r1", "type": "router", "position": {"x": 300, "y": 300}, "display_name": "Router"},
    {"id": "bad-pos", "type": "switch", "position": "left"},
    {"id": "bad-type", "type": "toaster", "position": {"x": 1, "y": 1}},
    {"id": "s1", "type": "switch", "position": {"x": 400, "y": 300}, "display_name": "Switch"}
  ],
  "connections": [
    {"id": "c1", "from_id": "r1", "to_id": "s1", "kind": "wired"},
    {"id": "c2", "from_id": "r1", "to_id": "r1", "kind": "wired"},
    42
  ]
}`

	result, err := NewJSONCodec().Parse(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, result.Document.Components, 2)
	assert.Equal(t, "r1", result.Document.Components[0].ID)
	assert.Equal(t, "s1", result.Document.Components[1].ID)
	require.Len(t, result.Document.Connections, 1)

	require.Len(t, result.Skipped, 4)
	assert.Equal(t, domain.SkippedRecord{Kind: domain.RecordComponent, Index: 1, ID: "bad-pos", Reason: result.Skipped[0].Reason}, result.Skipped[0])
	assert.Equal(t, "bad-type", result.Skipped[1].ID)
	assert.Contains(t, result.Skipped[1].Reason, "unknown component type")
	assert.Equal(t, "c2", result.Skipped[2].ID)
	assert.Equal(t, domain.RecordConnection, result.Skipped[3].Kind)
	assert.Equal(t, 2, result.Skipped[3].Index)
}

func TestYAMLSkipsCorruptRecords(t *testing.T) {
	input := `
version: 1
components:
  - id: r1
    type: router
    position: {x: 300, y: 300}
    display_name: Router
  - id: colored
    type: area_room
    position: {x: 500, y: 500}
    color: {r: 999, g: 0, b: 0}
  - just a string
connections:
  - id: c1
    from_id: r1
    to_id: ghost
    kind: carrier_pigeon
`
	result, err := NewYAMLCodec().Parse(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, result.Document.Components, 1)
	assert.Empty(t, result.Document.Connections)
	require.Len(t, result.Skipped, 3)
	assert.Equal(t, "colored", result.Skipped[0].ID)
	assert.Equal(t, 2, result.Skipped[1].Index)
	assert.Equal(t, "c1", result.Skipped[2].ID)
}

func TestMissingConnectionKindIsWired(t *testing.T) {
	tests := []struct {
		name  string
		codec Importer
		input string
	}{
		{"json", NewJSONCodec(), `{"version": 1, "connections": [{"id": "c1", "from_id": "r1", "to_id": "s1"}]}`},
		{"yaml", NewYAMLCodec(), "version: 1\nconnections:\n  - id: c1\n    from_id: r1\n    to_id: s1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.codec.Parse(strings.NewReader(tt.input))
			require.NoError(t, err)

			assert.Empty(t, result.Skipped)
			require.Len(t, result.Document.Connections, 1)
			assert.Equal(t, domain.ConnectionWired, result.Document.Connections[0].Kind)
		})
	}
}

func TestParseRejectsWholeFileErrors(t *testing.T) {
	_, err := NewJSONCodec().Parse(strings.NewReader("{not json"))
	assert.Error(t, err)

	_, err = NewJSONCodec().Parse(strings.NewReader(`{"version": 99}`))
	assert.Error(t, err)

	_, err = NewYAMLCodec().Parse(strings.NewReader("version: [1"))
	assert.Error(t, err)

	result, err := NewYAMLCodec().Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentVersion, result.Document.Version)
}

func TestAnsibleExport(t *testing.T) {
	doc := sampleDocument(t)

	var buf bytes.Buffer
	require.NoError(t, NewAnsibleCodec().Export(doc, &buf))
	out := buf.String()

	assert.Contains(t, out, "infrastructure:")
	assert.Contains(t, out, "client:")
	assert.Contains(t, out, "component_type: router")
	assert.Contains(t, out, "client_side: a")
	assert.NotContains(t, out, "area_room")
}

func TestAnsibleParse(t *testing.T) {
	input := `
all:
  children:
    network:
      hosts:
        gw:
          ansible_host: 10.0.0.1
    servers:
      hosts:
        web:
          role: ingress
        files:
          device_type: nas
    workstations:
      hosts:
        desk1: {}
`
	result, err := NewAnsibleCodec().Parse(strings.NewReader(input))
	require.NoError(t, err)

	types := map[string]domain.ComponentType{}
	for _, c := range result.Document.Components {
		types[c.ID] = c.Type
	}
	assert.Equal(t, domain.ComponentTypeRouter, types["gw"])
	assert.Equal(t, domain.ComponentTypeLoadBalancer, types["web"])
	assert.Equal(t, domain.ComponentTypeNAS, types["files"])
	assert.Equal(t, domain.ComponentTypePC, types["desk1"])

	assert.Len(t, result.Document.Connections, 3)
	for _, conn := range result.Document.Connections {
		assert.Equal(t, "gw", conn.ToID)
	}

	g, report, err := topology.FromDocument(result.Document, rules.Default(), spatial.DefaultZones(1200, 800, 120))
	require.NoError(t, err)
	assert.True(t, report.Clean())
	assert.Equal(t, 4, g.Len())
	assert.Equal(t, 3, g.ConnectionCount())
}

func TestLookup(t *testing.T) {
	_, err := Lookup("xml")
	assert.Error(t, err)
	assert.Equal(t, []string{"ansible-inventory", "json", "yaml"}, Formats())

	c, ok := ForPath("lab.YML")
	require.True(t, ok)
	assert.Equal(t, "yaml", c.Format())
	_, ok = ForPath("lab.txt")
	assert.False(t, ok)
}
