package codec

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"topolab/internal/domain"
)

// Result is a parsed document together with the records that were skipped
type Result struct {
	Document *domain.Document
	Skipped  []domain.SkippedRecord
}

func newResult() *Result {
	return &Result{Document: domain.NewDocument()}
}

func (r *Result) skip(kind domain.RecordKind, index int, id string, err error) {
	r.Skipped = append(r.Skipped, domain.SkippedRecord{
		Kind:   kind,
		Index:  index,
		ID:     id,
		Reason: err.Error(),
	})
}

// checkConnection validates a decoded connection. Records written without a
// kind are wired, matching what the graph assumes for an empty kind.
func checkConnection(c *domain.Connection) error {
	if c.Kind == "" {
		c.Kind = domain.ConnectionWired
	}
	return c.Validate()
}

// Importer interface for importing topology documents from various formats
type Importer interface {
	Parse(r io.Reader) (*Result, error)
	Format() string
}

// Exporter interface for exporting topology documents to various formats
type Exporter interface {
	Export(doc *domain.Document, w io.Writer) error
	Format() string
}

// Codec both imports and exports a format
type Codec interface {
	Importer
	Exporter
}

var codecs = map[string]Codec{
	"json":              NewJSONCodec(),
	"yaml":              NewYAMLCodec(),
	"ansible-inventory": NewAnsibleCodec(),
}

// Lookup returns the codec registered for a format name
func Lookup(format string) (Codec, error) {
	c, ok := codecs[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("unsupported format %q (supported: %s)", format, strings.Join(Formats(), ", "))
	}
	return c, nil
}

// Formats lists the registered format names
func Formats() []string {
	out := make([]string, 0, len(codecs))
	for name := range codecs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ForPath picks a document codec from a file extension
func ForPath(path string) (Codec, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return codecs["json"], true
	case ".yaml", ".yml":
		return codecs["yaml"], true
	}
	return nil, false
}

// GridPosition lays imported components out row by row, clear of the client
// zones on a default canvas.
func GridPosition(i int) domain.Point {
	const (
		originX = 200.0
		originY = 100.0
		spacing = 120.0
		perRow  = 7
	)
	return domain.Pt(originX+float64(i%perRow)*spacing, originY+float64(i/perRow)*spacing)
}

func checkVersion(version int) (int, error) {
	switch {
	case version == 0:
		return domain.DocumentVersion, nil
	case version > domain.DocumentVersion:
		return 0, fmt.Errorf("unsupported document version %d", version)
	}
	return version, nil
}
