package rules

import (
	"fmt"
	"io"
	"os"

	"topolab/internal/domain"

	"gopkg.in/yaml.v3"
)

// ruleFile is the on-disk rule table format
type ruleFile struct {
	// Extend layers the file on top of the built-in matrix instead of replacing it
	Extend bool   `yaml:"extend"`
	Rules  []Rule `yaml:"rules"`
}

// LoadYAML builds an engine from a YAML rule table. Every type tag must be in
// the catalog; a single bad entry fails the whole file.
func LoadYAML(r io.Reader) (*Engine, error) {
	var rf ruleFile
	if err := yaml.NewDecoder(r).Decode(&rf); err != nil {
		return nil, fmt.Errorf("failed to parse rule table: %w", err)
	}

	for i, rule := range rf.Rules {
		if !rule.A.Valid() {
			return nil, fmt.Errorf("rule %d: %w: %q", i, domain.ErrUnknownComponentType, rule.A)
		}
		if !rule.B.Valid() {
			return nil, fmt.Errorf("rule %d: %w: %q", i, domain.ErrUnknownComponentType, rule.B)
		}
	}

	var e *Engine
	if rf.Extend {
		e = Default()
	} else {
		e = NewEngine()
	}
	for _, rule := range rf.Rules {
		e.Register(rule)
	}
	return e, nil
}

// LoadFile reads a YAML rule table from path
func LoadFile(path string) (*Engine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rule table: %w", err)
	}
	defer f.Close()
	return LoadYAML(f)
}

// WriteYAML exports the engine's table in the format LoadYAML accepts
func (e *Engine) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()

	if err := enc.Encode(ruleFile{Rules: e.Rules()}); err != nil {
		return fmt.Errorf("failed to encode rule table: %w", err)
	}
	return nil
}
