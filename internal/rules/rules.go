// Package rules implements the symmetric connection-legality table.
//
// A rule is registered for an unordered pair of component types and matches
// queries in either order. Pairs without a rule are denied: new device types
// have to be wired into the matrix explicitly before they can be connected.
package rules

import (
	"fmt"
	"sort"

	"topolab/internal/domain"
)

// Rule allows or denies links between two component types
type Rule struct {
	A       domain.ComponentType `json:"a" yaml:"a"`
	B       domain.ComponentType `json:"b" yaml:"b"`
	Allowed bool                 `json:"allowed" yaml:"allowed"`
	Reason  string               `json:"reason,omitempty" yaml:"reason,omitempty"`
}

type pairKey struct {
	lo, hi domain.ComponentType
}

func makeKey(a, b domain.ComponentType) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// Engine evaluates connection legality
type Engine struct {
	rules map[pairKey]Rule
}

// NewEngine creates an engine from the given rules. Later rules for the same
// unordered pair replace earlier ones.
func NewEngine(rules ...Rule) *Engine {
	e := &Engine{rules: make(map[pairKey]Rule, len(rules))}
	for _, r := range rules {
		e.Register(r)
	}
	return e
}

// Register adds or replaces the rule for r's unordered pair
func (e *Engine) Register(r Rule) {
	e.rules[makeKey(r.A, r.B)] = r
}

// IsAllowed reports whether a and b may be connected. When denied, the second
// return value explains why.
func (e *Engine) IsAllowed(a, b domain.ComponentType) (bool, string) {
	r, ok := e.rules[makeKey(a, b)]
	if !ok {
		return false, fmt.Sprintf("no connection rule defined between %s and %s", a.DisplayName(), b.DisplayName())
	}
	if r.Allowed {
		return true, ""
	}
	reason := r.Reason
	if reason == "" {
		reason = fmt.Sprintf("%s cannot connect to %s", a.DisplayName(), b.DisplayName())
	}
	return false, reason
}

// Check is IsAllowed expressed as an error suitable for graph mutations
func (e *Engine) Check(a, b domain.ComponentType) error {
	if ok, reason := e.IsAllowed(a, b); !ok {
		return &domain.ConnectionRejectedError{From: a, To: b, Reason: reason}
	}
	return nil
}

// AllowedPartners returns every type permitted to connect to t, in catalog order
func (e *Engine) AllowedPartners(t domain.ComponentType) []domain.ComponentType {
	seen := make(map[domain.ComponentType]bool)
	for key, r := range e.rules {
		if !r.Allowed {
			continue
		}
		switch t {
		case key.lo:
			seen[key.hi] = true
		case key.hi:
			seen[key.lo] = true
		}
	}

	partners := make([]domain.ComponentType, 0, len(seen))
	for p := range seen {
		partners = append(partners, p)
	}
	sortTypes(partners)
	return partners
}

// Rules lists the table sorted by catalog order of the normalized pair
func (e *Engine) Rules() []Rule {
	out := make([]Rule, 0, len(e.rules))
	for _, r := range e.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		ki, kj := makeKey(out[i].A, out[i].B), makeKey(out[j].A, out[j].B)
		if oi, oj := typeOrder(ki.lo), typeOrder(kj.lo); oi != oj {
			return oi < oj
		}
		return typeOrder(ki.hi) < typeOrder(kj.hi)
	})
	return out
}

// Len returns the number of registered pairs
func (e *Engine) Len() int {
	return len(e.rules)
}

func typeOrder(t domain.ComponentType) int {
	if o := t.Order(); o >= 0 {
		return o
	}
	return len(domain.AllComponentTypes())
}

func sortTypes(types []domain.ComponentType) {
	sort.Slice(types, func(i, j int) bool {
		oi, oj := typeOrder(types[i]), typeOrder(types[j])
		if oi != oj {
			return oi < oj
		}
		return types[i] < types[j]
	})
}
