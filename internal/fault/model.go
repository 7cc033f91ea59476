package fault

import (
	"fmt"
	"sort"

	"github.com/iti/rngstream"

	"topolab/internal/domain"
)

// Registry is the set of components problems may be applied to
type Registry interface {
	HasComponent(id string) bool
}

// Model tracks which problems are active on which components
type Model struct {
	components Registry
	active     map[string]map[ProblemKind]struct{}
}

// NewModel creates a model validating ids against components. A nil registry
// accepts any id.
func NewModel(components Registry) *Model {
	return &Model{
		components: components,
		active:     make(map[string]map[ProblemKind]struct{}),
	}
}

func (m *Model) check(kind ProblemKind, id string) error {
	if _, ok := catalogIndex[kind]; !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownProblem, kind)
	}
	if m.components != nil && !m.components.HasComponent(id) {
		return fmt.Errorf("%w: %s", domain.ErrComponentNotFound, id)
	}
	return nil
}

// Apply marks kind active on a component. Applying an active problem again
// has no further effect.
func (m *Model) Apply(kind ProblemKind, id string) error {
	if err := m.check(kind, id); err != nil {
		return err
	}
	set, ok := m.active[id]
	if !ok {
		set = make(map[ProblemKind]struct{})
		m.active[id] = set
	}
	set[kind] = struct{}{}
	return nil
}

// Resolve clears kind on a component. Resolving an inactive problem is a no-op.
func (m *Model) Resolve(kind ProblemKind, id string) error {
	if _, ok := catalogIndex[kind]; !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownProblem, kind)
	}
	set, ok := m.active[id]
	if !ok {
		return nil
	}
	delete(set, kind)
	if len(set) == 0 {
		delete(m.active, id)
	}
	return nil
}

// IsActive reports whether kind is active on a component
func (m *Model) IsActive(kind ProblemKind, id string) bool {
	_, ok := m.active[id][kind]
	return ok
}

// Active lists the problems active on a component in catalog order
func (m *Model) Active(id string) []ProblemKind {
	set := m.active[id]
	if len(set) == 0 {
		return nil
	}
	out := make([]ProblemKind, 0, len(set))
	for _, p := range catalog {
		if _, ok := set[p.Kind]; ok {
			out = append(out, p.Kind)
		}
	}
	return out
}

// Status folds the active problems of a component over the default status
func (m *Model) Status(id string) domain.Status {
	s := domain.DefaultStatus()
	for _, kind := range m.Active(id) {
		catalog[catalogIndex[kind]].Affect(&s)
	}
	return s
}

// Forwarding reports whether a component can currently pass traffic
func (m *Model) Forwarding(id string) bool {
	return m.Status(id).Forwarding()
}

// Clear resolves every problem on a component
func (m *Model) Clear(id string) {
	delete(m.active, id)
}

// Reset resolves every problem everywhere
func (m *Model) Reset() {
	m.active = make(map[string]map[ProblemKind]struct{})
}

// ActiveCount returns the number of active (component, problem) pairs
func (m *Model) ActiveCount() int {
	n := 0
	for _, set := range m.active {
		n += len(set)
	}
	return n
}

// Affected returns the ids with at least one active problem, sorted
func (m *Model) Affected() []string {
	out := make([]string, 0, len(m.active))
	for id := range m.active {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// CountBySeverity tallies active problems per severity level
func (m *Model) CountBySeverity() map[Severity]int {
	out := make(map[Severity]int, len(Severities()))
	for _, s := range Severities() {
		out[s] = 0
	}
	for _, set := range m.active {
		for kind := range set {
			out[catalog[catalogIndex[kind]].Severity]++
		}
	}
	return out
}

// Injection is a problem applied by InjectRandom
type Injection struct {
	ComponentID string      `json:"component_id"`
	Kind        ProblemKind `json:"kind"`
}

// InjectRandom applies a random problem to a random component from ids. It
// reports false when ids is empty or every pair drawn was already active.
func (m *Model) InjectRandom(ids []string, rng *rngstream.RngStream) (Injection, bool, error) {
	if len(ids) == 0 {
		return Injection{}, false, nil
	}
	// A handful of draws keeps injection useful on nearly saturated graphs
	for attempt := 0; attempt < 8; attempt++ {
		id := ids[rng.RandInt(0, len(ids)-1)]
		kind := catalog[rng.RandInt(0, len(catalog)-1)].Kind
		if m.IsActive(kind, id) {
			continue
		}
		if err := m.Apply(kind, id); err != nil {
			return Injection{}, false, err
		}
		return Injection{ComponentID: id, Kind: kind}, true, nil
	}
	return Injection{}, false, nil
}
