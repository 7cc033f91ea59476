package pathfind

import "topolab/internal/domain"

// excluded hides components matching a predicate from an adjacency
type excluded struct {
	base Adjacency
	skip func(id string) bool
}

// Exclude returns a view of g without the components for which skip returns
// true. Links to hidden components disappear with them.
func Exclude(g Adjacency, skip func(id string) bool) Adjacency {
	if skip == nil {
		return g
	}
	return excluded{base: g, skip: skip}
}

func (e excluded) HasComponent(id string) bool {
	return e.base.HasComponent(id) && !e.skip(id)
}

func (e excluded) ConnectionsOf(id string) []domain.Connection {
	if e.skip(id) {
		return nil
	}
	all := e.base.ConnectionsOf(id)
	out := make([]domain.Connection, 0, len(all))
	for _, c := range all {
		if !e.skip(c.Other(id)) {
			out = append(out, c)
		}
	}
	return out
}
