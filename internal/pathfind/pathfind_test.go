package pathfind

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topolab/internal/domain"
	"topolab/internal/rules"
	"topolab/internal/spatial"
	"topolab/internal/topology"
)

// links is a minimal adjacency built from an edge list
type links struct {
	nodes map[string]bool
	adj   map[string][]domain.Connection
}

func newLinks(ids ...string) *links {
	l := &links{nodes: map[string]bool{}, adj: map[string][]domain.Connection{}}
	for _, id := range ids {
		l.nodes[id] = true
	}
	return l
}

func (l *links) link(a, b string) {
	c := domain.Connection{ID: a + "-" + b, FromID: a, ToID: b, Kind: domain.ConnectionWired}
	l.adj[a] = append(l.adj[a], c)
	l.adj[b] = append(l.adj[b], c)
}

func (l *links) HasComponent(id string) bool { return l.nodes[id] }
func (l *links) ConnectionsOf(id string) []domain.Connection { return l.adj[id] }

func chain(n int) (*links, []string) {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("n%d", i)
	}
	l := newLinks(ids...)
	for i := 0; i+1 < n; i++ {
		l.link(ids[i], ids[i+1])
	}
	return l, ids
}

func TestFindPathSample(t *testing.T) {
	g, ids, err := topology.Sample(rules.Default(), spatial.DefaultZones(1000, 600, 120))
	require.NoError(t, err)

	assert.Equal(t, ids.Path(), FindPath(g, ids.ClientA, ids.ClientB))

	reversed := FindPath(g, ids.ClientB, ids.ClientA)
	assert.Equal(t, []string{ids.ClientB, ids.Server, ids.Switch, ids.Router, ids.ClientA}, reversed)
}

func TestFindPathEdgeCases(t *testing.T) {
	l := newLinks("a", "b", "c", "island")
	l.link("a", "b")
	l.link("b", "c")

	t.Run("same endpoint", func(t *testing.T) {
		assert.Equal(t, []string{"a"}, FindPath(l, "a", "a"))
	})

	t.Run("disconnected", func(t *testing.T) {
		assert.Empty(t, FindPath(l, "a", "island"))
		assert.False(t, Reachable(l, "a", "island"))
	})

	t.Run("missing endpoints", func(t *testing.T) {
		assert.Empty(t, FindPath(l, "a", "nowhere"))
		assert.Empty(t, FindPath(l, "nowhere", "nowhere"))
	})

	t.Run("shortcut wins", func(t *testing.T) {
		l.link("a", "c")
		assert.Equal(t, []string{"a", "c"}, FindPath(l, "a", "c"))
	})
}

func TestFindPathTieBreakFollowsConnectionOrder(t *testing.T) {
	l := newLinks("s", "x", "y", "t")
	l.link("s", "y")
	l.link("s", "x")
	l.link("x", "t")
	l.link("y", "t")

	assert.Equal(t, []string{"s", "y", "t"}, FindPath(l, "s", "t"))
}

func TestFindPathChainProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("chain of k hops yields k+1 ids", prop.ForAll(
		func(n, split int) bool {
			l, ids := chain(n)
			path := FindPath(l, ids[0], ids[n-1])
			if len(path) != n {
				return false
			}

			// Cutting the chain at any link separates the ends
			cut := newLinks(ids...)
			for i := 0; i+1 < n; i++ {
				if i != split%(n-1) {
					cut.link(ids[i], ids[i+1])
				}
			}
			return len(FindPath(cut, ids[0], ids[n-1])) == 0
		},
		gen.IntRange(2, 40), gen.IntRange(0, 1000),
	))

	properties.TestingRun(t)
}

func TestDistances(t *testing.T) {
	l, ids := chain(4)
	l.nodes["lonely"] = true

	d := Distances(l, ids[0])
	assert.Equal(t, map[string]int{"n0": 0, "n1": 1, "n2": 2, "n3": 3}, d)
	assert.Empty(t, Distances(l, "missing"))
}

func TestExclude(t *testing.T) {
	l := newLinks("a", "b", "c", "d")
	l.link("a", "b")
	l.link("b", "d")
	l.link("a", "c")
	l.link("c", "d")

	view := Exclude(l, func(id string) bool { return id == "b" })
	assert.False(t, view.HasComponent("b"))
	assert.Equal(t, []string{"a", "c", "d"}, FindPath(view, "a", "d"))
	assert.Len(t, l.ConnectionsOf("a"), 2)

	both := Exclude(l, func(id string) bool { return id == "b" || id == "c" })
	assert.Empty(t, FindPath(both, "a", "d"))

	assert.Equal(t, Adjacency(l), Exclude(l, nil))
}

func TestPartitions(t *testing.T) {
	l := newLinks("a", "b", "c", "d", "e")
	l.link("a", "c")
	l.link("d", "e")

	groups := Partitions(l, []string{"a", "b", "c", "d", "e"})
	assert.Equal(t, [][]string{{"a", "c"}, {"b"}, {"d", "e"}}, groups)

	t.Run("ignores unknown ids", func(t *testing.T) {
		groups := Partitions(l, []string{"a", "ghost", "c"})
		assert.Equal(t, [][]string{{"a", "c"}}, groups)
	})
}
