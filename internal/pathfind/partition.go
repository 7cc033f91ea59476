package pathfind

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Partitions splits ids into connected groups. Each group keeps the order of
// ids, and groups are ordered by their first member.
func Partitions(g Adjacency, ids []string) [][]string {
	index := make(map[string]int64, len(ids))
	ug := simple.NewUndirectedGraph()
	for i, id := range ids {
		if !g.HasComponent(id) {
			continue
		}
		if _, dup := index[id]; dup {
			continue
		}
		index[id] = int64(i)
		ug.AddNode(simple.Node(i))
	}

	for id, from := range index {
		for _, c := range g.ConnectionsOf(id) {
			to, ok := index[c.Other(id)]
			if !ok || to == from {
				continue
			}
			ug.SetEdge(ug.NewEdge(simple.Node(from), simple.Node(to)))
		}
	}

	var groups [][]string
	for _, cc := range topo.ConnectedComponents(ug) {
		positions := make([]int, 0, len(cc))
		for _, n := range cc {
			positions = append(positions, int(n.ID()))
		}
		sort.Ints(positions)
		group := make([]string, 0, len(positions))
		for _, p := range positions {
			group = append(group, ids[p])
		}
		groups = append(groups, group)
	}

	sort.Slice(groups, func(i, j int) bool {
		return index[groups[i][0]] < index[groups[j][0]]
	})
	return groups
}
