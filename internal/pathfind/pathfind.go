// Package pathfind answers reachability questions over a topology.
//
// Links are unweighted, so a breadth-first search gives a shortest path in
// hops. Neighbours are visited in the order the adjacency returns them, which
// makes ties deterministic for a given construction history.
package pathfind

import (
	"container/list"

	"topolab/internal/domain"
)

// Adjacency is the read-only view the search walks
type Adjacency interface {
	HasComponent(id string) bool
	ConnectionsOf(id string) []domain.Connection
}

// FindPath returns the ids along a shortest path from one component to
// another, both ends included. It returns nil when either end is missing or
// no route exists, and [from] when from equals to.
func FindPath(g Adjacency, from, to string) []string {
	if !g.HasComponent(from) || !g.HasComponent(to) {
		return nil
	}
	if from == to {
		return []string{from}
	}

	parent := make(map[string]string)
	visited := map[string]bool{from: true}
	queue := list.New()
	queue.PushBack(from)

	for queue.Len() > 0 {
		current := queue.Remove(queue.Front()).(string)
		for _, c := range g.ConnectionsOf(current) {
			next := c.Other(current)
			if visited[next] || !g.HasComponent(next) {
				continue
			}
			visited[next] = true
			parent[next] = current
			if next == to {
				return walkBack(parent, from, to)
			}
			queue.PushBack(next)
		}
	}
	return nil
}

func walkBack(parent map[string]string, from, to string) []string {
	var path []string
	for id := to; ; id = parent[id] {
		path = append(path, id)
		if id == from {
			break
		}
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Reachable reports whether a route exists between two components
func Reachable(g Adjacency, from, to string) bool {
	return len(FindPath(g, from, to)) > 0
}

// Distances returns the hop count from one component to every component it
// can reach, itself included at zero.
func Distances(g Adjacency, from string) map[string]int {
	if !g.HasComponent(from) {
		return map[string]int{}
	}
	dist := map[string]int{from: 0}
	queue := list.New()
	queue.PushBack(from)

	for queue.Len() > 0 {
		current := queue.Remove(queue.Front()).(string)
		for _, c := range g.ConnectionsOf(current) {
			next := c.Other(current)
			if _, seen := dist[next]; seen || !g.HasComponent(next) {
				continue
			}
			dist[next] = dist[current] + 1
			queue.PushBack(next)
		}
	}
	return dist
}
