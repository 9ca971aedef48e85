package graph

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/joshharrison/steploom/internal/timing"
)

// ErrCyclicDependency is matched by every *CyclicDependencyError.
var ErrCyclicDependency = errors.New("cyclic group dependency")

// CyclicDependencyError reports a previous_group chain that loops back on itself.
type CyclicDependencyError struct {
	Cycle []int // first and last element are the same group
}

func (e *CyclicDependencyError) Error() string {
	parts := make([]string, len(e.Cycle))
	for i, id := range e.Cycle {
		parts[i] = strconv.Itoa(id)
	}
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(parts, " -> "))
}

func (e *CyclicDependencyError) Is(target error) bool {
	return target == ErrCyclicDependency
}

// Build aggregates linked timing rows into groups and indexes their
// dependencies. Dependencies on groups outside the rows are ignored.
func Build(rows []timing.Row) (*GroupGraph, error) {
	g := &GroupGraph{
		Groups: make(map[int]*Group),
		Adj:    make(map[int][]int),
		RevAdj: make(map[int][]int),
	}

	for _, r := range rows {
		grp, ok := g.Groups[r.Group]
		if !ok {
			grp = &Group{
				ID:               r.Group,
				Step:             r.Step,
				RequiredTime:     r.RequiredTime,
				DestinationGroup: r.DestinationGroup,
				PreviousGroup:    r.PreviousGroup,
				GroupForward:     r.GroupForward,
				GroupBackward:    r.GroupBackward,
			}
			g.Groups[r.Group] = grp
		}
		grp.ExpectedDuration += r.ExpectedDuration
		grp.Rows++
	}

	edgeSet := make(map[[2]int]bool)
	addEdge := func(from, to int) {
		key := [2]int{from, to}
		if edgeSet[key] {
			return
		}
		edgeSet[key] = true
		g.Adj[from] = append(g.Adj[from], to)
		g.RevAdj[to] = append(g.RevAdj[to], from)
	}
	for _, r := range rows {
		if r.PreviousGroup <= 0 {
			continue
		}
		if _, ok := g.Groups[r.PreviousGroup]; ok {
			addEdge(r.PreviousGroup, r.Group)
		}
	}

	for k := range g.Adj {
		sort.Ints(g.Adj[k])
	}
	for k := range g.RevAdj {
		sort.Ints(g.RevAdj[k])
	}

	for _, id := range g.IDs() {
		if len(g.RevAdj[id]) == 0 {
			g.Roots = append(g.Roots, id)
		}
		if len(g.Adj[id]) == 0 {
			g.Leaves = append(g.Leaves, id)
		}
	}

	if cycle := g.DetectCycle(); cycle != nil {
		return nil, &CyclicDependencyError{Cycle: cycle}
	}
	return g, nil
}

// DetectCycle returns the cycle path if one exists, or nil if the graph is acyclic.
// Uses DFS with coloring: white (unvisited), gray (in progress), black (done).
func (g *GroupGraph) DetectCycle() []int {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make(map[int]int)
	parent := make(map[int]int)

	var dfs func(node int) []int
	dfs = func(node int) []int {
		color[node] = gray
		for _, next := range g.Adj[node] {
			if color[next] == gray {
				cycle := []int{next, node}
				cur := node
				for cur != next {
					cur = parent[cur]
					cycle = append(cycle, cur)
				}
				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}
				return cycle
			}
			if color[next] == white {
				parent[next] = node
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			}
		}
		color[node] = black
		return nil
	}

	for _, id := range g.IDs() {
		if color[id] == white {
			if cycle := dfs(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// IDs returns all group ids ascending.
func (g *GroupGraph) IDs() []int {
	ids := make([]int, 0, len(g.Groups))
	for id := range g.Groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// GroupCount returns the number of groups in the graph.
func (g *GroupGraph) GroupCount() int {
	return len(g.Groups)
}
