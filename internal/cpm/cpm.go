// Package cpm computes dependency-bound timings over a group graph: how early
// each group could start if only previous_group links and dwell times
// constrained it.
package cpm

import (
	"fmt"
	"sort"

	"github.com/joshharrison/steploom/internal/graph"
)

// Analyze performs critical path analysis on g. A group's dwell (its required
// time, when positive) runs from the group's start: a group cannot finish
// before its previous group's start plus dwell plus its own duration, and
// never starts before any dependency finishes.
func Analyze(g *graph.GroupGraph) (*Result, error) {
	order, err := topoSort(g)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Groups:    make(map[int]*GroupTiming, len(order)),
		TopoOrder: order,
	}
	for _, id := range order {
		dwell := g.Groups[id].RequiredTime
		if dwell < 0 {
			dwell = 0
		}
		result.Groups[id] = &GroupTiming{Group: id, Dwell: dwell}
	}

	// Forward pass: ES = max(EF, ES + dwell) over dependencies
	for _, id := range order {
		gt := result.Groups[id]
		for _, pred := range g.RevAdj[id] {
			p := result.Groups[pred]
			ready := p.EF
			if pred == g.Groups[id].PreviousGroup && p.ES+p.Dwell > ready {
				ready = p.ES + p.Dwell
			}
			if ready > gt.ES {
				gt.ES = ready
			}
		}
		gt.EF = gt.ES + g.Groups[id].ExpectedDuration
		if gt.EF > result.TotalDuration {
			result.TotalDuration = gt.EF
		}
	}

	// Backward pass in reverse topological order
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		gt := result.Groups[id]
		dur := g.Groups[id].ExpectedDuration
		gt.LF = result.TotalDuration
		for _, succ := range g.Adj[id] {
			ls := result.Groups[succ].LS
			// finish before the successor starts, and start dwell before it
			latest := ls
			if g.Groups[succ].PreviousGroup == id {
				if byDwell := ls - gt.Dwell + dur; byDwell < latest {
					latest = byDwell
				}
			}
			if latest < gt.LF {
				gt.LF = latest
			}
		}
		gt.LS = gt.LF - dur
		gt.Slack = gt.LS - gt.ES
		gt.IsCritical = gt.Slack == 0
	}

	for _, id := range order {
		if result.Groups[id].IsCritical {
			result.CriticalPath = append(result.CriticalPath, id)
		}
	}

	result.Waves = computeWaves(result)
	return result, nil
}

// topoSort performs Kahn's algorithm, lowest group id first among ready groups.
func topoSort(g *graph.GroupGraph) ([]int, error) {
	inDegree := make(map[int]int, len(g.Groups))
	var queue []int
	for _, id := range g.IDs() {
		inDegree[id] = len(g.RevAdj[id])
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	var order []int
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		var newReady []int
		for _, succ := range g.Adj[node] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				newReady = append(newReady, succ)
			}
		}
		sort.Ints(newReady)
		queue = append(queue, newReady...)
	}

	if len(order) != len(g.Groups) {
		return nil, fmt.Errorf("topological sort failed: %w (%d of %d groups sorted)", graph.ErrCyclicDependency, len(order), len(g.Groups))
	}
	return order, nil
}

// computeWaves groups by earliest start time.
func computeWaves(result *Result) []Wave {
	esGroups := make(map[int][]int)
	for _, id := range result.TopoOrder {
		es := result.Groups[id].ES
		esGroups[es] = append(esGroups[es], id)
	}

	esValues := make([]int, 0, len(esGroups))
	for es := range esGroups {
		esValues = append(esValues, es)
	}
	sort.Ints(esValues)

	waves := make([]Wave, len(esValues))
	for i, es := range esValues {
		ids := esGroups[es]
		sort.Ints(ids)

		hasCritical := false
		for _, id := range ids {
			result.Groups[id].Wave = i
			if result.Groups[id].IsCritical {
				hasCritical = true
			}
		}

		// critical groups first within a wave
		sort.SliceStable(ids, func(a, b int) bool {
			return result.Groups[ids[a]].IsCritical && !result.Groups[ids[b]].IsCritical
		})

		waves[i] = Wave{Index: i, Groups: ids, IsCritical: hasCritical}
	}
	return waves
}
