// Package sequencer links the groups of each destination lane into a chain.
package sequencer

import (
	"sort"

	"github.com/joshharrison/steploom/internal/timing"
)

// Lane is the ordered chain of groups sharing a destination group.
type Lane struct {
	DestinationGroup int   `json:"destination_group"`
	Groups           []int `json:"groups"`
}

type laneKey struct {
	group, destinationGroup int
}

type neighbors struct {
	forward, backward int
}

// Lanes returns every lane with its distinct group ids ascending, lanes
// ordered by destination group.
func Lanes(rows []timing.Row) []Lane {
	byLane := make(map[int]map[int]bool)
	for _, r := range rows {
		if byLane[r.DestinationGroup] == nil {
			byLane[r.DestinationGroup] = make(map[int]bool)
		}
		byLane[r.DestinationGroup][r.Group] = true
	}

	dsts := make([]int, 0, len(byLane))
	for d := range byLane {
		dsts = append(dsts, d)
	}
	sort.Ints(dsts)

	lanes := make([]Lane, 0, len(dsts))
	for _, d := range dsts {
		groups := make([]int, 0, len(byLane[d]))
		for g := range byLane[d] {
			groups = append(groups, g)
		}
		sort.Ints(groups)
		lanes = append(lanes, Lane{DestinationGroup: d, Groups: groups})
	}
	return lanes
}

// Link returns a copy of rows with GroupForward and GroupBackward set to the
// next and previous group in the row's lane (0 at lane ends).
func Link(rows []timing.Row) []timing.Row {
	links := make(map[laneKey]neighbors)
	for _, lane := range Lanes(rows) {
		for i, g := range lane.Groups {
			var n neighbors
			if i+1 < len(lane.Groups) {
				n.forward = lane.Groups[i+1]
			}
			if i > 0 {
				n.backward = lane.Groups[i-1]
			}
			links[laneKey{group: g, destinationGroup: lane.DestinationGroup}] = n
		}
	}

	out := make([]timing.Row, len(rows))
	for i, r := range rows {
		n := links[laneKey{group: r.Group, destinationGroup: r.DestinationGroup}]
		r.GroupForward = n.forward
		r.GroupBackward = n.backward
		out[i] = r
	}
	return out
}
