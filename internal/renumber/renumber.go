// Package renumber projects a schedule order onto worklist rows and rewrites
// group ids to a contiguous 1..K sequence.
package renumber

import (
	"sort"

	"github.com/joshharrison/steploom/internal/worklist"
)

// Apply stably reorders items by the position of their group in order and
// renumbers them. Groups missing from order keep their relative order after
// all scheduled groups.
func Apply(items []worklist.WorkItem, order []int) []worklist.WorkItem {
	pos := make(map[int]int, len(order))
	for i, g := range order {
		if _, ok := pos[g]; !ok {
			pos[g] = i
		}
	}
	rank := func(g int) int {
		if p, ok := pos[g]; ok {
			return p
		}
		return len(order)
	}

	out := worklist.CloneItems(items)
	sort.SliceStable(out, func(i, j int) bool {
		return rank(out[i].Group) < rank(out[j].Group)
	})
	return relabel(out)
}

// ResetGroup renumbers groups 1..K by first appearance, rewrites
// previous_group through the same mapping (unknown ids become 0) and sorts by
// (group, destination_group). The input is not modified.
func ResetGroup(items []worklist.WorkItem) []worklist.WorkItem {
	return relabel(worklist.CloneItems(items))
}

// Mapping returns old group id -> new group id, numbered by first appearance.
func Mapping(items []worklist.WorkItem) map[int]int {
	m := make(map[int]int)
	for _, it := range items {
		if _, ok := m[it.Group]; !ok {
			m[it.Group] = len(m) + 1
		}
	}
	return m
}

// relabel rewrites ids in place on an owned slice.
func relabel(items []worklist.WorkItem) []worklist.WorkItem {
	m := Mapping(items)
	for i := range items {
		items[i].Group = m[items[i].Group]
		if items[i].PreviousGroup != 0 {
			items[i].PreviousGroup = m[items[i].PreviousGroup] // 0 when unmatched
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Group != items[j].Group {
			return items[i].Group < items[j].Group
		}
		return items[i].DestinationGroup < items[j].DestinationGroup
	})
	return items
}
