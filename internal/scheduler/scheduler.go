// Package scheduler orders worklist groups by simulating a single operator's
// clock and greedily picking the next group from the lanes that still have
// slack.
package scheduler

import (
	"log/slog"
	"sort"

	"github.com/joshharrison/steploom/internal/graph"
	"github.com/joshharrison/steploom/internal/worklist"
)

type run struct {
	g    *graph.GroupGraph
	opts Options
	log  *slog.Logger

	pending   map[int]bool
	scheduled map[int]int // group -> index into entries
	entries   []ScheduleEntry
}

// Run emits every group of g exactly once and returns the emission order with
// final clocks. The lowest group id is emitted first.
func Run(g *graph.GroupGraph, opts Options) (*Schedule, error) {
	if opts.Priority == nil {
		opts.Priority = DefaultPriority
	}
	if opts.Advance == "" {
		opts.Advance = AdvanceForward
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if g == nil || len(g.Groups) == 0 {
		return &Schedule{}, nil
	}

	r := &run{
		g:         g,
		opts:      opts,
		log:       opts.Logger,
		pending:   make(map[int]bool, len(g.Groups)),
		scheduled: make(map[int]int, len(g.Groups)),
	}
	for id := range g.Groups {
		r.pending[id] = true
	}
	return r.run()
}

func (r *run) run() (*Schedule, error) {
	current := r.g.IDs()[0]
	admission := AdmitStart
	priority := NoPriority

	for len(r.pending) > 0 {
		if !r.pending[current] {
			next := r.lowestPending()
			r.log.Debug("stale group pointer", "group", current, "reset_to", next)
			current, admission, priority = next, AdmitFallback, NoPriority
		}

		grp := r.g.Groups[current]
		if grp == nil {
			return nil, &SchedulingDeadlockError{Current: current, Pending: r.pendingIDs()}
		}

		dep, err := r.blockingDependency(current)
		if err != nil {
			return nil, err
		}
		if dep != current {
			r.log.Debug("admitting dependency first", "group", current, "dependency", dep)
			current, admission, priority = dep, AdmitDependency, NoPriority
			grp = r.g.Groups[current]
		}

		r.emit(r.relax(grp, admission, priority))
		if len(r.pending) == 0 {
			break
		}

		r.entries = recompute(r.entries)
		current, admission, priority = r.next()
	}

	r.entries = recompute(r.entries)
	return &Schedule{Entries: r.entries}, nil
}

// relax builds the entry for grp, adding any dwell its dependency still needs
// to its duration.
func (r *run) relax(grp *graph.Group, admission Admission, priority int) ScheduleEntry {
	e := ScheduleEntry{
		Group:            grp.ID,
		DestinationGroup: grp.DestinationGroup,
		PreviousGroup:    grp.PreviousGroup,
		GroupForward:     grp.GroupForward,
		GroupBackward:    grp.GroupBackward,
		Step:             grp.Step,
		RequiredTime:     grp.RequiredTime,
		BaseDuration:     grp.ExpectedDuration,
		ExpectedDuration: grp.ExpectedDuration,
		Priority:         priority,
		Admission:        admission,
	}

	idx, ok := r.scheduled[grp.PreviousGroup]
	if grp.PreviousGroup <= 0 || !ok {
		return e
	}
	dep := r.entries[idx]
	delta := maxFinish(r.entries) - dep.ClockStart
	if wait := dep.RequiredTime - delta; wait > 0 {
		e.WaitTime = wait
		e.ExpectedDuration += wait
		r.log.Debug("dwell injected", "group", grp.ID, "dependency", dep.Group, "wait", wait)
	}
	return e
}

func (r *run) emit(e ScheduleEntry) {
	r.scheduled[e.Group] = len(r.entries)
	r.entries = append(r.entries, e)
	delete(r.pending, e.Group)
	r.log.Debug("group scheduled",
		"group", e.Group,
		"step", e.Step,
		"admission", string(e.Admission),
		"priority", e.Priority,
		"duration", e.ExpectedDuration,
	)
}

// next picks the group to schedule after the current emission.
func (r *run) next() (int, Admission, int) {
	cands := r.candidates()
	if len(cands) == 0 {
		return r.lowestPending(), AdmitFallback, NoPriority
	}

	lateness := minLateness(r.entries)
	type ranked struct {
		Candidate
		priority int
	}
	ranks := make([]ranked, len(cands))
	for i, id := range cands {
		grp := r.g.Groups[id]
		c := Candidate{
			Group:        id,
			GroupForward: grp.GroupForward,
			RequiredTime: grp.RequiredTime,
			Lateness:     lateness,
		}
		if back := r.g.Groups[grp.GroupBackward]; back != nil && r.pending[back.ID] {
			c.NextStepLabel = back.Step
		}
		ranks[i] = ranked{Candidate: c, priority: r.opts.Priority(c)}
	}

	sameLateness := true
	for _, rk := range ranks[1:] {
		if rk.Lateness != ranks[0].Lateness {
			sameLateness = false
			break
		}
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].priority != ranks[j].priority {
			return ranks[i].priority < ranks[j].priority
		}
		if !sameLateness && ranks[i].Lateness != ranks[j].Lateness {
			return ranks[i].Lateness < ranks[j].Lateness
		}
		return false
	})

	chosen := ranks[0]
	next := chosen.GroupForward
	if r.opts.Advance == AdvanceCandidate {
		next = chosen.Group
	}
	r.log.Debug("candidate chosen",
		"candidates", cands,
		"chosen", chosen.Group,
		"priority", chosen.priority,
		"lateness", lateness,
		"next", next,
	)
	return next, AdmitCandidate, chosen.priority
}

// candidates returns, ascending, the pending lane successors of every group
// that is not yet quiet.
func (r *run) candidates() []int {
	seen := make(map[int]bool)
	var ids []int
	for _, e := range r.entries {
		if e.IsQuiet {
			continue
		}
		f := e.GroupForward
		if f == 0 || seen[f] || !r.pending[f] || r.g.Groups[f] == nil {
			continue
		}
		seen[f] = true
		ids = append(ids, f)
	}
	sort.Ints(ids)
	return ids
}

// blockingDependency walks pending dependencies of id and returns the
// earliest one that has none of its own left, or id itself.
func (r *run) blockingDependency(id int) (int, error) {
	cur := id
	for steps := 0; ; steps++ {
		if steps > len(r.g.Groups) {
			return 0, &SchedulingDeadlockError{Current: id, Pending: r.pendingIDs()}
		}
		next := 0
		for _, dep := range r.g.RevAdj[cur] {
			if r.pending[dep] && r.g.Groups[dep] != nil {
				next = dep
				break
			}
		}
		if next == 0 {
			return cur, nil
		}
		cur = next
	}
}

func (r *run) lowestPending() int {
	lowest := 0
	first := true
	for id := range r.pending {
		if first || id < lowest {
			lowest = id
			first = false
		}
	}
	return lowest
}

func (r *run) pendingIDs() []int {
	ids := make([]int, 0, len(r.pending))
	for id := range r.pending {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// recompute returns a fresh copy of entries with clocks laid end to end and
// lateness measured against the resulting makespan.
func recompute(entries []ScheduleEntry) []ScheduleEntry {
	out := make([]ScheduleEntry, len(entries))
	clock := 0
	for i, e := range entries {
		e.ClockStart = clock
		clock += e.ExpectedDuration
		e.ClockFinish = clock
		out[i] = e
	}
	finish := maxFinish(out)
	for i := range out {
		out[i].Lateness = out[i].ClockStart + out[i].RequiredTime - finish
		out[i].IsQuiet = out[i].RequiredTime == worklist.NoTiming || out[i].Lateness > 0
	}
	return out
}

func maxFinish(entries []ScheduleEntry) int {
	finish := 0
	for _, e := range entries {
		if e.ClockFinish > finish {
			finish = e.ClockFinish
		}
	}
	return finish
}

func minLateness(entries []ScheduleEntry) int {
	lowest := 0
	for i, e := range entries {
		if i == 0 || e.Lateness < lowest {
			lowest = e.Lateness
		}
	}
	return lowest
}
