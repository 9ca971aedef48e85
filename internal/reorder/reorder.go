// Package reorder is the entry point of the scheduling core: it turns a
// worklist and a duration table into a reordered, renumbered worklist.
package reorder

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joshharrison/steploom/internal/cpm"
	"github.com/joshharrison/steploom/internal/graph"
	"github.com/joshharrison/steploom/internal/renumber"
	"github.com/joshharrison/steploom/internal/scheduler"
	"github.com/joshharrison/steploom/internal/sequencer"
	"github.com/joshharrison/steploom/internal/timing"
	"github.com/joshharrison/steploom/internal/worklist"
)

func (o Options) withDefaults() (Options, error) {
	if o.Advance == "" {
		o.Advance = scheduler.AdvanceForward
	}
	if !o.Advance.Valid() {
		return o, fmt.Errorf("unknown advance mode %q", o.Advance)
	}
	if o.ImagingLabel == "" {
		o.ImagingLabel = scheduler.DefaultImagingLabel
	}
	if o.Priority == nil {
		o.Priority = scheduler.LabelPriority(o.ImagingLabel)
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o, nil
}

// ReorderGroups schedules the groups of items and returns the rows in
// schedule order with groups renumbered 1..K. An empty worklist yields an
// empty result.
func ReorderGroups(items []worklist.WorkItem, durations []worklist.DurationEntry, opts Options) (*Result, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	res := &Result{
		ID:        newID(now),
		CreatedAt: now,
		Items:     []worklist.WorkItem{},
		Schedule:  &scheduler.Schedule{},
		Mapping:   map[int]int{},
		Options:   opts,
	}
	if len(items) == 0 {
		return res, nil
	}

	g, rows, err := buildGraph(items, durations)
	if err != nil {
		return nil, err
	}
	bound, err := cpm.Analyze(g)
	if err != nil {
		return nil, fmt.Errorf("dependency analysis: %w", err)
	}

	sched, err := scheduler.Run(g, scheduler.Options{
		Priority: opts.Priority,
		Advance:  opts.Advance,
		Logger:   opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	order := sched.Order()
	for i, id := range order {
		res.Mapping[id] = i + 1
	}
	res.Items = renumber.Apply(items, order)
	res.Schedule = sched
	res.Lanes = sequencer.Lanes(rows)
	res.Bound = bound

	opts.Logger.Info("worklist reordered",
		"id", res.ID,
		"rows", len(res.Items),
		"groups", len(order),
		"makespan", sched.Makespan(),
		"wait", sched.TotalWait(),
	)
	return res, nil
}

// ResetGroup renumbers groups 1..K by first appearance without scheduling.
func ResetGroup(items []worklist.WorkItem) []worklist.WorkItem {
	return renumber.ResetGroup(items)
}

// Validate runs every check ReorderGroups performs before scheduling:
// duration lookup and dependency cycles.
func Validate(items []worklist.WorkItem, durations []worklist.DurationEntry) (*Report, error) {
	rep := &Report{Rows: len(items)}
	if len(items) == 0 {
		return rep, nil
	}

	g, rows, err := buildGraph(items, durations)
	if err != nil {
		return nil, err
	}
	bound, err := cpm.Analyze(g)
	if err != nil {
		return nil, fmt.Errorf("dependency analysis: %w", err)
	}

	rep.TimingRows = len(rows)
	rep.Groups = g.GroupCount()
	rep.Lanes = sequencer.Lanes(rows)
	rep.Roots = g.Roots
	rep.Bound = bound
	return rep, nil
}

func buildGraph(items []worklist.WorkItem, durations []worklist.DurationEntry) (*graph.GroupGraph, []timing.Row, error) {
	table, err := worklist.NewDurationTable(durations)
	if err != nil {
		return nil, nil, fmt.Errorf("duration table: %w", err)
	}
	rows, err := timing.Index(items, table)
	if err != nil {
		return nil, nil, err
	}
	rows = sequencer.Link(rows)
	g, err := graph.Build(rows)
	if err != nil {
		return nil, nil, err
	}
	return g, rows, nil
}

func newID(now time.Time) string {
	return fmt.Sprintf("reorder-%s-%s", now.Format("20060102-150405"), uuid.NewString()[:8])
}
