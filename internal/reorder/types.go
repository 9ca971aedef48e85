package reorder

import (
	"log/slog"
	"time"

	"github.com/joshharrison/steploom/internal/cpm"
	"github.com/joshharrison/steploom/internal/scheduler"
	"github.com/joshharrison/steploom/internal/sequencer"
	"github.com/joshharrison/steploom/internal/worklist"
)

// Options configures a reorder run.
type Options struct {
	Advance      scheduler.AdvanceMode `json:"advance"`
	ImagingLabel string                `json:"imaging_label"`

	// Priority overrides the label based ranking when set.
	Priority scheduler.PriorityFunc `json:"-"`
	Logger   *slog.Logger           `json:"-"`
}

// Result is a reordered worklist together with the schedule that produced it.
type Result struct {
	ID        string              `json:"id"`
	CreatedAt time.Time           `json:"created_at"`
	Items     []worklist.WorkItem `json:"items"`
	Schedule  *scheduler.Schedule `json:"schedule"`
	Lanes     []sequencer.Lane    `json:"lanes"`
	Mapping   map[int]int         `json:"mapping"` // old group id -> new group id
	Bound     *cpm.Result         `json:"-"`
	Options   Options             `json:"options"`
}

// Report summarises a worklist without scheduling it.
type Report struct {
	Rows       int              `json:"rows"`
	TimingRows int              `json:"timing_rows"`
	Groups     int              `json:"groups"`
	Lanes      []sequencer.Lane `json:"lanes"`
	Roots      []int            `json:"roots"`
	Bound      *cpm.Result      `json:"-"`
}
