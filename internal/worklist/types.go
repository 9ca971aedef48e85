package worklist

import "fmt"

// NoTiming marks a step without a dwell requirement.
const NoTiming = -1

// Column names understood by the scheduler. Any other column is carried in
// WorkItem.Extra and written back unchanged.
const (
	ColStep              = "step"
	ColTime              = "time"
	ColStepIndex         = "step_index"
	ColStepGroupIndex    = "step_group_index"
	ColPreviousStepIndex = "previous_step_index"
	ColDestinationGroup  = "destination_group"
	ColGroup             = "group"
	ColPreviousGroup     = "previous_group"
	ColDestination       = "destination"

	ColExpTime = "exp_time"
)

// RequiredColumns must be present in every worklist header.
var RequiredColumns = []string{
	ColStep, ColTime, ColStepIndex, ColStepGroupIndex, ColPreviousStepIndex,
	ColDestinationGroup, ColGroup, ColPreviousGroup,
}

// WorkItem is one physical action of the liquid handler.
type WorkItem struct {
	Step              string `json:"step"`
	RequiredTime      int    `json:"time"` // NoTiming when unconstrained
	StepIndex         int    `json:"step_index"`
	StepGroupIndex    int    `json:"step_group_index"`
	PreviousStepIndex int    `json:"previous_step_index"`
	DestinationGroup  int    `json:"destination_group"`
	Group             int    `json:"group"`
	PreviousGroup     int    `json:"previous_group"` // 0 when the group has no dependency
	Destination       string `json:"destination,omitempty"`

	// Extra holds passthrough columns (volume, liquid class, plates...).
	Extra map[string]string `json:"extra,omitempty"`
}

// Table is a worklist together with the column order it was read with.
type Table struct {
	Header []string
	Items  []WorkItem
}

// DurationEntry is one row of the expected-duration lookup table.
type DurationEntry struct {
	Step             string `json:"step" yaml:"step"`
	ExpectedDuration int    `json:"exp_time" yaml:"exp_time"`
}

// DurationTable maps a step name to its expected duration.
type DurationTable map[string]int

// NewDurationTable indexes entries by step. A step listed twice with different
// durations, an empty step name, or a negative duration is rejected.
func NewDurationTable(entries []DurationEntry) (DurationTable, error) {
	table := make(DurationTable, len(entries))
	for _, e := range entries {
		if e.Step == "" {
			return nil, fmt.Errorf("duration entry with empty step name")
		}
		if e.ExpectedDuration < 0 {
			return nil, fmt.Errorf("negative duration %d for step %q", e.ExpectedDuration, e.Step)
		}
		if prev, ok := table[e.Step]; ok && prev != e.ExpectedDuration {
			return nil, fmt.Errorf("conflicting durations for step %q: %d and %d", e.Step, prev, e.ExpectedDuration)
		}
		table[e.Step] = e.ExpectedDuration
	}
	return table, nil
}

// Entries returns the table as entries; order is unspecified.
func (t DurationTable) Entries() []DurationEntry {
	out := make([]DurationEntry, 0, len(t))
	for step, d := range t {
		out = append(out, DurationEntry{Step: step, ExpectedDuration: d})
	}
	return out
}

// Clone returns a deep copy of the item.
func (w WorkItem) Clone() WorkItem {
	if w.Extra != nil {
		extra := make(map[string]string, len(w.Extra))
		for k, v := range w.Extra {
			extra[k] = v
		}
		w.Extra = extra
	}
	return w
}

// CloneItems deep-copies a slice of items.
func CloneItems(items []WorkItem) []WorkItem {
	out := make([]WorkItem, len(items))
	for i := range items {
		out[i] = items[i].Clone()
	}
	return out
}

// DefaultHeader is used when writing items that were not read from a file.
func DefaultHeader() []string {
	return []string{
		ColStep, ColTime, ColStepIndex, ColStepGroupIndex, ColPreviousStepIndex,
		ColDestination, ColDestinationGroup, ColGroup, ColPreviousGroup,
	}
}
