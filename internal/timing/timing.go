// Package timing joins worklist rows with the expected-duration table.
package timing

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/joshharrison/steploom/internal/worklist"
)

// ErrMissingDuration is matched by every *MissingDurationError.
var ErrMissingDuration = errors.New("missing step duration")

// MissingDurationError reports steps that have no expected duration.
type MissingDurationError struct {
	Steps []string // sorted, distinct
}

func (e *MissingDurationError) Error() string {
	return fmt.Sprintf("no expected duration for step(s): %s", strings.Join(e.Steps, ", "))
}

func (e *MissingDurationError) Is(target error) bool {
	return target == ErrMissingDuration
}

// Row is one distinct timing record of a group.
type Row struct {
	Step              string
	RequiredTime      int
	StepIndex         int
	StepGroupIndex    int
	PreviousStepIndex int
	DestinationGroup  int
	Group             int
	PreviousGroup     int
	ExpectedDuration  int

	// Set by the sequencer.
	GroupForward  int
	GroupBackward int
}

// rowKey identifies one step of a group. Step indices are not part of it, so
// a step repeated within a group is timed once.
type rowKey struct {
	step                                   string
	requiredTime                           int
	destinationGroup, group, previousGroup int
}

// Index collapses duplicate worklist rows and attaches each row's expected
// duration. Rows keep first-appearance order and the step indices of the
// first row of each key.
func Index(items []worklist.WorkItem, durations worklist.DurationTable) ([]Row, error) {
	seen := make(map[rowKey]bool, len(items))
	missing := make(map[string]bool)
	rows := make([]Row, 0, len(items))

	for _, it := range items {
		key := rowKey{
			step:             it.Step,
			requiredTime:     it.RequiredTime,
			destinationGroup: it.DestinationGroup,
			group:            it.Group,
			previousGroup:    it.PreviousGroup,
		}
		if seen[key] {
			continue
		}
		seen[key] = true

		d, ok := durations[it.Step]
		if !ok {
			missing[it.Step] = true
			continue
		}
		rows = append(rows, Row{
			Step:              it.Step,
			RequiredTime:      it.RequiredTime,
			StepIndex:         it.StepIndex,
			StepGroupIndex:    it.StepGroupIndex,
			PreviousStepIndex: it.PreviousStepIndex,
			DestinationGroup:  it.DestinationGroup,
			Group:             it.Group,
			PreviousGroup:     it.PreviousGroup,
			ExpectedDuration:  d,
		})
	}

	if len(missing) > 0 {
		steps := make([]string, 0, len(missing))
		for s := range missing {
			steps = append(steps, s)
		}
		sort.Strings(steps)
		return nil, &MissingDurationError{Steps: steps}
	}
	return rows, nil
}
