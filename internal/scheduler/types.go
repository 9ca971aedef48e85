package scheduler

import "log/slog"

// AdvanceMode selects which group the scheduler moves to after picking a
// candidate.
type AdvanceMode string

const (
	// AdvanceForward moves to the chosen candidate's lane successor.
	AdvanceForward AdvanceMode = "forward"
	// AdvanceCandidate moves to the chosen candidate itself.
	AdvanceCandidate AdvanceMode = "candidate"
)

// Valid reports whether m is a known advance mode.
func (m AdvanceMode) Valid() bool {
	return m == AdvanceForward || m == AdvanceCandidate
}

// Admission records why a group was emitted when it was.
type Admission string

const (
	// AdmitStart is the lowest group id, emitted first.
	AdmitStart Admission = "start"
	// AdmitCandidate was picked from the candidate set.
	AdmitCandidate Admission = "candidate"
	// AdmitFallback was the lowest pending id after the pointer went stale.
	AdmitFallback Admission = "fallback"
	// AdmitDependency was pulled ahead of a group that depends on it.
	AdmitDependency Admission = "dependency"
)

// NoPriority marks entries that were not chosen through candidate ranking.
const NoPriority = -1

// Options tunes a scheduling run. The zero value is usable.
type Options struct {
	Priority PriorityFunc
	Advance  AdvanceMode
	Logger   *slog.Logger
}

// ScheduleEntry is one emitted group with its simulated clock.
type ScheduleEntry struct {
	Group            int       `json:"group"`
	DestinationGroup int       `json:"destination_group"`
	PreviousGroup    int       `json:"previous_group"`
	GroupForward     int       `json:"group_forward"`
	GroupBackward    int       `json:"group_backward"`
	Step             string    `json:"step"`
	RequiredTime     int       `json:"time"`
	BaseDuration     int       `json:"base_duration"`
	WaitTime         int       `json:"wait_time"`
	ExpectedDuration int       `json:"exp_time"`
	ClockStart       int       `json:"clock_start"`
	ClockFinish      int       `json:"clock_finish"`
	Lateness         int       `json:"lateness"`
	IsQuiet          bool      `json:"is_quiet"`
	Priority         int       `json:"priority"`
	Admission        Admission `json:"admission"`
}

// Schedule is the emission order with final clocks.
type Schedule struct {
	Entries []ScheduleEntry `json:"entries"`
}

// Order returns the emitted group ids.
func (s *Schedule) Order() []int {
	ids := make([]int, len(s.Entries))
	for i, e := range s.Entries {
		ids[i] = e.Group
	}
	return ids
}

// Makespan is the finish clock of the last emitted group.
func (s *Schedule) Makespan() int {
	return maxFinish(s.Entries)
}

// TotalWait sums the dwell time injected by dependency relaxation.
func (s *Schedule) TotalWait() int {
	total := 0
	for _, e := range s.Entries {
		total += e.WaitTime
	}
	return total
}

// Entry looks up the entry for a group.
func (s *Schedule) Entry(group int) (ScheduleEntry, bool) {
	for _, e := range s.Entries {
		if e.Group == group {
			return e, true
		}
	}
	return ScheduleEntry{}, false
}
