package scheduler

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshharrison/steploom/internal/graph"
	"github.com/joshharrison/steploom/internal/sequencer"
	"github.com/joshharrison/steploom/internal/timing"
)

func buildGraph(t *testing.T, rows []timing.Row) *graph.GroupGraph {
	t.Helper()
	g, err := graph.Build(sequencer.Link(rows))
	require.NoError(t, err)
	return g
}

// stage (dwell 0) -> imaging (dwell 30) -> wash (untimed), one lane.
func threeStepLane() []timing.Row {
	return []timing.Row{
		{Group: 1, DestinationGroup: 1, Step: "stage", RequiredTime: 0, ExpectedDuration: 5},
		{Group: 2, DestinationGroup: 1, Step: "imaging", RequiredTime: 30, PreviousGroup: 1, ExpectedDuration: 10},
		{Group: 3, DestinationGroup: 1, Step: "wash", RequiredTime: -1, PreviousGroup: 2, ExpectedDuration: 5},
	}
}

// Two lanes with no cross dependencies.
//
//	lane 1: 1 (dwell 0) -> 3 (dwell 5) -> 5
//	lane 2: 2 -> 4
func twoLanes() []timing.Row {
	return []timing.Row{
		{Group: 1, DestinationGroup: 1, Step: "stage", RequiredTime: 0, ExpectedDuration: 5},
		{Group: 2, DestinationGroup: 2, Step: "stage", RequiredTime: -1, ExpectedDuration: 5},
		{Group: 3, DestinationGroup: 1, Step: "incubate", RequiredTime: 5, ExpectedDuration: 5},
		{Group: 4, DestinationGroup: 2, Step: "wash", RequiredTime: -1, ExpectedDuration: 5},
		{Group: 5, DestinationGroup: 1, Step: "wash", RequiredTime: -1, ExpectedDuration: 5},
	}
}

func assertClocks(t *testing.T, s *Schedule) {
	t.Helper()
	prev := 0
	for i, e := range s.Entries {
		assert.Equal(t, prev, e.ClockStart, "entry %d starts where the previous finished", i)
		assert.Equal(t, e.ClockStart+e.ExpectedDuration, e.ClockFinish, "entry %d", i)
		assert.Equal(t, e.BaseDuration+e.WaitTime, e.ExpectedDuration, "entry %d", i)
		prev = e.ClockFinish
	}
}

func assertDependenciesFirst(t *testing.T, g *graph.GroupGraph, s *Schedule) {
	t.Helper()
	pos := make(map[int]int)
	for i, id := range s.Order() {
		pos[id] = i
	}
	for id, deps := range g.RevAdj {
		for _, dep := range deps {
			assert.Less(t, pos[dep], pos[id], "group %d depends on %d", id, dep)
		}
	}
}

func TestRun_ThreeStepLane(t *testing.T) {
	for _, mode := range []AdvanceMode{AdvanceForward, AdvanceCandidate} {
		t.Run(string(mode), func(t *testing.T) {
			g := buildGraph(t, threeStepLane())
			s, err := Run(g, Options{Advance: mode})
			require.NoError(t, err)

			assert.Equal(t, []int{1, 2, 3}, s.Order())
			assertClocks(t, s)
			assertDependenciesFirst(t, g, s)

			e1, _ := s.Entry(1)
			e2, _ := s.Entry(2)
			e3, _ := s.Entry(3)
			assert.Equal(t, [2]int{0, 5}, [2]int{e1.ClockStart, e1.ClockFinish})
			assert.Equal(t, [2]int{5, 15}, [2]int{e2.ClockStart, e2.ClockFinish})
			// imaging needs 30 of dwell and only 10 have elapsed since it started
			assert.Equal(t, 20, e3.WaitTime)
			assert.Equal(t, [2]int{15, 40}, [2]int{e3.ClockStart, e3.ClockFinish})
			assert.Equal(t, 40, s.Makespan())
			assert.Equal(t, 20, s.TotalWait())

			assert.Equal(t, AdmitStart, e1.Admission)
			assert.Equal(t, AdmitFallback, e3.Admission)
			assert.True(t, e3.IsQuiet)
		})
	}
}

func TestRun_AdmissionByMode(t *testing.T) {
	g := buildGraph(t, threeStepLane())

	fwd, err := Run(g, Options{Advance: AdvanceForward})
	require.NoError(t, err)
	e2, _ := fwd.Entry(2)
	// forward mode points at wash, whose dependency is pulled ahead
	assert.Equal(t, AdmitDependency, e2.Admission)
	assert.Equal(t, NoPriority, e2.Priority)

	cand, err := Run(g, Options{Advance: AdvanceCandidate})
	require.NoError(t, err)
	e2, _ = cand.Entry(2)
	assert.Equal(t, AdmitCandidate, e2.Admission)
	assert.Equal(t, 2, e2.Priority)
}

func TestRun_DwellAlreadyElapsed(t *testing.T) {
	rows := threeStepLane()
	rows[1].RequiredTime = 10
	g := buildGraph(t, rows)

	s, err := Run(g, Options{})
	require.NoError(t, err)
	e3, _ := s.Entry(3)
	assert.Zero(t, e3.WaitTime)
	assert.Equal(t, [2]int{15, 20}, [2]int{e3.ClockStart, e3.ClockFinish})
}

func TestRun_ForwardJump(t *testing.T) {
	g := buildGraph(t, twoLanes())

	s, err := Run(g, Options{Advance: AdvanceForward})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 5, 2, 3, 4}, s.Order())
	assertClocks(t, s)

	s, err = Run(g, Options{Advance: AdvanceCandidate})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 5, 2, 4}, s.Order())
	assertClocks(t, s)
}

func TestRun_PriorityOrdering(t *testing.T) {
	// 3 follows 1 in lane 1 but depends on 2, so 2 is admitted right after 1
	// and both lanes offer a candidate.
	rows := []timing.Row{
		{Group: 1, DestinationGroup: 1, Step: "stage", RequiredTime: 0, ExpectedDuration: 1},
		{Group: 2, DestinationGroup: 2, Step: "stage", RequiredTime: 0, ExpectedDuration: 1},
		{Group: 3, DestinationGroup: 1, Step: "incubate", RequiredTime: 10, PreviousGroup: 2, ExpectedDuration: 1},
		{Group: 4, DestinationGroup: 2, Step: "dispense", RequiredTime: 0, ExpectedDuration: 1},
	}
	g := buildGraph(t, rows)

	s, err := Run(g, Options{Advance: AdvanceCandidate})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 4, 3}, s.Order())
	e4, _ := s.Entry(4)
	assert.Equal(t, 0, e4.Priority)
	assertDependenciesFirst(t, g, s)

	flat := func(Candidate) int { return 0 }
	s, err = Run(g, Options{Advance: AdvanceCandidate, Priority: flat})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, s.Order(), "ties break on ascending group id")
}

func TestRun_DependencyGate(t *testing.T) {
	// lane 1 walks 1 -> 2 -> 3 but 2 needs group 4 from another lane first
	rows := []timing.Row{
		{Group: 1, DestinationGroup: 1, Step: "stage", RequiredTime: 0, ExpectedDuration: 2},
		{Group: 2, DestinationGroup: 1, Step: "dispense", RequiredTime: 0, PreviousGroup: 4, ExpectedDuration: 2},
		{Group: 3, DestinationGroup: 1, Step: "wash", RequiredTime: -1, PreviousGroup: 2, ExpectedDuration: 2},
		{Group: 4, DestinationGroup: 2, Step: "stage", RequiredTime: 0, ExpectedDuration: 2},
	}
	g := buildGraph(t, rows)

	for _, mode := range []AdvanceMode{AdvanceForward, AdvanceCandidate} {
		s, err := Run(g, Options{Advance: mode})
		require.NoError(t, err, mode)
		assert.Len(t, s.Entries, 4)
		assertDependenciesFirst(t, g, s)
		assertClocks(t, s)
		e4, _ := s.Entry(4)
		assert.Equal(t, AdmitDependency, e4.Admission, mode)
	}
}

func TestRun_Empty(t *testing.T) {
	s, err := Run(&graph.GroupGraph{Groups: map[int]*graph.Group{}}, Options{})
	require.NoError(t, err)
	assert.Empty(t, s.Entries)
	assert.Zero(t, s.Makespan())

	s, err = Run(nil, Options{})
	require.NoError(t, err)
	assert.Empty(t, s.Order())
}

func TestRun_SingleGroup(t *testing.T) {
	g := buildGraph(t, []timing.Row{{Group: 7, DestinationGroup: 1, Step: "stage", RequiredTime: -1, ExpectedDuration: 3}})
	s, err := Run(g, Options{})
	require.NoError(t, err)
	assert.Equal(t, []int{7}, s.Order())
	assert.Equal(t, 3, s.Makespan())
}

func TestRun_Deadlock(t *testing.T) {
	g := &graph.GroupGraph{
		Groups: map[int]*graph.Group{
			1: {ID: 1, RequiredTime: -1, ExpectedDuration: 1},
			2: nil,
		},
	}
	_, err := Run(g, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDeadlock))

	var de *SchedulingDeadlockError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, []int{2}, de.Pending)
}

func TestRun_DebugTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := Run(buildGraph(t, threeStepLane()), Options{Logger: logger})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "group scheduled")
	assert.Contains(t, buf.String(), "dwell injected")
}

func TestLabelPriority(t *testing.T) {
	p := LabelPriority("imaging")
	assert.Equal(t, 0, p(Candidate{RequiredTime: 0, NextStepLabel: "imaging"}))
	assert.Equal(t, 1, p(Candidate{RequiredTime: 30, NextStepLabel: "imaging"}))
	assert.Equal(t, 2, p(Candidate{RequiredTime: 30, NextStepLabel: "wash"}))
	assert.Equal(t, 2, p(Candidate{RequiredTime: -1}))
}

func TestAdvanceMode_Valid(t *testing.T) {
	assert.True(t, AdvanceForward.Valid())
	assert.True(t, AdvanceCandidate.Valid())
	assert.False(t, AdvanceMode("sideways").Valid())
}

func TestAdmission_Values(t *testing.T) {
	got := []Admission{AdmitStart, AdmitCandidate, AdmitFallback, AdmitDependency}
	assert.Equal(t, []Admission{"start", "candidate", "fallback", "dependency"}, got)
}
