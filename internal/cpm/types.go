package cpm

// Result holds the critical path analysis of a group graph.
type Result struct {
	Groups        map[int]*GroupTiming
	CriticalPath  []int // ordered group ids on critical path
	TotalDuration int   // lower bound on the makespan with unlimited operators
	Waves         []Wave
	TopoOrder     []int
}

// GroupTiming holds the dependency-bound timing of a single group.
type GroupTiming struct {
	Group      int
	Dwell      int // time that must pass after this group starts before dependents start
	ES, EF     int // earliest start/finish
	LS, LF     int // latest start/finish
	Slack      int
	IsCritical bool
	Wave       int
}

// Wave is a set of groups whose dependencies allow them to start together.
type Wave struct {
	Index      int
	Groups     []int
	IsCritical bool // true if wave contains critical path groups
}
