package graph

// Group is the schedulable unit: all timing rows that share a group id.
type Group struct {
	ID               int    `json:"group"`
	Step             string `json:"step"`
	RequiredTime     int    `json:"time"`
	DestinationGroup int    `json:"destination_group"`
	PreviousGroup    int    `json:"previous_group"`
	GroupForward     int    `json:"group_forward"`
	GroupBackward    int    `json:"group_backward"`
	ExpectedDuration int    `json:"exp_time"` // sum over the group's timing rows
	Rows             int    `json:"rows"`
}

// GroupGraph is the dependency graph over groups, built from previous_group
// links.
type GroupGraph struct {
	Groups map[int]*Group
	Adj    map[int][]int // group -> groups that depend on it
	RevAdj map[int][]int // group -> groups it depends on
	Roots  []int         // groups with no dependency inside the worklist
	Leaves []int         // groups nothing depends on
}
