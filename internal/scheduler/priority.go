package scheduler

// DefaultImagingLabel is the step label that lowers a candidate's priority
// when it is the next step in the lane.
const DefaultImagingLabel = "imaging"

// Candidate is a group eligible to be scheduled next.
type Candidate struct {
	Group        int
	GroupForward int
	RequiredTime int
	// NextStepLabel is the step of the candidate's lane predecessor when that
	// predecessor is still pending, empty otherwise.
	NextStepLabel string
	// Lateness is the minimum lateness over all scheduled groups.
	Lateness int
}

// PriorityFunc ranks a candidate. Lower values are scheduled first.
type PriorityFunc func(Candidate) int

// LabelPriority returns the standard ranking: 0 for groups with no dwell,
// 1 when the next step carries label, 2 otherwise.
func LabelPriority(label string) PriorityFunc {
	return func(c Candidate) int {
		switch {
		case c.RequiredTime == 0:
			return 0
		case c.NextStepLabel == label:
			return 1
		default:
			return 2
		}
	}
}

// DefaultPriority ranks with DefaultImagingLabel.
var DefaultPriority = LabelPriority(DefaultImagingLabel)
