package ui

import (
	"fmt"

	"github.com/fatih/color"
)

// Sprint color functions for building styled strings.
var (
	Bold        = color.New(color.Bold).SprintFunc()
	Dim         = color.New(color.Faint).SprintFunc()
	Cyan        = color.New(color.FgCyan).SprintFunc()
	Green       = color.New(color.FgGreen).SprintFunc()
	Red         = color.New(color.FgRed).SprintFunc()
	Yellow      = color.New(color.FgYellow).SprintFunc()
	BoldCyan    = color.New(color.Bold, color.FgCyan).SprintFunc()
	BoldGreen   = color.New(color.Bold, color.FgGreen).SprintFunc()
	BoldRed     = color.New(color.Bold, color.FgRed).SprintFunc()
	BoldYellow  = color.New(color.Bold, color.FgYellow).SprintFunc()
	BoldMagenta = color.New(color.Bold, color.FgMagenta).SprintFunc()
	BoldWhite   = color.New(color.Bold, color.FgWhite).SprintFunc()
)

// laneColors is a palette of distinct bold colors for differentiating lanes.
var laneColors = []func(a ...interface{}) string{
	BoldMagenta,
	BoldCyan,
	BoldYellow,
	BoldGreen,
	color.New(color.Bold, color.FgHiBlue).SprintFunc(),
	color.New(color.Bold, color.FgHiRed).SprintFunc(),
}

// LanePrefix returns a colored [lane N] tag. A lane keeps its color across
// runs.
func LanePrefix(lane int) string {
	idx := lane % len(laneColors)
	if idx < 0 {
		idx += len(laneColors)
	}
	c := laneColors[idx]
	return Dim("[") + c(fmt.Sprintf("lane %d", lane)) + Dim("]")
}

// EntryIcon returns a colored marker for a scheduled group: settled groups
// have no outstanding dwell, waiting groups had dwell injected before them.
func EntryIcon(quiet bool, wait int) string {
	switch {
	case wait > 0:
		return Yellow("⏳")
	case quiet:
		return Green("✓")
	default:
		return Cyan("●")
	}
}

// AdmissionLabel returns a colored admission reason.
func AdmissionLabel(admission string) string {
	switch admission {
	case "start":
		return BoldGreen(admission)
	case "candidate":
		return Cyan(admission)
	case "dependency":
		return Yellow(admission)
	default:
		return Dim(admission)
	}
}

// Lateness colors positive lateness (dwell still running past the makespan)
// red.
func Lateness(v int) string {
	if v > 0 {
		return Red(fmt.Sprintf("+%d", v))
	}
	return Dim(fmt.Sprintf("%d", v))
}
