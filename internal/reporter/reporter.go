package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/joshharrison/steploom/internal/reorder"
	"github.com/joshharrison/steploom/internal/scheduler"
	"github.com/joshharrison/steploom/internal/sequencer"
	"github.com/joshharrison/steploom/internal/state"
	"github.com/joshharrison/steploom/internal/ui"
)

// Reporter renders a reorder run for the terminal or as JSON.
type Reporter struct {
	Record   *state.RunRecord
	Lanes    []sequencer.Lane // empty for runs loaded from disk
	Critical []int            // dependency-bound critical chain, if known
}

// New creates a Reporter for a persisted run.
func New(rec *state.RunRecord) *Reporter {
	return &Reporter{Record: rec, Critical: rec.Critical}
}

// FromResult creates a Reporter for a fresh reorder result.
func FromResult(res *reorder.Result, source, output string) *Reporter {
	r := New(state.NewRecord(res, source, output))
	r.Lanes = res.Lanes
	return r
}

// PrintSchedule writes the emission order as a table.
func (r *Reporter) PrintSchedule(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "", "Group", "New", "Lane", "Step", "Time", "Dur", "Wait", "Start", "Finish", "Late", "Admission"})

	for i, e := range r.Record.Entries {
		t.AppendRow(table.Row{
			i + 1,
			ui.EntryIcon(e.IsQuiet, e.WaitTime),
			ui.BoldMagenta(e.Group),
			r.Record.Mapping[e.Group],
			e.DestinationGroup,
			e.Step,
			requiredTime(e.RequiredTime),
			e.BaseDuration,
			waitCell(e.WaitTime),
			e.ClockStart,
			e.ClockFinish,
			ui.Lateness(e.Lateness),
			ui.AdmissionLabel(string(e.Admission)),
		})
	}
	t.Render()
}

// PrintLanes writes each lane's chain of groups in renumbered ids.
func (r *Reporter) PrintLanes(w io.Writer) {
	for _, lane := range r.Lanes {
		fmt.Fprintf(w, "  %s %s\n", ui.LanePrefix(lane.DestinationGroup), joinIDs(r.renumbered(lane.Groups), ui.Dim(" → ")))
	}
}

// renumbered maps original group ids to their new ids where known.
func (r *Reporter) renumbered(ids []int) []int {
	out := make([]int, len(ids))
	for i, g := range ids {
		if n, ok := r.Record.Mapping[g]; ok {
			out[i] = n
		} else {
			out[i] = g
		}
	}
	return out
}

// PrintSummary writes the run summary and returns it as plain text.
func (r *Reporter) PrintSummary(w io.Writer) string {
	var b strings.Builder
	mw := io.MultiWriter(w, &b)
	rec := r.Record

	counts := make(map[scheduler.Admission]int)
	for _, e := range rec.Entries {
		counts[e.Admission]++
	}

	fmt.Fprintf(mw, "\n%s\n", ui.BoldCyan("Steploom Schedule"))
	fmt.Fprintf(mw, "%s\n", ui.Cyan("═════════════════"))
	fmt.Fprintf(mw, "Run:       %s\n", ui.Dim(rec.ID))
	fmt.Fprintf(mw, "Source:    %s\n", rec.Source)
	if rec.Output != "" {
		fmt.Fprintf(mw, "Output:    %s\n", rec.Output)
	}
	fmt.Fprintf(mw, "Advance:   %s\n", rec.Advance)
	fmt.Fprintf(mw, "Groups:    %d (%d rows)\n", rec.Groups, rec.Rows)
	fmt.Fprintf(mw, "Makespan:  %s", ui.Bold(rec.Makespan))
	if rec.Bound > 0 {
		fmt.Fprintf(mw, "  %s", ui.Dim(fmt.Sprintf("(dependency bound %d)", rec.Bound)))
	}
	fmt.Fprintln(mw)
	if rec.TotalWait > 0 {
		fmt.Fprintf(mw, "Wait:      %s\n", ui.Yellow(fmt.Sprintf("%d injected", rec.TotalWait)))
	}

	fmt.Fprintf(mw, "%s\n", ui.Cyan("─────────────────"))
	fmt.Fprintf(mw, "Admitted:  %s  %s  %s\n",
		ui.Cyan(fmt.Sprintf("%d by candidate", counts[scheduler.AdmitCandidate])),
		ui.Yellow(fmt.Sprintf("%d by dependency", counts[scheduler.AdmitDependency])),
		ui.Dim(fmt.Sprintf("%d by fallback", counts[scheduler.AdmitFallback])))

	if len(r.Critical) > 0 {
		fmt.Fprintf(mw, "Critical:  %s\n", ui.BoldYellow("⚡ "+joinIDs(r.renumbered(r.Critical), " → ")))
	}
	return b.String()
}

// JSON returns the run in machine-readable form.
func (r *Reporter) JSON() ([]byte, error) {
	type output struct {
		*state.RunRecord
		Lanes []sequencer.Lane `json:"lanes,omitempty"`
	}
	return json.MarshalIndent(output{RunRecord: r.Record, Lanes: r.Lanes}, "", "  ")
}

// PrintValidation writes a validate report.
func PrintValidation(w io.Writer, source string, rep *reorder.Report) {
	fmt.Fprintf(w, "%s %s\n", ui.Green("✓"), ui.Bold(source))
	fmt.Fprintf(w, "  rows %d, timing rows %d, groups %d, lanes %d\n",
		rep.Rows, rep.TimingRows, rep.Groups, len(rep.Lanes))
	for _, lane := range rep.Lanes {
		fmt.Fprintf(w, "  %s %s\n", ui.LanePrefix(lane.DestinationGroup), joinIDs(lane.Groups, ui.Dim(" → ")))
	}
	if rep.Bound == nil {
		return
	}
	fmt.Fprintf(w, "  dependency bound %d over %d waves\n", rep.Bound.TotalDuration, len(rep.Bound.Waves))
	if len(rep.Bound.CriticalPath) > 0 {
		fmt.Fprintf(w, "  %s\n", ui.BoldYellow("⚡ "+joinIDs(rep.Bound.CriticalPath, " → ")))
	}
}

func joinIDs(ids []int, sep string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, sep)
}

func requiredTime(v int) string {
	if v < 0 {
		return ui.Dim("-")
	}
	return strconv.Itoa(v)
}

func waitCell(v int) string {
	if v == 0 {
		return ui.Dim("0")
	}
	return ui.Yellow(strconv.Itoa(v))
}
