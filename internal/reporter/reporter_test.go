package reporter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/joshharrison/steploom/internal/reorder"
	"github.com/joshharrison/steploom/internal/worklist"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	m.Run()
}

var durations = []worklist.DurationEntry{
	{Step: "stage", ExpectedDuration: 5},
	{Step: "imaging", ExpectedDuration: 10},
	{Step: "wash", ExpectedDuration: 5},
}

func makeResult(t *testing.T) *reorder.Result {
	t.Helper()
	items := []worklist.WorkItem{
		{Step: "stage", RequiredTime: 0, DestinationGroup: 1, Group: 11},
		{Step: "imaging", RequiredTime: 30, DestinationGroup: 1, Group: 12, PreviousGroup: 11},
		{Step: "wash", RequiredTime: -1, DestinationGroup: 1, Group: 13, PreviousGroup: 12},
	}
	res, err := reorder.ReorderGroups(items, durations, reorder.Options{})
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	return res
}

func TestPrintSchedule(t *testing.T) {
	rpt := FromResult(makeResult(t), "plate.csv", "")

	var buf bytes.Buffer
	rpt.PrintSchedule(&buf)
	output := buf.String()

	for _, want := range []string{"Group", "imaging", "dependency", "fallback", "start", "40"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected schedule to contain %q:\n%s", want, output)
		}
	}
	if !strings.Contains(output, "⏳") {
		t.Error("expected wait marker for the group that received dwell")
	}
}

func TestPrintLanes(t *testing.T) {
	rpt := FromResult(makeResult(t), "plate.csv", "")

	var buf bytes.Buffer
	rpt.PrintLanes(&buf)
	if got := buf.String(); !strings.Contains(got, "[lane 1] 1 → 2 → 3") {
		t.Errorf("expected renumbered lane chain, got %q", got)
	}
}

func TestPrintSummary(t *testing.T) {
	rpt := FromResult(makeResult(t), "plate.csv", "plate.out.csv")

	var buf bytes.Buffer
	text := rpt.PrintSummary(&buf)

	if text != buf.String() {
		t.Error("expected returned text to match written output")
	}
	for _, want := range []string{
		"Steploom Schedule",
		"plate.out.csv",
		"Makespan:  40",
		"dependency bound 40",
		"20 injected",
		"1 by dependency",
		"⚡ 1 → 2 → 3",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected summary to contain %q:\n%s", want, text)
		}
	}
}

func TestJSON(t *testing.T) {
	rpt := FromResult(makeResult(t), "plate.csv", "")

	data, err := rpt.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed["source"] != "plate.csv" {
		t.Errorf("expected source plate.csv, got %v", parsed["source"])
	}
	if parsed["makespan"] != float64(40) {
		t.Errorf("expected makespan 40, got %v", parsed["makespan"])
	}
	entries, ok := parsed["entries"].([]interface{})
	if !ok || len(entries) != 3 {
		t.Errorf("expected 3 entries, got %v", parsed["entries"])
	}
	if _, ok := parsed["lanes"]; !ok {
		t.Error("expected lanes in JSON output")
	}
}

func TestPrintValidation(t *testing.T) {
	items := []worklist.WorkItem{
		{Step: "stage", RequiredTime: 0, DestinationGroup: 1, Group: 1},
		{Step: "wash", RequiredTime: -1, DestinationGroup: 2, Group: 2},
	}
	rep, err := reorder.Validate(items, durations)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	var buf bytes.Buffer
	PrintValidation(&buf, "plate.csv", rep)
	output := buf.String()
	if !strings.Contains(output, "groups 2, lanes 2") {
		t.Errorf("unexpected validation output:\n%s", output)
	}
	if !strings.Contains(output, "[lane 2] 2") {
		t.Errorf("expected lane 2 chain:\n%s", output)
	}
}
