package ui

import (
	"testing"

	"github.com/fatih/color"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	m.Run()
}

func TestLanePrefix(t *testing.T) {
	if got := LanePrefix(3); got != "[lane 3]" {
		t.Errorf("expected [lane 3], got %q", got)
	}
	if got := LanePrefix(-1); got != "[lane -1]" {
		t.Errorf("expected [lane -1], got %q", got)
	}
}

func TestEntryIcon(t *testing.T) {
	tests := []struct {
		quiet bool
		wait  int
		want  string
	}{
		{quiet: true, wait: 0, want: "✓"},
		{quiet: false, wait: 0, want: "●"},
		{quiet: true, wait: 5, want: "⏳"},
	}
	for _, tt := range tests {
		if got := EntryIcon(tt.quiet, tt.wait); got != tt.want {
			t.Errorf("EntryIcon(%v, %d) = %q, want %q", tt.quiet, tt.wait, got, tt.want)
		}
	}
}

func TestLateness(t *testing.T) {
	if got := Lateness(4); got != "+4" {
		t.Errorf("expected +4, got %q", got)
	}
	if got := Lateness(-2); got != "-2" {
		t.Errorf("expected -2, got %q", got)
	}
}
