// Package state persists reorder runs so the last schedule can be inspected
// after the fact.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joshharrison/steploom/internal/reorder"
	"github.com/joshharrison/steploom/internal/scheduler"
)

const (
	DefaultDir = ".steploom"
	stateFile  = "state.json"
	historyDir = "history"
)

// ErrNoRun is returned when no run has been recorded.
var ErrNoRun = errors.New("no recorded run")

// RunRecord is the persisted summary of one reorder run.
type RunRecord struct {
	ID        string                    `json:"id"`
	CreatedAt time.Time                 `json:"created_at"`
	Source    string                    `json:"source"`
	Output    string                    `json:"output,omitempty"`
	Advance   scheduler.AdvanceMode     `json:"advance"`
	Rows      int                       `json:"rows"`
	Groups    int                       `json:"groups"`
	Makespan  int                       `json:"makespan"`
	TotalWait int                       `json:"total_wait"`
	Bound     int                       `json:"bound"` // dependency-bound makespan
	Critical  []int                     `json:"critical,omitempty"`
	Mapping   map[int]int               `json:"mapping"`
	Entries   []scheduler.ScheduleEntry `json:"entries"`
}

// NewRecord summarises a reorder result.
func NewRecord(res *reorder.Result, source, output string) *RunRecord {
	rec := &RunRecord{
		ID:        res.ID,
		CreatedAt: res.CreatedAt,
		Source:    source,
		Output:    output,
		Advance:   res.Options.Advance,
		Rows:      len(res.Items),
		Groups:    len(res.Schedule.Entries),
		Makespan:  res.Schedule.Makespan(),
		TotalWait: res.Schedule.TotalWait(),
		Mapping:   res.Mapping,
		Entries:   res.Schedule.Entries,
	}
	if res.Bound != nil {
		rec.Bound = res.Bound.TotalDuration
		rec.Critical = res.Bound.CriticalPath
	}
	return rec
}

// Store reads and writes run records under a directory.
type Store struct {
	Dir string
}

// NewStore returns a store rooted at dir, DefaultDir when empty.
func NewStore(dir string) *Store {
	if dir == "" {
		dir = DefaultDir
	}
	return &Store{Dir: dir}
}

func (s *Store) statePath() string {
	return filepath.Join(s.Dir, stateFile)
}

func (s *Store) historyPath(id string) string {
	return filepath.Join(s.Dir, historyDir, id+".json")
}

// Save writes rec as the current run.
func (s *Store) Save(rec *RunRecord) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	return writeRecord(s.statePath(), rec)
}

// Load reads the current run.
func (s *Store) Load() (*RunRecord, error) {
	return readRecord(s.statePath())
}

// Exists checks if a current run is recorded.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.statePath())
	return err == nil
}

// Archive moves the current run into history. It is a no-op without one.
func (s *Store) Archive() error {
	if !s.Exists() {
		return nil
	}
	rec, err := s.Load()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(s.Dir, historyDir), 0755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	if err := os.Rename(s.statePath(), s.historyPath(rec.ID)); err != nil {
		return fmt.Errorf("archive run %s: %w", rec.ID, err)
	}
	return nil
}

// ListHistory returns archived run ids, newest first.
func (s *Store) ListHistory() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.Dir, historyDir))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	// ids embed their creation time
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

// HistoryExists reports whether any run has been archived.
func (s *Store) HistoryExists() bool {
	ids, err := s.ListHistory()
	return err == nil && len(ids) > 0
}

// LoadArchived reads an archived run by id.
func (s *Store) LoadArchived(id string) (*RunRecord, error) {
	return readRecord(s.historyPath(id))
}

// LoadPrevious reads the most recently archived run.
func (s *Store) LoadPrevious() (*RunRecord, error) {
	ids, err := s.ListHistory()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("load previous: %w", ErrNoRun)
	}
	return s.LoadArchived(ids[0])
}

// CleanCurrent removes the current run but keeps history.
func (s *Store) CleanCurrent() error {
	err := os.Remove(s.statePath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Clean removes the state directory.
func (s *Store) Clean() error {
	return os.RemoveAll(s.Dir)
}

func writeRecord(path string, rec *RunRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func readRecord(path string) (*RunRecord, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read state: %w", ErrNoRun)
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}

	var rec RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	return &rec, nil
}
