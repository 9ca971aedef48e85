package worklist

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// fromRows converts a header plus string records into a Table. Record numbers
// in errors are 1-based data rows (the header is row 0).
func fromRows(header []string, records [][]string) (*Table, error) {
	header = normalizeHeader(header)
	idx := make(map[string]int, len(header))
	for i, name := range header {
		if _, dup := idx[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		idx[name] = i
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	known := make(map[string]bool, len(RequiredColumns)+1)
	for _, col := range RequiredColumns {
		known[col] = true
	}
	known[ColDestination] = true

	t := &Table{Header: header, Items: make([]WorkItem, 0, len(records))}
	for n, rec := range records {
		if isBlank(rec) {
			continue
		}
		get := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		var item WorkItem
		var err error
		item.Step = get(ColStep)
		if item.Step == "" {
			return nil, fmt.Errorf("row %d: empty step", n+1)
		}
		ints := []struct {
			col string
			dst *int
		}{
			{ColTime, &item.RequiredTime},
			{ColStepIndex, &item.StepIndex},
			{ColStepGroupIndex, &item.StepGroupIndex},
			{ColPreviousStepIndex, &item.PreviousStepIndex},
			{ColDestinationGroup, &item.DestinationGroup},
			{ColGroup, &item.Group},
			{ColPreviousGroup, &item.PreviousGroup},
		}
		for _, f := range ints {
			if *f.dst, err = ParseInt(get(f.col)); err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", n+1, f.col, err)
			}
		}
		item.Destination = get(ColDestination)
		for i, name := range header {
			if known[name] || i >= len(rec) {
				continue
			}
			if item.Extra == nil {
				item.Extra = make(map[string]string)
			}
			item.Extra[name] = rec[i]
		}
		t.Items = append(t.Items, item)
	}
	return t, nil
}

// toRows renders items under header. Columns the item does not know about are
// taken from Extra.
func toRows(header []string, items []WorkItem) [][]string {
	out := make([][]string, 0, len(items))
	for _, item := range items {
		rec := make([]string, len(header))
		for i, col := range header {
			rec[i] = item.Value(col)
		}
		out = append(out, rec)
	}
	return out
}

// Value returns the string form of a column.
func (w WorkItem) Value(col string) string {
	switch col {
	case ColStep:
		return w.Step
	case ColTime:
		return strconv.Itoa(w.RequiredTime)
	case ColStepIndex:
		return strconv.Itoa(w.StepIndex)
	case ColStepGroupIndex:
		return strconv.Itoa(w.StepGroupIndex)
	case ColPreviousStepIndex:
		return strconv.Itoa(w.PreviousStepIndex)
	case ColDestinationGroup:
		return strconv.Itoa(w.DestinationGroup)
	case ColGroup:
		return strconv.Itoa(w.Group)
	case ColPreviousGroup:
		return strconv.Itoa(w.PreviousGroup)
	case ColDestination:
		return w.Destination
	}
	return w.Extra[col]
}

// ParseInt accepts integers and integral floats ("30", "30.0"). Empty cells
// parse as 0.
func ParseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int(f), nil
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		out[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return out
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
