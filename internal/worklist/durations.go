package worklist

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// ReadDurationsCSV parses a step,exp_time table.
func ReadDurationsCSV(r io.Reader) ([]DurationEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read duration csv: %w", err)
	}
	return durationsFromRows(records)
}

// ReadDurationsXLSX parses a step,exp_time table from a workbook sheet.
func ReadDurationsXLSX(r io.Reader, sheet string) ([]DurationEntry, error) {
	f, err := openXLSX(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	records, err := sheetRows(f, sheet)
	if err != nil {
		return nil, err
	}
	return durationsFromRows(records)
}

// ReadDurationsJSON extracts entries from a JSON document. path is a gjson path
// selecting an array of objects with "step" and "exp_time" members (for
// example "settings.steps"); an empty path means the document root. A root
// object of step -> duration is also accepted.
func ReadDurationsJSON(data []byte, path string) ([]DurationEntry, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid json duration table")
	}
	doc := gjson.ParseBytes(data)
	if path != "" {
		doc = doc.Get(path)
		if !doc.Exists() {
			return nil, fmt.Errorf("json path %q not found", path)
		}
	}

	var entries []DurationEntry
	var err error
	switch {
	case doc.IsArray():
		doc.ForEach(func(_, v gjson.Result) bool {
			step := v.Get(ColStep)
			d := v.Get(ColExpTime)
			if !step.Exists() || !d.Exists() {
				err = fmt.Errorf("duration entry %s lacks step or exp_time", v.Raw)
				return false
			}
			entries = append(entries, DurationEntry{Step: step.String(), ExpectedDuration: int(d.Int())})
			return true
		})
	case doc.IsObject():
		doc.ForEach(func(k, v gjson.Result) bool {
			if v.Type != gjson.Number {
				err = fmt.Errorf("duration for step %q is not a number", k.String())
				return false
			}
			entries = append(entries, DurationEntry{Step: k.String(), ExpectedDuration: int(v.Int())})
			return true
		})
	default:
		return nil, fmt.Errorf("json duration table must be an array or object")
	}
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ReadDurationsYAML accepts either a list of {step, exp_time} or a mapping of
// step to duration.
func ReadDurationsYAML(data []byte) ([]DurationEntry, error) {
	var list []DurationEntry
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var m map[string]int
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse yaml duration table: %w", err)
	}
	entries := make([]DurationEntry, 0, len(m))
	for step, d := range m {
		entries = append(entries, DurationEntry{Step: step, ExpectedDuration: d})
	}
	return entries, nil
}

func durationsFromRows(records [][]string) ([]DurationEntry, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("duration table is empty")
	}
	header := normalizeHeader(records[0])
	stepIdx, timeIdx := -1, -1
	for i, h := range header {
		switch h {
		case ColStep:
			stepIdx = i
		case ColExpTime:
			timeIdx = i
		}
	}
	if stepIdx < 0 || timeIdx < 0 {
		return nil, fmt.Errorf("duration table needs %q and %q columns", ColStep, ColExpTime)
	}
	var entries []DurationEntry
	for n, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		if stepIdx >= len(rec) || timeIdx >= len(rec) {
			return nil, fmt.Errorf("duration row %d: too few columns", n+1)
		}
		d, err := ParseInt(rec[timeIdx])
		if err != nil {
			return nil, fmt.Errorf("duration row %d: %w", n+1, err)
		}
		entries = append(entries, DurationEntry{Step: strings.TrimSpace(rec[stepIdx]), ExpectedDuration: d})
	}
	return entries, nil
}
