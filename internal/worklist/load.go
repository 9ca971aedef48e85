package worklist

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format identifies a file encoding by extension.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf returns the format implied by a path's extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported file type %q", filepath.Ext(path))
}

// Load reads a worklist from a CSV or XLSX file.
func Load(path, sheet string) (*Table, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read worklist: %w", err)
	}
	var t *Table
	switch format {
	case FormatCSV:
		t, err = ReadCSV(bytes.NewReader(data))
	case FormatXLSX:
		t, err = ReadXLSX(bytes.NewReader(data), sheet)
	default:
		return nil, fmt.Errorf("worklist must be csv or xlsx, got %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("parse worklist %s: %w", path, err)
	}
	return t, nil
}

// Save writes a worklist to a CSV or XLSX file.
func Save(path string, t *Table, sheet string) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	switch format {
	case FormatCSV:
		err = WriteCSV(&buf, t)
	case FormatXLSX:
		err = WriteXLSX(&buf, t, sheet)
	default:
		return fmt.Errorf("worklist must be csv or xlsx, got %s", format)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// DurationOptions controls how a duration table file is read.
type DurationOptions struct {
	Sheet    string // xlsx sheet
	JSONPath string // gjson path for json tables
}

// LoadDurations reads a duration table from CSV, XLSX, JSON or YAML.
func LoadDurations(path string, opts DurationOptions) ([]DurationEntry, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read durations: %w", err)
	}
	var entries []DurationEntry
	switch format {
	case FormatCSV:
		entries, err = ReadDurationsCSV(bytes.NewReader(data))
	case FormatXLSX:
		entries, err = ReadDurationsXLSX(bytes.NewReader(data), opts.Sheet)
	case FormatJSON:
		entries, err = ReadDurationsJSON(data, opts.JSONPath)
	case FormatYAML:
		entries, err = ReadDurationsYAML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parse durations %s: %w", path, err)
	}
	return entries, nil
}
