package worklist

import (
	"encoding/csv"
	"fmt"
	"io"
)

// ReadCSV parses a worklist from CSV with a header row.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv is empty")
	}
	return fromRows(records[0], records[1:])
}

// WriteCSV writes the table, header first.
func WriteCSV(w io.Writer, t *Table) error {
	header := t.Header
	if len(header) == 0 {
		header = DefaultHeader()
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(toRows(header, t.Items)); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}
