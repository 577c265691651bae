package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the serialized form of every as_of_date value.
const DateLayout = "2006-01-02"

// DateColumn is the key column of the wide table.
const DateColumn = "as_of_date"

// TotalColumn is the one category column every stored row must carry.
const TotalColumn = "total"

// Table is an in-memory CSV table: one header row plus raw string cells.
// Cells pass through reads and writes untouched, so rewriting a file never
// reformats the data it already holds.
type Table struct {
	Header []string
	Rows   [][]string
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Cell returns the value at (row, column name), or "" when the column is
// absent or the row too short.
func (t *Table) Cell(row int, name string) string {
	i := t.ColumnIndex(name)
	if i < 0 || i >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][i]
}

// ParseAsOfDate parses a serialized as-of date. ISO form is canonical; the
// US slash form shows up in hand-edited files and is accepted.
func ParseAsOfDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("1/2/2006", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized as_of_date value %q", s)
}

// StrictFloat parses a numeric cell, failing on anything unparseable,
// including empty cells.
func StrictFloat(cell string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(cell), 64)
}

// LenientFloat parses a numeric cell the way derived views consume the
// store: unparseable cells count as zero.
func LenientFloat(cell string) float64 {
	v, err := StrictFloat(cell)
	if err != nil {
		return 0
	}
	return v
}

// ReadFile loads a CSV file into a Table. A file with no header row loads
// as an empty table.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	// Hand-edited files sometimes carry ragged rows; consumers treat
	// missing cells as empty.
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}
	return &Table{Header: records[0], Rows: records[1:]}, nil
}

// WriteFile writes a Table over path, truncating whatever was there.
func WriteFile(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(t.Header); err != nil {
		f.Close()
		return err
	}
	for _, row := range t.Rows {
		if err := w.Write(row); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// appendFile adds rows to an existing CSV file without touching its header.
func appendFile(path string, rows [][]string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
