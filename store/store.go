package store

import (
	"encoding/csv"
	"errors"
	"io"
	"io/fs"
	"os"
	"sort"
	"time"

	"github.com/iAL-2/fed-soma-pipeline/logging"
)

// Store is the canonical wide table on disk. It assumes a single writer
// process; appends are cheap and mechanical, and Reconcile restores the
// ordering and uniqueness invariants afterwards.
type Store struct {
	path   string
	logger *logging.ComponentLogger
}

// ReconcileStats reports what a reconciliation pass did.
type ReconcileStats struct {
	RowsKept          int
	DuplicatesDropped int
}

// NewStore creates a store handle for the wide CSV at path.
func NewStore(path string, logger *logging.ComponentLogger) *Store {
	return &Store{
		path:   path,
		logger: logger,
	}
}

// Path returns the store file location.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether the store file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads the whole store. A missing file is a MissingStoreError.
func (s *Store) Load() (*Table, error) {
	t, err := ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &MissingStoreError{Path: s.path}
	}
	return t, err
}

// Append writes the snapshot's rows to the store file, writing a header
// first if and only if the file does not exist yet. Rows are aligned to the
// stored header by column name; columns the store has not seen before extend
// the header, which costs a whole-file rewrite so the on-disk header stays
// the union of every stored row's columns.
func (s *Store) Append(t *Table) error {
	if len(t.Rows) == 0 {
		return nil
	}

	header, err := s.readHeader()
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, io.EOF) {
		return WriteFile(s.path, t)
	}
	if err != nil {
		return err
	}

	var newCols []string
	for _, name := range t.Header {
		if !contains(header, name) {
			newCols = append(newCols, name)
		}
	}

	if len(newCols) == 0 {
		return appendFile(s.path, alignRows(t, header))
	}

	// Rare path: the snapshot introduced columns the store has never held.
	full, err := s.Load()
	if err != nil {
		return err
	}
	extended := append(append([]string{}, full.Header...), newCols...)
	for i, row := range full.Rows {
		for len(row) < len(extended) {
			row = append(row, "")
		}
		full.Rows[i] = row
	}
	full.Header = extended
	full.Rows = append(full.Rows, alignRows(t, extended)...)

	s.logger.Info().
		Str("path", s.path).
		Strs("new_columns", newCols).
		Msg("Store header extended for new snapshot columns")

	return WriteFile(s.path, full)
}

// Reconcile restores the store invariants: rows sorted ascending by
// as_of_date, one row per date keeping the first occurrence under the
// post-sort order. The file is rewritten in place; afterwards the mandatory
// total column is checked and its absence returned as a SchemaError.
func (s *Store) Reconcile() (ReconcileStats, error) {
	var stats ReconcileStats

	t, err := s.Load()
	if err != nil {
		return stats, err
	}

	di := t.ColumnIndex(DateColumn)
	if di < 0 {
		return stats, &SchemaError{Column: DateColumn}
	}

	type keyedRow struct {
		key      string
		unparsed bool
		row      []string
	}
	keyed := make([]keyedRow, len(t.Rows))
	for i, row := range t.Rows {
		cell := ""
		if di < len(row) {
			cell = row[di]
		}
		if d, err := ParseAsOfDate(cell); err == nil {
			keyed[i] = keyedRow{key: d.Format(DateLayout), row: row}
		} else {
			keyed[i] = keyedRow{key: cell, unparsed: true, row: row}
		}
	}

	// Stable sort: valid dates ascending, anything unparseable after them.
	// Ties keep insertion order, which is what makes dedup first-write-wins.
	sort.SliceStable(keyed, func(i, j int) bool {
		if keyed[i].unparsed != keyed[j].unparsed {
			return !keyed[i].unparsed
		}
		return keyed[i].key < keyed[j].key
	})

	seen := make(map[string]bool, len(keyed))
	deduped := make([][]string, 0, len(keyed))
	for _, kr := range keyed {
		if seen[kr.key] {
			stats.DuplicatesDropped++
			continue
		}
		seen[kr.key] = true
		deduped = append(deduped, kr.row)
	}
	t.Rows = deduped
	stats.RowsKept = len(deduped)

	if err := WriteFile(s.path, t); err != nil {
		return stats, err
	}

	s.logger.Info().
		Str("path", s.path).
		Int("rows", stats.RowsKept).
		Int("duplicates_dropped", stats.DuplicatesDropped).
		Msg("Store reconciled")

	if t.ColumnIndex(TotalColumn) < 0 {
		return stats, &SchemaError{Column: TotalColumn}
	}
	return stats, nil
}

// Cursor returns the latest as_of_date present in the store. A missing file
// is a MissingStoreError; a store with no parseable dates an EmptyStoreError.
func (s *Store) Cursor() (time.Time, error) {
	t, err := s.Load()
	if err != nil {
		return time.Time{}, err
	}

	di := t.ColumnIndex(DateColumn)
	if di < 0 {
		return time.Time{}, &EmptyStoreError{Path: s.path}
	}

	var cursor time.Time
	found := false
	for _, row := range t.Rows {
		if di >= len(row) {
			continue
		}
		d, err := ParseAsOfDate(row[di])
		if err != nil {
			continue
		}
		if !found || d.After(cursor) {
			cursor = d
			found = true
		}
	}
	if !found {
		return time.Time{}, &EmptyStoreError{Path: s.path}
	}
	return cursor, nil
}

// readHeader reads just the first record of the store file.
func (s *Store) readHeader() ([]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return csv.NewReader(f).Read()
}

// alignRows maps the table's rows onto the given header order, leaving
// columns the table does not carry empty.
func alignRows(t *Table, header []string) [][]string {
	index := make(map[string]int, len(t.Header))
	for i, name := range t.Header {
		if _, ok := index[name]; !ok {
			index[name] = i
		}
	}

	out := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		aligned := make([]string, len(header))
		for j, name := range header {
			if i, ok := index[name]; ok && i < len(row) {
				aligned[j] = row[i]
			}
		}
		out = append(out, aligned)
	}
	return out
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
