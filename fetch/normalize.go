package fetch

import (
	"strings"
	"time"

	"github.com/iAL-2/fed-soma-pipeline/store"
)

// NormalizeHeader maps a raw column header to its canonical snake_case form.
func NormalizeHeader(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// Normalize reshapes a raw snapshot into the canonical row schema: every
// header snake_cased, and an as_of_date column injected with the requested
// date when the feed did not include one. Cell values pass through
// untouched; numeric coercion stays downstream. The input table is not
// modified.
func Normalize(t *store.Table, asOf time.Time) *store.Table {
	header := make([]string, len(t.Header))
	hasDate := false
	for i, name := range t.Header {
		header[i] = NormalizeHeader(name)
		if header[i] == store.DateColumn {
			hasDate = true
		}
	}

	if hasDate {
		return &store.Table{Header: header, Rows: t.Rows}
	}

	day := asOf.Format(store.DateLayout)
	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		extended := make([]string, 0, len(row)+1)
		extended = append(extended, row...)
		rows[i] = append(extended, day)
	}

	return &store.Table{
		Header: append(header, store.DateColumn),
		Rows:   rows,
	}
}
