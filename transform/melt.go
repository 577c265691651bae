// Package transform derives the long (tidy) view from the canonical wide
// table.
package transform

import "github.com/iAL-2/fed-soma-pipeline/store"

// CategoryColumn names the long table's melted column-name column.
const CategoryColumn = "category"

// AmountColumn names the long table's melted cell-value column.
const AmountColumn = "amount"

// Melt emits one long row per (wide row, non-date column) pair: the column
// name becomes the category, the cell value the amount. Output order is
// source row order, then source column order, and cell values pass through
// unchanged, so melting an unchanged store is byte-identical run to run.
// Every non-date column melts, total included, as its own category.
func Melt(wide *store.Table) *store.Table {
	di := wide.ColumnIndex(store.DateColumn)

	long := &store.Table{
		Header: []string{store.DateColumn, CategoryColumn, AmountColumn},
	}

	for _, row := range wide.Rows {
		date := ""
		if di >= 0 && di < len(row) {
			date = row[di]
		}
		for j, name := range wide.Header {
			if j == di {
				continue
			}
			value := ""
			if j < len(row) {
				value = row[j]
			}
			long.Rows = append(long.Rows, []string{date, name, value})
		}
	}

	return long
}
