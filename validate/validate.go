// Package validate runs read-only sanity checks over the wide store
// and the derived long table. Findings are split into errors, which
// fail the check, and warnings, which are reported but tolerated
// (negative adjustment buckets are normal for some sources).
package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/iAL-2/fed-soma-pipeline/store"
	"github.com/iAL-2/fed-soma-pipeline/transform"
)

// Tolerances for reconciling the per-row component sum against total.
const (
	SumAbsTolerance = 1e3
	SumRelTolerance = 5e-3
)

// CoercionError reports columns whose cells failed numeric coercion.
type CoercionError struct {
	Columns map[string]int // column name -> bad cell count
}

func (e *CoercionError) Error() string {
	names := make([]string, 0, len(e.Columns))
	for name := range e.Columns {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s (%d rows)", name, e.Columns[name]))
	}
	return "non-numeric values after coercion: " + strings.Join(parts, ", ")
}

// Report collects the findings from one validation pass.
type Report struct {
	Table    string
	Rows     int
	Errors   []error
	Warnings []string
}

// OK reports whether the pass found no errors.
func (r *Report) OK() bool { return len(r.Errors) == 0 }

func (r *Report) errorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Errorf(format, args...))
}

func (r *Report) warnf(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// CheckWide validates the wide store file at path: mandatory columns,
// strictly ascending dates, strictly numeric cells, non-negative
// total. Negative category cells and component sums that drift from
// total are warnings.
func CheckWide(path string) (*Report, error) {
	table, err := store.ReadFile(path)
	if err != nil {
		return nil, err
	}

	report := &Report{Table: "wide", Rows: len(table.Rows)}

	dateIdx := table.ColumnIndex(store.DateColumn)
	if dateIdx < 0 {
		report.Errors = append(report.Errors, &store.SchemaError{Column: store.DateColumn})
		return report, nil
	}
	totalIdx := table.ColumnIndex(store.TotalColumn)
	if totalIdx < 0 {
		report.Errors = append(report.Errors, &store.SchemaError{Column: store.TotalColumn})
		return report, nil
	}

	checkDatesAscending(report, table, dateIdx, true)

	// Strict numeric pass over every non-date column.
	badCells := make(map[string]int)
	for _, row := range table.Rows {
		for i, name := range table.Header {
			if i == dateIdx {
				continue
			}
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			if _, err := store.StrictFloat(cell); err != nil {
				badCells[name]++
			}
		}
	}
	if len(badCells) > 0 {
		report.Errors = append(report.Errors, &CoercionError{Columns: badCells})
		return report, nil
	}

	checkTotals(report, table, dateIdx, totalIdx)
	return report, nil
}

// checkTotals runs the value-level wide checks. It assumes the strict
// numeric pass already succeeded.
func checkTotals(report *Report, table *store.Table, dateIdx, totalIdx int) {
	var negativeTotalDates []string
	negativeCount := make(map[string]int)
	negativeMin := make(map[string]float64)
	offRows := 0
	worstDiff := 0.0

	for _, row := range table.Rows {
		date := ""
		if dateIdx < len(row) {
			date = row[dateIdx]
		}
		total, _ := store.StrictFloat(row[totalIdx])
		if total < 0 {
			negativeTotalDates = append(negativeTotalDates, date)
		}

		componentSum := 0.0
		for i, name := range table.Header {
			if i == dateIdx || i == totalIdx {
				continue
			}
			value, _ := store.StrictFloat(row[i])
			componentSum += value
			if value < 0 {
				negativeCount[name]++
				if negativeCount[name] == 1 || value < negativeMin[name] {
					negativeMin[name] = value
				}
			}
		}

		diff := componentSum - total
		if diff < 0 {
			diff = -diff
		}
		if diff > SumAbsTolerance+SumRelTolerance*abs(total) {
			offRows++
			if diff > worstDiff {
				worstDiff = diff
			}
		}
	}

	if len(negativeTotalDates) > 0 {
		report.errorf("total is negative at %s", strings.Join(negativeTotalDates, ", "))
	}

	names := make([]string, 0, len(negativeCount))
	for name := range negativeCount {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		report.warnf("negative amounts in %s: %d rows (min=%g)", name, negativeCount[name], negativeMin[name])
	}

	if offRows > 0 {
		report.warnf("component sum differs from total on %d rows (atol=%g, rtol=%g, worst diff=%g)",
			offRows, SumAbsTolerance, SumRelTolerance, worstDiff)
	}
}

// CheckLong validates the derived long file at path: the exact
// three-column header, ascending dates, numeric amounts, and a
// non-negative total category.
func CheckLong(path string) (*Report, error) {
	table, err := store.ReadFile(path)
	if err != nil {
		return nil, err
	}

	report := &Report{Table: "long", Rows: len(table.Rows)}

	want := []string{store.DateColumn, transform.CategoryColumn, transform.AmountColumn}
	if len(table.Header) != len(want) || table.Header[0] != want[0] || table.Header[1] != want[1] || table.Header[2] != want[2] {
		report.errorf("long table header must be exactly %s; got %s",
			strings.Join(want, ","), strings.Join(table.Header, ","))
		return report, nil
	}

	checkDatesAscending(report, table, 0, false)

	badAmounts := 0
	for _, row := range table.Rows {
		var cell string
		if len(row) > 2 {
			cell = row[2]
		}
		if _, err := store.StrictFloat(cell); err != nil {
			badAmounts++
		}
	}
	if badAmounts > 0 {
		report.Errors = append(report.Errors, &CoercionError{
			Columns: map[string]int{transform.AmountColumn: badAmounts},
		})
		return report, nil
	}

	var negativeTotalDates []string
	negativeCount := make(map[string]int)
	negativeMin := make(map[string]float64)
	for _, row := range table.Rows {
		amount, _ := store.StrictFloat(row[2])
		if amount >= 0 {
			continue
		}
		category := row[1]
		if strings.EqualFold(category, store.TotalColumn) {
			negativeTotalDates = append(negativeTotalDates, row[0])
			continue
		}
		negativeCount[category]++
		if negativeCount[category] == 1 || amount < negativeMin[category] {
			negativeMin[category] = amount
		}
	}

	if len(negativeTotalDates) > 0 {
		report.errorf("total category is negative at %s", strings.Join(negativeTotalDates, ", "))
	}

	categories := make([]string, 0, len(negativeCount))
	for category := range negativeCount {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	for _, category := range categories {
		report.warnf("negative amounts in category %s: %d rows (min=%g)",
			category, negativeCount[category], negativeMin[category])
	}

	return report, nil
}

// checkDatesAscending verifies file order. The wide store forbids
// duplicate dates; the long table repeats each date once per category.
func checkDatesAscending(report *Report, table *store.Table, dateIdx int, strict bool) {
	var prev string
	for i, row := range table.Rows {
		var cell string
		if dateIdx < len(row) {
			cell = row[dateIdx]
		}
		parsed, err := store.ParseAsOfDate(cell)
		if err != nil {
			report.errorf("row %d: invalid as_of_date %q", i+1, cell)
			continue
		}
		key := parsed.Format(store.DateLayout)
		if prev != "" {
			if key < prev {
				report.errorf("dates not sorted ascending at row %d (%s after %s)", i+1, key, prev)
			} else if strict && key == prev {
				report.errorf("duplicate as_of_date %s at row %d", key, i+1)
			}
		}
		prev = key
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
