package validate

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iAL-2/fed-soma-pipeline/store"
)

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestCheckWideCleanStore(t *testing.T) {
	path := writeCSV(t, "weekly.csv",
		"as_of_date,total,mbs,tips\n"+
			"2024-06-05,100,60,40\n"+
			"2024-06-12,200,120,80\n")

	report, err := CheckWide(path)
	if err != nil {
		t.Fatalf("CheckWide failed: %v", err)
	}
	if !report.OK() {
		t.Fatalf("expected a clean report, got errors: %v", report.Errors)
	}
	if len(report.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", report.Warnings)
	}
	if report.Rows != 2 {
		t.Errorf("expected 2 rows, got %d", report.Rows)
	}
}

func TestCheckWideMissingColumns(t *testing.T) {
	cases := []struct {
		name    string
		content string
		column  string
	}{
		{"no total", "as_of_date,mbs\n2024-06-05,60\n", "total"},
		{"no date", "total,mbs\n100,60\n", "as_of_date"},
	}

	for _, tc := range cases {
		report, err := CheckWide(writeCSV(t, "weekly.csv", tc.content))
		if err != nil {
			t.Fatalf("%s: CheckWide failed: %v", tc.name, err)
		}
		if report.OK() {
			t.Fatalf("%s: expected a schema error", tc.name)
		}
		var schemaErr *store.SchemaError
		if !errors.As(report.Errors[0], &schemaErr) || schemaErr.Column != tc.column {
			t.Errorf("%s: expected SchemaError for %s, got %v", tc.name, tc.column, report.Errors[0])
		}
	}
}

func TestCheckWideCoercionFailures(t *testing.T) {
	path := writeCSV(t, "weekly.csv",
		"as_of_date,total,mbs,tips\n"+
			"2024-06-05,100,n/a,40\n"+
			"2024-06-12,200,120,\n")

	report, err := CheckWide(path)
	if err != nil {
		t.Fatalf("CheckWide failed: %v", err)
	}
	if report.OK() {
		t.Fatal("expected coercion errors")
	}

	var coercion *CoercionError
	if !errors.As(report.Errors[0], &coercion) {
		t.Fatalf("expected CoercionError, got %T", report.Errors[0])
	}
	if coercion.Columns["mbs"] != 1 || coercion.Columns["tips"] != 1 {
		t.Errorf("unexpected bad cell counts: %v", coercion.Columns)
	}
	if msg := coercion.Error(); !strings.Contains(msg, "mbs (1 rows)") {
		t.Errorf("message should name the column and count, got %q", msg)
	}
	if len(report.Warnings) != 0 {
		t.Errorf("value checks should not run after coercion failure, got %v", report.Warnings)
	}
}

func TestCheckWideNegativeTotal(t *testing.T) {
	path := writeCSV(t, "weekly.csv",
		"as_of_date,total,mbs\n"+
			"2024-06-05,-5,-5\n")

	report, err := CheckWide(path)
	if err != nil {
		t.Fatalf("CheckWide failed: %v", err)
	}
	if report.OK() {
		t.Fatal("expected a negative-total error")
	}
	if msg := report.Errors[0].Error(); !strings.Contains(msg, "2024-06-05") {
		t.Errorf("error should name the date, got %q", msg)
	}
}

func TestCheckWideNegativeComponentWarns(t *testing.T) {
	path := writeCSV(t, "weekly.csv",
		"as_of_date,total,mbs,tips\n"+
			"2024-06-05,100,-10,110\n")

	report, err := CheckWide(path)
	if err != nil {
		t.Fatalf("CheckWide failed: %v", err)
	}
	if !report.OK() {
		t.Fatalf("negative components must not fail the check: %v", report.Errors)
	}
	if len(report.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", report.Warnings)
	}
	if !strings.Contains(report.Warnings[0], "mbs") || !strings.Contains(report.Warnings[0], "min=-10") {
		t.Errorf("warning should carry column and minimum, got %q", report.Warnings[0])
	}
}

func TestCheckWideComponentSumTolerance(t *testing.T) {
	// Tolerance for total=1e6 is 1e3 + 5e-3*1e6 = 6000.
	within := writeCSV(t, "within.csv",
		"as_of_date,total,mbs\n"+
			"2024-06-05,1000000,995000\n")
	report, err := CheckWide(within)
	if err != nil {
		t.Fatalf("CheckWide failed: %v", err)
	}
	if len(report.Warnings) != 0 {
		t.Errorf("drift inside the tolerance should not warn: %v", report.Warnings)
	}

	beyond := writeCSV(t, "beyond.csv",
		"as_of_date,total,mbs\n"+
			"2024-06-05,1000000,990000\n")
	report, err = CheckWide(beyond)
	if err != nil {
		t.Fatalf("CheckWide failed: %v", err)
	}
	if len(report.Warnings) != 1 || !strings.Contains(report.Warnings[0], "1 rows") {
		t.Errorf("expected a single drift warning, got %v", report.Warnings)
	}
	if !report.OK() {
		t.Errorf("drift is a warning, not an error: %v", report.Errors)
	}
}

func TestCheckWideDateOrder(t *testing.T) {
	unsorted := writeCSV(t, "unsorted.csv",
		"as_of_date,total\n"+
			"2024-06-12,200\n"+
			"2024-06-05,100\n")
	report, err := CheckWide(unsorted)
	if err != nil {
		t.Fatalf("CheckWide failed: %v", err)
	}
	if report.OK() || !strings.Contains(report.Errors[0].Error(), "not sorted") {
		t.Errorf("expected a sort error, got %v", report.Errors)
	}

	duplicated := writeCSV(t, "duplicated.csv",
		"as_of_date,total\n"+
			"2024-06-05,100\n"+
			"2024-06-05,100\n")
	report, err = CheckWide(duplicated)
	if err != nil {
		t.Fatalf("CheckWide failed: %v", err)
	}
	if report.OK() || !strings.Contains(report.Errors[0].Error(), "duplicate") {
		t.Errorf("expected a duplicate error, got %v", report.Errors)
	}
}

func TestCheckWideMissingFile(t *testing.T) {
	if _, err := CheckWide(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestCheckLongClean(t *testing.T) {
	path := writeCSV(t, "long.csv",
		"as_of_date,category,amount\n"+
			"2024-06-05,total,100\n"+
			"2024-06-05,mbs,60\n"+
			"2024-06-05,tips,40\n"+
			"2024-06-12,total,200\n"+
			"2024-06-12,mbs,120\n"+
			"2024-06-12,tips,80\n")

	report, err := CheckLong(path)
	if err != nil {
		t.Fatalf("CheckLong failed: %v", err)
	}
	if !report.OK() {
		t.Fatalf("expected a clean report, got %v", report.Errors)
	}
	if len(report.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", report.Warnings)
	}
}

func TestCheckLongHeaderMustBeExact(t *testing.T) {
	cases := []string{
		"as_of_date,category,value\n2024-06-05,total,100\n",
		"as_of_date,category,amount,extra\n2024-06-05,total,100,1\n",
		"category,as_of_date,amount\ntotal,2024-06-05,100\n",
	}
	for _, content := range cases {
		report, err := CheckLong(writeCSV(t, "long.csv", content))
		if err != nil {
			t.Fatalf("CheckLong failed: %v", err)
		}
		if report.OK() {
			t.Errorf("expected a header error for %q", strings.SplitN(content, "\n", 2)[0])
		}
	}
}

func TestCheckLongBadAmount(t *testing.T) {
	path := writeCSV(t, "long.csv",
		"as_of_date,category,amount\n"+
			"2024-06-05,total,abc\n")

	report, err := CheckLong(path)
	if err != nil {
		t.Fatalf("CheckLong failed: %v", err)
	}
	var coercion *CoercionError
	if report.OK() || !errors.As(report.Errors[0], &coercion) {
		t.Fatalf("expected CoercionError, got %v", report.Errors)
	}
	if coercion.Columns["amount"] != 1 {
		t.Errorf("unexpected counts: %v", coercion.Columns)
	}
}

func TestCheckLongNegativeTotalCategory(t *testing.T) {
	path := writeCSV(t, "long.csv",
		"as_of_date,category,amount\n"+
			"2024-06-05,Total,-5\n")

	report, err := CheckLong(path)
	if err != nil {
		t.Fatalf("CheckLong failed: %v", err)
	}
	if report.OK() {
		t.Fatal("negative total category must fail, regardless of case")
	}
	if !strings.Contains(report.Errors[0].Error(), "2024-06-05") {
		t.Errorf("error should name the date, got %v", report.Errors[0])
	}
}

func TestCheckLongNegativeCategoryWarns(t *testing.T) {
	path := writeCSV(t, "long.csv",
		"as_of_date,category,amount\n"+
			"2024-06-05,mbs,-3\n"+
			"2024-06-12,mbs,-7\n")

	report, err := CheckLong(path)
	if err != nil {
		t.Fatalf("CheckLong failed: %v", err)
	}
	if !report.OK() {
		t.Fatalf("component negatives are warnings: %v", report.Errors)
	}
	if len(report.Warnings) != 1 {
		t.Fatalf("expected one grouped warning, got %v", report.Warnings)
	}
	warning := report.Warnings[0]
	if !strings.Contains(warning, "mbs") || !strings.Contains(warning, "2 rows") || !strings.Contains(warning, "min=-7") {
		t.Errorf("warning should group count and minimum by category, got %q", warning)
	}
}

func TestCheckLongRepeatedDatesAllowed(t *testing.T) {
	path := writeCSV(t, "long.csv",
		"as_of_date,category,amount\n"+
			"2024-06-05,total,100\n"+
			"2024-06-05,mbs,100\n")

	report, err := CheckLong(path)
	if err != nil {
		t.Fatalf("CheckLong failed: %v", err)
	}
	if !report.OK() {
		t.Errorf("repeated dates are expected in the long shape: %v", report.Errors)
	}
}
