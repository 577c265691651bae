package schedule

import (
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestWeeklyDatesAlignsForward(t *testing.T) {
	got := WeeklyDates(day("2024-06-03"), day("2024-06-30"), time.Wednesday)

	want := []string{"2024-06-05", "2024-06-12", "2024-06-19", "2024-06-26"}
	if len(got) != len(want) {
		t.Fatalf("expected %d dates, got %v", len(want), got)
	}
	for i, d := range got {
		if d.Format("2006-01-02") != want[i] {
			t.Errorf("date %d: expected %s, got %s", i, want[i], d.Format("2006-01-02"))
		}
		if d.Weekday() != time.Wednesday {
			t.Errorf("date %d: %s is a %v, not a Wednesday", i, d.Format("2006-01-02"), d.Weekday())
		}
		if i > 0 {
			if gap := d.Sub(got[i-1]); gap != 7*24*time.Hour {
				t.Errorf("gap before date %d: expected 7 days, got %v", i, gap)
			}
		}
	}
}

func TestWeeklyDatesIncludesAlignedStart(t *testing.T) {
	got := WeeklyDates(day("2024-06-05"), day("2024-06-05"), time.Wednesday)
	if len(got) != 1 || got[0].Format("2006-01-02") != "2024-06-05" {
		t.Fatalf("expected exactly the aligned start date, got %v", got)
	}
}

func TestWeeklyDatesEmptyRanges(t *testing.T) {
	if got := WeeklyDates(day("2024-06-13"), day("2024-06-12"), time.Wednesday); len(got) != 0 {
		t.Errorf("start after end should yield nothing, got %v", got)
	}
	// Alignment can overshoot a short range.
	if got := WeeklyDates(day("2024-06-06"), day("2024-06-08"), time.Wednesday); len(got) != 0 {
		t.Errorf("range with no Wednesday should yield nothing, got %v", got)
	}
}

func TestNextAlignedDate(t *testing.T) {
	cases := []struct {
		last string
		want string
	}{
		{"2024-05-29", "2024-06-05"}, // already a Wednesday: strictly after
		{"2024-06-11", "2024-06-12"}, // Tuesday
		{"2024-06-06", "2024-06-12"}, // Thursday
		{"2024-05-31", "2024-06-05"}, // Friday, misaligned store tail
	}
	for _, tc := range cases {
		got := NextAlignedDate(day(tc.last), time.Wednesday)
		if got.Format("2006-01-02") != tc.want {
			t.Errorf("NextAlignedDate(%s): expected %s, got %s", tc.last, tc.want, got.Format("2006-01-02"))
		}
	}
}

func TestPendingDatesScenario(t *testing.T) {
	got := PendingDates(day("2024-05-29"), day("2024-06-12"), time.Wednesday)

	want := []string{"2024-06-05", "2024-06-12"}
	if len(got) != len(want) {
		t.Fatalf("expected exactly %v, got %v", want, got)
	}
	for i, d := range got {
		if d.Format("2006-01-02") != want[i] {
			t.Errorf("pending date %d: expected %s, got %s", i, want[i], d.Format("2006-01-02"))
		}
	}
}

func TestPendingDatesUpToDate(t *testing.T) {
	if got := PendingDates(day("2024-06-12"), day("2024-06-12"), time.Wednesday); len(got) != 0 {
		t.Errorf("cursor at today should yield nothing, got %v", got)
	}
}

func TestPendingDatesRestartable(t *testing.T) {
	first := PendingDates(day("2024-05-29"), day("2024-07-03"), time.Wednesday)
	second := PendingDates(day("2024-05-29"), day("2024-07-03"), time.Wednesday)

	if len(first) != len(second) {
		t.Fatalf("same arguments produced different lengths: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].Equal(second[i]) {
			t.Errorf("date %d differs between runs: %v vs %v", i, first[i], second[i])
		}
	}
}
