package domain

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
)

func mustDate(t *testing.T, s string) civil.Date {
	t.Helper()
	d, err := ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", s, err)
	}
	return d
}

func TestAddMonthsClamped(t *testing.T) {
	tests := []struct {
		name   string
		start  string
		months int
		want   string
	}{
		{"plain month", "2024-01-15", 1, "2024-02-15"},
		{"jan 31 to leap feb", "2024-01-31", 1, "2024-02-29"},
		{"jan 31 to non-leap feb", "2023-01-31", 1, "2023-02-28"},
		{"clamped then long month keeps original day", "2024-01-31", 2, "2024-03-31"},
		{"31st to 30-day month", "2024-01-31", 3, "2024-04-30"},
		{"year rollover", "2024-11-30", 3, "2025-02-28"},
		{"zero months", "2024-05-10", 0, "2024-05-10"},
		{"many months", "2024-01-31", 13, "2025-02-28"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AddMonthsClamped(mustDate(t, tt.start), tt.months)
			if got.String() != tt.want {
				t.Errorf("AddMonthsClamped(%s, %d) = %s, want %s", tt.start, tt.months, got, tt.want)
			}
		})
	}
}

func TestDaysInMonth(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2024, time.February, 29},
		{2023, time.February, 28},
		{2024, time.April, 30},
		{2024, time.December, 31},
	}
	for _, tt := range tests {
		if got := DaysInMonth(tt.year, tt.month); got != tt.want {
			t.Errorf("DaysInMonth(%d, %s) = %d, want %d", tt.year, tt.month, got, tt.want)
		}
	}
}

func TestMonthKey(t *testing.T) {
	if got := MonthKey(mustDate(t, "2024-02-10")); got != "2024-02" {
		t.Errorf("MonthKey = %q, want 2024-02", got)
	}
	if got := MonthKeyOf(2024, time.December); got != "2024-12" {
		t.Errorf("MonthKeyOf = %q, want 2024-12", got)
	}
}

func TestClampDay(t *testing.T) {
	got := ClampDay(2024, time.February, 31)
	if got.String() != "2024-02-29" {
		t.Errorf("ClampDay(2024, Feb, 31) = %s, want 2024-02-29", got)
	}
	got = ClampDay(2024, time.March, 15)
	if got.String() != "2024-03-15" {
		t.Errorf("ClampDay(2024, Mar, 15) = %s, want 2024-03-15", got)
	}
}
