package domain

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// All date arithmetic in the engine operates on civil.Date values in a single
// fixed calendar (UTC). Days-of-month configured on cards (closing/due day) may
// name days that do not exist in every month; projecting such a day onto a
// concrete month always clamps to that month's last valid day.

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampDay projects a day-of-month onto a concrete month, clamping to the last
// valid day when the month is shorter.
func ClampDay(year int, month time.Month, day int) civil.Date {
	if max := DaysInMonth(year, month); day > max {
		day = max
	}
	if day < 1 {
		day = 1
	}
	return civil.Date{Year: year, Month: month, Day: day}
}

// AddMonthsClamped advances a date by the given number of calendar months,
// keeping the day-of-month where possible and clamping to the last day of the
// target month otherwise (Jan 31 + 1 month = Feb 29 in a leap year, never
// Mar 2).
func AddMonthsClamped(d civil.Date, months int) civil.Date {
	// Normalize via time.Date on the first of the month so the month offset
	// itself can never overflow, then clamp the day separately.
	first := time.Date(d.Year, d.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
	return ClampDay(first.Year(), first.Month(), d.Day)
}

// MonthKey returns the "YYYY-MM" bucket the date falls in.
func MonthKey(d civil.Date) string {
	return fmt.Sprintf("%04d-%02d", d.Year, int(d.Month))
}

// MonthKeyOf formats a year/month pair as a "YYYY-MM" bucket.
func MonthKeyOf(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

// ParseDate parses an ISO YYYY-MM-DD string.
func ParseDate(s string) (civil.Date, error) {
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return d, nil
}

// Today returns the current date in UTC.
func Today() civil.Date {
	return civil.DateOf(time.Now().UTC())
}
