// Package timeutil resolves calendar boundaries in an explicit operating
// timezone. Nothing here reads the host's local zone.
package timeutil

import (
	"fmt"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
	ClockLayout = "15:04"
)

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Today returns midnight of the current day in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	return StartOfDay(now, loc)
}

// ParseDate parses YYYY-MM-DD as midnight in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", value)
	}
	return t, nil
}

// FormatDate renders the calendar date of t in loc.
func FormatDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// Days returns every calendar day from start to end inclusive.
func Days(start, end time.Time, loc *time.Location) []time.Time {
	start, end = StartOfDay(start, loc), StartOfDay(end, loc)
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Month identifies one calendar month.
type Month struct {
	Year  int
	Month time.Month
}

func MonthOf(t time.Time, loc *time.Location) Month {
	t = t.In(loc)
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses YYYY-MM.
func ParseMonth(value string) (Month, error) {
	t, err := time.Parse(MonthLayout, value)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: expected YYYY-MM", value)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// First returns the first day of the month in loc.
func (m Month) First(loc *time.Location) time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, loc)
}

// Last returns the last day of the month in loc.
func (m Month) Last(loc *time.Location) time.Time {
	return m.First(loc).AddDate(0, 1, -1)
}

func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

// Clamp returns the part of the month that falls inside [start, end].
func (m Month) Clamp(start, end time.Time, loc *time.Location) (time.Time, time.Time) {
	from, to := m.First(loc), m.Last(loc)
	if s := StartOfDay(start, loc); s.After(from) {
		from = s
	}
	if e := StartOfDay(end, loc); e.Before(to) {
		to = e
	}
	return from, to
}

// MonthsBetween lists every month fully or partially inside [start, end].
func MonthsBetween(start, end time.Time, loc *time.Location) []Month {
	if end.Before(start) {
		return nil
	}
	last := MonthOf(end, loc)
	var months []Month
	for m := MonthOf(start, loc); ; m = m.Next() {
		months = append(months, m)
		if m == last {
			break
		}
	}
	return months
}
