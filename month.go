package surveilans

import (
	"fmt"
	"time"
)

// Month is a calendar month, the unit of one extract file.
type Month struct {
	Year  int
	Month time.Month
}

func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth reads the YYYY-MM form used in extract file names.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("parse month %q: %w", s, err)
	}
	return MonthOf(t), nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Label is the human form used in progress messages, e.g. "January 2025".
func (m Month) Label() string {
	return m.start().Format("January 2006")
}

func (m Month) Next() Month {
	return MonthOf(m.start().AddDate(0, 1, 0))
}

func (m Month) Before(o Month) bool {
	return m.Year < o.Year || (m.Year == o.Year && m.Month < o.Month)
}

func (m Month) Valid() bool {
	return m.Month >= time.January && m.Month <= time.December && m.Year > 0
}

// Date returns the date for day within the month, or false when the day does
// not exist in it (day 30 of February, day 0, day 32).
func (m Month) Date(day int) (time.Time, bool) {
	d := time.Date(m.Year, m.Month, day, 0, 0, 0, 0, time.UTC)
	if d.Year() != m.Year || d.Month() != m.Month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

func (m Month) start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// MonthRange lists every month from start to end inclusive.
func MonthRange(start, end Month) ([]Month, error) {
	if !start.Valid() || !end.Valid() || end.Before(start) {
		return nil, fmt.Errorf("%w: %s to %s", errInvalidRange, start, end)
	}

	var out []Month
	for m := start; !end.Before(m); m = m.Next() {
		out = append(out, m)
	}
	return out, nil
}
