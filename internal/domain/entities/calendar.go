package entities

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

const (
	localDateLayout = "2006-01-02"
	yearMonthLayout = "2006-01"
)

// LocalDate is a calendar date with no time zone attached.
type LocalDate struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseLocalDate parses an ISO-8601 date such as "2020-04-20".
func ParseLocalDate(s string) (LocalDate, error) {
	t, err := time.Parse(localDateLayout, s)
	if err != nil {
		return LocalDate{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return LocalDateOf(t), nil
}

// LocalDateOf returns the date of t as observed in t's own location.
func LocalDateOf(t time.Time) LocalDate {
	y, m, d := t.Date()
	return LocalDate{Year: y, Month: m, Day: d}
}

// String returns the ISO-8601 form.
func (d LocalDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// IsZero reports whether d is the zero value.
func (d LocalDate) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// StartIn returns midnight of d in loc.
func (d LocalDate) StartIn(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// BoundsIn returns [midnight, next midnight) of d in loc. DST days are 23 or 25 hours long.
func (d LocalDate) BoundsIn(loc *time.Location) (time.Time, time.Time) {
	return d.StartIn(loc), d.AddDays(1).StartIn(loc)
}

// AddDays returns d shifted by n days.
func (d LocalDate) AddDays(n int) LocalDate {
	return LocalDateOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

// Before reports whether d is strictly earlier than other.
func (d LocalDate) Before(other LocalDate) bool {
	return d.compare(other) < 0
}

// After reports whether d is strictly later than other.
func (d LocalDate) After(other LocalDate) bool {
	return d.compare(other) > 0
}

// YearMonth returns the month d falls in.
func (d LocalDate) YearMonth() YearMonth {
	return YearMonth{Year: d.Year, Month: d.Month}
}

func (d LocalDate) compare(other LocalDate) int {
	switch {
	case d.Year != other.Year:
		return d.Year - other.Year
	case d.Month != other.Month:
		return int(d.Month) - int(other.Month)
	default:
		return d.Day - other.Day
	}
}

// MarshalJSON encodes d as an ISO-8601 string.
func (d LocalDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes an ISO-8601 string.
func (d *LocalDate) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseLocalDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// YearMonth is a calendar month with no time zone attached.
type YearMonth struct {
	Year  int
	Month time.Month
}

// ParseYearMonth parses a value such as "2020-04".
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse(yearMonthLayout, s)
	if err != nil {
		return YearMonth{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

// String returns the ISO-8601 form.
func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, ym.Month)
}

// FirstDay returns the first date of the month.
func (ym YearMonth) FirstDay() LocalDate {
	return LocalDate{Year: ym.Year, Month: ym.Month, Day: 1}
}

// BoundsIn returns [first midnight, first midnight of next month) in loc.
func (ym YearMonth) BoundsIn(loc *time.Location) (time.Time, time.Time) {
	start := time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, loc)
	return start, time.Date(ym.Year, ym.Month+1, 1, 0, 0, 0, 0, loc)
}
