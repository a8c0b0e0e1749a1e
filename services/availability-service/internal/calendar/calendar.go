// Package calendar handles bare calendar days and wall-clock minutes without
// routing them through instant conversions that could shift a date across midnight.
package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidDate  = errors.New("invalid date")
	ErrInvalidClock = errors.New("invalid clock time")
)

const dayLayout = "2006-01-02"

// Day is a local calendar day with no time or zone component.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDay accepts "YYYY-MM-DD" (month and day may omit the leading zero).
// Components are validated by rebuilding the date, so "2024-02-30" is rejected
// rather than normalized into March.
func ParseDay(token string) (Day, error) {
	parts := strings.Split(strings.TrimSpace(token), "-")
	if len(parts) != 3 {
		return Day{}, fmt.Errorf("%w: %q", ErrInvalidDate, token)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, ok := parseDigits(p)
		if !ok {
			return Day{}, fmt.Errorf("%w: %q", ErrInvalidDate, token)
		}
		nums[i] = n
	}
	year, month, day := nums[0], nums[1], nums[2]
	// Postgres date and the four digit String form both stop at 9999.
	if year < 1 || year > 9999 || month < 1 || month > 12 || day < 1 || day > 31 {
		return Day{}, fmt.Errorf("%w: %q", ErrInvalidDate, token)
	}

	t := time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return Day{}, fmt.Errorf("%w: %q", ErrInvalidDate, token)
	}
	return Day{Year: year, Month: time.Month(month), Day: day}, nil
}

// DayOf returns the calendar day of t as seen in t's own location.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}
}

// Range spans 00:00:00.000 through 23:59:59.999 of the day in loc.
func (d Day) Range(loc *time.Location) (time.Time, time.Time) {
	start := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
	end := time.Date(d.Year, d.Month, d.Day, 23, 59, 59, int(999*time.Millisecond), loc)
	return start, end
}

// Anchor is local noon of the day. Persisting noon leaves twelve hours of slack
// before any later UTC normalization could move the value to a neighbouring day.
func (d Day) Anchor(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, loc)
}

func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Day) IsZero() bool {
	return d == Day{}
}

func (d Day) Before(other Day) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// ParseDayRange parses token and returns its inclusive local day range.
func ParseDayRange(token string, loc *time.Location) (time.Time, time.Time, error) {
	d, err := ParseDay(token)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start, end := d.Range(loc)
	return start, end, nil
}

// ParseDayAnchor parses token and returns local noon of that day.
func ParseDayAnchor(token string, loc *time.Location) (time.Time, error) {
	d, err := ParseDay(token)
	if err != nil {
		return time.Time{}, err
	}
	return d.Anchor(loc), nil
}

// MinuteOfDay is the number of whole minutes since local midnight of t.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// FormatClock renders minutes since midnight as zero padded "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseClock parses "HH:MM" (hour 0-23, minute 0-59) into minutes since midnight.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	h, okH := parseDigits(hh)
	m, okM := parseDigits(mm)
	if !okH || !okM || len(mm) != 2 || h > 23 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return h*60 + m, nil
}

func parseDigits(s string) (int, bool) {
	if s == "" || len(s) > 9 {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}
