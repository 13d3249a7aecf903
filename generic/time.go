package generic

import (
	"sort"
	"time"
)

// =============================================================================
// TIME POINT - Day-precision date
// =============================================================================

// TimePoint is a calendar day. All comparisons ignore the time of day.
type TimePoint struct {
	Time time.Time
}

const isoDate = "2006-01-02"

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// FromTime truncates t to its calendar day.
func FromTime(t time.Time) TimePoint {
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

// ParseISODate parses a YYYY-MM-DD string.
func ParseISODate(s string) (TimePoint, error) {
	t, err := time.Parse(isoDate, s)
	if err != nil {
		return TimePoint{}, err
	}
	return FromTime(t), nil
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.normalize().Before(other.normalize()) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.normalize().Equal(other.normalize()) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.normalize().After(other.normalize()) }

func (tp TimePoint) normalize() time.Time {
	return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Properties
func (tp TimePoint) Year() int             { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month     { return tp.Time.Month() }
func (tp TimePoint) Day() int              { return tp.Time.Day() }
func (tp TimePoint) Weekday() time.Weekday { return tp.Time.Weekday() }
func (tp TimePoint) IsWeekend() bool       { wd := tp.Weekday(); return wd == time.Saturday || wd == time.Sunday }
func (tp TimePoint) IsWorkday() bool       { return !tp.IsWeekend() }
func (tp TimePoint) IsZero() bool          { return tp.Time.IsZero() }
func (tp TimePoint) String() string        { return tp.Time.Format(isoDate) }

// InMonth reports whether the day falls in the given month of the given year.
func (tp TimePoint) InMonth(year int, month time.Month) bool {
	return !tp.IsZero() && tp.Year() == year && tp.Month() == month
}

// =============================================================================
// HOLIDAYS - Per-union holiday list
// =============================================================================

// HolidaySet is a set of ISO dates (YYYY-MM-DD) that are not paid days.
type HolidaySet map[string]struct{}

// NewHolidaySet builds a set from ISO date strings. Duplicates collapse.
func NewHolidaySet(dates ...string) HolidaySet {
	set := make(HolidaySet, len(dates))
	for _, d := range dates {
		set[d] = struct{}{}
	}
	return set
}

// Has reports whether the day is a holiday. A nil set has no holidays.
func (h HolidaySet) Has(tp TimePoint) bool {
	if h == nil {
		return false
	}
	_, ok := h[tp.String()]
	return ok
}

// Dates returns the holiday dates in ascending order.
func (h HolidaySet) Dates() []string {
	dates := make([]string, 0, len(h))
	for d := range h {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

func StartOfMonth(year int, month time.Month) TimePoint { return NewTimePoint(year, month, 1) }
func EndOfMonth(year int, month time.Month) TimePoint {
	return NewTimePoint(year, month, DaysInMonth(year, month))
}

// DaysInMonth is leap-year aware.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ProportionalWorkDays counts the weekdays of the month that fall inside
// [rangeStart, rangeEnd] and are not holidays. A reversed range counts zero.
func ProportionalWorkDays(month time.Month, year int, rangeStart, rangeEnd TimePoint, holidays HolidaySet) int {
	count := 0
	for day := 1; day <= DaysInMonth(year, month); day++ {
		current := NewTimePoint(year, month, day)
		if !current.IsWorkday() {
			continue
		}
		if current.Before(rangeStart) || current.After(rangeEnd) {
			continue
		}
		if holidays.Has(current) {
			continue
		}
		count++
	}
	return count
}
