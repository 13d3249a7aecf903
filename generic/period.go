package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - The competence month a run is computed for
// =============================================================================

// Period defines the time boundary of a benefit computation.
// For VR runs this is always one calendar month (the "competência").
type Period struct {
	Start TimePoint
	End   TimePoint
}

// MonthPeriod returns [first day, last day] of the month.
func MonthPeriod(year int, month time.Month) Period {
	return Period{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)}
}

// NewMonthPeriod validates month/year before building the period.
func NewMonthPeriod(year int, month int) (Period, error) {
	if month < 1 || month > 12 || year < 1 {
		return Period{}, fmt.Errorf("%w: month=%d year=%d", ErrInvalidPeriod, month, year)
	}
	return MonthPeriod(year, time.Month(month)), nil
}

// Has reports whether the day falls in the period's month. The zero day
// never does.
func (p Period) Has(t TimePoint) bool {
	return t.InMonth(p.Year(), p.Month())
}

// Month and Year of a month period.
func (p Period) Month() time.Month { return p.Start.Month() }
func (p Period) Year() int         { return p.Start.Year() }

// Label formats the period as MM.YYYY, used in sheet and file names.
func (p Period) Label() string {
	return fmt.Sprintf("%02d.%d", int(p.Month()), p.Year())
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
