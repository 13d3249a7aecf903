package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/warp/vr-engine/generic"
)

// dateLayouts are tried in order. Day-first forms follow the Brazilian
// exports.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2/1/2006",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2-1-2006",
	"2.1.2006",
}

// Spreadsheet serials outside this range are not treated as dates
// (1 = 1900-01-01, 2958465 = 9999-12-31).
const (
	minSerial = 1
	maxSerial = 2958465
)

// ParseDate accepts Excel serial numbers, ISO dates, day-first dates and
// date-time forms. A blank value returns the zero TimePoint and no error.
func ParseDate(raw string) (generic.TimePoint, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return generic.TimePoint{}, nil
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial < minSerial || serial > maxSerial {
			return generic.TimePoint{}, fmt.Errorf("%w: serial %s out of range", generic.ErrInvalidDate, s)
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return generic.TimePoint{}, fmt.Errorf("%w: %v", generic.ErrInvalidDate, err)
		}
		return generic.FromTime(t), nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return generic.FromTime(t), nil
		}
	}
	return generic.TimePoint{}, fmt.Errorf("%w: %q", generic.ErrInvalidDate, raw)
}
