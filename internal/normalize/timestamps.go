package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var zonedLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 Z07:00",
}

// zone-less values are read as UTC
var plainLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
}

// ParseTimestamp parses an export timestamp and returns the reference-zone
// wall clock, zone-stripped. Excel serials are accepted when serial is set.
func ParseTimestamp(value string, serial bool, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	if serial {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			t, err := excelize.ExcelDateToTime(f, false)
			if err != nil {
				return time.Time{}, fmt.Errorf("excel serial %q: %w", value, err)
			}
			return Naive(t, loc), nil
		}
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return Naive(t, loc), nil
		}
	}
	for _, layout := range plainLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return Naive(t, loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", value)
}

// Naive converts t to loc and re-stamps its wall clock in UTC so that
// downstream comparisons do not depend on zone information.
func Naive(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), l.Minute(), l.Second(), l.Nanosecond(), time.UTC)
}

// ParseValue coerces a cell to a number. Anything non-numeric is missing.
func ParseValue(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}
