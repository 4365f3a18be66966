package kpi

import (
	"fmt"
	"time"

	"energyboard/internal/models"
	"energyboard/internal/table"
)

// DateRange is a range of civil days, inclusive on both ends
type DateRange struct {
	Start time.Time // 00:00 of the first day, zone-stripped
	End   time.Time // 00:00 of the last day, zone-stripped
}

// NewDateRange normalizes start and end to whole days
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: table.Day(start), End: table.Day(end)}
	if r.End.Before(r.Start) {
		return DateRange{}, fmt.Errorf("end date %s before start date %s", table.DayKey(r.End), table.DayKey(r.Start))
	}
	return r, nil
}

// Contains checks if ts falls within [Start, End+1d)
func (r DateRange) Contains(ts time.Time) bool {
	return !ts.Before(r.Start) && ts.Before(r.End.AddDate(0, 0, 1))
}

// Days returns the number of calendar days covered
func (r DateRange) Days() int {
	n := 0
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}

func (r DateRange) String() string {
	return table.DayKey(r.Start) + ".." + table.DayKey(r.End)
}

// Filter returns the rows of t within the range as a new table
func (r DateRange) Filter(t *table.AlignedTable) *table.WideTable {
	if t.IsEmpty() {
		return table.Empty()
	}
	return t.Rows(r.Contains)
}

// InRange keeps the days of a day-grouped series that fall within the range
func (r DateRange) InRange(days []models.DayValue) []models.DayValue {
	var out []models.DayValue
	for _, d := range days {
		if r.Contains(d.Day) {
			out = append(out, d)
		}
	}
	return out
}
