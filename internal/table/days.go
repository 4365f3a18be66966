package table

import "time"

// Day returns 00:00 of the calendar day of a zone-stripped timestamp
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DayKey formats a day as YYYY-MM-DD
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// ParseDay parses YYYY-MM-DD into a zone-stripped day
func ParseDay(key string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", key, time.UTC)
}
