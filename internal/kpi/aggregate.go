// Package kpi reduces the filtered timeline and the day-grouped counter
// series into the KPI bundle. Every reduction degrades to zero on missing
// input instead of failing.
package kpi

import (
	"math"

	"energyboard/internal/models"
	"energyboard/internal/table"
)

// PowerStats summarizes the valid samples of one power column
type PowerStats struct {
	Samples int
	Sum     float64
	Mean    float64
	Max     float64
}

// Power reduces a column, ignoring missing samples
func Power(values []float64) PowerStats {
	var s PowerStats
	peak := math.Inf(-1)
	for _, v := range values {
		if table.IsMissing(v) {
			continue
		}
		s.Samples++
		s.Sum += v
		if v > peak {
			peak = v
		}
	}
	if s.Samples == 0 {
		return PowerStats{}
	}
	s.Mean = s.Sum / float64(s.Samples)
	s.Max = peak
	return s
}

// EnergyKWh converts a sum of kW samples into kWh
func EnergyKWh(sum, samplesPerHour float64) float64 {
	if samplesPerHour <= 0 {
		return 0
	}
	return sum / samplesPerHour
}

// EstimatedCost prices the energy represented by a sum of kW samples
func EstimatedCost(sum, samplesPerHour, unitCost float64) float64 {
	return EnergyKWh(sum, samplesPerHour) * unitCost
}

// Total sums the values of a day-grouped series
func Total(days []models.DayValue) float64 {
	var total float64
	for _, d := range days {
		total += d.Value
	}
	return total
}

// DailyEnergy groups a kW column by calendar day and converts each day to kWh
func DailyEnergy(t *table.WideTable, column string, samplesPerHour float64) []models.DayValue {
	values := t.Column(column)
	if values == nil {
		return nil
	}
	var days []models.DayValue
	for i, ts := range t.Index {
		v := values[i]
		if table.IsMissing(v) {
			continue
		}
		day := table.Day(ts)
		if n := len(days); n > 0 && days[n-1].Day.Equal(day) {
			days[n-1].Value += v
			continue
		}
		days = append(days, models.DayValue{Day: day, Value: v})
	}
	for i := range days {
		days[i].Value = EnergyKWh(days[i].Value, samplesPerHour)
	}
	return days
}
