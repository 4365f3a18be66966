// Package report exports the filtered timeline and the KPI bundle as XLSX
// workbooks and PDF summaries.
package report

import (
	"fmt"
	"sort"
	"time"

	"energyboard/internal/models"
	"energyboard/internal/table"
)

// Report is everything an export renders
type Report struct {
	Title       string
	GeneratedAt time.Time
	Bundle      models.Bundle
	Table       *table.WideTable
	Daily       []DailyRow
}

// DailyRow is one day of the daily breakdown
type DailyRow struct {
	Day            time.Time
	SolarKWh       float64
	ConsumptionKWh float64
	FuelLiters     float64
}

// Line is one labelled KPI value
type Line struct {
	Label string
	Value string
}

// Summary lists the KPI bundle in display order
func Summary(b models.Bundle) []Line {
	lines := []Line{
		{"Period", fmt.Sprintf("%s to %s", table.DayKey(b.Period.Start), table.DayKey(b.Period.End))},
		{"Days", fmt.Sprintf("%d", b.Days)},
		{"Samples", fmt.Sprintf("%d", b.Samples)},
		{"Average Power", fmt.Sprintf("%.2f kW", b.AveragePowerKW)},
		{"Peak Power", fmt.Sprintf("%.2f kW", b.PeakPowerKW)},
		{"Solar Yield", fmt.Sprintf("%.1f kWh", b.SolarYieldKWh)},
		{"Estimated Savings", fmt.Sprintf("R %.2f", b.EstimatedCost)},
		{"Factory Consumption", fmt.Sprintf("%.1f kWh", b.TotalConsumptionKWh)},
		{"Self-Sufficiency", fmt.Sprintf("%.1f%%", b.SelfSufficiencyPct)},
		{"Efficiency", fmt.Sprintf("%.1f%%", b.EfficiencyPct)},
		{"Carbon Offset", fmt.Sprintf("%.0f kg CO2", b.CarbonOffsetKg)},
		{"Generator Fuel", fmt.Sprintf("%.1f L", b.FuelLiters)},
		{"Fuel Cost", fmt.Sprintf("R %.2f", b.FuelCost)},
		{"Average Fuel Price", fmt.Sprintf("R %.2f/L", b.AverageFuelPrice)},
		{"Performance Score", fmt.Sprintf("%.1f (%s)", b.PerformanceScore, b.Rating)},
	}

	fields := make([]string, 0, len(b.Consumption))
	for field := range b.Consumption {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		lines = append(lines, Line{"Counter " + field, fmt.Sprintf("%.2f", b.Consumption[field])})
	}
	return lines
}

// MergeDaily joins day-grouped series into one row per day, ascending
func MergeDaily(solar, consumption, fuel []models.DayValue) []DailyRow {
	rows := make(map[int64]*DailyRow)
	get := func(day time.Time) *DailyRow {
		key := day.Unix()
		if r, ok := rows[key]; ok {
			return r
		}
		r := &DailyRow{Day: day}
		rows[key] = r
		return r
	}
	for _, d := range solar {
		get(d.Day).SolarKWh += d.Value
	}
	for _, d := range consumption {
		get(d.Day).ConsumptionKWh += d.Value
	}
	for _, d := range fuel {
		get(d.Day).FuelLiters += d.Value
	}

	out := make([]DailyRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out
}
