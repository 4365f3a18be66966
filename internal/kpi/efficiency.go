package kpi

import (
	"energyboard/internal/models"
)

// Efficiency holds the solar performance ratios over a set of days
type Efficiency struct {
	Days               int
	SolarYieldKWh      float64
	ConsumptionKWh     float64
	EfficiencyPct      float64
	SelfSufficiencyPct float64
	CarbonOffsetKg     float64
}

// ComputeEfficiency reduces daily solar yield and daily consumption. Only days
// present in both series count. Any empty input yields the zero value.
func ComputeEfficiency(yield, consumption []models.DayValue, ratedCapacityKW, emissionFactor float64) Efficiency {
	if len(yield) == 0 || len(consumption) == 0 {
		return Efficiency{}
	}

	used := make(map[int64]float64, len(consumption))
	for _, d := range consumption {
		used[d.Day.Unix()] += d.Value
	}

	var e Efficiency
	for _, d := range yield {
		c, ok := used[d.Day.Unix()]
		if !ok {
			continue
		}
		e.Days++
		e.SolarYieldKWh += d.Value
		e.ConsumptionKWh += c
	}
	if e.Days == 0 {
		return Efficiency{}
	}

	if e.ConsumptionKWh > 0 {
		e.SelfSufficiencyPct = clamp(e.SolarYieldKWh/e.ConsumptionKWh*100, 0, 100)
	}
	if theoretical := ratedCapacityKW * 24 * float64(e.Days); theoretical > 0 {
		e.EfficiencyPct = e.SolarYieldKWh / theoretical * 100
	}
	e.CarbonOffsetKg = e.SolarYieldKWh * emissionFactor
	return e
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}
