package kpi

import (
	"energyboard/internal/config"
	"energyboard/internal/models"
	"energyboard/internal/table"
)

// Inputs are the pipeline products one KPI computation reduces
type Inputs struct {
	Aligned *table.AlignedTable
	Range   DateRange

	// Daily holds the day deltas of every cumulative counter, keyed by field
	Daily map[string][]models.DayValue

	// FuelDaily is the generator fuel burnt per day in litres
	FuelDaily []models.DayValue
	Purchases []Purchase
}

// Compute filters the aligned table to the range and builds the KPI bundle
func Compute(plant config.PlantConfig, in Inputs) (*table.WideTable, models.Bundle) {
	filtered := in.Range.Filter(in.Aligned)

	var b models.Bundle
	b.Period.Start = in.Range.Start
	b.Period.End = in.Range.End
	b.Samples = filtered.Len()
	b.Days = in.Range.Days()

	power := Power(filtered.Column(models.FieldCombinedPower))
	b.AveragePowerKW = power.Mean
	b.PeakPowerKW = power.Max
	b.EstimatedCost = EstimatedCost(power.Sum, plant.SamplesPerHour, plant.UnitCost)

	b.Consumption = make(map[string]float64, len(in.Daily))
	for field, days := range in.Daily {
		b.Consumption[field] = Total(in.Range.InRange(days))
	}
	b.TotalConsumptionKWh = b.Consumption[models.FieldFactoryEnergyTotal]

	yield := DailyEnergy(filtered, models.FieldCombinedPower, plant.SamplesPerHour)
	eff := ComputeEfficiency(yield, in.Range.InRange(in.Daily[models.FieldFactoryEnergyTotal]),
		plant.RatedCapacityKW, plant.EmissionFactor)
	b.SolarYieldKWh = Total(yield)
	b.EfficiencyPct = eff.EfficiencyPct
	b.SelfSufficiencyPct = eff.SelfSufficiencyPct
	b.CarbonOffsetKg = eff.CarbonOffsetKg

	fuel := PriceFuel(in.Range.InRange(in.FuelDaily), in.Purchases, plant.DefaultFuelPrice)
	b.FuelLiters = fuel.Liters
	b.FuelCost = fuel.Cost
	b.AverageFuelPrice = fuel.AveragePrice

	b.PerformanceScore, b.Rating = PerformanceScore(b.EfficiencyPct, b.SelfSufficiencyPct, plant.UnitCost)
	return filtered, b
}
