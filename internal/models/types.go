package models

import "time"

// Logical field names. The config schema maps each of these to the
// physical entity id or column a source exports.
const (
	FieldInverterAPower     = "inverter_a_power"
	FieldInverterBPower     = "inverter_b_power"
	FieldIrradiance         = "irradiance"
	FieldFactoryEnergyTotal = "factory_energy_total"
	FieldFuelConsumedTotal  = "fuel_consumed_total"
	FieldGeneratorRuntime   = "generator_runtime"
	FieldKehuaPower         = "kehua_power"
	FieldFuelPrice          = "fuel_price"

	FieldCombinedPower = "combined_power"
	FieldExpectedPower = "expected_power"
)

// Time columns recognised on event-log and weather exports.
const (
	ColumnLastChanged = "last_changed"
	ColumnPeriodEnd   = "period_end"
	ColumnState       = "state"
	ColumnEntityID    = "entity_id"
)

// RawReading is one observation parsed from an event-log export
type RawReading struct {
	Timestamp time.Time // zone-stripped, reference time zone wall clock
	EntityID  string
	Value     float64 // NaN when the state was not numeric
}

type SourceStatus string

const (
	StatusOK             SourceStatus = "ok"
	StatusEmpty          SourceStatus = "empty"
	StatusUnavailable    SourceStatus = "unavailable"
	StatusShapeMismatch  SourceStatus = "shape_mismatch"
	StatusMissingJoinKey SourceStatus = "missing_join_key"
)

// Alignable reports whether a source with this status takes part in the fold
func (s SourceStatus) Alignable() bool {
	return s == StatusOK
}

// DayValue is one calendar day of a day-grouped series
type DayValue struct {
	Day   time.Time // 00:00 of the day, zone-stripped
	Value float64
}

// Bundle is the KPI contract handed to presentation code
type Bundle struct {
	Period struct {
		Start time.Time
		End   time.Time
	}
	Samples int
	Days    int

	AveragePowerKW float64
	PeakPowerKW    float64
	EstimatedCost  float64

	// Consumption holds the summed day deltas of every counter in range
	Consumption         map[string]float64
	TotalConsumptionKWh float64

	SolarYieldKWh      float64
	EfficiencyPct      float64
	SelfSufficiencyPct float64
	CarbonOffsetKg     float64

	FuelLiters       float64
	FuelCost         float64
	AverageFuelPrice float64

	PerformanceScore float64
	Rating           string
}
