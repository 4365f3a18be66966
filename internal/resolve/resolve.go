// Package resolve applies unit conversions to the aligned table and adds the
// derived power fields.
package resolve

import (
	"fmt"

	"energyboard/internal/config"
	"energyboard/internal/models"
	"energyboard/internal/table"
)

// Params are the externally supplied plant factors. They are passed on every
// call and never stored by the resolver.
type Params struct {
	GainFactor       float64
	PerformanceRatio float64
	RatedCapacityKW  float64
}

// FromPlant extracts the resolver factors from the plant configuration
func FromPlant(p config.PlantConfig) Params {
	return Params{
		GainFactor:       p.GainFactor,
		PerformanceRatio: p.PerformanceRatio,
		RatedCapacityKW:  p.RatedCapacityKW,
	}
}

func (p Params) Validate() error {
	if p.GainFactor < 0.5 || p.GainFactor > 1.5 {
		return fmt.Errorf("%w: gain factor %.3f outside [0.5, 1.5]", config.ErrInvalidParams, p.GainFactor)
	}
	if p.PerformanceRatio <= 0 || p.PerformanceRatio > 1 {
		return fmt.Errorf("%w: performance ratio %.3f outside (0, 1]", config.ErrInvalidParams, p.PerformanceRatio)
	}
	if p.RatedCapacityKW <= 0 {
		return fmt.Errorf("%w: rated capacity must be positive", config.ErrInvalidParams)
	}
	return nil
}

// ExpectedPower converts irradiance in W/m² to the expected plant output in kW
func ExpectedPower(irradiance float64, p Params) float64 {
	return irradiance * p.GainFactor * p.RatedCapacityKW * p.PerformanceRatio / 1000
}

// Resolve returns a new table with wattColumns converted to kW, plus
// combined_power and expected_power where their inputs exist.
func Resolve(in *table.AlignedTable, wattColumns []string, p Params) (*table.AlignedTable, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	out := in.Clone()
	n := out.Len()

	for _, name := range wattColumns {
		values := out.Column(name)
		if values == nil {
			continue
		}
		kw := make([]float64, n)
		for i, v := range values {
			kw[i] = v / 1000
		}
		if err := out.Set(name, kw); err != nil {
			return nil, err
		}
	}

	a := out.Column(models.FieldInverterAPower)
	b := out.Column(models.FieldInverterBPower)
	if a != nil || b != nil {
		combined := make([]float64, n)
		for i := range combined {
			combined[i] = zeroIfMissing(a, i) + zeroIfMissing(b, i)
		}
		if err := out.Set(models.FieldCombinedPower, combined); err != nil {
			return nil, err
		}
	}

	if irr := out.Column(models.FieldIrradiance); irr != nil {
		expected := make([]float64, n)
		for i, v := range irr {
			// NaN propagates
			expected[i] = ExpectedPower(v, p)
		}
		if err := out.Set(models.FieldExpectedPower, expected); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func zeroIfMissing(values []float64, i int) float64 {
	if values == nil || table.IsMissing(values[i]) {
		return 0
	}
	return values[i]
}
