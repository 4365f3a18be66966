package resolve

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energyboard/internal/config"
	"energyboard/internal/models"
	"energyboard/internal/table"
)

var plant = Params{GainFactor: 1.0, PerformanceRatio: 0.8, RatedCapacityKW: 221.43}

func aligned(t *testing.T, columns map[string][]float64) *table.AlignedTable {
	t.Helper()
	var n int
	for _, v := range columns {
		n = len(v)
	}
	index := make([]time.Time, n)
	for i := range index {
		index[i] = time.Date(2025, 9, 1, 12, 15*i, 0, 0, time.UTC)
	}
	tbl := table.New(index)
	for name, values := range columns {
		require.NoError(t, tbl.Set(name, values))
	}
	return tbl
}

func TestExpectedPower(t *testing.T) {
	assert.InDelta(t, 88.572, ExpectedPower(500, plant), 1e-9)
}

func TestResolveDerivedFields(t *testing.T) {
	in := aligned(t, map[string][]float64{
		models.FieldInverterAPower: {10000, table.Missing(), table.Missing()},
		models.FieldInverterBPower: {2000, 3000, table.Missing()},
		models.FieldKehuaPower:     {1500, 0, 500},
		models.FieldIrradiance:     {500, 0, table.Missing()},
	})

	out, err := Resolve(in, []string{models.FieldInverterAPower, models.FieldInverterBPower, models.FieldKehuaPower}, plant)
	require.NoError(t, err)

	assert.Equal(t, []float64{12, 3, 0}, out.Column(models.FieldCombinedPower))
	assert.Equal(t, []float64{1.5, 0, 0.5}, out.Column(models.FieldKehuaPower))

	expected := out.Column(models.FieldExpectedPower)
	assert.InDelta(t, 88.572, expected[0], 1e-9)
	assert.Equal(t, 0.0, expected[1])
	assert.True(t, table.IsMissing(expected[2]))

	// input untouched
	assert.Equal(t, 10000.0, in.Column(models.FieldInverterAPower)[0])
	assert.False(t, in.Has(models.FieldCombinedPower))
}

func TestResolveSingleInverter(t *testing.T) {
	in := aligned(t, map[string][]float64{models.FieldInverterBPower: {4000, 5000}})
	out, err := Resolve(in, []string{models.FieldInverterAPower, models.FieldInverterBPower}, plant)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5}, out.Column(models.FieldCombinedPower))
}

func TestResolveWithoutInputs(t *testing.T) {
	in := aligned(t, map[string][]float64{"daily_factory_kwh": {1, 2}})
	out, err := Resolve(in, nil, plant)
	require.NoError(t, err)
	assert.False(t, out.Has(models.FieldCombinedPower))
	assert.False(t, out.Has(models.FieldExpectedPower))

	out, err = Resolve(table.Empty(), nil, plant)
	require.NoError(t, err)
	assert.True(t, out.IsEmpty())
}

func TestResolveRejectsInvalidParams(t *testing.T) {
	tests := []struct {
		name string
		p    Params
	}{
		{"gain too low", Params{GainFactor: 0.4, PerformanceRatio: 0.8, RatedCapacityKW: 1}},
		{"gain too high", Params{GainFactor: 1.6, PerformanceRatio: 0.8, RatedCapacityKW: 1}},
		{"pr zero", Params{GainFactor: 1, PerformanceRatio: 0, RatedCapacityKW: 1}},
		{"pr above one", Params{GainFactor: 1, PerformanceRatio: 1.1, RatedCapacityKW: 1}},
		{"no capacity", Params{GainFactor: 1, PerformanceRatio: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(table.Empty(), nil, tt.p)
			require.Error(t, err)
			assert.True(t, errors.Is(err, config.ErrInvalidParams))
		})
	}
}
