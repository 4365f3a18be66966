package analyzer

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energyboard/internal/config"
	"energyboard/internal/fetch"
	"energyboard/internal/kpi"
	"energyboard/internal/metrics"
	"energyboard/internal/models"
	"energyboard/internal/table"
)

var exports = map[string]string{
	"solar_a.csv": "last_changed,state,entity_id\n" +
		"2025-09-01T08:00:00Z,10000,sensor.goodwe_grid_power\n" +
		"2025-09-01T08:15:00Z,12000,sensor.goodwe_grid_power\n" +
		"2025-09-02T08:00:00Z,11000,sensor.goodwe_grid_power\n" +
		"2025-09-02T08:15:00Z,9000,sensor.goodwe_grid_power\n",
	"solar_b.csv": "last_changed,state,entity_id\n" +
		"2025-09-01T08:00:00Z,-2000,sensor.fronius_grid_power\n",
	"weather.csv": "period_end,gti,air_temp\n" +
		"2025-09-01T08:00:00Z,500,18\n" +
		"2025-09-02T08:00:00Z,600,21\n",
	"factory.csv": "last_changed,state,entity_id\n" +
		"2025-09-01T20:00:00Z,1000,sensor.bottling_factory_monthkwhtotal\n" +
		"2025-09-02T20:00:00Z,1040,sensor.bottling_factory_monthkwhtotal\n",
	"generator.csv": "last_changed,state,entity_id\n",
	"purchases.csv": "date,price_per_litre\n2025-08-30,21.00\n",
}

type fakeFetcher struct {
	mu     sync.Mutex
	rnd    *rand.Rand
	files  map[string]string
	fail   map[string]error
	block  map[string]bool
	jitter bool
}

func newFakeFetcher(jitter bool, seed int64) *fakeFetcher {
	return &fakeFetcher{
		rnd:    rand.New(rand.NewSource(seed)),
		files:  exports,
		fail:   map[string]error{},
		block:  map[string]bool{},
		jitter: jitter,
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	f.mu.Lock()
	delay := time.Duration(0)
	if f.jitter {
		delay = time.Duration(f.rnd.Intn(20)) * time.Millisecond
	}
	err, failing := f.fail[location]
	blocking := f.block[location]
	f.mu.Unlock()

	if blocking {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	time.Sleep(delay)
	if failing {
		return nil, err
	}
	data, ok := f.files[location]
	if !ok {
		return nil, fetch.ErrNotFound
	}
	return []byte(data), nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Sources = []config.SourceConfig{
		{Name: "solar", Kind: config.KindCSV, Paths: []string{"solar_a.csv", "solar_b.csv"}},
		{Name: "weather", Kind: config.KindCSV, Paths: []string{"weather.csv"}},
		{Name: "factory", Kind: config.KindCSV, Paths: []string{"factory.csv"}},
		{Name: "generator", Kind: config.KindCSV, Paths: []string{"generator.csv"}},
		{Name: "purchases", Kind: config.KindCSV, Role: config.RolePurchases, TimeColumn: "date", Paths: []string{"purchases.csv"}},
	}
	return cfg
}

func quietLog() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newAnalyzer(t *testing.T, cfg *config.Config, f fetch.Fetcher, m *metrics.Metrics) *EnergyAnalyzer {
	t.Helper()
	ea, err := NewEnergyAnalyzer(cfg, f, m, quietLog())
	require.NoError(t, err)
	return ea
}

func request(t *testing.T, cfg *config.Config, from, to int) Request {
	t.Helper()
	r, err := kpi.NewDateRange(time.Date(2025, 9, from, 0, 0, 0, 0, time.UTC), time.Date(2025, 9, to, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return Request{Range: r, Plant: cfg.Plant}
}

func statusOf(stats *EnergyStats, name string) models.SourceStatus {
	for _, s := range stats.Sources {
		if s.Name == name {
			return s.Status
		}
	}
	return ""
}

// sameTable compares two tables treating missing cells as equal
func sameTable(t *testing.T, want, got *table.WideTable) {
	t.Helper()
	require.Equal(t, want.Index, got.Index)
	require.Equal(t, want.Columns, got.Columns)
	for _, name := range want.Columns {
		w, g := want.Values[name], got.Values[name]
		for i := range w {
			if table.IsMissing(w[i]) {
				assert.True(t, table.IsMissing(g[i]), "%s[%d]", name, i)
				continue
			}
			assert.Equal(t, w[i], g[i], "%s[%d]", name, i)
		}
	}
}

func TestAnalyzePipeline(t *testing.T) {
	cfg := testConfig()
	stats, err := newAnalyzer(t, cfg, newFakeFetcher(false, 1), nil).Analyze(context.Background(), request(t, cfg, 1, 2))
	require.NoError(t, err)

	assert.NotEmpty(t, stats.RunID)
	assert.Equal(t, models.StatusOK, statusOf(stats, "solar"))
	assert.Equal(t, models.StatusOK, statusOf(stats, "weather"))
	assert.Equal(t, models.StatusOK, statusOf(stats, "factory"))
	assert.Equal(t, models.StatusEmpty, statusOf(stats, "generator"))
	assert.Equal(t, models.StatusOK, statusOf(stats, "purchases"))

	a := stats.Aligned
	require.Equal(t, 4, a.Len())
	assert.Equal(t, time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC), a.Index[0], "solar anchors the timeline")
	assert.Equal(t, []float64{12, 12, 11, 9}, a.Column(models.FieldCombinedPower))
	assert.Equal(t, []float64{500, 500, 600, 600}, a.Column(models.FieldIrradiance))
	assert.InDelta(t, 88.572, a.Column(models.FieldExpectedPower)[0], 1e-9)
	assert.True(t, a.Has("daily_factory_kwh"))
	assert.True(t, a.Has("air_temp"))
	assert.False(t, a.Has(models.FieldFuelConsumedTotal))
	assert.False(t, a.Has(models.FieldFuelPrice), "purchases are not aligned")

	b := stats.Bundle
	assert.Equal(t, 4, b.Samples)
	assert.Equal(t, 11.0, b.AveragePowerKW)
	assert.Equal(t, 12.0, b.PeakPowerKW)
	assert.InDelta(t, 44.0/4*2.98, b.EstimatedCost, 0.01)
	assert.Equal(t, 40.0, b.TotalConsumptionKWh)
	assert.Equal(t, 11.0, b.SolarYieldKWh)
	assert.InDelta(t, 27.5, b.SelfSufficiencyPct, 1e-9)
	assert.Zero(t, b.FuelCost)

	require.Len(t, stats.Daily, 2)
	assert.Equal(t, 6.0, stats.Daily[0].SolarKWh)
	assert.Equal(t, 40.0, stats.Daily[1].ConsumptionKWh)
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	cfg := testConfig()
	cfg.Fetch.PoolSize = 3
	first, err := newAnalyzer(t, cfg, newFakeFetcher(true, 1), nil).Analyze(context.Background(), request(t, cfg, 1, 2))
	require.NoError(t, err)

	for seed := int64(2); seed < 8; seed++ {
		again, err := newAnalyzer(t, cfg, newFakeFetcher(true, seed), nil).Analyze(context.Background(), request(t, cfg, 1, 2))
		require.NoError(t, err)
		sameTable(t, first.Aligned, again.Aligned)
		assert.Equal(t, first.Bundle, again.Bundle)
	}
}

func TestAnalyzeSurvivesFailedSources(t *testing.T) {
	cfg := testConfig()
	f := newFakeFetcher(false, 1)
	f.fail["generator.csv"] = errors.New("connection refused")
	f.fail["weather.csv"] = errors.New("connection refused")

	stats, err := newAnalyzer(t, cfg, f, nil).Analyze(context.Background(), request(t, cfg, 1, 2))
	require.NoError(t, err)

	assert.Equal(t, models.StatusUnavailable, statusOf(stats, "generator"))
	assert.Equal(t, models.StatusUnavailable, statusOf(stats, "weather"))
	assert.True(t, stats.Aligned.Has(models.FieldCombinedPower))
	assert.True(t, stats.Aligned.Has(models.FieldFactoryEnergyTotal))
	assert.False(t, stats.Aligned.Has(models.FieldIrradiance))
	assert.False(t, stats.Aligned.Has(models.FieldExpectedPower))
}

func TestAnalyzeAllSourcesMissing(t *testing.T) {
	cfg := testConfig()
	f := newFakeFetcher(false, 1)
	f.files = map[string]string{}

	stats, err := newAnalyzer(t, cfg, f, nil).Analyze(context.Background(), request(t, cfg, 1, 2))
	require.NoError(t, err)
	assert.True(t, stats.Aligned.IsEmpty())
	assert.Zero(t, stats.Bundle.AveragePowerKW)
	assert.Zero(t, stats.Bundle.EfficiencyPct)
}

func TestAnalyzeTimesOutSlowSource(t *testing.T) {
	cfg := testConfig()
	cfg.Fetch.TimeoutSeconds = 1
	f := newFakeFetcher(false, 1)
	f.block["weather.csv"] = true

	stats, err := newAnalyzer(t, cfg, f, nil).Analyze(context.Background(), request(t, cfg, 1, 2))
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnavailable, statusOf(stats, "weather"))
	assert.Equal(t, models.StatusOK, statusOf(stats, "solar"))
}

func TestAnalyzeMemoizesLastRequest(t *testing.T) {
	cfg := testConfig()
	m := metrics.New()
	ea := newAnalyzer(t, cfg, newFakeFetcher(false, 1), m)

	req := request(t, cfg, 1, 2)
	first, err := ea.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Memoized)

	second, err := ea.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Memoized)
	assert.Equal(t, first.RunID, second.RunID)
	assert.Equal(t, 1.0, memoHits(t, m))

	req.Plant.GainFactor = 1.2
	third, err := ea.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, third.Memoized, "changed factors recompute")
	assert.InDelta(t, 88.572*1.2, third.Aligned.Column(models.FieldExpectedPower)[0], 1e-9)
}

func TestAnalyzeRejectsInvalidFactors(t *testing.T) {
	cfg := testConfig()
	req := request(t, cfg, 1, 2)
	req.Plant.PerformanceRatio = 0

	_, err := newAnalyzer(t, cfg, newFakeFetcher(false, 1), nil).Analyze(context.Background(), req)
	assert.ErrorIs(t, err, config.ErrInvalidParams)
}

func memoHits(t *testing.T, m *metrics.Metrics) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == "energyboard_memo_hits_total" {
			return f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}
