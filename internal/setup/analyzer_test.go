package setup

import (
	"bytes"
	"context"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energyboard/internal/config"
	"energyboard/internal/fetch"
)

type mapFetcher map[string]string

func (m mapFetcher) Fetch(_ context.Context, location string) ([]byte, error) {
	data, ok := m[location]
	if !ok {
		return nil, fetch.ErrNotFound
	}
	return []byte(data), nil
}

func TestAnalyzeSetup(t *testing.T) {
	f := mapFetcher{
		"solar.csv": "last_changed,state,entity_id\n" +
			"2025-09-01T10:00:00Z,1200,sensor.goodwe_grid_power\n" +
			"2025-09-01T10:00:00Z,800,sensor.fronius_grid_power\n" +
			"2025-09-01T10:15:00Z,1250,sensor.goodwe_grid_power\n" +
			"2025-09-01T10:15:00Z,5,sensor.inverter_temperature\n",
		"weather.csv": "period_end,gti,air_temp\n2025-09-01T10:00:00Z,500,\n",
	}
	sources := []config.SourceConfig{
		{Name: "solar", Kind: config.KindCSV, Paths: []string{"solar.csv"}},
		{Name: "weather", Kind: config.KindCSV, Paths: []string{"weather.csv"}},
		{Name: "generator", Kind: config.KindCSV, Paths: []string{"missing.csv"}},
	}

	infos, s := NewAnalyzer(f).AnalyzeSetup(context.Background(), sources)
	require.Len(t, infos, 3)

	assert.Equal(t, "event-log", infos[0].Shape)
	assert.Equal(t, []Column{
		{Name: "sensor.fronius_grid_power", Rows: 1},
		{Name: "sensor.goodwe_grid_power", Rows: 2},
		{Name: "sensor.inverter_temperature", Rows: 1},
	}, infos[0].Columns)

	assert.Equal(t, "wide", infos[1].Shape)
	assert.Equal(t, []Column{{Name: "gti", Rows: 1}}, infos[1].Columns, "blank cells are not counted")

	assert.Error(t, infos[2].Err)

	assert.Equal(t, map[string]string{
		"inverter_a_power": "sensor.goodwe_grid_power",
		"inverter_b_power": "sensor.fronius_grid_power",
		"irradiance":       "gti",
	}, s.Schema)
	assert.Equal(t, []string{"solar: sensor.inverter_temperature"}, s.Unmapped)
}

func TestPrintEmitsParsableYAML(t *testing.T) {
	s := &Suggestion{Schema: map[string]string{"kehua_power": "sensor.kehua_internal_power"}}

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, []SourceInfo{{Name: "kehua", Shape: "event-log"}}, s))

	out := buf.String()
	idx := bytes.Index(buf.Bytes(), []byte("schema:"))
	require.GreaterOrEqual(t, idx, 0, out)

	var parsed Suggestion
	require.NoError(t, yaml.Unmarshal([]byte(out[idx:]), &parsed))
	assert.Equal(t, s.Schema, parsed.Schema)
}
