// Package setup inspects the configured sources and suggests the schema
// block that maps their entity ids and columns to logical fields.
package setup

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"

	"energyboard/internal/config"
	"energyboard/internal/fetch"
	"energyboard/internal/models"
	"energyboard/internal/normalize"
)

// hints maps logical fields to substrings of their usual physical names
var hints = []struct {
	field    string
	patterns []string
}{
	{models.FieldInverterAPower, []string{"goodwe_grid_power"}},
	{models.FieldInverterBPower, []string{"fronius_grid_power"}},
	{models.FieldIrradiance, []string{"gti"}},
	{models.FieldFactoryEnergyTotal, []string{"monthkwhtotal", "factory_energy"}},
	{models.FieldFuelConsumedTotal, []string{"fuel_consumed"}},
	{models.FieldGeneratorRuntime, []string{"runtime"}},
	{models.FieldKehuaPower, []string{"kehua"}},
	{models.FieldFuelPrice, []string{"price_per_litre", "price_per_liter"}},
}

// Column is one entity id (event-log sources) or value column (wide sources)
type Column struct {
	Name string
	Rows int
}

type SourceInfo struct {
	Name    string
	Shape   string
	Columns []Column
	Err     error
}

// Suggestion is the config fragment proposed for the inspected sources
type Suggestion struct {
	Schema   map[string]string `yaml:"schema"`
	Unmapped []string          `yaml:"unmapped,omitempty"`
}

type Analyzer struct {
	fetcher fetch.Fetcher
}

func NewAnalyzer(fetcher fetch.Fetcher) *Analyzer {
	return &Analyzer{fetcher: fetcher}
}

// AnalyzeSetup inspects every source location. Unreadable sources are
// reported in their SourceInfo and do not stop the analysis.
func (sa *Analyzer) AnalyzeSetup(ctx context.Context, sources []config.SourceConfig) ([]SourceInfo, *Suggestion) {
	var infos []SourceInfo
	for _, src := range sources {
		infos = append(infos, sa.inspectSource(ctx, src))
	}
	return infos, Suggest(infos)
}

func (sa *Analyzer) inspectSource(ctx context.Context, src config.SourceConfig) SourceInfo {
	info := SourceInfo{Name: src.Name}
	counts := make(map[string]int)

	for _, loc := range src.Locations() {
		data, err := sa.fetcher.Fetch(ctx, loc)
		if err != nil {
			info.Err = fmt.Errorf("fetching %s: %w", loc, err)
			continue
		}
		frame, err := normalize.Decode(src.Kind, data)
		if err != nil {
			info.Err = fmt.Errorf("decoding %s: %w", loc, err)
			continue
		}
		shape := inspectFrame(frame, src.TimeColumn, counts)
		if info.Shape == "" {
			info.Shape = shape
		}
	}

	for name, rows := range counts {
		info.Columns = append(info.Columns, Column{Name: name, Rows: rows})
	}
	sort.Slice(info.Columns, func(i, j int) bool { return info.Columns[i].Name < info.Columns[j].Name })
	return info
}

func inspectFrame(f *normalize.Frame, timeColumn string, counts map[string]int) string {
	stateCol := f.Column(models.ColumnState)
	entityCol := f.Column(models.ColumnEntityID)
	if stateCol >= 0 && entityCol >= 0 {
		for _, row := range f.Rows {
			if id := strings.ToLower(f.Cell(row, entityCol)); id != "" {
				counts[id]++
			}
		}
		return "event-log"
	}

	skip := map[string]bool{
		strings.ToLower(timeColumn): true,
		models.ColumnLastChanged:    true,
		models.ColumnPeriodEnd:      true,
	}
	for col, name := range f.Header {
		if name == "" || skip[name] {
			continue
		}
		for _, row := range f.Rows {
			if f.Cell(row, col) != "" {
				counts[name]++
			}
		}
	}
	return "wide"
}

// Suggest maps inspected columns onto logical fields by name. The first
// match for a field wins; columns matching no field are listed as unmapped.
func Suggest(infos []SourceInfo) *Suggestion {
	s := &Suggestion{Schema: make(map[string]string)}
	for _, info := range infos {
		for _, c := range info.Columns {
			field := match(c.Name)
			if field == "" {
				s.Unmapped = append(s.Unmapped, info.Name+": "+c.Name)
				continue
			}
			if _, taken := s.Schema[field]; !taken {
				s.Schema[field] = c.Name
			}
		}
	}
	return s
}

func match(name string) string {
	for _, h := range hints {
		for _, p := range h.patterns {
			if strings.Contains(name, p) {
				return h.field
			}
		}
	}
	return ""
}

// Print writes the inspection results followed by the suggested YAML
func Print(w io.Writer, infos []SourceInfo, s *Suggestion) error {
	for _, info := range infos {
		fmt.Fprintf(w, "Source %s (%s)\n", info.Name, info.Shape)
		if info.Err != nil {
			fmt.Fprintf(w, "  error: %v\n", info.Err)
		}
		for _, c := range info.Columns {
			fmt.Fprintf(w, "  %-50s %8d rows\n", c.Name, c.Rows)
		}
	}

	out, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling suggestion: %w", err)
	}
	fmt.Fprintf(w, "\nSuggested configuration:\n%s", out)
	return nil
}
