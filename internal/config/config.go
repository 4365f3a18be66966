package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/goccy/go-yaml"
)

var ErrInvalidParams = errors.New("invalid plant parameters")

type SourceKind string

const (
	KindCSV  SourceKind = "csv"
	KindXLSX SourceKind = "xlsx"
)

type SourceRole string

const (
	// RoleTimeline sources are aligned onto the common timeline
	RoleTimeline SourceRole = ""
	// RolePurchases sources only supply fuel prices and are never aligned
	RolePurchases SourceRole = "purchases"
)

// SourceConfig describes one logical source. Several URLs or paths are
// concatenated before pivoting (the monthly solar exports).
type SourceConfig struct {
	Name       string     `yaml:"name"`
	Kind       SourceKind `yaml:"kind"`
	Role       SourceRole `yaml:"role,omitempty"`
	URLs       []string   `yaml:"urls,omitempty"`
	Paths      []string   `yaml:"paths,omitempty"`
	TimeColumn string     `yaml:"timeColumn,omitempty"`
}

// Locations returns paths first, then URLs
func (s SourceConfig) Locations() []string {
	out := make([]string, 0, len(s.Paths)+len(s.URLs))
	out = append(out, s.Paths...)
	return append(out, s.URLs...)
}

type CounterConfig struct {
	Field   string  `yaml:"field"`   // logical name of the cumulative column
	Output  string  `yaml:"output"`  // per-sample delta column
	MaxStep float64 `yaml:"maxStep"` // steps above this are abnormal readings, 0 disables
}

// PlantConfig holds the installation constants and the tunable model factors
type PlantConfig struct {
	RatedCapacityKW  float64 `yaml:"ratedCapacityKw"`
	GainFactor       float64 `yaml:"gainFactor"`
	PerformanceRatio float64 `yaml:"performanceRatio"`
	UnitCost         float64 `yaml:"unitCost"`
	SamplesPerHour   float64 `yaml:"samplesPerHour"`
	EmissionFactor   float64 `yaml:"emissionFactor"`   // kg CO2 per kWh
	DefaultFuelPrice float64 `yaml:"defaultFuelPrice"` // currency per litre
}

type FetchConfig struct {
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
	PoolSize       int    `yaml:"poolSize"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
}

func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

type CacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	TTLMinutes int    `yaml:"ttlMinutes"`
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type Config struct {
	Timezone    string            `yaml:"timezone"`
	Plant       PlantConfig       `yaml:"plant"`
	Sources     []SourceConfig    `yaml:"sources"`
	Schema      map[string]string `yaml:"schema"` // logical field -> physical entity id / column
	Counters    []CounterConfig   `yaml:"counters"`
	WattColumns []string          `yaml:"wattColumns"`
	Fetch       FetchConfig       `yaml:"fetch"`
	Cache       CacheConfig       `yaml:"cache"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Log         LogConfig         `yaml:"log"`
	Debug       bool              `yaml:"-"`
}

// Default returns the configuration of the Paarl installation
func Default() *Config {
	return &Config{
		Timezone: "Africa/Johannesburg",
		Plant: PlantConfig{
			RatedCapacityKW:  221.43,
			GainFactor:       1.0,
			PerformanceRatio: 0.8,
			UnitCost:         2.98,
			SamplesPerHour:   4,
			EmissionFactor:   0.95,
			DefaultFuelPrice: 22.50,
		},
		Schema: map[string]string{
			"inverter_a_power":     "sensor.goodwe_grid_power",
			"inverter_b_power":     "sensor.fronius_grid_power",
			"irradiance":           "gti",
			"factory_energy_total": "sensor.bottling_factory_monthkwhtotal",
			"fuel_consumed_total":  "sensor.generator_fuel_consumed",
			"generator_runtime":    "sensor.generator_runtime_duration",
			"kehua_power":          "sensor.kehua_internal_power",
			"fuel_price":           "price_per_litre",
		},
		Counters: []CounterConfig{
			{Field: "factory_energy_total", Output: "daily_factory_kwh"},
			{Field: "fuel_consumed_total", Output: "fuel_delta_l", MaxStep: 100},
		},
		WattColumns: []string{"inverter_a_power", "inverter_b_power", "kehua_power"},
		Fetch: FetchConfig{
			TimeoutSeconds: 30,
			PoolSize:       4,
		},
		Cache: CacheConfig{
			TTLMinutes: 60,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML file over the defaults and applies environment overrides
func Load(filename string) (*Config, error) {
	buf, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	c, err := Parse(buf)
	if err != nil {
		return nil, err
	}
	if c.Cache.Path == "" {
		c.Cache.Path = CacheFilePath(filename)
	}
	return c, nil
}

// Parse decodes YAML over the defaults, applies the environment and validates
func Parse(buf []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(buf, c); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}
	if err := applyEnv(c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Location resolves the reference time zone
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) Validate() error {
	if err := c.Plant.Validate(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	seen := make(map[string]bool)
	for _, s := range c.Sources {
		if s.Name == "" {
			return fmt.Errorf("source without name")
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate source %q", s.Name)
		}
		seen[s.Name] = true
		if s.Kind != KindCSV && s.Kind != KindXLSX {
			return fmt.Errorf("source %q: unknown kind %q", s.Name, s.Kind)
		}
		if s.Role != RoleTimeline && s.Role != RolePurchases {
			return fmt.Errorf("source %q: unknown role %q", s.Name, s.Role)
		}
		if len(s.Locations()) == 0 {
			return fmt.Errorf("source %q: no urls or paths", s.Name)
		}
	}
	for _, cc := range c.Counters {
		if cc.Field == "" || cc.Output == "" {
			return fmt.Errorf("counter needs field and output")
		}
	}
	if c.Fetch.PoolSize < 1 {
		return fmt.Errorf("fetch pool size must be at least 1")
	}
	return nil
}

// Validate enforces the documented ranges of the model parameters
func (p PlantConfig) Validate() error {
	if p.GainFactor < 0.5 || p.GainFactor > 1.5 {
		return fmt.Errorf("%w: gain factor %.2f outside [0.5, 1.5]", ErrInvalidParams, p.GainFactor)
	}
	if p.PerformanceRatio <= 0 || p.PerformanceRatio > 1 {
		return fmt.Errorf("%w: performance ratio %.2f outside (0, 1]", ErrInvalidParams, p.PerformanceRatio)
	}
	if p.RatedCapacityKW <= 0 {
		return fmt.Errorf("%w: rated capacity must be positive", ErrInvalidParams)
	}
	if p.UnitCost < 0 {
		return fmt.Errorf("%w: unit cost must not be negative", ErrInvalidParams)
	}
	if p.SamplesPerHour <= 0 {
		return fmt.Errorf("%w: samples per hour must be positive", ErrInvalidParams)
	}
	return nil
}
