package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const envPrefix = "ENERGYBOARD_"

// LoadDotEnv reads a .env file into the process environment if one exists
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// CacheFilePath derives the cache path from the config path
// config.yaml -> config.data-cache
func CacheFilePath(configPath string) string {
	ext := filepath.Ext(configPath)
	base := strings.TrimSuffix(configPath, ext)
	return base + ".data-cache"
}

func applyEnv(c *Config) error {
	floats := []struct {
		key    string
		target *float64
	}{
		{"GAIN_FACTOR", &c.Plant.GainFactor},
		{"PERFORMANCE_RATIO", &c.Plant.PerformanceRatio},
		{"UNIT_COST", &c.Plant.UnitCost},
	}
	for _, f := range floats {
		value, ok := os.LookupEnv(envPrefix + f.key)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("parsing %s%s: %w", envPrefix, f.key, err)
		}
		*f.target = v
	}
	if value, ok := os.LookupEnv(envPrefix + "LOG_LEVEL"); ok {
		c.Log.Level = value
	}
	if value, ok := os.LookupEnv(envPrefix + "FETCH_PASSWORD"); ok {
		c.Fetch.Password = value
	}
	return nil
}
