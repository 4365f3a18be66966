package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"energyboard/internal/analyzer"
	"energyboard/internal/cache"
	"energyboard/internal/config"
	"energyboard/internal/fetch"
	"energyboard/internal/kpi"
	"energyboard/internal/logging"
	"energyboard/internal/metrics"
	"energyboard/internal/report"
	"energyboard/internal/setup"
	"energyboard/internal/table"
)

func printSummary(stats *analyzer.EnergyStats) {
	b := stats.Bundle
	fmt.Printf("\nEnergy Analysis for period: %s to %s\n\n",
		table.DayKey(b.Period.Start), table.DayKey(b.Period.End))

	fmt.Printf("Sources:\n")
	fmt.Printf("--------\n")
	for _, s := range stats.Sources {
		line := fmt.Sprintf("%-12s %-16s %6d rows", s.Name, s.Status, s.Rows)
		if s.Reason != "" {
			line += "  (" + s.Reason + ")"
		}
		fmt.Println(line)
	}

	fmt.Printf("\nSolar:\n")
	fmt.Printf("------\n")
	fmt.Printf("Average Power:     %.2f kW\n", b.AveragePowerKW)
	fmt.Printf("Peak Power:        %.2f kW\n", b.PeakPowerKW)
	fmt.Printf("Yield:             %.1f kWh\n", b.SolarYieldKWh)
	fmt.Printf("Estimated Savings: R %.2f\n", b.EstimatedCost)
	fmt.Printf("Efficiency:        %.1f%%\n", b.EfficiencyPct)
	fmt.Printf("Carbon Offset:     %.0f kg CO2\n", b.CarbonOffsetKg)

	fmt.Printf("\nConsumption:\n")
	fmt.Printf("------------\n")
	fmt.Printf("Factory:           %.1f kWh\n", b.TotalConsumptionKWh)
	fmt.Printf("Self-Sufficiency:  %.1f%%\n", b.SelfSufficiencyPct)
	fmt.Printf("Generator Fuel:    %.1f L\n", b.FuelLiters)
	fmt.Printf("Fuel Cost:         R %.2f (avg R %.2f/L)\n", b.FuelCost, b.AverageFuelPrice)

	fmt.Printf("\nPerformance Score: %.1f (%s)\n", b.PerformanceScore, b.Rating)

	if len(stats.Daily) > 0 {
		fmt.Printf("\nDaily Breakdown:\n")
		fmt.Printf("%-12s %13s %13s %10s\n", "Day", "Solar", "Factory", "Fuel")
		fmt.Printf("%s\n", strings.Repeat("-", 51))
		for _, d := range stats.Daily {
			fmt.Printf("%-12s %9.1f kWh %9.1f kWh %8.1f L\n",
				table.DayKey(d.Day), d.SolarKWh, d.ConsumptionKWh, d.FuelLiters)
		}
	}
}

func analyzeEnergy(ctx context.Context, ea *analyzer.EnergyAnalyzer, plant config.PlantConfig, r kpi.DateRange) (*analyzer.EnergyStats, error) {
	stats, err := ea.Analyze(ctx, analyzer.Request{Range: r, Plant: plant})
	if err != nil {
		return nil, fmt.Errorf("analyzing energy data: %w", err)
	}
	printSummary(stats)
	return stats, nil
}

func exportReports(stats *analyzer.EnergyStats, xlsxPath, pdfPath string, log logrus.FieldLogger) error {
	r := report.Report{
		Title:       "Bottling Plant Energy Report",
		GeneratedAt: time.Now(),
		Bundle:      stats.Bundle,
		Table:       stats.Filtered,
		Daily:       stats.Daily,
	}
	if xlsxPath != "" {
		data, err := report.BuildXLSX(r)
		if err != nil {
			return fmt.Errorf("building xlsx report: %w", err)
		}
		if err := os.WriteFile(xlsxPath, data, 0o644); err != nil {
			return fmt.Errorf("writing xlsx report: %w", err)
		}
		log.WithField("path", xlsxPath).Info("wrote xlsx report")
	}
	if pdfPath != "" {
		data, err := report.BuildPDF(r)
		if err != nil {
			return fmt.Errorf("building pdf report: %w", err)
		}
		if err := os.WriteFile(pdfPath, data, 0o644); err != nil {
			return fmt.Errorf("writing pdf report: %w", err)
		}
		log.WithField("path", pdfPath).Info("wrote pdf report")
	}
	return nil
}

func parseDate(dateStr string) (time.Time, error) {
	formats := []string{
		"2006-01-02",
		"02.01.2006",
		"02.01.06",
		"02/01/2006",
	}

	var parseErr error
	for _, format := range formats {
		t, err := time.ParseInLocation(format, dateStr, time.UTC)
		if err == nil {
			return t, nil
		}
		parseErr = err
	}
	return time.Time{}, fmt.Errorf("invalid date format, please use YYYY-MM-DD or DD.MM.YYYY: %v", parseErr)
}

// dateRange resolves the -from/-to/-days flags. today is the current civil
// day in the plant's time zone.
func dateRange(startDate, endDate string, days int, today time.Time) (kpi.DateRange, error) {
	switch {
	case startDate != "" && endDate != "":
		from, err := parseDate(startDate)
		if err != nil {
			return kpi.DateRange{}, fmt.Errorf("invalid start date: %w", err)
		}
		to, err := parseDate(endDate)
		if err != nil {
			return kpi.DateRange{}, fmt.Errorf("invalid end date: %w", err)
		}
		return kpi.NewDateRange(from, to)
	case days > 0:
		return kpi.NewDateRange(today.AddDate(0, 0, -days+1), today)
	default:
		return kpi.NewDateRange(today, today)
	}
}

// today returns the current civil day in loc as a zone-stripped date
func today(loc *time.Location) time.Time {
	now := time.Now().In(loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// applyOverrides copies the factor flags that were set on the command line
func applyOverrides(plant *config.PlantConfig, gain, pr, cost float64) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "gain":
			plant.GainFactor = gain
		case "pr":
			plant.PerformanceRatio = pr
		case "cost":
			plant.UnitCost = cost
		}
	})
}

func main() {
	var (
		startDate string
		endDate   string
		days      int
	)

	configPath := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.StringVar(&startDate, "from", "", "Start date (format: YYYY-MM-DD or DD.MM.YYYY)")
	flag.StringVar(&endDate, "to", "", "End date (format: YYYY-MM-DD or DD.MM.YYYY)")
	flag.IntVar(&days, "days", 0, "Number of days to analyze (ignored if from/to are specified)")
	gain := flag.Float64("gain", 1.0, "Gain factor applied to expected power (0.5-1.5)")
	pr := flag.Float64("pr", 0.8, "Performance ratio applied to expected power (0-1]")
	cost := flag.Float64("cost", 2.98, "Energy unit cost in R per kWh")
	analyze := flag.Bool("analyze", false, "Analyze sources and suggest a schema")
	energy := flag.Bool("energy", false, "Show energy analysis")
	debug := flag.Bool("debug", false, "Enable debug output")
	xlsxPath := flag.String("xlsx", "", "Write an XLSX report to this path")
	pdfPath := flag.String("pdf", "", "Write a PDF report to this path")
	dumpCache := flag.Bool("dump-cache", false, "Print the source cache and exit")
	clearCache := flag.Bool("clear-cache", false, "Delete the source cache and exit")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		stdlog.Fatalf("Failed to load .env: %v", err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		stdlog.Fatalf("Failed to load config: %v", err)
	}
	cfg.Debug = *debug

	log, logFile, err := logging.New(cfg.Log, cfg.Debug, os.Stderr)
	if err != nil {
		stdlog.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	cached, err := cache.NewCachedFetcher(fetch.NewClient(cfg.Fetch), cfg.Cache, log)
	if err != nil {
		log.Fatalf("Failed to open cache: %v", err)
	}

	if *dumpCache {
		cached.DumpCache(os.Stdout)
		return
	}
	if *clearCache {
		if err := cached.DeleteCache(); err != nil {
			log.Fatalf("Failed to delete cache: %v", err)
		}
		fmt.Printf("Cache deleted: %s\n", cfg.Cache.Path)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *analyze {
		infos, suggestion := setup.NewAnalyzer(cached).AnalyzeSetup(ctx, cfg.Sources)
		if err := setup.Print(os.Stdout, infos, suggestion); err != nil {
			log.Fatalf("Setup analysis failed: %v", err)
		}
		return
	}

	if !*energy {
		flag.Usage()
		return
	}

	plant := cfg.Plant
	applyOverrides(&plant, *gain, *pr, *cost)

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("Invalid timezone: %v", err)
	}
	r, err := dateRange(startDate, endDate, days, today(loc))
	if err != nil {
		log.Fatalf("Invalid period: %v", err)
	}
	log.WithField("range", r.String()).Debug("analyzing period")

	m := metrics.New()
	ea, err := analyzer.NewEnergyAnalyzer(cfg, cached, m, log)
	if err != nil {
		log.Fatalf("Failed to set up analyzer: %v", err)
	}

	stats, err := analyzeEnergy(ctx, ea, plant, r)
	if err != nil {
		log.Fatalf("Energy analysis failed: %v", err)
	}

	if err := cached.Flush(); err != nil {
		log.WithError(err).Warn("cache not saved")
	}
	if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		log.WithError(err).Warn("metrics not written")
	}
	if err := exportReports(stats, *xlsxPath, *pdfPath, log); err != nil {
		log.Fatalf("Export failed: %v", err)
	}
}
