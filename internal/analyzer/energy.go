// energy.go

package analyzer

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"energyboard/internal/align"
	"energyboard/internal/config"
	"energyboard/internal/counter"
	"energyboard/internal/fetch"
	"energyboard/internal/kpi"
	"energyboard/internal/metrics"
	"energyboard/internal/models"
	"energyboard/internal/normalize"
	"energyboard/internal/report"
	"energyboard/internal/resolve"
	"energyboard/internal/table"
)

// Request is one computation: a date range and the plant factors to apply
type Request struct {
	Range kpi.DateRange
	Plant config.PlantConfig
}

// SourceSummary is the per-source outcome reported to the caller
type SourceSummary struct {
	Name   string
	Status models.SourceStatus
	Reason string
	Rows   int
}

// EnergyStats is the product of one pipeline run
type EnergyStats struct {
	RunID    string
	Sources  []SourceSummary
	Aligned  *table.AlignedTable
	Filtered *table.WideTable
	Bundle   models.Bundle
	Daily    []report.DailyRow
	Memoized bool
}

// loaded is what a source task leaves in its slot
type loaded struct {
	result normalize.Result
	digest [32]byte
}

type EnergyAnalyzer struct {
	config     *config.Config
	fetcher    fetch.Fetcher
	normalizer *normalize.Normalizer
	deriver    *counter.Deriver
	aligner    *align.Aligner
	metrics    *metrics.Metrics
	log        logrus.FieldLogger

	mu   sync.Mutex
	memo memo
}

func NewEnergyAnalyzer(cfg *config.Config, fetcher fetch.Fetcher, m *metrics.Metrics, log logrus.FieldLogger) (*EnergyAnalyzer, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = metrics.New()
	}
	return &EnergyAnalyzer{
		config:     cfg,
		fetcher:    fetcher,
		normalizer: normalize.NewNormalizer(loc, cfg.Schema, log),
		deriver:    counter.NewDeriver(cfg.Counters, log),
		aligner:    align.NewAligner(log),
		metrics:    m,
		log:        log,
	}, nil
}

// Analyze runs fetch, normalize, align, resolve, filter and aggregate. A
// failing source never fails the run; only invalid plant factors do.
func (ea *EnergyAnalyzer) Analyze(ctx context.Context, req Request) (*EnergyStats, error) {
	if err := req.Plant.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	runID := uuid.NewString()
	log := ea.log.WithField("run", runID)
	log.WithField("range", req.Range.String()).Debug("starting pipeline")

	slots := ea.loadSources(ctx, log)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("loading sources: %w", err)
	}

	key := memoKey(ea.config.Sources, slots, req)
	if stats, ok := ea.lookupMemo(key); ok {
		ea.metrics.MemoHit()
		log.Debug("inputs unchanged, reusing last result")
		return stats, nil
	}

	stats, err := ea.calculateStats(slots, req, log)
	if err != nil {
		return nil, err
	}
	stats.RunID = runID

	ea.metrics.ObservePipeline(time.Since(start), stats.Aligned.Len())
	ea.storeMemo(key, stats)
	log.WithFields(logrus.Fields{
		"aligned":  stats.Aligned.Len(),
		"filtered": stats.Filtered.Len(),
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("pipeline finished")
	return stats, nil
}

// loadSources fetches and normalizes every source on a bounded pool. Each
// task writes only its own slot; Wait is the barrier before the fold.
func (ea *EnergyAnalyzer) loadSources(ctx context.Context, log logrus.FieldLogger) []loaded {
	sources := ea.config.Sources
	slots := make([]loaded, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ea.config.Fetch.PoolSize)
	for i, src := range sources {
		g.Go(func() error {
			slots[i] = ea.loadSource(gctx, src, log)
			return nil
		})
	}
	// tasks never return errors
	_ = g.Wait()

	for _, s := range slots {
		ea.logResult(s.result, log)
	}
	return slots
}

func (ea *EnergyAnalyzer) loadSource(ctx context.Context, src config.SourceConfig, log logrus.FieldLogger) loaded {
	var parts []normalize.Part
	for _, loc := range src.Locations() {
		part := normalize.Part{Location: loc}
		part.Data, part.Err = ea.fetchPart(ctx, loc)
		parts = append(parts, part)
		log.WithFields(logrus.Fields{"source": src.Name, "location": loc, "bytes": len(part.Data)}).Debug("fetched source part")
	}
	return loaded{
		result: ea.normalizer.Normalize(src, parts),
		digest: digestParts(parts),
	}
}

func (ea *EnergyAnalyzer) fetchPart(ctx context.Context, loc string) ([]byte, error) {
	if timeout := ea.config.Fetch.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return ea.fetcher.Fetch(ctx, loc)
}

func (ea *EnergyAnalyzer) logResult(r normalize.Result, log logrus.FieldLogger) {
	ea.metrics.ObserveSource(r.Name, string(r.Status), r.Table.Len())
	entry := log.WithFields(logrus.Fields{
		"source":  r.Name,
		"status":  r.Status,
		"rows":    r.Table.Len(),
		"columns": len(r.Table.Columns),
	})
	if r.Skipped > 0 {
		entry = entry.WithField("skipped", r.Skipped)
	}
	if r.Status != models.StatusOK {
		entry.WithField("reason", r.Reason).Warn("source not available for alignment")
		return
	}
	entry.Info("source loaded")
}

// calculateStats folds the loaded sources and reduces them for the request
func (ea *EnergyAnalyzer) calculateStats(slots []loaded, req Request, log logrus.FieldLogger) (*EnergyStats, error) {
	stats := &EnergyStats{}
	daily := make(map[string][]models.DayValue)
	var fuelDaily []models.DayValue
	var purchases []kpi.Purchase
	var inputs []align.Input

	for i, s := range slots {
		src := ea.config.Sources[i]
		r := s.result
		stats.Sources = append(stats.Sources, SourceSummary{
			Name:   r.Name,
			Status: r.Status,
			Reason: r.Reason,
			Rows:   r.Table.Len(),
		})
		if src.Role == config.RolePurchases {
			if r.Status.Alignable() {
				purchases = append(purchases, kpi.Purchases(r.Table, models.FieldFuelPrice)...)
			}
			continue
		}
		if !r.Status.Alignable() {
			inputs = append(inputs, align.Input{Name: r.Name, Table: table.Empty()})
			continue
		}

		t := ea.deriver.Apply(r.Name, r.Table)
		for field, days := range ea.deriver.DailyAll(t) {
			if _, taken := daily[field]; taken {
				log.WithFields(logrus.Fields{"source": r.Name, "counter": field}).Warn("counter already provided by an earlier source")
				continue
			}
			daily[field] = days
		}
		if days, ok := ea.deriver.DailyOutputs(t)[models.FieldFuelConsumedTotal]; ok && fuelDaily == nil {
			fuelDaily = days
		}
		inputs = append(inputs, align.Input{Name: r.Name, Table: t})
	}
	sortPurchases(purchases)

	folded := ea.aligner.Align(inputs)
	if folded.Anchor == "" {
		log.Warn("no source has data, KPIs are zero")
	}

	aligned, err := resolve.Resolve(folded.Table, ea.config.WattColumns, resolve.FromPlant(req.Plant))
	if err != nil {
		return nil, fmt.Errorf("resolving derived fields: %w", err)
	}

	filtered, bundle := kpi.Compute(req.Plant, kpi.Inputs{
		Aligned:   aligned,
		Range:     req.Range,
		Daily:     daily,
		FuelDaily: fuelDaily,
		Purchases: purchases,
	})

	stats.Aligned = aligned
	stats.Filtered = filtered
	stats.Bundle = bundle
	stats.Daily = report.MergeDaily(
		kpi.DailyEnergy(filtered, models.FieldCombinedPower, req.Plant.SamplesPerHour),
		req.Range.InRange(daily[models.FieldFactoryEnergyTotal]),
		req.Range.InRange(fuelDaily),
	)
	return stats, nil
}

func sortPurchases(p []kpi.Purchase) {
	sort.SliceStable(p, func(i, j int) bool { return p[i].Date.Before(p[j].Date) })
}
