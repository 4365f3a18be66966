// Package metrics records pipeline metrics on a private Prometheus registry.
// The CLI is short-lived, so metrics are written to a node_exporter textfile
// instead of being served.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "energyboard_"

type Metrics struct {
	registry *prometheus.Registry

	sourceLoads      *prometheus.CounterVec
	sourceRows       *prometheus.GaugeVec
	pipelineDuration prometheus.Histogram
	alignedRows      prometheus.Gauge
	memoHits         prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sourceLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "source_loads_total",
				Help: "Total source loads by result status",
			},
			[]string{"source", "status"},
		),
		sourceRows: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "source_rows",
				Help: "Rows in the normalized table of each source",
			},
			[]string{"source"},
		),
		pipelineDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "pipeline_duration_seconds",
				Help:    "Duration of a full pipeline run in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		alignedRows: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "aligned_rows",
				Help: "Rows in the aligned table of the last run",
			},
		),
		memoHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "memo_hits_total",
				Help: "Pipeline runs answered from the last-request memo",
			},
		),
	}
	m.registry.MustRegister(m.sourceLoads, m.sourceRows, m.pipelineDuration, m.alignedRows, m.memoHits)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveSource(source, status string, rows int) {
	m.sourceLoads.WithLabelValues(source, status).Inc()
	m.sourceRows.WithLabelValues(source).Set(float64(rows))
}

func (m *Metrics) ObservePipeline(d time.Duration, alignedRows int) {
	m.pipelineDuration.Observe(d.Seconds())
	m.alignedRows.Set(float64(alignedRows))
}

func (m *Metrics) MemoHit() {
	m.memoHits.Inc()
}

// WriteTextfile writes all metrics in the text exposition format. An empty
// path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
