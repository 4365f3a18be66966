// Package counter derives consumption from cumulative meters. A counter may
// reset to zero or jump backwards after a reboot; such steps count as zero
// consumption, never as negative.
package counter

import (
	"time"

	"github.com/sirupsen/logrus"

	"energyboard/internal/config"
	"energyboard/internal/models"
	"energyboard/internal/table"
)

// PerSample differences consecutive valid samples of a counter column. The
// first valid sample yields 0, missing samples stay missing and are skipped
// when differencing. Steps above maxStep (when positive) are abnormal and
// yield 0; their count is returned.
func PerSample(values []float64, maxStep float64) ([]float64, int) {
	out := make([]float64, len(values))
	abnormal := 0
	prev := table.Missing()
	for i, v := range values {
		if table.IsMissing(v) {
			out[i] = table.Missing()
			continue
		}
		if table.IsMissing(prev) {
			out[i] = 0
			prev = v
			continue
		}
		step := v - prev
		switch {
		case step < 0:
			step = 0
		case maxStep > 0 && step > maxStep:
			step = 0
			abnormal++
		}
		out[i] = step
		prev = v
	}
	return out, abnormal
}

// Daily takes the last valid reading of each calendar day and differences
// consecutive days. The first day is the baseline (0) and resets clamp to 0.
func Daily(index []time.Time, values []float64) []models.DayValue {
	var days []models.DayValue
	var last []float64
	for i, ts := range index {
		v := values[i]
		if table.IsMissing(v) {
			continue
		}
		day := table.Day(ts)
		if n := len(days); n > 0 && days[n-1].Day.Equal(day) {
			last[n-1] = v
			continue
		}
		days = append(days, models.DayValue{Day: day})
		last = append(last, v)
	}

	for i := 1; i < len(days); i++ {
		delta := last[i] - last[i-1]
		if delta < 0 {
			delta = 0
		}
		days[i].Value = delta
	}
	return days
}

// Deriver adds per-sample delta columns for the configured counters
type Deriver struct {
	counters []config.CounterConfig
	log      logrus.FieldLogger
}

func NewDeriver(counters []config.CounterConfig, log logrus.FieldLogger) *Deriver {
	return &Deriver{counters: counters, log: log}
}

// Apply returns a copy of t with a delta column for every counter it carries
func (d *Deriver) Apply(source string, t *table.WideTable) *table.WideTable {
	out := t
	for _, c := range d.counters {
		values := t.Column(c.Field)
		if values == nil {
			continue
		}
		if out == t {
			out = t.Clone()
		}
		deltas, abnormal := PerSample(values, c.MaxStep)
		if abnormal > 0 {
			d.log.WithFields(logrus.Fields{
				"source":   source,
				"counter":  c.Field,
				"abnormal": abnormal,
				"maxStep":  c.MaxStep,
			}).Debug("skipping abnormal counter steps")
		}
		if err := out.Set(c.Output, deltas); err != nil {
			d.log.WithError(err).WithField("counter", c.Field).Warn("cannot add delta column")
		}
	}
	return out
}

// DailyAll computes day deltas for every configured counter present in t
func (d *Deriver) DailyAll(t *table.WideTable) map[string][]models.DayValue {
	out := make(map[string][]models.DayValue)
	for _, c := range d.counters {
		values := t.Column(c.Field)
		if values == nil {
			continue
		}
		out[c.Field] = Daily(t.Index, values)
	}
	return out
}

// DailySum sums per-sample deltas by calendar day. Missing deltas are skipped;
// days without any valid delta are omitted.
func DailySum(index []time.Time, deltas []float64) []models.DayValue {
	var days []models.DayValue
	for i, ts := range index {
		v := deltas[i]
		if table.IsMissing(v) {
			continue
		}
		day := table.Day(ts)
		if n := len(days); n > 0 && days[n-1].Day.Equal(day) {
			days[n-1].Value += v
			continue
		}
		days = append(days, models.DayValue{Day: day, Value: v})
	}
	return days
}

// DailyOutputs sums the per-sample delta column of every counter present in
// t by day, keyed by counter field. t must have passed through Apply.
func (d *Deriver) DailyOutputs(t *table.WideTable) map[string][]models.DayValue {
	out := make(map[string][]models.DayValue)
	for _, c := range d.counters {
		deltas := t.Column(c.Output)
		if deltas == nil {
			continue
		}
		out[c.Field] = DailySum(t.Index, deltas)
	}
	return out
}
