// Package normalize turns raw source exports into wide, time-indexed tables.
package normalize

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"energyboard/internal/config"
	"energyboard/internal/models"
	"energyboard/internal/table"
)

var (
	ErrShapeMismatch  = errors.New("columns match neither event-log nor wide layout")
	ErrMissingJoinKey = errors.New("no last_changed or period_end column")
)

type shape int

const (
	shapeUnknown shape = iota
	shapeEventLog
	shapeWide
)

// Part is one fetched export of a source
type Part struct {
	Location string
	Data     []byte
	Err      error
}

// Result is the outcome of normalizing one source. Table is never nil.
type Result struct {
	Name       string
	Status     models.SourceStatus
	Reason     string
	Table      *table.WideTable
	TimeColumn string
	Readings   int // observations folded into Table
	Skipped    int // rows dropped for unparseable timestamps
}

type Normalizer struct {
	loc    *time.Location
	schema map[string]string // physical -> logical
	log    logrus.FieldLogger
}

func NewNormalizer(loc *time.Location, schema map[string]string, log logrus.FieldLogger) *Normalizer {
	physical := make(map[string]string, len(schema))
	for logical, column := range schema {
		physical[strings.ToLower(strings.TrimSpace(column))] = logical
	}
	return &Normalizer{
		loc:    loc,
		schema: physical,
		log:    log,
	}
}

// Normalize decodes and reshapes every part of a source. A failure never
// escapes: it is reported through the Result status and an empty table.
func (n *Normalizer) Normalize(src config.SourceConfig, parts []Part) Result {
	log := n.log.WithField("source", src.Name)
	res := Result{
		Name:   src.Name,
		Status: models.StatusEmpty,
		Table:  table.Empty(),
	}

	builder := table.NewBuilder()
	found := shapeUnknown
	var lastErr error
	var lastStatus models.SourceStatus

	for _, part := range parts {
		if part.Err != nil {
			log.WithError(part.Err).WithField("location", part.Location).Warn("source part unavailable")
			lastErr, lastStatus = part.Err, models.StatusUnavailable
			continue
		}

		frame, err := Decode(src.Kind, part.Data)
		if err != nil {
			log.WithError(err).WithField("location", part.Location).Warn("source part unreadable")
			lastErr, lastStatus = err, models.StatusUnavailable
			continue
		}
		if len(frame.Header) == 0 || len(frame.Rows) == 0 {
			log.WithField("location", part.Location).Debug("source part has no rows")
			continue
		}

		s, timeCol, err := detect(frame, src.TimeColumn)
		if err != nil {
			status := models.StatusShapeMismatch
			if errors.Is(err, ErrMissingJoinKey) {
				status = models.StatusMissingJoinKey
			}
			log.WithError(err).WithField("location", part.Location).Warn("source part dropped")
			lastErr, lastStatus = err, status
			continue
		}
		if found != shapeUnknown && s != found {
			err := fmt.Errorf("%w: part %s differs from earlier parts", ErrShapeMismatch, part.Location)
			log.WithError(err).Warn("source part dropped")
			lastErr, lastStatus = err, models.StatusShapeMismatch
			continue
		}
		found = s
		res.TimeColumn = frame.Header[timeCol]

		var readings, skipped int
		switch s {
		case shapeEventLog:
			readings, skipped = n.foldEventLog(frame, timeCol, builder)
		case shapeWide:
			readings, skipped = n.foldWide(frame, timeCol, builder)
		}
		res.Readings += readings
		res.Skipped += skipped
	}

	if found == shapeUnknown || res.Readings == 0 {
		if lastErr != nil {
			res.Status = lastStatus
			res.Reason = lastErr.Error()
		} else if res.Skipped > 0 {
			res.Reason = "no parseable timestamps"
		} else {
			res.Reason = "no rows"
		}
		return res
	}

	t := builder.Build()
	n.applySchema(t, log)
	if err := t.Validate(); err != nil {
		res.Status = models.StatusShapeMismatch
		res.Reason = err.Error()
		return res
	}

	res.Table = t
	res.Status = models.StatusOK
	return res
}

// detect classifies a frame and picks its time column
func detect(f *Frame, override string) (shape, int, error) {
	var timeCol int
	if override != "" {
		timeCol = f.Column(strings.ToLower(override))
	} else if c := f.Column(models.ColumnLastChanged); c >= 0 {
		timeCol = c
	} else {
		timeCol = f.Column(models.ColumnPeriodEnd)
	}
	if timeCol < 0 {
		return shapeUnknown, -1, ErrMissingJoinKey
	}

	hasState := f.Column(models.ColumnState) >= 0
	hasEntity := f.Column(models.ColumnEntityID) >= 0
	switch {
	case hasState && hasEntity:
		return shapeEventLog, timeCol, nil
	case hasState != hasEntity:
		return shapeUnknown, -1, fmt.Errorf("%w: only one of state/entity_id present", ErrShapeMismatch)
	default:
		return shapeWide, timeCol, nil
	}
}

// Readings parses the event-log rows of a frame
func (n *Normalizer) Readings(f *Frame, timeCol int) ([]models.RawReading, int) {
	stateCol := f.Column(models.ColumnState)
	entityCol := f.Column(models.ColumnEntityID)

	readings := make([]models.RawReading, 0, len(f.Rows))
	skipped := 0
	for _, row := range f.Rows {
		ts, err := ParseTimestamp(f.Cell(row, timeCol), f.SerialDates, n.loc)
		if err != nil {
			skipped++
			continue
		}
		entity := strings.ToLower(f.Cell(row, entityCol))
		if entity == "" {
			skipped++
			continue
		}
		// sign carries no meaning for these power/fuel sensors, negatives are noise
		value := math.Abs(ParseValue(f.Cell(row, stateCol)))
		readings = append(readings, models.RawReading{
			Timestamp: ts,
			EntityID:  entity,
			Value:     value,
		})
	}
	return readings, skipped
}

func (n *Normalizer) foldEventLog(f *Frame, timeCol int, b *table.Builder) (int, int) {
	readings, skipped := n.Readings(f, timeCol)
	for _, r := range readings {
		b.Add(r.Timestamp, r.EntityID, r.Value)
	}
	return len(readings), skipped
}

func (n *Normalizer) foldWide(f *Frame, timeCol int, b *table.Builder) (int, int) {
	readings, skipped := 0, 0
	for col, name := range f.Header {
		if col != timeCol && name != "" {
			b.Touch(name)
		}
	}
	for _, row := range f.Rows {
		ts, err := ParseTimestamp(f.Cell(row, timeCol), f.SerialDates, n.loc)
		if err != nil {
			skipped++
			continue
		}
		for col, name := range f.Header {
			if col == timeCol || name == "" {
				continue
			}
			b.Add(ts, name, ParseValue(f.Cell(row, col)))
		}
		readings++
	}
	return readings, skipped
}

// applySchema renames physical columns to their logical field names
func (n *Normalizer) applySchema(t *table.WideTable, log logrus.FieldLogger) {
	for _, column := range append([]string(nil), t.Columns...) {
		logical, ok := n.schema[column]
		if !ok {
			continue
		}
		if err := t.Rename(column, logical); err != nil {
			log.WithError(err).Warnf("cannot map %s to %s", column, logical)
		}
	}
}
