package table

import (
	"sort"
	"time"
)

type cell struct {
	sum   float64
	count int
}

// Builder collects (timestamp, column, value) observations and produces a
// WideTable. Observations colliding on the same timestamp and column are
// averaged; missing values do not count towards the mean.
type Builder struct {
	rows    map[time.Time]map[string]*cell
	columns map[string]struct{}
}

func NewBuilder() *Builder {
	return &Builder{
		rows:    make(map[time.Time]map[string]*cell),
		columns: make(map[string]struct{}),
	}
}

func (b *Builder) Add(ts time.Time, column string, value float64) {
	b.columns[column] = struct{}{}
	row, ok := b.rows[ts]
	if !ok {
		row = make(map[string]*cell)
		b.rows[ts] = row
	}
	c, ok := row[column]
	if !ok {
		c = &cell{}
		row[column] = c
	}
	if IsMissing(value) {
		return
	}
	c.sum += value
	c.count++
}

// Touch registers a column without adding a value so it exists even if all
// its observations were missing.
func (b *Builder) Touch(column string) {
	b.columns[column] = struct{}{}
}

func (b *Builder) Build() *WideTable {
	index := make([]time.Time, 0, len(b.rows))
	for ts := range b.rows {
		index = append(index, ts)
	}
	sort.Slice(index, func(i, j int) bool {
		return index[i].Before(index[j])
	})

	columns := make([]string, 0, len(b.columns))
	for c := range b.columns {
		columns = append(columns, c)
	}
	sort.Strings(columns)

	t := New(index)
	t.Columns = columns
	for _, name := range columns {
		values := make([]float64, len(index))
		for i, ts := range index {
			c, ok := b.rows[ts][name]
			if !ok || c.count == 0 {
				values[i] = Missing()
				continue
			}
			values[i] = c.sum / float64(c.count)
		}
		t.Values[name] = values
	}
	return t
}
