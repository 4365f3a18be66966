// Package table holds the time-indexed wide tables the pipeline passes
// between stages. Missing cells are NaN.
package table

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// WideTable is indexed by unique ascending timestamps with one value series per column
type WideTable struct {
	Index   []time.Time
	Columns []string
	Values  map[string][]float64
}

// AlignedTable is the single timeline produced by the aligner
type AlignedTable = WideTable

// Missing is the cell value used for absent data
func Missing() float64 {
	return math.NaN()
}

func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// New creates an empty table over the given index. The index must already
// be unique and ascending.
func New(index []time.Time) *WideTable {
	return &WideTable{
		Index:  index,
		Values: make(map[string][]float64),
	}
}

// Empty returns a table with no rows and no columns
func Empty() *WideTable {
	return New(nil)
}

func (t *WideTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Index)
}

func (t *WideTable) IsEmpty() bool {
	return t.Len() == 0
}

func (t *WideTable) Has(column string) bool {
	if t == nil {
		return false
	}
	_, ok := t.Values[column]
	return ok
}

// Column returns the series for column, nil when absent
func (t *WideTable) Column(column string) []float64 {
	if t == nil {
		return nil
	}
	return t.Values[column]
}

// Set adds or replaces a column, keeping Columns sorted
func (t *WideTable) Set(column string, values []float64) error {
	if len(values) != len(t.Index) {
		return fmt.Errorf("column %q has %d values, index has %d", column, len(values), len(t.Index))
	}
	if _, ok := t.Values[column]; !ok {
		t.Columns = append(t.Columns, column)
		sort.Strings(t.Columns)
	}
	t.Values[column] = values
	return nil
}

// Rename moves a column to a new name. Renaming onto an existing column is an error.
func (t *WideTable) Rename(from, to string) error {
	if from == to {
		return nil
	}
	values, ok := t.Values[from]
	if !ok {
		return fmt.Errorf("no column %q", from)
	}
	if _, exists := t.Values[to]; exists {
		return fmt.Errorf("column %q already exists", to)
	}
	delete(t.Values, from)
	for i, c := range t.Columns {
		if c == from {
			t.Columns = append(t.Columns[:i], t.Columns[i+1:]...)
			break
		}
	}
	return t.Set(to, values)
}

// Clone returns a deep copy
func (t *WideTable) Clone() *WideTable {
	if t == nil {
		return Empty()
	}
	c := &WideTable{
		Index:   append([]time.Time(nil), t.Index...),
		Columns: append([]string(nil), t.Columns...),
		Values:  make(map[string][]float64, len(t.Values)),
	}
	for name, values := range t.Values {
		c.Values[name] = append([]float64(nil), values...)
	}
	return c
}

// Rows returns a copy restricted to the row positions selected by keep
func (t *WideTable) Rows(keep func(ts time.Time) bool) *WideTable {
	var positions []int
	for i, ts := range t.Index {
		if keep(ts) {
			positions = append(positions, i)
		}
	}

	out := New(make([]time.Time, len(positions)))
	for j, p := range positions {
		out.Index[j] = t.Index[p]
	}
	for _, name := range t.Columns {
		src := t.Values[name]
		values := make([]float64, len(positions))
		for j, p := range positions {
			values[j] = src[p]
		}
		out.Columns = append(out.Columns, name)
		out.Values[name] = values
	}
	return out
}

// Validate checks the unique-ascending index invariant and column lengths
func (t *WideTable) Validate() error {
	for i := 1; i < len(t.Index); i++ {
		if !t.Index[i].After(t.Index[i-1]) {
			return fmt.Errorf("index not strictly ascending at row %d (%s after %s)",
				i, t.Index[i].Format(time.RFC3339), t.Index[i-1].Format(time.RFC3339))
		}
	}
	for _, name := range t.Columns {
		if len(t.Values[name]) != len(t.Index) {
			return fmt.Errorf("column %q length %d, index length %d", name, len(t.Values[name]), len(t.Index))
		}
	}
	return nil
}
