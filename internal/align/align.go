// Package align folds independently sampled source tables onto one timeline.
//
// The first non-empty table is the anchor: its index becomes the index of the
// result. Every later table is matched row by row to the nearest timestamp of
// the anchor. No distance tolerance is applied, so a sparse source's value can
// be carried to an arbitrarily distant anchor row; availability wins over
// precision here.
package align

import (
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"energyboard/internal/table"
)

// Input is one normalized source in fold order
type Input struct {
	Name  string
	Table *table.WideTable
}

// Result carries the aligned table and the sources that contributed to it
type Result struct {
	Table   *table.AlignedTable
	Anchor  string
	Joined  []string
	Skipped []string
}

type Aligner struct {
	log logrus.FieldLogger
}

func NewAligner(log logrus.FieldLogger) *Aligner {
	return &Aligner{log: log}
}

// Align folds inputs in the given order. Empty tables are skipped; if all are
// empty the result table is empty.
func (a *Aligner) Align(inputs []Input) Result {
	res := Result{Table: table.Empty()}
	var acc *table.WideTable

	for _, in := range inputs {
		if in.Table.IsEmpty() {
			res.Skipped = append(res.Skipped, in.Name)
			a.log.WithField("source", in.Name).Debug("skipping empty source in alignment")
			continue
		}
		if acc == nil {
			acc = in.Table.Clone()
			res.Anchor = in.Name
			res.Joined = append(res.Joined, in.Name)
			continue
		}
		JoinNearest(acc, in.Table, in.Name)
		res.Joined = append(res.Joined, in.Name)
	}

	if acc != nil {
		res.Table = acc
	}
	return res
}

// JoinNearest adds every column of right to left, taking for each left row
// the right row nearest in time. Equal distances pick the earlier right row.
// Colliding column names get a _<source> suffix.
func JoinNearest(left, right *table.WideTable, source string) {
	if left.IsEmpty() || right.IsEmpty() {
		return
	}

	match := make([]int, len(left.Index))
	for i, ts := range left.Index {
		match[i] = Nearest(right.Index, ts)
	}

	for _, name := range right.Columns {
		src := right.Values[name]
		values := make([]float64, len(match))
		for i, j := range match {
			values[i] = src[j]
		}
		column := name
		for left.Has(column) {
			column = column + "_" + source
		}
		// lengths match by construction
		_ = left.Set(column, values)
	}
}

// Nearest returns the position in the ascending index closest to ts. Ties
// resolve to the earlier position. index must not be empty.
func Nearest(index []time.Time, ts time.Time) int {
	j := sort.Search(len(index), func(k int) bool {
		return !index[k].Before(ts)
	})
	switch {
	case j == 0:
		return 0
	case j == len(index):
		return len(index) - 1
	}
	backward := ts.Sub(index[j-1])
	forward := index[j].Sub(ts)
	if backward <= forward {
		return j - 1
	}
	return j
}
