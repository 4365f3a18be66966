package analyzer

import (
	"crypto/sha256"
	"fmt"
	"hash"

	"energyboard/internal/config"
	"energyboard/internal/normalize"
)

// memo keeps the result of the last request only
type memo struct {
	key   [32]byte
	stats *EnergyStats
}

// lookupMemo returns the last result if key matches. The result is shared
// and must not be modified.
func (ea *EnergyAnalyzer) lookupMemo(key [32]byte) (*EnergyStats, bool) {
	ea.mu.Lock()
	defer ea.mu.Unlock()
	if ea.memo.stats == nil || ea.memo.key != key {
		return nil, false
	}
	hit := *ea.memo.stats
	hit.Memoized = true
	return &hit, true
}

func (ea *EnergyAnalyzer) storeMemo(key [32]byte, stats *EnergyStats) {
	ea.mu.Lock()
	defer ea.mu.Unlock()
	ea.memo = memo{key: key, stats: stats}
}

func digestParts(parts []normalize.Part) [32]byte {
	h := sha256.New()
	for _, p := range parts {
		writeField(h, p.Location)
		if p.Err != nil {
			writeField(h, "error:"+p.Err.Error())
			continue
		}
		fmt.Fprintf(h, "%d:", len(p.Data))
		h.Write(p.Data)
	}
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// memoKey covers source identity and content, the plant factors and the range
func memoKey(sources []config.SourceConfig, slots []loaded, req Request) [32]byte {
	h := sha256.New()
	for i, src := range sources {
		writeField(h, src.Name)
		h.Write(slots[i].digest[:])
	}
	p := req.Plant
	fmt.Fprintf(h, "plant:%g:%g:%g:%g:%g:%g:%g;",
		p.RatedCapacityKW, p.GainFactor, p.PerformanceRatio, p.UnitCost,
		p.SamplesPerHour, p.EmissionFactor, p.DefaultFuelPrice)
	fmt.Fprintf(h, "range:%d:%d;", req.Range.Start.Unix(), req.Range.End.Unix())

	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

func writeField(h hash.Hash, s string) {
	fmt.Fprintf(h, "%d:%s;", len(s), s)
}
