package kpi

import "math"

// Score weights
const (
	weightEfficiency      = 0.3
	weightSelfSufficiency = 0.4
	weightCost            = 0.3
)

// PerformanceScore combines efficiency, self-sufficiency and the energy price
// into a 0..100 score and a rating label.
func PerformanceScore(efficiencyPct, selfSufficiencyPct, costPerKWh float64) (float64, string) {
	efficiency := math.Min(efficiencyPct, 100)
	selfSufficiency := math.Min(selfSufficiencyPct, 100)
	costEffectiveness := math.Max(0, 100-(costPerKWh-1.0)*50)

	score := efficiency*weightEfficiency +
		selfSufficiency*weightSelfSufficiency +
		costEffectiveness*weightCost

	return score, Rating(score)
}

func Rating(score float64) string {
	switch {
	case score >= 90:
		return "Excellent"
	case score >= 75:
		return "Good"
	case score >= 60:
		return "Fair"
	default:
		return "Needs Improvement"
	}
}
