// Package scoring orders candidate patterns, gates them against market
// structure and scores the conviction of the surviving setup.
package scoring

import (
	"sort"
	"time"

	"smc-trader/internal/models"
)

// patternFreshness is how far back a pattern's timestamp may lie at
// evaluation time. Older patterns are excluded before prioritization.
const patternFreshness = 24 * time.Hour

// typeWeights rank pattern types by conviction.
var typeWeights = map[models.PatternType]int{
	models.PatternBOS:           5,
	models.PatternChoCH:         4,
	models.PatternLiquidityGrab: 3,
	models.PatternBreakerBlock:  3,
	models.PatternOrderBlock:    2,
	models.PatternFairValueGap:  1,
	models.PatternImbalance:     1,
}

// Prioritizer orders candidate patterns so the strongest, freshest signal
// surfaces first.
type Prioritizer struct{}

// NewPrioritizer creates a pattern prioritizer.
func NewPrioritizer() *Prioritizer {
	return &Prioritizer{}
}

// Prioritize filters out stale patterns and sorts the rest by pattern-type
// weight, timeframe weight, confidence and recency, all descending. The
// first element of the result is the cycle's main pattern.
func (p *Prioritizer) Prioritize(candidates []models.Pattern, now time.Time) []models.Pattern {
	fresh := make([]models.Pattern, 0, len(candidates))
	cutoff := now.Add(-patternFreshness)
	for _, c := range candidates {
		if c.Timestamp.After(cutoff) {
			fresh = append(fresh, c)
		}
	}

	sort.SliceStable(fresh, func(i, j int) bool {
		a, b := fresh[i], fresh[j]
		if wa, wb := typeWeights[a.Type], typeWeights[b.Type]; wa != wb {
			return wa > wb
		}
		if wa, wb := a.Timeframe.Weight(), b.Timeframe.Weight(); wa != wb {
			return wa > wb
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.Timestamp.After(b.Timestamp)
	})

	return fresh
}
