package scoring

import (
	"math"

	"smc-trader/internal/models"
)

const (
	strongLevelStrength = 0.7
	confluenceDistance  = 0.003
	stopClusterDistance = 0.005
	stopClusterTouches  = 3
	stopClusterWindow   = 20
	aPlusThreshold      = 5
	aPlusBoost          = 0.05
)

// ConfidenceResult is the outcome of multi-criteria confidence scoring.
type ConfidenceResult struct {
	Score        float64
	CriteriaMet  int
	IsAPlusSetup bool
	Reasons      []string
}

// ConfidenceScorer evaluates seven weighted confluence criteria against
// the main pattern. Five or more satisfied criteria mark an A+ setup and
// boost the pattern's own confidence.
type ConfidenceScorer struct{}

// NewConfidenceScorer creates a confidence scorer.
func NewConfidenceScorer() *ConfidenceScorer {
	return &ConfidenceScorer{}
}

// Score evaluates the main pattern against the full candidate set, the
// execution-timeframe candles and the market structure.
func (s *ConfidenceScorer) Score(main models.Pattern, all []models.Pattern, candles []models.Candle, structure models.MarketStructure) ConfidenceResult {
	result := ConfidenceResult{Score: main.Confidence}

	check := func(ok bool, reason string) {
		if ok {
			result.CriteriaMet++
			result.Reasons = append(result.Reasons, reason)
		}
	}

	check(trendAligned(main.Direction, structure.Trend), "higher-timeframe trend alignment")
	check(hasConfluentPattern(main, all), "confluent same-direction pattern nearby")
	check(main.AverageVolume > 0 && main.Volume > main.AverageVolume*1.5, "volume spike above average")
	check(main.PriceAction.CleanBreak && !main.PriceAction.ImmediateRetrace, "clean break without retrace")
	check(hasStrongLevelNear(structure.KeyLevels, main.Price, confluenceDistance), "strong key level nearby")
	check(main.Validation.MarketStructureAlignment, "market structure alignment")
	check(hasStopCluster(main, structure.KeyLevels, candles), "stop cluster at matching liquidity level")

	if result.CriteriaMet >= aPlusThreshold {
		result.IsAPlusSetup = true
		result.Score = math.Min(1, result.Score+aPlusBoost)
	}
	return result
}

func trendAligned(dir models.Direction, trend models.Trend) bool {
	return (dir == models.DirectionBullish && trend == models.TrendUp) ||
		(dir == models.DirectionBearish && trend == models.TrendDown)
}

// hasConfluentPattern looks for another pattern of the same direction
// within the confluence distance of the main pattern's price.
func hasConfluentPattern(main models.Pattern, all []models.Pattern) bool {
	for _, p := range all {
		if p == main {
			continue
		}
		if p.Direction == main.Direction && withinDistance(p.Price, main.Price, confluenceDistance) {
			return true
		}
	}
	return false
}

// hasStopCluster checks for a liquidity level of matching direction near
// the pattern that at least three recent wicks have touched, the
// footprint of resting stop orders.
func hasStopCluster(main models.Pattern, levels []models.KeyLevel, candles []models.Candle) bool {
	matching := models.LevelSupport
	if main.Direction == models.DirectionBearish {
		matching = models.LevelResistance
	}

	window := candles
	if len(window) > stopClusterWindow {
		window = window[len(window)-stopClusterWindow:]
	}

	for _, lvl := range levels {
		if lvl.Type != matching && lvl.Type != models.LevelBreaker {
			continue
		}
		if !withinDistance(lvl.Price, main.Price, stopClusterDistance) {
			continue
		}
		touches := 0
		for _, c := range window {
			if c.Low <= lvl.Price && lvl.Price <= c.High {
				touches++
			}
		}
		if touches >= stopClusterTouches {
			return true
		}
	}
	return false
}
