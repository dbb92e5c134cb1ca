package patterns

import (
	"math"

	"smc-trader/internal/models"
)

// keyLevelProximityDistance is the relative distance within which a strong
// key level counts as nearby.
const keyLevelProximityDistance = 0.003

// strongLevelStrength is the minimum key level strength for proximity
// confirmation.
const strongLevelStrength = 0.7

// Tag derives the price-action and validation attributes for a detected
// pattern from the tail of the candle window and the market structure.
// The multi-timeframe alignment flag is left to the caller, which is the
// only place both timeframes are visible.
func Tag(p models.Pattern, candles []models.Candle, structure models.MarketStructure) models.Pattern {
	p.PriceAction = priceActionFlags(candles)
	p.Validation = models.ValidationFlags{
		VolumeConfirmation:       p.AverageVolume > 0 && p.Volume > p.AverageVolume*volumeSpikeRatio,
		MarketStructureAlignment: alignsWithTrend(p.Direction, structure.Trend),
		KeyLevelProximity:        nearStrongLevel(p.Price, structure.KeyLevels),
	}
	return p
}

func priceActionFlags(candles []models.Candle) models.PriceActionFlags {
	n := len(candles)
	var flags models.PriceActionFlags
	if n < 2 {
		return flags
	}

	last := candles[n-1]
	prior := candles[n-2]

	flags.CleanBreak = last.BodySize() >= prior.BodySize()*1.2
	flags.ImmediateRetrace = oppositeSigns(last.Body(), prior.Body())

	if n >= 3 {
		flags.StrongReversal = last.BodySize() > candles[n-3].Range()*1.5
	}
	return flags
}

func oppositeSigns(a, b float64) bool {
	return (a > 0 && b < 0) || (a < 0 && b > 0)
}

func alignsWithTrend(dir models.Direction, trend models.Trend) bool {
	switch trend {
	case models.TrendUp:
		return dir == models.DirectionBullish
	case models.TrendDown:
		return dir == models.DirectionBearish
	default:
		return false
	}
}

func nearStrongLevel(price float64, levels []models.KeyLevel) bool {
	for _, lvl := range levels {
		if lvl.Strength >= strongLevelStrength && math.Abs(lvl.Price-price)/price <= keyLevelProximityDistance {
			return true
		}
	}
	return false
}
