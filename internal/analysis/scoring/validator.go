package scoring

import (
	"math"
	"time"

	"smc-trader/internal/models"
)

// Distances for type-specific alignment gates.
const (
	grabLevelDistance  = 0.003 // liquidity grab must sit on a strong level
	blockLevelDistance = 0.005 // order block / FVG key level distance
	swingLookback      = 24 * time.Hour
)

// AlignmentValidator gates the main pattern against market structure
// before setup calculation. A failed gate is a rejection, not an error.
type AlignmentValidator struct{}

// NewAlignmentValidator creates an alignment validator.
func NewAlignmentValidator() *AlignmentValidator {
	return &AlignmentValidator{}
}

// Validate applies the type-specific gate. It returns false with a
// human-readable reason when the pattern must be rejected.
func (v *AlignmentValidator) Validate(p models.Pattern, structure models.MarketStructure, now time.Time) (bool, string) {
	if opposesTrend(p.Direction, structure.Trend) {
		return false, "pattern direction opposes confirmed trend"
	}

	switch p.Type {
	case models.PatternBOS, models.PatternChoCH:
		confirmType := models.SwingHigherLow
		if p.Direction == models.DirectionBearish {
			confirmType = models.SwingLowerHigh
		}
		if !hasRecentSwing(structure.Swings, confirmType, now) {
			return false, "no recent confirmation swing of type " + string(confirmType)
		}

	case models.PatternLiquidityGrab:
		if !hasStrongLevelNear(structure.KeyLevels, p.Price, grabLevelDistance) {
			return false, "no strong key level near grab price"
		}

	case models.PatternOrderBlock:
		levelType := models.LevelSupport
		if p.Direction == models.DirectionBearish {
			levelType = models.LevelResistance
		}
		if !hasLevelOfTypeNear(structure.KeyLevels, levelType, p.Price, blockLevelDistance) &&
			!p.Validation.VolumeConfirmation {
			return false, "order block lacks both key level backing and volume confirmation"
		}

	case models.PatternFairValueGap:
		if hasAnyLevelNear(structure.KeyLevels, p.Price, blockLevelDistance) {
			return false, "key level inside gap: messy price action"
		}
	}

	return true, ""
}

func opposesTrend(dir models.Direction, trend models.Trend) bool {
	return (dir == models.DirectionBullish && trend == models.TrendDown) ||
		(dir == models.DirectionBearish && trend == models.TrendUp)
}

func hasRecentSwing(swings []models.Swing, t models.SwingType, now time.Time) bool {
	cutoff := now.Add(-swingLookback)
	for _, s := range swings {
		if s.Type == t && s.Timestamp.After(cutoff) {
			return true
		}
	}
	return false
}

func hasStrongLevelNear(levels []models.KeyLevel, price, distance float64) bool {
	for _, lvl := range levels {
		if lvl.Strength >= strongLevelStrength && withinDistance(lvl.Price, price, distance) {
			return true
		}
	}
	return false
}

func hasLevelOfTypeNear(levels []models.KeyLevel, t models.LevelType, price, distance float64) bool {
	for _, lvl := range levels {
		if lvl.Type == t && withinDistance(lvl.Price, price, distance) {
			return true
		}
	}
	return false
}

func hasAnyLevelNear(levels []models.KeyLevel, price, distance float64) bool {
	for _, lvl := range levels {
		if withinDistance(lvl.Price, price, distance) {
			return true
		}
	}
	return false
}

func withinDistance(a, b, distance float64) bool {
	return math.Abs(a-b)/b <= distance
}
