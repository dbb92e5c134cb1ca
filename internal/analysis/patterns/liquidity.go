package patterns

import (
	"math"

	"smc-trader/internal/models"
)

// LiquidityGrabRecognizer finds liquidity grabs: a brief sweep beyond a
// recent extreme followed by reversal, interpreted as a stop-loss hunt.
type LiquidityGrabRecognizer struct{}

// NewLiquidityGrabRecognizer creates a liquidity grab recognizer.
func NewLiquidityGrabRecognizer() *LiquidityGrabRecognizer {
	return &LiquidityGrabRecognizer{}
}

func (r *LiquidityGrabRecognizer) Name() string {
	return "LiquidityGrab"
}

// Detect emits a bullish grab when a candle sweeps below the previous
// candle's low, closes back above it, and trades on a volume spike.
// Symmetric at swept highs. Strength blends volume surge, range expansion
// and body dominance.
func (r *LiquidityGrabRecognizer) Detect(candles []models.Candle, _ []models.Swing, tf models.Timeframe) []models.Pattern {
	if len(candles) < 2 {
		return nil
	}

	avgVolume := averageVolume(candles)
	avgRange := averageRange(candles)
	var found []models.Pattern

	for i := 1; i < len(candles); i++ {
		prev := candles[i-1]
		c := candles[i]

		if avgVolume == 0 || c.Volume <= avgVolume*volumeSpikeRatio {
			continue
		}

		if c.Low < prev.Low && c.Close > prev.Low {
			found = append(found, models.Pattern{
				Type:          models.PatternLiquidityGrab,
				Direction:     models.DirectionBullish,
				Price:         prev.Low,
				Confidence:    grabStrength(c, avgVolume, avgRange),
				Timeframe:     tf,
				Timestamp:     c.Timestamp,
				Volume:        c.Volume,
				AverageVolume: avgVolume,
			})
		}

		if c.High > prev.High && c.Close < prev.High {
			found = append(found, models.Pattern{
				Type:          models.PatternLiquidityGrab,
				Direction:     models.DirectionBearish,
				Price:         prev.High,
				Confidence:    grabStrength(c, avgVolume, avgRange),
				Timeframe:     tf,
				Timestamp:     c.Timestamp,
				Volume:        c.Volume,
				AverageVolume: avgVolume,
			})
		}
	}

	return found
}

// grabStrength scores a grab as a weighted blend of volume surge, range
// expansion and body dominance, each capped at 3x its average.
func grabStrength(c models.Candle, avgVolume, avgRange float64) float64 {
	volumeScore := 0.0
	if avgVolume > 0 {
		volumeScore = math.Min(c.Volume/avgVolume, 3) / 3
	}
	rangeScore := 0.0
	if avgRange > 0 {
		rangeScore = math.Min(c.Range()/avgRange, 3) / 3
	}
	bodyScore := 0.0
	if c.Range() > 0 {
		bodyScore = c.BodySize() / c.Range()
	}
	return 0.4*volumeScore + 0.3*rangeScore + 0.3*bodyScore
}
