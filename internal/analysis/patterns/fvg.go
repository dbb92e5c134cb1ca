package patterns

import (
	"smc-trader/internal/models"
)

// FairValueGapRecognizer finds fair value gaps: a price range left
// unfilled between two candles, interpreted as an imbalance.
type FairValueGapRecognizer struct{}

// NewFairValueGapRecognizer creates a fair value gap recognizer.
func NewFairValueGapRecognizer() *FairValueGapRecognizer {
	return &FairValueGapRecognizer{}
}

func (r *FairValueGapRecognizer) Name() string {
	return "FairValueGap"
}

// Detect scans triplets of consecutive candles. A bearish gap exists when
// the first candle's low sits above the third candle's high; a bullish gap
// when the first candle's high sits below the third candle's low. The
// pattern price is the gap midpoint.
func (r *FairValueGapRecognizer) Detect(candles []models.Candle, _ []models.Swing, tf models.Timeframe) []models.Pattern {
	if len(candles) < 3 {
		return nil
	}

	avgVolume := averageVolume(candles)
	var found []models.Pattern

	for i := 1; i < len(candles)-1; i++ {
		prev := candles[i-1]
		mid := candles[i]
		next := candles[i+1]

		if prev.Low > next.High {
			found = append(found, models.Pattern{
				Type:          models.PatternFairValueGap,
				Direction:     models.DirectionBearish,
				Price:         (prev.Low + next.High) / 2,
				Confidence:    confidenceFairValueGap,
				Timeframe:     tf,
				Timestamp:     mid.Timestamp,
				Volume:        mid.Volume,
				AverageVolume: avgVolume,
			})
		}

		if prev.High < next.Low {
			found = append(found, models.Pattern{
				Type:          models.PatternFairValueGap,
				Direction:     models.DirectionBullish,
				Price:         (prev.High + next.Low) / 2,
				Confidence:    confidenceFairValueGap,
				Timeframe:     tf,
				Timestamp:     mid.Timestamp,
				Volume:        mid.Volume,
				AverageVolume: avgVolume,
			})
		}
	}

	return found
}
