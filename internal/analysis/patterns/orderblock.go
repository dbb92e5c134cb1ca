package patterns

import (
	"smc-trader/internal/models"
)

// OrderBlockRecognizer finds order blocks: the last opposite-direction
// candle before a strong momentum move, read as a residual institutional
// order zone.
type OrderBlockRecognizer struct{}

// NewOrderBlockRecognizer creates an order block recognizer.
func NewOrderBlockRecognizer() *OrderBlockRecognizer {
	return &OrderBlockRecognizer{}
}

func (r *OrderBlockRecognizer) Name() string {
	return "OrderBlock"
}

// Detect emits a bullish order block when a bearish candle is immediately
// followed by a strongly bullish candle closing above the bearish candle's
// high, priced at the midpoint of the bearish candle's range. Symmetric
// for bearish blocks.
func (r *OrderBlockRecognizer) Detect(candles []models.Candle, _ []models.Swing, tf models.Timeframe) []models.Pattern {
	if len(candles) < 2 {
		return nil
	}

	avgVolume := averageVolume(candles)
	var found []models.Pattern

	for i := 0; i < len(candles)-1; i++ {
		block := candles[i]
		impulse := candles[i+1]

		if block.IsBearish() && isStrongMove(impulse, models.DirectionBullish) && impulse.Close > block.High {
			found = append(found, models.Pattern{
				Type:          models.PatternOrderBlock,
				Direction:     models.DirectionBullish,
				Price:         (block.High + block.Low) / 2,
				Confidence:    confidenceOrderBlock,
				Timeframe:     tf,
				Timestamp:     impulse.Timestamp,
				Volume:        impulse.Volume,
				AverageVolume: avgVolume,
			})
		}

		if block.IsBullish() && isStrongMove(impulse, models.DirectionBearish) && impulse.Close < block.Low {
			found = append(found, models.Pattern{
				Type:          models.PatternOrderBlock,
				Direction:     models.DirectionBearish,
				Price:         (block.High + block.Low) / 2,
				Confidence:    confidenceOrderBlock,
				Timeframe:     tf,
				Timestamp:     impulse.Timestamp,
				Volume:        impulse.Volume,
				AverageVolume: avgVolume,
			})
		}
	}

	return found
}
