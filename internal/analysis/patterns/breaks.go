package patterns

import (
	"smc-trader/internal/models"
)

// StructureBreakRecognizer finds breaks of structure: price exceeding a
// notable prior swing in the trend direction, confirming continuation.
type StructureBreakRecognizer struct{}

// NewStructureBreakRecognizer creates a BOS recognizer.
func NewStructureBreakRecognizer() *StructureBreakRecognizer {
	return &StructureBreakRecognizer{}
}

func (r *StructureBreakRecognizer) Name() string {
	return "BreakOfStructure"
}

// Detect emits a bullish BOS when a lower-high swing is followed by a
// swing whose price exceeds the swing two back; symmetric for a higher-low
// followed by a breakdown below the swing two back.
func (r *StructureBreakRecognizer) Detect(candles []models.Candle, swings []models.Swing, tf models.Timeframe) []models.Pattern {
	if len(swings) < 3 {
		return nil
	}

	avgVolume := averageVolume(candles)
	var found []models.Pattern

	for i := 1; i < len(swings)-1; i++ {
		pivot := swings[i]
		follower := swings[i+1]
		reference := swings[i-1]

		if pivot.Type == models.SwingLowerHigh && follower.Price > reference.Price {
			found = append(found, models.Pattern{
				Type:          models.PatternBOS,
				Direction:     models.DirectionBullish,
				Price:         follower.Price,
				Confidence:    confidenceBOS,
				Timeframe:     tf,
				Timestamp:     follower.Timestamp,
				AverageVolume: avgVolume,
			})
		}

		if pivot.Type == models.SwingHigherLow && follower.Price < reference.Price {
			found = append(found, models.Pattern{
				Type:          models.PatternBOS,
				Direction:     models.DirectionBearish,
				Price:         follower.Price,
				Confidence:    confidenceBOS,
				Timeframe:     tf,
				Timestamp:     follower.Timestamp,
				AverageVolume: avgVolume,
			})
		}
	}

	return found
}

// ChangeOfCharacterRecognizer finds ChoCH events: a swing pattern
// suggesting trend reversal.
type ChangeOfCharacterRecognizer struct{}

// NewChangeOfCharacterRecognizer creates a ChoCH recognizer.
func NewChangeOfCharacterRecognizer() *ChangeOfCharacterRecognizer {
	return &ChangeOfCharacterRecognizer{}
}

func (r *ChangeOfCharacterRecognizer) Name() string {
	return "ChangeOfCharacter"
}

// Detect emits a bullish ChoCH when a lower-low swing is followed, with
// one swing between, by a higher-high swing whose price exceeds the swing
// two positions back. Symmetric HH -> LL for bearish.
func (r *ChangeOfCharacterRecognizer) Detect(candles []models.Candle, swings []models.Swing, tf models.Timeframe) []models.Pattern {
	if len(swings) < 3 {
		return nil
	}

	avgVolume := averageVolume(candles)
	var found []models.Pattern

	for i := 0; i < len(swings)-2; i++ {
		origin := swings[i]
		turn := swings[i+2]

		if origin.Type == models.SwingLowerLow && turn.Type == models.SwingHigherHigh && turn.Price > origin.Price {
			found = append(found, models.Pattern{
				Type:          models.PatternChoCH,
				Direction:     models.DirectionBullish,
				Price:         turn.Price,
				Confidence:    confidenceChoCH,
				Timeframe:     tf,
				Timestamp:     turn.Timestamp,
				AverageVolume: avgVolume,
			})
		}

		if origin.Type == models.SwingHigherHigh && turn.Type == models.SwingLowerLow && turn.Price < origin.Price {
			found = append(found, models.Pattern{
				Type:          models.PatternChoCH,
				Direction:     models.DirectionBearish,
				Price:         turn.Price,
				Confidence:    confidenceChoCH,
				Timeframe:     tf,
				Timestamp:     turn.Timestamp,
				AverageVolume: avgVolume,
			})
		}
	}

	return found
}
