// Package patterns provides the smart-money pattern recognizers: order
// blocks, fair value gaps, structure breaks and liquidity grabs.
package patterns

import (
	"github.com/markcheno/go-talib"

	"smc-trader/internal/models"
)

// Recognizer is the interface implemented by each pattern rule engine.
// Recognizers scan a candle window and/or the swing sequence independently
// and may emit zero or many patterns per call. Windows shorter than a
// recognizer's requirement yield empty results, never errors.
type Recognizer interface {
	Name() string
	Detect(candles []models.Candle, swings []models.Swing, tf models.Timeframe) []models.Pattern
}

// Base confidences per pattern type, ordered by conviction.
const (
	confidenceBOS          = 0.90
	confidenceChoCH        = 0.85
	confidenceOrderBlock   = 0.75
	confidenceFairValueGap = 0.70
)

// volumeSpikeRatio is the multiple of average volume treated as
// confirmation.
const volumeSpikeRatio = 1.5

// AllRecognizers returns one recognizer per supported pattern type.
func AllRecognizers() []Recognizer {
	return []Recognizer{
		NewOrderBlockRecognizer(),
		NewFairValueGapRecognizer(),
		NewStructureBreakRecognizer(),
		NewChangeOfCharacterRecognizer(),
		NewLiquidityGrabRecognizer(),
	}
}

// averageVolume returns the mean volume of the window, zero for empty
// windows.
func averageVolume(candles []models.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	volumes := models.Volumes(candles)
	sma := talib.Sma(volumes, len(volumes))
	return sma[len(sma)-1]
}

// averageRange returns the mean high-low range of the window.
func averageRange(candles []models.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	var sum float64
	for _, c := range candles {
		sum += c.Range()
	}
	return sum / float64(len(candles))
}

// isStrongMove reports whether the candle is a decisive directional move:
// body at least 60% of range and at least 1% of the open.
func isStrongMove(c models.Candle, dir models.Direction) bool {
	body := c.Body()
	if dir == models.DirectionBearish {
		body = -body
	}
	rng := c.Range()
	if rng == 0 || body <= 0 {
		return false
	}
	return body/rng >= 0.6 && body/c.Open >= 0.01
}
