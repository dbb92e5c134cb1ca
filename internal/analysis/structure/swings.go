// Package structure derives market structure from candle series: swing
// points, clustered key levels and the higher-timeframe trend.
package structure

import (
	"math"

	"smc-trader/internal/models"
)

// SwingDetector finds local price extrema and classifies them relative to
// prior extrema. The classification trackers persist across calls so swing
// types stay consistent over a rolling analysis window.
type SwingDetector struct {
	lookback      int
	lastSwingHigh float64
	lastSwingLow  float64
}

// NewSwingDetector creates a swing detector with the given lookback. A
// candle is a swing high if its high is >= every high within lookback
// candles on both sides; symmetric for lows. The comparison is non-strict
// so equal-height plateaus register multiple adjacent swings rather than
// missing consolidation breakouts.
func NewSwingDetector(lookback int) *SwingDetector {
	return &SwingDetector{
		lookback:      lookback,
		lastSwingHigh: math.Inf(-1),
		lastSwingLow:  math.Inf(1),
	}
}

// DefaultLookback is the standard swing confirmation lookback.
const DefaultLookback = 3

func (d *SwingDetector) Name() string {
	return "SwingDetector"
}

// Detect returns the time-ordered swing sequence for the candle series.
// Series shorter than 2*lookback+1 yield an empty result. Emitted swings
// are never revised.
func (d *SwingDetector) Detect(candles []models.Candle) []models.Swing {
	n := len(candles)
	if n < d.lookback*2+1 {
		return nil
	}

	var swings []models.Swing
	for i := d.lookback; i < n-d.lookback; i++ {
		if d.isSwingHigh(candles, i) {
			price := candles[i].High
			swingType := models.SwingLowerHigh
			if price > d.lastSwingHigh {
				swingType = models.SwingHigherHigh
			}
			d.lastSwingHigh = price
			swings = append(swings, models.Swing{
				Price:     price,
				Type:      swingType,
				Timestamp: candles[i].Timestamp,
				Strength:  d.prominence(candles, i, true),
			})
		}
		if d.isSwingLow(candles, i) {
			price := candles[i].Low
			swingType := models.SwingHigherLow
			if price < d.lastSwingLow {
				swingType = models.SwingLowerLow
			}
			d.lastSwingLow = price
			swings = append(swings, models.Swing{
				Price:     price,
				Type:      swingType,
				Timestamp: candles[i].Timestamp,
				Strength:  d.prominence(candles, i, false),
			})
		}
	}

	return swings
}

func (d *SwingDetector) isSwingHigh(candles []models.Candle, i int) bool {
	for j := 1; j <= d.lookback; j++ {
		if candles[i].High < candles[i-j].High || candles[i].High < candles[i+j].High {
			return false
		}
	}
	return true
}

func (d *SwingDetector) isSwingLow(candles []models.Candle, i int) bool {
	for j := 1; j <= d.lookback; j++ {
		if candles[i].Low > candles[i-j].Low || candles[i].Low > candles[i+j].Low {
			return false
		}
	}
	return true
}

// prominence scores the swing within its confirmation window: how far the
// extreme sits inside the window's total range, in [0,1].
func (d *SwingDetector) prominence(candles []models.Candle, i int, isHigh bool) float64 {
	hi := math.Inf(-1)
	lo := math.Inf(1)
	for j := i - d.lookback; j <= i+d.lookback; j++ {
		if candles[j].High > hi {
			hi = candles[j].High
		}
		if candles[j].Low < lo {
			lo = candles[j].Low
		}
	}
	rng := hi - lo
	if rng == 0 {
		return 0
	}
	if isHigh {
		return (candles[i].High - lo) / rng
	}
	return (hi - candles[i].Low) / rng
}
