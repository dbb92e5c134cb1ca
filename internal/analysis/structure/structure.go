package structure

import (
	"smc-trader/internal/models"
)

// trendWindow is the number of higher-timeframe candles examined for the
// trend read.
const trendWindow = 20

// Analyzer combines a higher-timeframe trend read with swings and levels
// from a secondary timeframe into a MarketStructure.
type Analyzer struct {
	htfSwings       *SwingDetector
	secondarySwings *SwingDetector
	clusterer       *LevelClusterer
}

// NewAnalyzer creates a market structure analyzer. Each timeframe keeps
// its own swing detector so classification trackers never mix scales.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		htfSwings:       NewSwingDetector(DefaultLookback),
		secondarySwings: NewSwingDetector(DefaultLookback),
		clusterer:       NewLevelClusterer(),
	}
}

func (a *Analyzer) Name() string {
	return "MarketStructureAnalyzer"
}

// Analyze builds the market structure. Key levels come from the higher
// timeframe; swings come from the secondary (lower) timeframe so the
// structure reflects multi-scale context. Short series degrade gracefully
// to empty swings/levels and a ranging trend.
func (a *Analyzer) Analyze(higher []models.Candle, higherTF models.Timeframe, secondary []models.Candle) models.MarketStructure {
	htfSwings := a.htfSwings.Detect(higher)

	return models.MarketStructure{
		Trend:     DetectTrend(higher),
		Swings:    a.secondarySwings.Detect(secondary),
		KeyLevels: a.clusterer.KeyLevels(htfSwings, higherTF),
	}
}

// DetectTrend reads the trend from the last trendWindow candles: an
// uptrend needs the last 3 highs and last 3 lows strictly increasing, a
// downtrend needs both strictly decreasing, anything else is ranging.
func DetectTrend(candles []models.Candle) models.Trend {
	if len(candles) < 3 {
		return models.TrendRanging
	}

	window := candles
	if len(window) > trendWindow {
		window = window[len(window)-trendWindow:]
	}

	n := len(window)
	h1, h2, h3 := window[n-3].High, window[n-2].High, window[n-1].High
	l1, l2, l3 := window[n-3].Low, window[n-2].Low, window[n-1].Low

	highsRising := h1 < h2 && h2 < h3
	lowsRising := l1 < l2 && l2 < l3
	highsFalling := h1 > h2 && h2 > h3
	lowsFalling := l1 > l2 && l2 > l3

	switch {
	case highsRising && lowsRising:
		return models.TrendUp
	case highsFalling && lowsFalling:
		return models.TrendDown
	default:
		return models.TrendRanging
	}
}
