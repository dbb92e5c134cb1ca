package models

import "time"

// SwingType classifies a swing point relative to the previous same-side swing.
type SwingType string

const (
	SwingHigherHigh SwingType = "HH"
	SwingLowerHigh  SwingType = "LH"
	SwingLowerLow   SwingType = "LL"
	SwingHigherLow  SwingType = "HL"
)

// IsHigh reports whether the swing type marks a swing high.
func (t SwingType) IsHigh() bool {
	return t == SwingHigherHigh || t == SwingLowerHigh
}

// IsLow reports whether the swing type marks a swing low.
func (t SwingType) IsLow() bool {
	return t == SwingLowerLow || t == SwingHigherLow
}

// Swing represents a classified swing point. Swings are immutable once
// emitted and ordered by timestamp.
type Swing struct {
	Price     float64
	Type      SwingType
	Timestamp time.Time
	Strength  float64
}

// LevelType represents the type of a key price level.
type LevelType string

const (
	LevelSupport    LevelType = "support"
	LevelResistance LevelType = "resistance"
	LevelBreaker    LevelType = "breaker"
)

// KeyLevel represents a clustered support/resistance/breaker level.
type KeyLevel struct {
	Price     float64
	Type      LevelType
	Strength  float64 // [0,1], proportional to cluster membership
	Timeframe Timeframe
}

// Trend represents the higher-timeframe trend read.
type Trend string

const (
	TrendUp      Trend = "uptrend"
	TrendDown    Trend = "downtrend"
	TrendRanging Trend = "ranging"
)

// MarketStructure combines a higher-timeframe trend with swings and key
// levels so downstream validation sees multi-scale context.
type MarketStructure struct {
	Trend     Trend
	Swings    []Swing
	KeyLevels []KeyLevel
}

// PatternType represents the type of a detected pattern.
type PatternType string

const (
	PatternOrderBlock    PatternType = "ORDER_BLOCK"
	PatternFairValueGap  PatternType = "FAIR_VALUE_GAP"
	PatternBreakerBlock  PatternType = "BREAKER_BLOCK"
	PatternChoCH         PatternType = "CHOCH"
	PatternBOS           PatternType = "BOS"
	PatternLiquidityGrab PatternType = "LIQUIDITY_GRAB"
	PatternImbalance     PatternType = "IMBALANCE"
)

// PriceActionFlags captures derived price-action attributes of the most
// recent candles at detection time.
type PriceActionFlags struct {
	CleanBreak       bool
	ImmediateRetrace bool
	StrongReversal   bool
}

// ValidationFlags captures confirmation checks evaluated against market
// structure at detection time.
type ValidationFlags struct {
	VolumeConfirmation       bool
	MarketStructureAlignment bool
	KeyLevelProximity        bool
	MultiTimeframeAlignment  bool
}

// Pattern represents a detected price-action pattern. Patterns are
// ephemeral: recomputed every analysis cycle and never mutated.
type Pattern struct {
	Type          PatternType
	Direction     Direction
	Price         float64
	Confidence    float64 // [0,1]
	Timeframe     Timeframe
	Timestamp     time.Time
	Volume        float64
	AverageVolume float64
	PriceAction   PriceActionFlags
	Validation    ValidationFlags
}
