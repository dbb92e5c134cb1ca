// Package models provides domain models for the trading engine.
package models

import (
	"math"
	"time"

	"smc-trader/internal/errors"
)

// Timeframe represents a candle timeframe.
type Timeframe string

const (
	Timeframe5Min  Timeframe = "5m"
	Timeframe15Min Timeframe = "15m"
	Timeframe1Hour Timeframe = "1h"
	Timeframe4Hour Timeframe = "4h"
	Timeframe1Day  Timeframe = "1d"
)

// Weight returns the priority weight of a timeframe. Higher timeframes
// carry more weight when multiple timeframes are scanned together.
func (tf Timeframe) Weight() int {
	switch tf {
	case Timeframe1Day:
		return 5
	case Timeframe4Hour:
		return 4
	case Timeframe1Hour:
		return 3
	case Timeframe15Min:
		return 2
	case Timeframe5Min:
		return 1
	default:
		return 0
	}
}

// ParseTimeframe converts a config string into a Timeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	switch Timeframe(s) {
	case Timeframe5Min, Timeframe15Min, Timeframe1Hour, Timeframe4Hour, Timeframe1Day:
		return Timeframe(s), nil
	}
	return "", errors.NewValidationError("timeframe", s, "unknown timeframe")
}

// Direction represents the direction of a pattern or trade.
type Direction string

const (
	DirectionBullish Direction = "bullish"
	DirectionBearish Direction = "bearish"
)

// Side represents the side of a trade plan.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Candle represents OHLCV data for a time period.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Body returns the signed candle body (close minus open).
func (c Candle) Body() float64 {
	return c.Close - c.Open
}

// BodySize returns the absolute candle body size.
func (c Candle) BodySize() float64 {
	return math.Abs(c.Close - c.Open)
}

// Range returns the high-low range of the candle.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// IsBullish reports whether the candle closed above its open.
func (c Candle) IsBullish() bool {
	return c.Close > c.Open
}

// IsBearish reports whether the candle closed below its open.
func (c Candle) IsBearish() bool {
	return c.Close < c.Open
}

// ValidateCandles checks a candle series for malformed data: non-monotonic
// timestamps or non-finite prices. Malformed input fails fast rather than
// producing a silently wrong pattern.
func ValidateCandles(candles []Candle) error {
	for i, c := range candles {
		for _, v := range []float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.NewValidationError("candle", i, "non-finite price or volume")
			}
		}
		if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
			return errors.NewValidationError("candle", i, "non-positive price")
		}
		if i > 0 && !candles[i-1].Timestamp.Before(c.Timestamp) {
			return errors.NewValidationError("candle", i, "non-monotonic timestamp")
		}
	}
	return nil
}

// Closes extracts the close prices from a candle series.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Volumes extracts the volumes from a candle series.
func Volumes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Volume
	}
	return out
}
