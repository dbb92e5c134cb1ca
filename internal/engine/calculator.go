package engine

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/markcheno/go-talib"

	"smc-trader/internal/models"
)

// Risk and deferral parameters for setup calculation.
const (
	volatilityWindow    = 20
	baseEntryThreshold  = 0.005 // minimum acceptable distance to entry
	highVolatility      = 0.015 // above this, threshold widens to 2x vol
	minStopDistance     = 0.008 // floor on stop distance as fraction of entry
	minStopVolMultiple  = 1.2
	minTargetStrength   = 0.5
	maxTargets          = 3
	minRiskReward       = 1.5
	queueExpiry         = 6 * time.Hour
	recentSwingLookback = 24 * time.Hour
)

// CalcOutcome describes how a setup calculation resolved.
type CalcOutcome int

const (
	// OutcomeAccepted means a trade plan was produced.
	OutcomeAccepted CalcOutcome = iota
	// OutcomeDeferred means the entry is not yet reachable and the
	// candidate was handed to the queue.
	OutcomeDeferred
	// OutcomeRejected means a risk rule failed; normal control flow, not
	// an error.
	OutcomeRejected
)

// CalcResult is the outcome of a setup calculation. Exactly one of Plan
// and Deferred is set for accepted/deferred outcomes; Reason explains
// rejections and deferrals.
type CalcResult struct {
	Outcome  CalcOutcome
	Plan     *models.TradePlan
	Deferred *models.QueuedSetup
	Reason   string
}

// SetupCalculator turns the cycle's main pattern into a concrete trade
// proposal, or defers it when price has not reached the entry zone.
type SetupCalculator struct {
	minRiskReward float64
	queueExpiry   time.Duration
}

// NewSetupCalculator creates a setup calculator with the default risk
// parameters.
func NewSetupCalculator() *SetupCalculator {
	return NewSetupCalculatorWith(0, 0)
}

// NewSetupCalculatorWith creates a setup calculator with a custom
// risk/reward floor and queue expiry. Zero values fall back to the
// defaults.
func NewSetupCalculatorWith(minRR float64, expiry time.Duration) *SetupCalculator {
	if minRR <= 0 {
		minRR = minRiskReward
	}
	if expiry <= 0 {
		expiry = queueExpiry
	}
	return &SetupCalculator{minRiskReward: minRR, queueExpiry: expiry}
}

// Calculate derives entry, stop, targets and risk/reward for the pattern
// against the execution-timeframe candles and the current price.
func (c *SetupCalculator) Calculate(symbol string, p models.Pattern, structure models.MarketStructure, candles []models.Candle, currentPrice float64, now time.Time) CalcResult {
	entry := p.Price
	vol := Volatility(candles)

	threshold := baseEntryThreshold
	if vol > highVolatility {
		threshold = math.Max(threshold, 2*vol)
	}

	if math.Abs(currentPrice-entry)/entry > threshold {
		return CalcResult{
			Outcome: OutcomeDeferred,
			Deferred: &models.QueuedSetup{
				ID:         uuid.NewString(),
				Symbol:     symbol,
				Pattern:    p,
				Structure:  structure,
				EntryPrice: entry,
				QueueTime:  now,
				ExpiryTime: now.Add(c.queueExpiry),
				PriceThreshold: models.PriceBand{
					Min: entry * (1 - threshold),
					Max: entry * (1 + threshold),
				},
			},
			Reason: fmt.Sprintf("price %.8g outside entry band (%.2f%%)", currentPrice, threshold*100),
		}
	}

	side := models.SideLong
	if p.Direction == models.DirectionBearish {
		side = models.SideShort
	}

	stop := c.stopLoss(side, entry, vol, structure.Swings, now)
	stopDistance := math.Abs(stop-entry) / entry
	if minDist := math.Max(minStopVolMultiple*vol, minStopDistance); stopDistance < minDist {
		return CalcResult{
			Outcome: OutcomeRejected,
			Reason:  fmt.Sprintf("stop distance %.3f%% below minimum %.3f%%", stopDistance*100, minDist*100),
		}
	}

	targets := c.targets(side, entry, structure.KeyLevels)
	if len(targets) == 0 {
		return CalcResult{Outcome: OutcomeRejected, Reason: "no qualifying target level"}
	}

	rr := math.Abs(targets[0]-entry) / math.Abs(stop-entry)
	if rr < c.minRiskReward {
		return CalcResult{
			Outcome: OutcomeRejected,
			Reason:  fmt.Sprintf("risk/reward %.2f below minimum %.1f", rr, c.minRiskReward),
		}
	}

	plan := &models.TradePlan{
		ID:              uuid.NewString(),
		Symbol:          symbol,
		Direction:       side,
		EntryPrice:      entry,
		StopLoss:        stop,
		Targets:         targets,
		ConfidenceScore: p.Confidence,
		Timeframe:       p.Timeframe,
		RiskRewardRatio: rr,
		EntryConditions: entryConditions(p, side),
		ExitConditions:  exitConditions(stop, targets),
		TradingPatterns: []models.PatternType{p.Type},
		Status:          models.PlanPending,
		CreatedAt:       now,
	}
	return CalcResult{Outcome: OutcomeAccepted, Plan: plan}
}

// Volatility is the standard deviation of close-to-close returns over the
// last volatilityWindow candles.
func Volatility(candles []models.Candle) float64 {
	window := candles
	if len(window) > volatilityWindow {
		window = window[len(window)-volatilityWindow:]
	}
	if len(window) < 2 {
		return 0
	}

	closes := models.Closes(window)
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		returns = append(returns, (closes[i]-closes[i-1])/closes[i-1])
	}
	if len(returns) < 2 {
		return 0
	}

	stddev := talib.StdDev(returns, len(returns), 1.0)
	return stddev[len(stddev)-1]
}

// stopLoss places the stop at the nearest invalidating swing newer than
// 24h, falling back to a volatility stop when no such swing exists.
func (c *SetupCalculator) stopLoss(side models.Side, entry, vol float64, swings []models.Swing, now time.Time) float64 {
	cutoff := now.Add(-recentSwingLookback)
	best := math.NaN()

	for _, s := range swings {
		if !s.Timestamp.After(cutoff) {
			continue
		}
		if side == models.SideLong {
			if s.Type.IsLow() && s.Price < entry && (math.IsNaN(best) || s.Price > best) {
				best = s.Price
			}
		} else {
			if s.Type.IsHigh() && s.Price > entry && (math.IsNaN(best) || s.Price < best) {
				best = s.Price
			}
		}
	}

	if !math.IsNaN(best) {
		return best
	}
	if side == models.SideLong {
		return entry * (1 - 2*vol)
	}
	return entry * (1 + 2*vol)
}

// targets picks up to three key levels on the favorable side with enough
// strength, nearest to entry first.
func (c *SetupCalculator) targets(side models.Side, entry float64, levels []models.KeyLevel) []float64 {
	var out []float64
	for _, lvl := range levels {
		if lvl.Strength < minTargetStrength {
			continue
		}
		if side == models.SideLong && lvl.Price > entry {
			out = append(out, lvl.Price)
		}
		if side == models.SideShort && lvl.Price < entry {
			out = append(out, lvl.Price)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return math.Abs(out[i]-entry) < math.Abs(out[j]-entry)
	})
	if len(out) > maxTargets {
		out = out[:maxTargets]
	}
	return out
}

func entryConditions(p models.Pattern, side models.Side) []string {
	return []string{
		fmt.Sprintf("%s %s at %.8g on %s", p.Type, p.Direction, p.Price, p.Timeframe),
		fmt.Sprintf("enter %s within entry band", side),
	}
}

func exitConditions(stop float64, targets []float64) []string {
	out := []string{fmt.Sprintf("stop loss at %.8g", stop)}
	for i, t := range targets {
		out = append(out, fmt.Sprintf("target %d at %.8g", i+1, t))
	}
	return out
}
