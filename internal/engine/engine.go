// Package engine synthesizes trade setups from multi-timeframe candle
// data: pattern detection, prioritization, alignment validation, setup
// calculation, confidence scoring and deferred-candidate queueing.
package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"smc-trader/internal/analysis/patterns"
	"smc-trader/internal/analysis/scoring"
	"smc-trader/internal/analysis/structure"
	"smc-trader/internal/errors"
	"smc-trader/internal/models"
)

// minExecutionCandles is the shortest execution-timeframe series the
// engine accepts: the volatility window plus one return.
const minExecutionCandles = volatilityWindow + 1

// Engine is the price-action analysis engine. It is synchronous and
// stateless per call except for the setup queue and per-symbol swing
// trackers, both partitioned by symbol. Callers may analyze different
// symbols concurrently.
type Engine struct {
	recognizers []patterns.Recognizer
	prioritizer *scoring.Prioritizer
	validator   *scoring.AlignmentValidator
	scorer      *scoring.ConfidenceScorer
	calculator  *SetupCalculator
	queue       *SetupQueue
	clock       Clock
	logger      zerolog.Logger

	mu         sync.Mutex
	analyzers  map[string]*structure.Analyzer
	structures map[string]models.MarketStructure
}

// Options tunes the engine's risk and queue parameters. Zero values fall
// back to the built-in defaults.
type Options struct {
	MinRiskReward   float64
	QueueExpiry     time.Duration
	MaxQueuedSetups int
}

// New creates an engine with the system clock and default options.
func New(logger zerolog.Logger) *Engine {
	return NewWithOptions(logger, SystemClock(), Options{})
}

// NewWithClock creates an engine with an injected clock for deterministic
// expiry behavior in tests.
func NewWithClock(logger zerolog.Logger, clock Clock) *Engine {
	return NewWithOptions(logger, clock, Options{})
}

// NewWithOptions creates an engine with an injected clock and tuned
// options.
func NewWithOptions(logger zerolog.Logger, clock Clock, opts Options) *Engine {
	return &Engine{
		recognizers: patterns.AllRecognizers(),
		prioritizer: scoring.NewPrioritizer(),
		validator:   scoring.NewAlignmentValidator(),
		scorer:      scoring.NewConfidenceScorer(),
		calculator:  NewSetupCalculatorWith(opts.MinRiskReward, opts.QueueExpiry),
		queue:       NewSetupQueueWithCap(opts.MaxQueuedSetups),
		clock:       clock,
		logger:      logger.With().Str("component", "engine").Logger(),
		analyzers:   make(map[string]*structure.Analyzer),
		structures:  make(map[string]models.MarketStructure),
	}
}

// Analyze runs one analysis cycle for the symbol. A nil plan with a nil
// error means no actionable setup this cycle. Errors are reserved for
// malformed or too-short candle input.
func (e *Engine) Analyze(symbol string, candlesByTimeframe map[models.Timeframe][]models.Candle) (*models.TradePlan, error) {
	higherTF, secondaryTF, executionTF, err := timeframeRoles(candlesByTimeframe)
	if err != nil {
		return nil, err
	}

	for tf, candles := range candlesByTimeframe {
		if err := models.ValidateCandles(candles); err != nil {
			return nil, errors.NewDataError("candles", symbol, "malformed series on "+string(tf), err)
		}
	}

	execution := candlesByTimeframe[executionTF]
	if len(execution) < minExecutionCandles {
		return nil, errors.NewDataError("candles", symbol, "execution series too short", errors.ErrInsufficientData)
	}

	now := e.clock.Now()
	currentPrice := execution[len(execution)-1].Close
	logger := e.logger.With().Str("symbol", symbol).Logger()

	// Queued candidates are checked against live price before any fresh
	// detection and take priority over new patterns. Simultaneously
	// triggered setups are evaluated oldest first; the ones left after a
	// plan is produced go back into the queue for the next cycle.
	if triggered := e.queue.Sweep(symbol, currentPrice, now); len(triggered) > 0 {
		for i, setup := range triggered {
			logger.Info().
				Str("pattern", string(setup.Pattern.Type)).
				Float64("entry", setup.EntryPrice).
				Msg("Queued setup triggered")
			plan, err := e.finalize(symbol, setup.Pattern, nil, setup.Structure, execution, currentPrice, now, logger)
			if err != nil || plan != nil {
				for _, rest := range triggered[i+1:] {
					e.queue.Add(rest)
				}
				return plan, err
			}
		}
		return nil, nil
	}

	marketStructure := e.structureFor(symbol).Analyze(
		candlesByTimeframe[higherTF], higherTF, candlesByTimeframe[secondaryTF])
	e.mu.Lock()
	e.structures[symbol] = marketStructure
	e.mu.Unlock()

	candidates := e.detect(execution, marketStructure, executionTF)
	for i := range candidates {
		candidates[i] = patterns.Tag(candidates[i], execution, marketStructure)
		candidates[i].Validation.MultiTimeframeAlignment =
			marketStructure.Trend == structure.DetectTrend(candlesByTimeframe[secondaryTF]) &&
				candidates[i].Validation.MarketStructureAlignment
	}

	ranked := e.prioritizer.Prioritize(candidates, now)
	if len(ranked) == 0 {
		logger.Debug().Msg("No fresh patterns this cycle")
		return nil, nil
	}

	main := ranked[0]
	if ok, reason := e.validator.Validate(main, marketStructure, now); !ok {
		logger.Debug().
			Str("pattern", string(main.Type)).
			Str("reason", reason).
			Msg("Main pattern rejected by alignment gate")
		return nil, nil
	}

	return e.finalize(symbol, main, ranked, marketStructure, execution, currentPrice, now, logger)
}

// finalize runs setup calculation and confidence scoring for the chosen
// candidate, queueing it when the entry is not yet reachable.
func (e *Engine) finalize(symbol string, main models.Pattern, all []models.Pattern, marketStructure models.MarketStructure, execution []models.Candle, currentPrice float64, now time.Time, logger zerolog.Logger) (*models.TradePlan, error) {
	result := e.calculator.Calculate(symbol, main, marketStructure, execution, currentPrice, now)
	switch result.Outcome {
	case OutcomeDeferred:
		if e.queue.Add(*result.Deferred) {
			logger.Info().
				Str("pattern", string(main.Type)).
				Float64("entry", result.Deferred.EntryPrice).
				Time("expires", result.Deferred.ExpiryTime).
				Msg("Setup deferred to queue")
		} else {
			logger.Debug().Str("pattern", string(main.Type)).Msg("Deferred setup discarded as duplicate")
		}
		return nil, nil

	case OutcomeRejected:
		logger.Debug().
			Str("pattern", string(main.Type)).
			Str("reason", result.Reason).
			Msg("Setup rejected")
		return nil, nil
	}

	confidence := e.scorer.Score(main, all, execution, marketStructure)
	plan := result.Plan
	plan.ConfidenceScore = confidence.Score
	plan.IsAPlusSetup = confidence.IsAPlusSetup
	plan.APlusReasons = confidence.Reasons

	logger.Info().
		Str("direction", string(plan.Direction)).
		Float64("entry", plan.EntryPrice).
		Float64("stop", plan.StopLoss).
		Float64("rr", plan.RiskRewardRatio).
		Bool("a_plus", plan.IsAPlusSetup).
		Msg("Trade plan generated")
	return plan, nil
}

// detect runs every recognizer over the same candle window concurrently.
func (e *Engine) detect(candles []models.Candle, marketStructure models.MarketStructure, tf models.Timeframe) []models.Pattern {
	results := make([][]models.Pattern, len(e.recognizers))

	var wg sync.WaitGroup
	for i, r := range e.recognizers {
		wg.Add(1)
		go func(i int, r patterns.Recognizer) {
			defer wg.Done()
			results[i] = r.Detect(candles, marketStructure.Swings, tf)
		}(i, r)
	}
	wg.Wait()

	var all []models.Pattern
	for _, batch := range results {
		all = append(all, batch...)
	}
	return all
}

// Structure returns the symbol's most recently computed market
// structure. The zero value is returned before the first cycle.
func (e *Engine) Structure(symbol string) models.MarketStructure {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.structures[symbol]
}

// QueuedSetups returns the symbol's deferred setups, oldest first.
func (e *Engine) QueuedSetups(symbol string) []models.QueuedSetup {
	return e.queue.Setups(symbol)
}

// ClearQueue drops every deferred setup for the symbol.
func (e *Engine) ClearQueue(symbol string) {
	e.queue.Clear(symbol)
}

// RestoreQueue re-adds previously deferred setups, typically rehydrated
// from the journal after a restart. Already-expired setups are skipped
// and the usual duplicate and capacity rules apply. Reports how many
// setups were accepted.
func (e *Engine) RestoreQueue(setups []models.QueuedSetup) int {
	now := e.clock.Now()
	restored := 0
	for _, s := range setups {
		if s.Expired(now) {
			continue
		}
		if e.queue.Add(s) {
			restored++
		}
	}
	return restored
}

// structureFor returns the symbol's market structure analyzer, creating
// it on first use. Swing classification trackers persist per symbol.
func (e *Engine) structureFor(symbol string) *structure.Analyzer {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.analyzers[symbol]
	if !ok {
		a = structure.NewAnalyzer()
		e.analyzers[symbol] = a
	}
	return a
}

// timeframeRoles assigns the provided timeframes to the higher (trend),
// secondary (swings) and execution (entry) roles by descending weight.
// At least two distinct timeframes are required.
func timeframeRoles(candlesByTimeframe map[models.Timeframe][]models.Candle) (higher, secondary, execution models.Timeframe, err error) {
	tfs := make([]models.Timeframe, 0, len(candlesByTimeframe))
	for tf := range candlesByTimeframe {
		tfs = append(tfs, tf)
	}
	if len(tfs) < 2 {
		return "", "", "", errors.NewValidationError("timeframes", len(tfs), "need at least two timeframes")
	}

	sort.Slice(tfs, func(i, j int) bool { return tfs[i].Weight() > tfs[j].Weight() })

	higher = tfs[0]
	secondary = tfs[1]
	execution = tfs[len(tfs)-1]
	return higher, secondary, execution, nil
}
