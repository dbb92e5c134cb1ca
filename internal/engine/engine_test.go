package engine

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"smc-trader/internal/models"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func testCandleMap(price float64) map[models.Timeframe][]models.Candle {
	return map[models.Timeframe][]models.Candle{
		models.Timeframe4Hour: flatCandles(30, price),
		models.Timeframe1Hour: flatCandles(30, price),
	}
}

func TestAnalyzeRequiresTwoTimeframes(t *testing.T) {
	e := New(zerolog.Nop())

	_, err := e.Analyze("BTCUSDT", map[models.Timeframe][]models.Candle{
		models.Timeframe1Hour: flatCandles(30, 100),
	})
	if err == nil {
		t.Fatal("expected error for a single timeframe")
	}
}

func TestAnalyzeRequiresExecutionHistory(t *testing.T) {
	e := New(zerolog.Nop())

	_, err := e.Analyze("BTCUSDT", map[models.Timeframe][]models.Candle{
		models.Timeframe4Hour: flatCandles(30, 100),
		models.Timeframe1Hour: flatCandles(5, 100),
	})
	if err == nil {
		t.Fatal("expected error for a short execution series")
	}
}

func TestAnalyzeRejectsMalformedCandles(t *testing.T) {
	e := New(zerolog.Nop())

	candles := testCandleMap(100)
	bad := candles[models.Timeframe1Hour]
	// Break timestamp monotonicity.
	bad[5].Timestamp = bad[4].Timestamp

	if _, err := e.Analyze("BTCUSDT", candles); err == nil {
		t.Fatal("expected error for non-monotonic timestamps")
	}
}

func TestAnalyzeQuietMarket(t *testing.T) {
	e := New(zerolog.Nop())

	plan, err := e.Analyze("BTCUSDT", testCandleMap(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan != nil {
		t.Errorf("flat market produced a plan: %+v", plan)
	}
}

func TestAnalyzeTriggersQueuedSetup(t *testing.T) {
	clock := &fakeClock{now: calcNow}
	e := NewWithClock(zerolog.Nop(), clock)

	setup := models.QueuedSetup{
		ID:         "queued-1",
		Symbol:     "BTCUSDT",
		Pattern:    bullishPattern(100),
		Structure:  structureWith(99, 102),
		EntryPrice: 100,
		QueueTime:  calcNow.Add(-time.Hour),
		ExpiryTime: calcNow.Add(5 * time.Hour),
		PriceThreshold: models.PriceBand{
			Min: 99.5,
			Max: 100.5,
		},
	}
	if !e.queue.Add(setup) {
		t.Fatal("setup not queued")
	}

	// Current price 100.2 sits inside the band: the queued candidate is
	// promoted ahead of fresh detection.
	plan, err := e.Analyze("BTCUSDT", testCandleMap(100.2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan == nil {
		t.Fatal("expected a plan from the triggered setup")
	}
	if plan.EntryPrice != 100 || plan.StopLoss != 99 {
		t.Errorf("entry/stop = %.2f/%.2f, want 100/99", plan.EntryPrice, plan.StopLoss)
	}
	if plan.RiskRewardRatio != 2.0 {
		t.Errorf("risk/reward = %.2f, want 2.0", plan.RiskRewardRatio)
	}
	if got := e.QueuedSetups("BTCUSDT"); len(got) != 0 {
		t.Errorf("triggered setup still queued: %+v", got)
	}
}

func TestAnalyzeExpiresQueuedSetup(t *testing.T) {
	clock := &fakeClock{now: calcNow}
	e := NewWithClock(zerolog.Nop(), clock)

	setup := models.QueuedSetup{
		ID:         "queued-1",
		Symbol:     "BTCUSDT",
		Pattern:    bullishPattern(100),
		Structure:  structureWith(99, 102),
		EntryPrice: 100,
		QueueTime:  calcNow,
		ExpiryTime: calcNow.Add(6 * time.Hour),
		PriceThreshold: models.PriceBand{
			Min: 99.5,
			Max: 100.5,
		},
	}
	if !e.queue.Add(setup) {
		t.Fatal("setup not queued")
	}

	clock.now = calcNow.Add(7 * time.Hour)

	plan, err := e.Analyze("BTCUSDT", testCandleMap(100.2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan != nil {
		t.Errorf("expired setup produced a plan: %+v", plan)
	}
	if got := e.QueuedSetups("BTCUSDT"); len(got) != 0 {
		t.Errorf("expired setup still queued: %+v", got)
	}
}

func TestStructureCachedPerSymbol(t *testing.T) {
	e := New(zerolog.Nop())

	if _, err := e.Analyze("BTCUSDT", testCandleMap(100)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := e.Structure("BTCUSDT").Trend; got != models.TrendRanging {
		t.Errorf("cached trend = %s, want ranging", got)
	}
	// Unanalyzed symbols return the zero structure.
	if got := e.Structure("ETHUSDT"); got.Trend != "" || len(got.Swings) != 0 {
		t.Errorf("expected zero structure for unknown symbol, got %+v", got)
	}
}

func TestTimeframeRoles(t *testing.T) {
	m := map[models.Timeframe][]models.Candle{
		models.Timeframe1Day:  nil,
		models.Timeframe4Hour: nil,
		models.Timeframe15Min: nil,
	}

	higher, secondary, execution, err := timeframeRoles(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if higher != models.Timeframe1Day || secondary != models.Timeframe4Hour || execution != models.Timeframe15Min {
		t.Errorf("roles = %s/%s/%s, want 1d/4h/15m", higher, secondary, execution)
	}
}

func TestAnalyzeEvaluatesTriggeredSetupsInOrder(t *testing.T) {
	clock := &fakeClock{now: calcNow}
	e := NewWithClock(zerolog.Nop(), clock)

	// First setup has no qualifying target level, so its finalization is
	// rejected; the second must still be evaluated in the same cycle.
	noTargets := models.MarketStructure{
		Trend: models.TrendUp,
		Swings: []models.Swing{
			{Price: 99, Type: models.SwingHigherLow, Timestamp: calcNow.Add(-2 * time.Hour)},
		},
	}
	rejected := models.QueuedSetup{
		ID:             "queued-rejected",
		Symbol:         "BTCUSDT",
		Pattern:        bullishPattern(100),
		Structure:      noTargets,
		EntryPrice:     100,
		QueueTime:      calcNow.Add(-2 * time.Hour),
		ExpiryTime:     calcNow.Add(4 * time.Hour),
		PriceThreshold: models.PriceBand{Min: 99.5, Max: 100.5},
	}
	good := rejected
	good.ID = "queued-good"
	good.Pattern.Type = models.PatternFairValueGap
	good.Structure = structureWith(99, 102)
	good.QueueTime = calcNow.Add(-time.Hour)

	if !e.queue.Add(rejected) || !e.queue.Add(good) {
		t.Fatal("setups not queued")
	}

	plan, err := e.Analyze("BTCUSDT", testCandleMap(100.2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan == nil {
		t.Fatal("expected a plan from the second triggered setup")
	}
	if len(plan.TradingPatterns) != 1 || plan.TradingPatterns[0] != models.PatternFairValueGap {
		t.Errorf("patterns = %v, want the second setup's", plan.TradingPatterns)
	}
	if got := e.QueuedSetups("BTCUSDT"); len(got) != 0 {
		t.Errorf("queue not drained: %+v", got)
	}
}

func TestAnalyzeRequeuesUnconsumedTriggers(t *testing.T) {
	clock := &fakeClock{now: calcNow}
	e := NewWithClock(zerolog.Nop(), clock)

	first := models.QueuedSetup{
		ID:             "queued-first",
		Symbol:         "BTCUSDT",
		Pattern:        bullishPattern(100),
		Structure:      structureWith(99, 102),
		EntryPrice:     100,
		QueueTime:      calcNow.Add(-2 * time.Hour),
		ExpiryTime:     calcNow.Add(4 * time.Hour),
		PriceThreshold: models.PriceBand{Min: 99.5, Max: 100.5},
	}
	second := first
	second.ID = "queued-second"
	second.Pattern.Type = models.PatternFairValueGap
	second.QueueTime = calcNow.Add(-time.Hour)

	if !e.queue.Add(first) || !e.queue.Add(second) {
		t.Fatal("setups not queued")
	}

	plan, err := e.Analyze("BTCUSDT", testCandleMap(100.2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan == nil {
		t.Fatal("expected a plan from the first triggered setup")
	}

	// The second simultaneous trigger was not consumed, so it must be
	// back in the queue rather than silently discarded.
	got := e.QueuedSetups("BTCUSDT")
	if len(got) != 1 || got[0].ID != "queued-second" {
		t.Errorf("queued = %+v, want the unconsumed setup back", got)
	}
}

func TestEngineOptionsRiskRewardFloor(t *testing.T) {
	clock := &fakeClock{now: calcNow}
	e := NewWithOptions(zerolog.Nop(), clock, Options{MinRiskReward: 3.0})

	setup := models.QueuedSetup{
		ID:             "queued-1",
		Symbol:         "BTCUSDT",
		Pattern:        bullishPattern(100),
		Structure:      structureWith(99, 102),
		EntryPrice:     100,
		QueueTime:      calcNow.Add(-time.Hour),
		ExpiryTime:     calcNow.Add(5 * time.Hour),
		PriceThreshold: models.PriceBand{Min: 99.5, Max: 100.5},
	}
	if !e.queue.Add(setup) {
		t.Fatal("setup not queued")
	}

	// Risk/reward 2.0 passes the default floor but not the configured
	// 3.0: the configuration knob must reach the calculator.
	plan, err := e.Analyze("BTCUSDT", testCandleMap(100.2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan != nil {
		t.Errorf("plan produced below the configured risk/reward floor: %+v", plan)
	}
}

func TestRestoreQueueSkipsExpiredAndDuplicates(t *testing.T) {
	clock := &fakeClock{now: calcNow}
	e := NewWithClock(zerolog.Nop(), clock)

	valid := models.QueuedSetup{
		ID:             "restore-valid",
		Symbol:         "BTCUSDT",
		Pattern:        bullishPattern(100),
		Structure:      structureWith(99, 102),
		EntryPrice:     100,
		QueueTime:      calcNow.Add(-time.Hour),
		ExpiryTime:     calcNow.Add(5 * time.Hour),
		PriceThreshold: models.PriceBand{Min: 99.5, Max: 100.5},
	}
	expired := valid
	expired.ID = "restore-expired"
	expired.EntryPrice = 110
	expired.ExpiryTime = calcNow.Add(-time.Minute)
	duplicate := valid
	duplicate.ID = "restore-duplicate"

	if got := e.RestoreQueue([]models.QueuedSetup{expired, valid, duplicate}); got != 1 {
		t.Errorf("restored = %d, want 1", got)
	}
	setups := e.QueuedSetups("BTCUSDT")
	if len(setups) != 1 || setups[0].ID != "restore-valid" {
		t.Errorf("queued = %+v, want only the valid setup", setups)
	}
}
