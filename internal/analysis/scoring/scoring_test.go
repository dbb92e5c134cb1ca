package scoring

import (
	"math"
	"strings"
	"testing"
	"time"

	"smc-trader/internal/models"
)

var testNow = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func pattern(t models.PatternType, dir models.Direction, tf models.Timeframe, conf float64, age time.Duration) models.Pattern {
	return models.Pattern{
		Type:       t,
		Direction:  dir,
		Price:      100,
		Confidence: conf,
		Timeframe:  tf,
		Timestamp:  testNow.Add(-age),
	}
}

func TestPrioritizeOrdering(t *testing.T) {
	p := NewPrioritizer()

	candidates := []models.Pattern{
		pattern(models.PatternFairValueGap, models.DirectionBullish, models.Timeframe1Hour, 0.70, time.Hour),
		pattern(models.PatternOrderBlock, models.DirectionBullish, models.Timeframe1Hour, 0.75, time.Hour),
		pattern(models.PatternBOS, models.DirectionBullish, models.Timeframe1Hour, 0.90, time.Hour),
		pattern(models.PatternChoCH, models.DirectionBullish, models.Timeframe1Hour, 0.85, time.Hour),
		pattern(models.PatternLiquidityGrab, models.DirectionBullish, models.Timeframe1Hour, 0.60, time.Hour),
	}

	got := p.Prioritize(candidates, testNow)

	wantOrder := []models.PatternType{
		models.PatternBOS,
		models.PatternChoCH,
		models.PatternLiquidityGrab,
		models.PatternOrderBlock,
		models.PatternFairValueGap,
	}
	if len(got) != len(wantOrder) {
		t.Fatalf("got %d patterns, want %d", len(got), len(wantOrder))
	}
	for i, want := range wantOrder {
		if got[i].Type != want {
			t.Errorf("position %d: got %s, want %s", i, got[i].Type, want)
		}
	}
}

func TestPrioritizeTieBreaks(t *testing.T) {
	p := NewPrioritizer()

	// Same type: higher timeframe wins; same type and timeframe: higher
	// confidence wins; then recency.
	candidates := []models.Pattern{
		pattern(models.PatternBOS, models.DirectionBullish, models.Timeframe1Hour, 0.90, time.Hour),
		pattern(models.PatternBOS, models.DirectionBullish, models.Timeframe4Hour, 0.80, time.Hour),
		pattern(models.PatternBOS, models.DirectionBullish, models.Timeframe1Hour, 0.95, 2*time.Hour),
		pattern(models.PatternBOS, models.DirectionBullish, models.Timeframe1Hour, 0.90, 30*time.Minute),
	}

	got := p.Prioritize(candidates, testNow)
	if len(got) != 4 {
		t.Fatalf("got %d patterns, want 4", len(got))
	}
	if got[0].Timeframe != models.Timeframe4Hour {
		t.Errorf("first should be the 4h pattern, got %s %0.2f", got[0].Timeframe, got[0].Confidence)
	}
	if got[1].Confidence != 0.95 {
		t.Errorf("second should be the 0.95 pattern, got %.2f", got[1].Confidence)
	}
	if !got[2].Timestamp.After(got[3].Timestamp) {
		t.Error("equal-confidence patterns should order newest first")
	}
}

func TestPrioritizeDropsStale(t *testing.T) {
	p := NewPrioritizer()

	candidates := []models.Pattern{
		pattern(models.PatternBOS, models.DirectionBullish, models.Timeframe1Hour, 0.90, 30*time.Hour),
		pattern(models.PatternFairValueGap, models.DirectionBullish, models.Timeframe1Hour, 0.70, 2*time.Hour),
	}

	got := p.Prioritize(candidates, testNow)
	if len(got) != 1 || got[0].Type != models.PatternFairValueGap {
		t.Errorf("expected only the fresh gap to survive, got %+v", got)
	}
}

func TestValidateGates(t *testing.T) {
	v := NewAlignmentValidator()

	recentHL := models.Swing{Price: 99, Type: models.SwingHigherLow, Timestamp: testNow.Add(-time.Hour)}
	staleHL := models.Swing{Price: 99, Type: models.SwingHigherLow, Timestamp: testNow.Add(-30 * time.Hour)}
	strongLevel := models.KeyLevel{Price: 100.1, Type: models.LevelSupport, Strength: 0.9}
	weakLevel := models.KeyLevel{Price: 100.1, Type: models.LevelSupport, Strength: 0.4}
	resistance := models.KeyLevel{Price: 100.2, Type: models.LevelResistance, Strength: 0.9}

	tests := []struct {
		name       string
		p          models.Pattern
		structure  models.MarketStructure
		wantOK     bool
		wantReason string
	}{
		{
			name:       "counter-trend rejected",
			p:          pattern(models.PatternBOS, models.DirectionBullish, models.Timeframe1Hour, 0.9, time.Hour),
			structure:  models.MarketStructure{Trend: models.TrendDown},
			wantReason: "opposes confirmed trend",
		},
		{
			name: "BOS with confirmation swing",
			p:    pattern(models.PatternBOS, models.DirectionBullish, models.Timeframe1Hour, 0.9, time.Hour),
			structure: models.MarketStructure{
				Trend:  models.TrendUp,
				Swings: []models.Swing{recentHL},
			},
			wantOK: true,
		},
		{
			name: "BOS with only stale confirmation",
			p:    pattern(models.PatternBOS, models.DirectionBullish, models.Timeframe1Hour, 0.9, time.Hour),
			structure: models.MarketStructure{
				Trend:  models.TrendUp,
				Swings: []models.Swing{staleHL},
			},
			wantReason: "no recent confirmation swing",
		},
		{
			name: "grab on strong level",
			p:    pattern(models.PatternLiquidityGrab, models.DirectionBullish, models.Timeframe1Hour, 0.6, time.Hour),
			structure: models.MarketStructure{
				Trend:     models.TrendRanging,
				KeyLevels: []models.KeyLevel{strongLevel},
			},
			wantOK: true,
		},
		{
			name: "grab on weak level rejected",
			p:    pattern(models.PatternLiquidityGrab, models.DirectionBullish, models.Timeframe1Hour, 0.6, time.Hour),
			structure: models.MarketStructure{
				Trend:     models.TrendRanging,
				KeyLevels: []models.KeyLevel{weakLevel},
			},
			wantReason: "no strong key level near grab",
		},
		{
			name: "order block on support",
			p:    pattern(models.PatternOrderBlock, models.DirectionBullish, models.Timeframe1Hour, 0.75, time.Hour),
			structure: models.MarketStructure{
				Trend:     models.TrendUp,
				KeyLevels: []models.KeyLevel{weakLevel},
			},
			wantOK: true,
		},
		{
			name: "order block volume fallback",
			p: func() models.Pattern {
				p := pattern(models.PatternOrderBlock, models.DirectionBullish, models.Timeframe1Hour, 0.75, time.Hour)
				p.Validation.VolumeConfirmation = true
				return p
			}(),
			structure: models.MarketStructure{Trend: models.TrendUp},
			wantOK:    true,
		},
		{
			name:       "order block unbacked",
			p:          pattern(models.PatternOrderBlock, models.DirectionBullish, models.Timeframe1Hour, 0.75, time.Hour),
			structure:  models.MarketStructure{Trend: models.TrendUp, KeyLevels: []models.KeyLevel{resistance}},
			wantReason: "lacks both key level backing and volume",
		},
		{
			name: "gap through level rejected",
			p:    pattern(models.PatternFairValueGap, models.DirectionBullish, models.Timeframe1Hour, 0.7, time.Hour),
			structure: models.MarketStructure{
				Trend:     models.TrendUp,
				KeyLevels: []models.KeyLevel{strongLevel},
			},
			wantReason: "key level inside gap",
		},
		{
			name:      "clean gap accepted",
			p:         pattern(models.PatternFairValueGap, models.DirectionBullish, models.Timeframe1Hour, 0.7, time.Hour),
			structure: models.MarketStructure{Trend: models.TrendUp},
			wantOK:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := v.Validate(tt.p, tt.structure, testNow)
			if ok != tt.wantOK {
				t.Fatalf("Validate() = %v (%q), want ok=%v", ok, reason, tt.wantOK)
			}
			if !tt.wantOK && !strings.Contains(reason, tt.wantReason) {
				t.Errorf("reason %q does not contain %q", reason, tt.wantReason)
			}
		})
	}
}

func TestScoreAPlusSetup(t *testing.T) {
	s := NewConfidenceScorer()

	main := pattern(models.PatternBOS, models.DirectionBullish, models.Timeframe1Hour, 0.75, time.Hour)
	main.Volume = 400
	main.AverageVolume = 200
	main.PriceAction.CleanBreak = true

	confluent := pattern(models.PatternOrderBlock, models.DirectionBullish, models.Timeframe1Hour, 0.75, time.Hour)
	confluent.Price = 100.2

	structure := models.MarketStructure{
		Trend: models.TrendUp,
		KeyLevels: []models.KeyLevel{
			{Price: 100.1, Type: models.LevelSupport, Strength: 0.9},
		},
	}

	got := s.Score(main, []models.Pattern{main, confluent}, nil, structure)

	// Trend alignment, confluence, volume spike, clean break, strong level.
	if got.CriteriaMet != 5 {
		t.Fatalf("criteria met = %d (%v), want 5", got.CriteriaMet, got.Reasons)
	}
	if !got.IsAPlusSetup {
		t.Error("expected A+ setup at 5 criteria")
	}
	if math.Abs(got.Score-0.80) > 1e-9 {
		t.Errorf("score = %.4f, want boosted 0.80", got.Score)
	}
}

func TestScoreBoostCapped(t *testing.T) {
	s := NewConfidenceScorer()

	main := pattern(models.PatternBOS, models.DirectionBullish, models.Timeframe1Hour, 0.98, time.Hour)
	main.Volume = 400
	main.AverageVolume = 200
	main.PriceAction.CleanBreak = true
	main.Validation.MarketStructureAlignment = true

	confluent := main
	confluent.Price = 100.1

	structure := models.MarketStructure{Trend: models.TrendUp}

	got := s.Score(main, []models.Pattern{main, confluent}, nil, structure)
	if got.CriteriaMet < 5 {
		t.Fatalf("criteria met = %d, want >= 5", got.CriteriaMet)
	}
	if got.Score != 1.0 {
		t.Errorf("score = %.4f, want capped at 1.0", got.Score)
	}
}

func TestScoreWeakSetup(t *testing.T) {
	s := NewConfidenceScorer()

	main := pattern(models.PatternFairValueGap, models.DirectionBullish, models.Timeframe1Hour, 0.70, time.Hour)
	got := s.Score(main, []models.Pattern{main}, nil, models.MarketStructure{Trend: models.TrendRanging})

	if got.CriteriaMet != 0 {
		t.Errorf("criteria met = %d (%v), want 0", got.CriteriaMet, got.Reasons)
	}
	if got.IsAPlusSetup {
		t.Error("weak setup must not be A+")
	}
	if got.Score != 0.70 {
		t.Errorf("score = %.4f, want unboosted 0.70", got.Score)
	}
}

func TestHasStopCluster(t *testing.T) {
	main := pattern(models.PatternLiquidityGrab, models.DirectionBullish, models.Timeframe1Hour, 0.6, time.Hour)

	level := models.KeyLevel{Price: 100.2, Type: models.LevelSupport, Strength: 0.9}
	touching := models.Candle{Low: 100, High: 100.5}
	clear := models.Candle{Low: 101, High: 102}

	if !hasStopCluster(main, []models.KeyLevel{level}, []models.Candle{touching, touching, touching}) {
		t.Error("three wick touches at a matching level should count as a stop cluster")
	}
	if hasStopCluster(main, []models.KeyLevel{level}, []models.Candle{touching, touching, clear}) {
		t.Error("two touches must not count")
	}
	// Opposite-side level never matches a bullish pattern.
	opposite := models.KeyLevel{Price: 100.2, Type: models.LevelResistance, Strength: 0.9}
	if hasStopCluster(main, []models.KeyLevel{opposite}, []models.Candle{touching, touching, touching}) {
		t.Error("resistance must not back a bullish stop cluster")
	}
}
