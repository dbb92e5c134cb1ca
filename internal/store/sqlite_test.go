package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"smc-trader/internal/models"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testPlan(id, symbol string, createdAt time.Time) *models.TradePlan {
	return &models.TradePlan{
		ID:              id,
		Symbol:          symbol,
		Direction:       models.SideLong,
		EntryPrice:      100,
		StopLoss:        99,
		Targets:         []float64{102, 105},
		ConfidenceScore: 0.8,
		Timeframe:       models.Timeframe1Hour,
		RiskRewardRatio: 2.0,
		EntryConditions: []string{"order_block bullish at 100 on 1h", "enter LONG within entry band"},
		ExitConditions:  []string{"stop loss at 99", "target 1 at 102"},
		TradingPatterns: []models.PatternType{models.PatternOrderBlock},
		IsAPlusSetup:    true,
		APlusReasons:    []string{"volume spike above average", "strong key level nearby"},
		Status:          models.PlanPending,
		CreatedAt:       createdAt,
	}
}

func TestSaveAndGetPlan(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	created := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	if err := s.SavePlan(ctx, testPlan("plan-1", "BTCUSDT", created)); err != nil {
		t.Fatalf("saving plan: %v", err)
	}

	plans, err := s.GetPlans(ctx, PlanFilter{Symbol: "BTCUSDT"})
	if err != nil {
		t.Fatalf("getting plans: %v", err)
	}
	if len(plans) != 1 {
		t.Fatalf("got %d plans, want 1", len(plans))
	}

	got := plans[0]
	if got.ID != "plan-1" || got.Direction != models.SideLong || got.EntryPrice != 100 {
		t.Errorf("plan = %+v", got)
	}
	if len(got.Targets) != 2 || got.Targets[0] != 102 || got.Targets[1] != 105 {
		t.Errorf("targets = %v, want [102 105]", got.Targets)
	}
	if len(got.TradingPatterns) != 1 || got.TradingPatterns[0] != models.PatternOrderBlock {
		t.Errorf("patterns = %v", got.TradingPatterns)
	}
	if !got.IsAPlusSetup || len(got.APlusReasons) != 2 {
		t.Errorf("A+ fields lost: %+v", got)
	}
	if len(got.EntryConditions) != 2 || len(got.ExitConditions) != 2 {
		t.Errorf("conditions lost: %+v", got)
	}
}

func TestGetPlansFilters(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	for i, spec := range []struct {
		id, symbol string
		status     models.PlanStatus
	}{
		{"p1", "BTCUSDT", models.PlanPending},
		{"p2", "BTCUSDT", models.PlanTriggered},
		{"p3", "ETHUSDT", models.PlanPending},
	} {
		p := testPlan(spec.id, spec.symbol, base.Add(time.Duration(i)*time.Hour))
		p.Status = spec.status
		if err := s.SavePlan(ctx, p); err != nil {
			t.Fatalf("saving %s: %v", spec.id, err)
		}
	}

	bySymbol, err := s.GetPlans(ctx, PlanFilter{Symbol: "BTCUSDT"})
	if err != nil {
		t.Fatalf("filter by symbol: %v", err)
	}
	if len(bySymbol) != 2 {
		t.Errorf("symbol filter returned %d plans, want 2", len(bySymbol))
	}
	// Newest first.
	if bySymbol[0].ID != "p2" {
		t.Errorf("first plan = %s, want newest p2", bySymbol[0].ID)
	}

	byStatus, err := s.GetPlans(ctx, PlanFilter{Status: models.PlanPending})
	if err != nil {
		t.Fatalf("filter by status: %v", err)
	}
	if len(byStatus) != 2 {
		t.Errorf("status filter returned %d plans, want 2", len(byStatus))
	}

	limited, err := s.GetPlans(ctx, PlanFilter{Limit: 1})
	if err != nil {
		t.Fatalf("limit: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limit returned %d plans, want 1", len(limited))
	}

	windowed, err := s.GetPlans(ctx, PlanFilter{
		StartDate: base.Add(30 * time.Minute),
		EndDate:   base.Add(90 * time.Minute),
	})
	if err != nil {
		t.Fatalf("date window: %v", err)
	}
	if len(windowed) != 1 || windowed[0].ID != "p2" {
		t.Errorf("date window returned %+v, want only p2", windowed)
	}
}

func TestUpdatePlanStatus(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.SavePlan(ctx, testPlan("p1", "BTCUSDT", time.Now().UTC())); err != nil {
		t.Fatalf("saving plan: %v", err)
	}

	if err := s.UpdatePlanStatus(ctx, "p1", models.PlanTriggered); err != nil {
		t.Fatalf("updating status: %v", err)
	}
	plans, err := s.GetPlans(ctx, PlanFilter{Symbol: "BTCUSDT"})
	if err != nil {
		t.Fatalf("getting plans: %v", err)
	}
	if plans[0].Status != models.PlanTriggered {
		t.Errorf("status = %s, want TRIGGERED", plans[0].Status)
	}

	if err := s.UpdatePlanStatus(ctx, "missing", models.PlanCancelled); err == nil {
		t.Error("expected error for unknown plan ID")
	}
}

func TestQueuedSetupRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	setup := &models.QueuedSetup{
		ID:     "setup-1",
		Symbol: "BTCUSDT",
		Pattern: models.Pattern{
			Type:       models.PatternOrderBlock,
			Direction:  models.DirectionBullish,
			Price:      100,
			Confidence: 0.75,
			Timeframe:  models.Timeframe1Hour,
			Timestamp:  now.Add(-time.Hour),
		},
		Structure: models.MarketStructure{
			Trend: models.TrendUp,
			Swings: []models.Swing{
				{Price: 99, Type: models.SwingHigherLow, Timestamp: now.Add(-2 * time.Hour)},
			},
			KeyLevels: []models.KeyLevel{
				{Price: 102, Type: models.LevelResistance, Strength: 0.9},
			},
		},
		EntryPrice:     100,
		QueueTime:      now,
		ExpiryTime:     now.Add(6 * time.Hour),
		PriceThreshold: models.PriceBand{Min: 99.5, Max: 100.5},
	}

	if err := s.SaveQueuedSetup(ctx, setup); err != nil {
		t.Fatalf("saving setup: %v", err)
	}

	setups, err := s.GetQueuedSetups(ctx, "BTCUSDT")
	if err != nil {
		t.Fatalf("getting setups: %v", err)
	}
	if len(setups) != 1 {
		t.Fatalf("got %d setups, want 1", len(setups))
	}
	got := setups[0]
	if got.ID != "setup-1" || got.EntryPrice != 100 {
		t.Errorf("setup = %+v", got)
	}
	if got.PriceThreshold.Min != 99.5 || got.PriceThreshold.Max != 100.5 {
		t.Errorf("band = %+v, want [99.5, 100.5]", got.PriceThreshold)
	}
	if got.Pattern.Type != models.PatternOrderBlock || got.Pattern.Direction != models.DirectionBullish {
		t.Errorf("pattern lost in round trip: %+v", got.Pattern)
	}
	if got.Structure.Trend != models.TrendUp || len(got.Structure.Swings) != 1 || len(got.Structure.KeyLevels) != 1 {
		t.Errorf("structure lost in round trip: %+v", got.Structure)
	}

	if err := s.DeleteQueuedSetup(ctx, "setup-1"); err != nil {
		t.Fatalf("deleting setup: %v", err)
	}
	setups, err = s.GetQueuedSetups(ctx, "BTCUSDT")
	if err != nil {
		t.Fatalf("getting setups after delete: %v", err)
	}
	if len(setups) != 0 {
		t.Errorf("setup still present after delete: %+v", setups)
	}
}
