package cli

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"smc-trader/internal/engine"
	"smc-trader/internal/models"
	"smc-trader/internal/store"
)

func testApp(t *testing.T) *App {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return &App{
		Logger: zerolog.Nop(),
		Engine: engine.New(zerolog.Nop()),
		Store:  s,
	}
}

func journalSetup(id string, entry float64) models.QueuedSetup {
	now := time.Now()
	return models.QueuedSetup{
		ID:     id,
		Symbol: "BTCUSDT",
		Pattern: models.Pattern{
			Type:      models.PatternOrderBlock,
			Direction: models.DirectionBullish,
			Price:     entry,
			Timeframe: models.Timeframe1Hour,
			Timestamp: now.Add(-time.Hour),
		},
		Structure: models.MarketStructure{
			Trend: models.TrendUp,
			Swings: []models.Swing{
				{Price: entry - 1, Type: models.SwingHigherLow, Timestamp: now.Add(-2 * time.Hour)},
			},
		},
		EntryPrice: entry,
		QueueTime:  now.Add(-time.Hour),
		ExpiryTime: now.Add(5 * time.Hour),
		PriceThreshold: models.PriceBand{
			Min: entry * 0.995,
			Max: entry * 1.005,
		},
	}
}

func TestRestoreQueueFromJournal(t *testing.T) {
	app := testApp(t)
	ctx := context.Background()

	journaled := journalSetup("journal-1", 100)
	if err := app.Store.SaveQueuedSetup(ctx, &journaled); err != nil {
		t.Fatalf("saving setup: %v", err)
	}

	// A fresh engine starts empty; the journal row must come back.
	restoreQueue(ctx, app, "BTCUSDT")

	setups := app.Engine.QueuedSetups("BTCUSDT")
	if len(setups) != 1 || setups[0].ID != "journal-1" {
		t.Fatalf("queued = %+v, want the journaled setup", setups)
	}
	if setups[0].Structure.Trend != models.TrendUp {
		t.Errorf("structure not restored: %+v", setups[0].Structure)
	}
}

func TestSyncQueueJournal(t *testing.T) {
	app := testApp(t)
	ctx := context.Background()

	// Live in the engine but not yet journaled.
	live := journalSetup("sync-live", 100)
	if n := app.Engine.RestoreQueue([]models.QueuedSetup{live}); n != 1 {
		t.Fatalf("restored = %d, want 1", n)
	}
	// Journaled but no longer held by the engine (triggered or evicted).
	stale := journalSetup("sync-stale", 110)
	if err := app.Store.SaveQueuedSetup(ctx, &stale); err != nil {
		t.Fatalf("saving setup: %v", err)
	}

	syncQueueJournal(ctx, app, "BTCUSDT")

	rows, err := app.Store.GetQueuedSetups(ctx, "BTCUSDT")
	if err != nil {
		t.Fatalf("reading journal: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "sync-live" {
		t.Errorf("journal = %+v, want only the live setup", rows)
	}
}

func TestSyncQueueJournalAfterClear(t *testing.T) {
	app := testApp(t)
	ctx := context.Background()

	setup := journalSetup("clear-1", 100)
	if err := app.Store.SaveQueuedSetup(ctx, &setup); err != nil {
		t.Fatalf("saving setup: %v", err)
	}
	restoreQueue(ctx, app, "BTCUSDT")

	app.Engine.ClearQueue("BTCUSDT")
	syncQueueJournal(ctx, app, "BTCUSDT")

	rows, err := app.Store.GetQueuedSetups(ctx, "BTCUSDT")
	if err != nil {
		t.Fatalf("reading journal: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("journal not pruned after clear: %+v", rows)
	}
}
