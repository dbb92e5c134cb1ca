package cli

import (
	"context"
)

// restoreQueue rehydrates the engine's deferred-setup queue for the
// symbol from the journal. Safe to call before every cycle; the engine
// skips expired rows and drops duplicates of setups it already holds.
func restoreQueue(ctx context.Context, app *App, symbol string) {
	if app.Store == nil {
		return
	}
	rows, err := app.Store.GetQueuedSetups(ctx, symbol)
	if err != nil {
		app.Logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to read queued-setup journal")
		return
	}
	if n := app.Engine.RestoreQueue(rows); n > 0 {
		app.Logger.Debug().Int("restored", n).Str("symbol", symbol).Msg("Queued setups restored from journal")
	}
}

// syncQueueJournal writes the engine's live queue for the symbol to the
// journal and prunes rows the engine no longer holds because they
// triggered, expired or were evicted.
func syncQueueJournal(ctx context.Context, app *App, symbol string) {
	if app.Store == nil {
		return
	}

	live := app.Engine.QueuedSetups(symbol)
	liveIDs := make(map[string]bool, len(live))
	for i := range live {
		liveIDs[live[i].ID] = true
		if err := app.Store.SaveQueuedSetup(ctx, &live[i]); err != nil {
			app.Logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to journal queued setup")
		}
	}

	rows, err := app.Store.GetQueuedSetups(ctx, symbol)
	if err != nil {
		app.Logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to read queued-setup journal")
		return
	}
	for _, row := range rows {
		if liveIDs[row.ID] {
			continue
		}
		if err := app.Store.DeleteQueuedSetup(ctx, row.ID); err != nil {
			app.Logger.Warn().Err(err).Str("id", row.ID).Msg("Failed to prune journaled setup")
		}
	}
}
