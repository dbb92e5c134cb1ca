package engine

import (
	"math"
	"sync"
	"time"

	"smc-trader/internal/models"
)

const (
	// maxQueuedPerSymbol bounds each symbol's queue; the oldest entry is
	// evicted when a new candidate arrives at capacity.
	maxQueuedPerSymbol = 10

	// duplicateEntryDistance is the relative entry-price distance within
	// which two setups of the same type and direction are duplicates.
	duplicateEntryDistance = 0.003
)

// SetupQueue is the time-bounded, deduplicated holding area for deferred
// trade candidates. State is partitioned per symbol; all mutation funnels
// through Add, Sweep and Clear.
type SetupQueue struct {
	maxPerSymbol int

	mu     sync.Mutex
	queues map[string][]models.QueuedSetup
}

// NewSetupQueue creates an empty setup queue with the default per-symbol
// capacity.
func NewSetupQueue() *SetupQueue {
	return NewSetupQueueWithCap(0)
}

// NewSetupQueueWithCap creates an empty setup queue bounding each
// symbol's queue at capPerSymbol. Zero or negative falls back to the
// default capacity.
func NewSetupQueueWithCap(capPerSymbol int) *SetupQueue {
	if capPerSymbol <= 0 {
		capPerSymbol = maxQueuedPerSymbol
	}
	return &SetupQueue{
		maxPerSymbol: capPerSymbol,
		queues:       make(map[string][]models.QueuedSetup),
	}
}

// Add inserts a deferred setup. Candidates matching an existing entry's
// pattern type, direction and entry price are discarded as duplicates.
// At capacity the oldest entry is evicted first. Reports whether the
// setup was queued.
func (q *SetupQueue) Add(setup models.QueuedSetup) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries := q.queues[setup.Symbol]
	for _, e := range entries {
		if e.Pattern.Type == setup.Pattern.Type &&
			e.Pattern.Direction == setup.Pattern.Direction &&
			math.Abs(e.EntryPrice-setup.EntryPrice)/setup.EntryPrice <= duplicateEntryDistance {
			return false
		}
	}

	if len(entries) >= q.maxPerSymbol {
		entries = entries[1:]
	}
	q.queues[setup.Symbol] = append(entries, setup)
	return true
}

// Sweep purges expired entries for the symbol and pops entries whose
// price band contains the current price. Triggered setups are returned
// oldest first and no longer live in the queue.
func (q *SetupQueue) Sweep(symbol string, currentPrice float64, now time.Time) []models.QueuedSetup {
	q.mu.Lock()
	defer q.mu.Unlock()

	var kept []models.QueuedSetup
	var triggered []models.QueuedSetup
	for _, e := range q.queues[symbol] {
		switch {
		case e.Expired(now):
			// dropped
		case e.PriceThreshold.Contains(currentPrice):
			triggered = append(triggered, e)
		default:
			kept = append(kept, e)
		}
	}
	q.queues[symbol] = kept
	return triggered
}

// Setups returns a copy of the symbol's queued setups, oldest first.
func (q *SetupQueue) Setups(symbol string) []models.QueuedSetup {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries := q.queues[symbol]
	out := make([]models.QueuedSetup, len(entries))
	copy(out, entries)
	return out
}

// Clear removes every queued setup for the symbol.
func (q *SetupQueue) Clear(symbol string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.queues, symbol)
}

// Len returns the number of setups queued for the symbol.
func (q *SetupQueue) Len(symbol string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queues[symbol])
}
