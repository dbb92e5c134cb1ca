package models

import "time"

// PlanStatus represents the lifecycle status of a trade plan.
type PlanStatus string

const (
	PlanPending   PlanStatus = "PENDING"
	PlanTriggered PlanStatus = "TRIGGERED"
	PlanExpired   PlanStatus = "EXPIRED"
	PlanCancelled PlanStatus = "CANCELLED"
)

// TradePlan represents an actionable trade proposal. A nil plan is a
// valid, expected outcome meaning "no actionable setup".
type TradePlan struct {
	ID              string
	Symbol          string
	Direction       Side
	EntryPrice      float64
	StopLoss        float64
	Targets         []float64 // 1-3 targets, nearest first
	ConfidenceScore float64
	Timeframe       Timeframe
	RiskRewardRatio float64
	EntryConditions []string
	ExitConditions  []string
	TradingPatterns []PatternType
	IsAPlusSetup    bool
	APlusReasons    []string
	Status          PlanStatus
	CreatedAt       time.Time
}

// PriceBand is the inclusive price range within which a queued setup
// triggers.
type PriceBand struct {
	Min float64
	Max float64
}

// Contains reports whether price falls inside the band.
func (b PriceBand) Contains(price float64) bool {
	return price >= b.Min && price <= b.Max
}

// QueuedSetup represents a deferred trade candidate whose entry price has
// not yet been reached. Owned exclusively by the setup queue: created on
// deferral, never mutated, destroyed on trigger, expiry or explicit clear.
type QueuedSetup struct {
	ID             string
	Symbol         string
	Pattern        Pattern
	Structure      MarketStructure
	EntryPrice     float64
	QueueTime      time.Time
	ExpiryTime     time.Time
	PriceThreshold PriceBand
}

// Expired reports whether the setup has passed its expiry time.
func (q QueuedSetup) Expired(now time.Time) bool {
	return now.After(q.ExpiryTime)
}
