// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"smc-trader/internal/models"
)

// DataStore defines the interface for the trade plan journal.
type DataStore interface {
	// Trade plans
	SavePlan(ctx context.Context, plan *models.TradePlan) error
	GetPlans(ctx context.Context, filter PlanFilter) ([]models.TradePlan, error)
	UpdatePlanStatus(ctx context.Context, planID string, status models.PlanStatus) error

	// Queued setup journal
	SaveQueuedSetup(ctx context.Context, setup *models.QueuedSetup) error
	DeleteQueuedSetup(ctx context.Context, id string) error
	GetQueuedSetups(ctx context.Context, symbol string) ([]models.QueuedSetup, error)

	// Lifecycle
	Close() error
}

// PlanFilter represents filters for querying trade plans.
type PlanFilter struct {
	Symbol    string
	Status    models.PlanStatus
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}
