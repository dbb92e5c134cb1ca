// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"smc-trader/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Trade plans emitted by the engine
	CREATE TABLE IF NOT EXISTS trade_plans (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		direction TEXT NOT NULL,
		entry_price REAL NOT NULL,
		stop_loss REAL NOT NULL,
		targets TEXT NOT NULL,
		confidence_score REAL NOT NULL,
		timeframe TEXT NOT NULL,
		risk_reward REAL NOT NULL,
		entry_conditions TEXT,
		exit_conditions TEXT,
		trading_patterns TEXT,
		is_a_plus INTEGER DEFAULT 0,
		a_plus_reasons TEXT,
		status TEXT NOT NULL DEFAULT 'PENDING',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_plans_symbol ON trade_plans(symbol);
	CREATE INDEX IF NOT EXISTS idx_plans_status ON trade_plans(status);
	CREATE INDEX IF NOT EXISTS idx_plans_created ON trade_plans(created_at);

	-- Journal of deferred setups for inspection across restarts
	CREATE TABLE IF NOT EXISTS queued_setups (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		pattern_type TEXT NOT NULL,
		direction TEXT NOT NULL,
		entry_price REAL NOT NULL,
		band_min REAL NOT NULL,
		band_max REAL NOT NULL,
		pattern TEXT NOT NULL,
		structure TEXT NOT NULL DEFAULT '{}',
		queue_time DATETIME NOT NULL,
		expiry_time DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_queued_symbol ON queued_setups(symbol);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SavePlan persists a trade plan.
func (s *SQLiteStore) SavePlan(ctx context.Context, plan *models.TradePlan) error {
	targets, err := json.Marshal(plan.Targets)
	if err != nil {
		return fmt.Errorf("marshaling targets: %w", err)
	}
	patternTypes, err := json.Marshal(plan.TradingPatterns)
	if err != nil {
		return fmt.Errorf("marshaling patterns: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO trade_plans (
			id, symbol, direction, entry_price, stop_loss, targets,
			confidence_score, timeframe, risk_reward, entry_conditions,
			exit_conditions, trading_patterns, is_a_plus, a_plus_reasons,
			status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		plan.ID, plan.Symbol, string(plan.Direction), plan.EntryPrice, plan.StopLoss,
		string(targets), plan.ConfidenceScore, string(plan.Timeframe), plan.RiskRewardRatio,
		strings.Join(plan.EntryConditions, "; "), strings.Join(plan.ExitConditions, "; "),
		string(patternTypes), boolToInt(plan.IsAPlusSetup), strings.Join(plan.APlusReasons, "; "),
		string(plan.Status), plan.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving plan: %w", err)
	}
	return nil
}

// GetPlans queries trade plans with the given filter.
func (s *SQLiteStore) GetPlans(ctx context.Context, filter PlanFilter) ([]models.TradePlan, error) {
	query := `SELECT id, symbol, direction, entry_price, stop_loss, targets,
		confidence_score, timeframe, risk_reward, entry_conditions,
		exit_conditions, trading_patterns, is_a_plus, a_plus_reasons,
		status, created_at FROM trade_plans WHERE 1=1`
	var args []interface{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if !filter.StartDate.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		query += " AND created_at <= ?"
		args = append(args, filter.EndDate)
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying plans: %w", err)
	}
	defer rows.Close()

	var plans []models.TradePlan
	for rows.Next() {
		var plan models.TradePlan
		var targets, patternTypes, entryConds, exitConds, aPlusReasons string
		var isAPlus int
		err := rows.Scan(
			&plan.ID, &plan.Symbol, &plan.Direction, &plan.EntryPrice, &plan.StopLoss,
			&targets, &plan.ConfidenceScore, &plan.Timeframe, &plan.RiskRewardRatio,
			&entryConds, &exitConds, &patternTypes, &isAPlus, &aPlusReasons,
			&plan.Status, &plan.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning plan: %w", err)
		}
		if err := json.Unmarshal([]byte(targets), &plan.Targets); err != nil {
			return nil, fmt.Errorf("unmarshaling targets: %w", err)
		}
		if err := json.Unmarshal([]byte(patternTypes), &plan.TradingPatterns); err != nil {
			return nil, fmt.Errorf("unmarshaling patterns: %w", err)
		}
		plan.EntryConditions = splitConditions(entryConds)
		plan.ExitConditions = splitConditions(exitConds)
		plan.APlusReasons = splitConditions(aPlusReasons)
		plan.IsAPlusSetup = isAPlus != 0
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

// UpdatePlanStatus updates a plan's lifecycle status.
func (s *SQLiteStore) UpdatePlanStatus(ctx context.Context, planID string, status models.PlanStatus) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE trade_plans SET status = ? WHERE id = ?", string(status), planID)
	if err != nil {
		return fmt.Errorf("updating plan status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("plan %s not found", planID)
	}
	return nil
}

// SaveQueuedSetup journals a deferred setup. The market structure the
// setup was deferred under is stored with it so rehydrated setups can
// still resolve stops and targets.
func (s *SQLiteStore) SaveQueuedSetup(ctx context.Context, setup *models.QueuedSetup) error {
	pattern, err := json.Marshal(setup.Pattern)
	if err != nil {
		return fmt.Errorf("marshaling pattern: %w", err)
	}
	structure, err := json.Marshal(setup.Structure)
	if err != nil {
		return fmt.Errorf("marshaling structure: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO queued_setups (
			id, symbol, pattern_type, direction, entry_price,
			band_min, band_max, pattern, structure, queue_time, expiry_time
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		setup.ID, setup.Symbol, string(setup.Pattern.Type), string(setup.Pattern.Direction),
		setup.EntryPrice, setup.PriceThreshold.Min, setup.PriceThreshold.Max,
		string(pattern), string(structure), setup.QueueTime, setup.ExpiryTime,
	)
	if err != nil {
		return fmt.Errorf("saving queued setup: %w", err)
	}
	return nil
}

// DeleteQueuedSetup removes a journaled setup by ID.
func (s *SQLiteStore) DeleteQueuedSetup(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM queued_setups WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting queued setup: %w", err)
	}
	return nil
}

// GetQueuedSetups returns journaled setups for the symbol, oldest first.
func (s *SQLiteStore) GetQueuedSetups(ctx context.Context, symbol string) ([]models.QueuedSetup, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, entry_price, band_min, band_max, pattern, structure, queue_time, expiry_time
		FROM queued_setups WHERE symbol = ? ORDER BY queue_time ASC`, symbol)
	if err != nil {
		return nil, fmt.Errorf("querying queued setups: %w", err)
	}
	defer rows.Close()

	var setups []models.QueuedSetup
	for rows.Next() {
		var setup models.QueuedSetup
		var pattern, structure string
		err := rows.Scan(&setup.ID, &setup.Symbol, &setup.EntryPrice,
			&setup.PriceThreshold.Min, &setup.PriceThreshold.Max,
			&pattern, &structure, &setup.QueueTime, &setup.ExpiryTime)
		if err != nil {
			return nil, fmt.Errorf("scanning queued setup: %w", err)
		}
		if err := json.Unmarshal([]byte(pattern), &setup.Pattern); err != nil {
			return nil, fmt.Errorf("unmarshaling pattern: %w", err)
		}
		if err := json.Unmarshal([]byte(structure), &setup.Structure); err != nil {
			return nil, fmt.Errorf("unmarshaling structure: %w", err)
		}
		setups = append(setups, setup)
	}
	return setups, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func splitConditions(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "; ")
}
