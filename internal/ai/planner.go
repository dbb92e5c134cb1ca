package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"smc-trader/internal/errors"
	"smc-trader/internal/models"
)

// minRiskReward mirrors the engine's acceptance floor; AI plans below it
// are discarded.
const minRiskReward = 1.5

// Planner asks the LLM for an alternative trade plan from a market
// summary and validates the response before returning it.
type Planner struct {
	client LLMClient
}

// NewPlanner creates a planner over the given LLM client.
func NewPlanner(client LLMClient) *Planner {
	return &Planner{client: client}
}

// rawPlan is the duck-typed shape expected from the model. Unknown or
// missing fields surface during validation, never downstream.
type rawPlan struct {
	Direction  string    `json:"direction"`
	EntryPrice float64   `json:"entry_price"`
	StopLoss   float64   `json:"stop_loss"`
	Targets    []float64 `json:"targets"`
	Confidence float64   `json:"confidence"`
	Reasoning  string    `json:"reasoning"`
}

// GeneratePlan requests an alternative plan for the symbol from the
// current market structure and price.
func (p *Planner) GeneratePlan(ctx context.Context, symbol string, structure models.MarketStructure, currentPrice float64) (*models.TradePlan, error) {
	prompt := buildPrompt(symbol, structure, currentPrice)

	response, err := p.client.Complete(ctx, prompt)
	if err != nil {
		return nil, errors.Wrap(err, "requesting plan from model")
	}

	return p.parsePlan(symbol, response)
}

// parsePlan decodes and validates a model response. Responses wrapped in
// markdown fences are unwrapped first.
func (p *Planner) parsePlan(symbol, response string) (*models.TradePlan, error) {
	payload := stripFences(response)

	var raw rawPlan
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, errors.NewValidationError("response", payload, "not valid JSON")
	}

	var side models.Side
	switch strings.ToUpper(raw.Direction) {
	case "LONG", "BUY":
		side = models.SideLong
	case "SHORT", "SELL":
		side = models.SideShort
	default:
		return nil, errors.NewValidationError("direction", raw.Direction, "must be long or short")
	}

	if raw.EntryPrice <= 0 || math.IsNaN(raw.EntryPrice) || math.IsInf(raw.EntryPrice, 0) {
		return nil, errors.NewValidationError("entry_price", raw.EntryPrice, "must be positive and finite")
	}
	if raw.StopLoss <= 0 || math.IsNaN(raw.StopLoss) || math.IsInf(raw.StopLoss, 0) {
		return nil, errors.NewValidationError("stop_loss", raw.StopLoss, "must be positive and finite")
	}
	if side == models.SideLong && raw.StopLoss >= raw.EntryPrice {
		return nil, errors.NewValidationError("stop_loss", raw.StopLoss, "long stop must sit below entry")
	}
	if side == models.SideShort && raw.StopLoss <= raw.EntryPrice {
		return nil, errors.NewValidationError("stop_loss", raw.StopLoss, "short stop must sit above entry")
	}

	if len(raw.Targets) == 0 || len(raw.Targets) > 3 {
		return nil, errors.NewValidationError("targets", len(raw.Targets), "need 1-3 targets")
	}
	for _, t := range raw.Targets {
		if t <= 0 || math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, errors.NewValidationError("targets", t, "must be positive and finite")
		}
		if side == models.SideLong && t <= raw.EntryPrice {
			return nil, errors.NewValidationError("targets", t, "long target must sit above entry")
		}
		if side == models.SideShort && t >= raw.EntryPrice {
			return nil, errors.NewValidationError("targets", t, "short target must sit below entry")
		}
	}
	targets := append([]float64(nil), raw.Targets...)
	sort.Slice(targets, func(i, j int) bool {
		return math.Abs(targets[i]-raw.EntryPrice) < math.Abs(targets[j]-raw.EntryPrice)
	})

	rr := math.Abs(targets[0]-raw.EntryPrice) / math.Abs(raw.StopLoss-raw.EntryPrice)
	if rr < minRiskReward {
		return nil, errors.NewValidationError("risk_reward", rr, "below minimum")
	}

	confidence := raw.Confidence
	if confidence < 0 || confidence > 1 || math.IsNaN(confidence) {
		confidence = 0.5
	}

	return &models.TradePlan{
		ID:              uuid.NewString(),
		Symbol:          symbol,
		Direction:       side,
		EntryPrice:      raw.EntryPrice,
		StopLoss:        raw.StopLoss,
		Targets:         targets,
		ConfidenceScore: confidence,
		RiskRewardRatio: rr,
		EntryConditions: []string{"AI alternative plan: " + raw.Reasoning},
		Status:          models.PlanPending,
		CreatedAt:       time.Now(),
	}, nil
}

func buildPrompt(symbol string, structure models.MarketStructure, currentPrice float64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a price-action analyst. Propose a trade plan for %s.\n", symbol)
	fmt.Fprintf(&sb, "Current price: %.8g\nTrend: %s\n", currentPrice, structure.Trend)

	if len(structure.KeyLevels) > 0 {
		sb.WriteString("Key levels:\n")
		for _, lvl := range structure.KeyLevels {
			fmt.Fprintf(&sb, "- %s %.8g (strength %.2f)\n", lvl.Type, lvl.Price, lvl.Strength)
		}
	}

	sb.WriteString(`Respond with ONLY a JSON object:
{"direction": "long|short", "entry_price": 0, "stop_loss": 0, "targets": [0], "confidence": 0.0, "reasoning": ""}
Risk/reward to the first target must be at least 1.5.`)
	return sb.String()
}

// stripFences removes a surrounding markdown code fence, if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}
