// Package domain provides the core rebalancing domain models and types.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AssetClass groups instruments for allocation purposes.
// Any non-empty value outside the predefined constants is treated as an "other" class.
type AssetClass string

const (
	AssetClassEquity      AssetClass = "Equity"
	AssetClassFixedIncome AssetClass = "FixedIncome"
	AssetClassRealEstate  AssetClass = "RealEstate"
	AssetClassCommodity   AssetClass = "Commodity"
	AssetClassCrypto      AssetClass = "Crypto"
	AssetClassCash        AssetClass = "Cash"
)

// IsPredefined reports whether the class is one of the built-in classes.
func (c AssetClass) IsPredefined() bool {
	switch c {
	case AssetClassEquity, AssetClassFixedIncome, AssetClassRealEstate,
		AssetClassCommodity, AssetClassCrypto, AssetClassCash:
		return true
	}
	return false
}

// Asset is immutable reference data for a tradable instrument
type Asset struct {
	ID         string     `json:"id"`
	Symbol     string     `json:"symbol"`
	Name       string     `json:"name"`
	AssetClass AssetClass `json:"asset_class"`
}

// Holding is a quantity of one asset owned within a portfolio
type Holding struct {
	AssetID  string  `json:"asset_id"`
	Quantity float64 `json:"quantity"`
}

// Portfolio is a per-call snapshot of holdings and cash. It is never mutated by the engine.
type Portfolio struct {
	ID          uuid.UUID `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Holdings    []Holding `json:"holdings"`
	CashBalance float64   `json:"cash_balance"`
}

// IsEmpty reports whether the portfolio holds nothing worth rebalancing.
func (p *Portfolio) IsEmpty() bool {
	return len(p.Holdings) == 0 && p.CashBalance <= 0
}

// TotalValue returns the value of all holdings at market prices plus cash.
func (p *Portfolio) TotalValue(md *MarketDataContext) (float64, error) {
	total := 0.0
	for _, h := range p.Holdings {
		price, err := md.Price(h.AssetID)
		if err != nil {
			return 0, err
		}
		total += h.Quantity * price
	}
	return total + p.CashBalance, nil
}

// OrderType is the side of a trade order
type OrderType string

const (
	OrderTypeBuy  OrderType = "Buy"
	OrderTypeSell OrderType = "Sell"
)

// TradeOrder is a single instruction in a rebalancing plan.
// Quantity and EstimatedValue are always positive; direction is carried by OrderType.
type TradeOrder struct {
	AssetID        string    `json:"asset_id"`
	OrderType      OrderType `json:"order_type"`
	Quantity       float64   `json:"quantity"`
	EstimatedValue float64   `json:"estimated_value"`
	Reason         string    `json:"reason"`
}

// PlanStatus is the lifecycle state of a rebalancing plan
type PlanStatus string

const (
	PlanStatusPending   PlanStatus = "Pending"
	PlanStatusExecuted  PlanStatus = "Executed"
	PlanStatusCancelled PlanStatus = "Cancelled"
	PlanStatusFailed    PlanStatus = "Failed"
)

// ParsePlanStatus converts a status name into a PlanStatus.
func ParsePlanStatus(s string) (PlanStatus, error) {
	switch PlanStatus(s) {
	case PlanStatusPending, PlanStatusExecuted, PlanStatusCancelled, PlanStatusFailed:
		return PlanStatus(s), nil
	}
	return "", InvalidInputf("unknown plan status %q", s)
}

// IsTerminal reports whether no further transitions are allowed.
func (s PlanStatus) IsTerminal() bool {
	return s == PlanStatusExecuted || s == PlanStatusCancelled || s == PlanStatusFailed
}

// CanTransitionTo reports whether a plan may move from s to next.
// Only pending plans move, and only into a terminal state.
func (s PlanStatus) CanTransitionTo(next PlanStatus) bool {
	return s == PlanStatusPending && next.IsTerminal()
}

// RebalancingPlan is the ordered set of trades produced for one portfolio.
// The engine only ever produces pending plans; later transitions belong to the execution side.
type RebalancingPlan struct {
	ID          uuid.UUID    `json:"id"`
	PortfolioID uuid.UUID    `json:"portfolio_id"`
	CreatedAt   time.Time    `json:"created_at"`
	Trades      []TradeOrder `json:"trades"`
	Summary     string       `json:"summary"`
	Status      PlanStatus   `json:"status"`
}

// NewNoActionPlan builds a pending plan without trades.
func NewNoActionPlan(id, portfolioID uuid.UUID, reason string, now time.Time) *RebalancingPlan {
	return &RebalancingPlan{
		ID:          id,
		PortfolioID: portfolioID,
		CreatedAt:   now.UTC(),
		Trades:      []TradeOrder{},
		Summary:     reason,
		Status:      PlanStatusPending,
	}
}

// HasTrades reports whether the plan requires any action
func (p *RebalancingPlan) HasTrades() bool {
	return len(p.Trades) > 0
}

// RiskProfileKind names a risk posture
type RiskProfileKind string

const (
	RiskProfileConservative RiskProfileKind = "conservative"
	RiskProfileModerate     RiskProfileKind = "moderate"
	RiskProfileAggressive   RiskProfileKind = "aggressive"
	RiskProfileCustom       RiskProfileKind = "custom"
)

// RiskProfile is the investor's risk posture. It is informational today:
// neither strategy reads it, it is threaded through for future policy use.
type RiskProfile struct {
	Kind  RiskProfileKind `json:"kind"`
	Score uint32          `json:"score,omitempty"` // Only meaningful for custom profiles
}

// Conservative returns the conservative profile
func Conservative() RiskProfile { return RiskProfile{Kind: RiskProfileConservative} }

// Moderate returns the moderate profile
func Moderate() RiskProfile { return RiskProfile{Kind: RiskProfileModerate} }

// Aggressive returns the aggressive profile
func Aggressive() RiskProfile { return RiskProfile{Kind: RiskProfileAggressive} }

// CustomRiskProfile returns a custom profile with the given score
func CustomRiskProfile(score uint32) RiskProfile {
	return RiskProfile{Kind: RiskProfileCustom, Score: score}
}

func (r RiskProfile) String() string {
	if r.Kind == RiskProfileCustom {
		return fmt.Sprintf("custom(%d)", r.Score)
	}
	if r.Kind == "" {
		return string(RiskProfileModerate)
	}
	return string(r.Kind)
}
