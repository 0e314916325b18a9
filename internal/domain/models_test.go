package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortfolio_TotalValue(t *testing.T) {
	md := NewMarketDataContext()
	md.AddAsset(Asset{ID: "AAPL", Symbol: "AAPL", AssetClass: AssetClassEquity}, 150, time.Now())
	md.AddAsset(Asset{ID: "BND", Symbol: "BND", AssetClass: AssetClassFixedIncome}, 80, time.Now())

	p := &Portfolio{
		ID:          uuid.New(),
		Holdings:    []Holding{{AssetID: "AAPL", Quantity: 10}, {AssetID: "BND", Quantity: 50}},
		CashBalance: 1000,
	}

	total, err := p.TotalValue(md)
	require.NoError(t, err)
	assert.InDelta(t, 6500.0, total, 1e-9)

	p.Holdings = append(p.Holdings, Holding{AssetID: "MSFT", Quantity: 1})
	_, err = p.TotalValue(md)
	assert.ErrorIs(t, err, ErrMarketDataMissing)
}

func TestPortfolio_IsEmpty(t *testing.T) {
	tests := []struct {
		name     string
		p        Portfolio
		expected bool
	}{
		{"no holdings no cash", Portfolio{}, true},
		{"no holdings negative cash", Portfolio{CashBalance: -5}, true},
		{"cash only", Portfolio{CashBalance: 10}, false},
		{"holdings only", Portfolio{Holdings: []Holding{{AssetID: "A", Quantity: 1}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.p.IsEmpty())
		})
	}
}

func TestPlanStatus_Transitions(t *testing.T) {
	assert.True(t, PlanStatusPending.CanTransitionTo(PlanStatusExecuted))
	assert.True(t, PlanStatusPending.CanTransitionTo(PlanStatusCancelled))
	assert.True(t, PlanStatusPending.CanTransitionTo(PlanStatusFailed))
	assert.False(t, PlanStatusPending.CanTransitionTo(PlanStatusPending))
	assert.False(t, PlanStatusExecuted.CanTransitionTo(PlanStatusCancelled))
	assert.False(t, PlanStatusFailed.CanTransitionTo(PlanStatusExecuted))
}

func TestParsePlanStatus(t *testing.T) {
	status, err := ParsePlanStatus("Executed")
	require.NoError(t, err)
	assert.Equal(t, PlanStatusExecuted, status)

	_, err = ParsePlanStatus("done")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNewNoActionPlan(t *testing.T) {
	id := uuid.New()
	portfolioID := uuid.New()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))

	plan := NewNoActionPlan(id, portfolioID, "nothing to do", now)

	assert.Equal(t, id, plan.ID)
	assert.Equal(t, portfolioID, plan.PortfolioID)
	assert.Equal(t, time.UTC, plan.CreatedAt.Location())
	assert.Equal(t, PlanStatusPending, plan.Status)
	assert.Empty(t, plan.Trades)
	assert.False(t, plan.HasTrades())
}

func TestRebalancingPlan_JSON(t *testing.T) {
	plan := RebalancingPlan{
		ID:          uuid.New(),
		PortfolioID: uuid.New(),
		CreatedAt:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Trades: []TradeOrder{{
			AssetID: "AAPL", OrderType: OrderTypeBuy, Quantity: 2, EstimatedValue: 300, Reason: "Aligning Equity to target",
		}},
		Summary: "summary",
		Status:  PlanStatusPending,
	}

	data, err := json.Marshal(plan)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "Pending", raw["status"])
	assert.Equal(t, plan.ID.String(), raw["id"])
	trades := raw["trades"].([]interface{})
	assert.Equal(t, "Buy", trades[0].(map[string]interface{})["order_type"])
}

func TestRiskProfile_String(t *testing.T) {
	assert.Equal(t, "conservative", Conservative().String())
	assert.Equal(t, "moderate", Moderate().String())
	assert.Equal(t, "aggressive", Aggressive().String())
	assert.Equal(t, "custom(7)", CustomRiskProfile(7).String())
	assert.Equal(t, "moderate", RiskProfile{}.String())
}

func TestAssetClass_IsPredefined(t *testing.T) {
	assert.True(t, AssetClassEquity.IsPredefined())
	assert.True(t, AssetClassCash.IsPredefined())
	assert.False(t, AssetClass("Art").IsPredefined())
}
