package testing

import (
	"time"

	"github.com/aristath/rebalancer/internal/domain"
	"github.com/google/uuid"
)

// FixtureTime is the timestamp used by all fixtures
var FixtureTime = time.Date(2026, 5, 4, 14, 30, 0, 0, time.UTC)

// NewMarketDataFixture prices AAPL at 150 (Equity) and BND at 80 (FixedIncome)
func NewMarketDataFixture() *domain.MarketDataContext {
	md := domain.NewMarketDataContext()
	md.AddAsset(domain.Asset{ID: "AAPL", Symbol: "AAPL", Name: "Apple Inc.", AssetClass: domain.AssetClassEquity}, 150, FixtureTime)
	md.AddAsset(domain.Asset{ID: "BND", Symbol: "BND", Name: "Vanguard Total Bond Market ETF", AssetClass: domain.AssetClassFixedIncome}, 80, FixtureTime)
	return md
}

// NewPortfolioFixture returns a portfolio holding 10 AAPL and 50 BND with 1000 cash (total 6500)
func NewPortfolioFixture() *domain.Portfolio {
	return &domain.Portfolio{
		ID:     uuid.New(),
		UserID: "user-1",
		Name:   "Retirement",
		Holdings: []domain.Holding{
			{AssetID: "AAPL", Quantity: 10},
			{AssetID: "BND", Quantity: 50},
		},
		CashBalance: 1000,
	}
}

// NewPlanFixture returns a pending plan with one buy and one sell
func NewPlanFixture(portfolioID uuid.UUID, createdAt time.Time) *domain.RebalancingPlan {
	return &domain.RebalancingPlan{
		ID:          uuid.New(),
		PortfolioID: portfolioID,
		CreatedAt:   createdAt.UTC(),
		Trades: []domain.TradeOrder{
			{AssetID: "AAPL", OrderType: domain.OrderTypeBuy, Quantity: 16, EstimatedValue: 2400, Reason: "Aligning Equity to target"},
			{AssetID: "BND", OrderType: domain.OrderTypeSell, Quantity: 17.5, EstimatedValue: 1400, Reason: "Aligning FixedIncome to target"},
		},
		Summary: "Rebalancing plan generated using Threshold (deviation 5.00%) strategy.",
		Status:  domain.PlanStatusPending,
	}
}
