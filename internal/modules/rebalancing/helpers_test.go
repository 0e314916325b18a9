package rebalancing

import (
	"time"

	"github.com/aristath/rebalancer/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var testTime = time.Date(2026, 5, 4, 14, 30, 0, 0, time.UTC)

func testLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

// equityBondMarket prices AAPL at 150 (Equity) and BND at 80 (FixedIncome)
func equityBondMarket() *domain.MarketDataContext {
	md := domain.NewMarketDataContext()
	md.AddAsset(domain.Asset{ID: "AAPL", Symbol: "AAPL", Name: "Apple Inc.", AssetClass: domain.AssetClassEquity}, 150, testTime)
	md.AddAsset(domain.Asset{ID: "BND", Symbol: "BND", Name: "Vanguard Total Bond Market", AssetClass: domain.AssetClassFixedIncome}, 80, testTime)
	return md
}

func equityBondPortfolio(aapl, bnd, cash float64) *domain.Portfolio {
	return &domain.Portfolio{
		ID:     uuid.MustParse("7f1b6f0e-2f4e-4a55-9a3c-2b8f4b1c9d10"),
		UserID: "user-1",
		Name:   "Retirement",
		Holdings: []domain.Holding{
			{AssetID: "AAPL", Quantity: aapl},
			{AssetID: "BND", Quantity: bnd},
		},
		CashBalance: cash,
	}
}

func sixtyForty() domain.TargetAllocation {
	return domain.NewTargetAllocation(map[domain.AssetClass]float64{
		domain.AssetClassEquity:      0.6,
		domain.AssetClassFixedIncome: 0.4,
	})
}

func tradeFor(trades []domain.TradeOrder, assetID string) (domain.TradeOrder, bool) {
	for _, t := range trades {
		if t.AssetID == assetID {
			return t, true
		}
	}
	return domain.TradeOrder{}, false
}
