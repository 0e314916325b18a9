package rebalancing

import (
	"math"

	"github.com/aristath/rebalancer/internal/domain"
	"github.com/aristath/rebalancer/internal/modules/optimization"
	"github.com/rs/zerolog"
)

const mvoTradeReason = "Rebalancing to optimal weights"

// MVOStrategy trades every asset toward the optimizer's target weights.
// assetIDs is the ordering the optimizer inputs were built with.
type MVOStrategy struct {
	optimizer optimization.PortfolioOptimizer
	assetIDs  []string
	log       zerolog.Logger
}

// NewMVOStrategy creates a mean-variance strategy
func NewMVOStrategy(optimizer optimization.PortfolioOptimizer, assetIDs []string, log zerolog.Logger) *MVOStrategy {
	return &MVOStrategy{
		optimizer: optimizer,
		assetIDs:  assetIDs,
		log:       log.With().Str("component", "mvo_strategy").Logger(),
	}
}

// Execute implements StrategyExecutor
func (s *MVOStrategy) Execute(
	portfolio *domain.Portfolio,
	_ domain.TargetAllocation,
	md *domain.MarketDataContext,
	_ domain.RiskProfile,
) ([]domain.TradeOrder, error) {
	_, totalValue, err := valuePortfolio(portfolio, md)
	if err != nil {
		return nil, err
	}
	if totalValue < MinPortfolioValue {
		return []domain.TradeOrder{}, nil
	}

	weights, err := s.optimizer.Optimize()
	if err != nil {
		return nil, err
	}
	if len(weights) != len(s.assetIDs) {
		return nil, domain.InternalErrorf("optimizer returned %d weights for %d assets", len(weights), len(s.assetIDs))
	}

	held := make(map[string]float64, len(portfolio.Holdings))
	for _, h := range portfolio.Holdings {
		held[h.AssetID] += h.Quantity
	}

	trades := make([]domain.TradeOrder, 0)
	for i, id := range s.assetIDs {
		price, err := md.Price(id)
		if err != nil {
			return nil, err
		}
		if price <= 0 {
			return nil, domain.InvalidInputf("non-positive price %v for asset %s", price, id)
		}

		targetValue := totalValue * weights[i]
		diff := targetValue - held[id]*price
		if math.Abs(diff) < DustThreshold {
			s.log.Debug().Str("asset_id", id).Float64("diff", diff).Msg("Skipping dust trade")
			continue
		}

		orderType := domain.OrderTypeBuy
		if diff < 0 {
			orderType = domain.OrderTypeSell
		}
		trades = append(trades, domain.TradeOrder{
			AssetID:        id,
			OrderType:      orderType,
			Quantity:       math.Abs(diff) / price,
			EstimatedValue: math.Abs(diff),
			Reason:         mvoTradeReason,
		})
	}

	return trades, nil
}
