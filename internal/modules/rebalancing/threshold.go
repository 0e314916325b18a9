package rebalancing

import (
	"fmt"
	"math"

	"github.com/aristath/rebalancer/internal/domain"
	"github.com/rs/zerolog"
)

// ThresholdStrategy rebalances asset classes back to target once any class drifts
// beyond the deviation threshold.
//
// It only trades classes the portfolio already holds: a class with a target but
// no holdings is skipped, so cash is never used to open a new class.
type ThresholdStrategy struct {
	config ThresholdConfig
	log    zerolog.Logger
}

// NewThresholdStrategy creates a threshold strategy
func NewThresholdStrategy(config ThresholdConfig, log zerolog.Logger) *ThresholdStrategy {
	return &ThresholdStrategy{
		config: config,
		log:    log.With().Str("component", "threshold_strategy").Logger(),
	}
}

// Execute implements StrategyExecutor
func (s *ThresholdStrategy) Execute(
	portfolio *domain.Portfolio,
	target domain.TargetAllocation,
	md *domain.MarketDataContext,
	_ domain.RiskProfile,
) ([]domain.TradeOrder, error) {
	holdings, totalValue, err := valuePortfolio(portfolio, md)
	if err != nil {
		return nil, err
	}
	if totalValue < MinPortfolioValue {
		return []domain.TradeOrder{}, nil
	}

	current := make(map[domain.AssetClass]float64)
	for _, hv := range holdings {
		current[hv.class] += hv.value
	}

	classes := target.Classes()
	if !s.needsRebalance(classes, target, current, totalValue) {
		s.log.Debug().Float64("total_value", totalValue).Msg("All classes within deviation threshold")
		return []domain.TradeOrder{}, nil
	}

	trades := make([]domain.TradeOrder, 0)
	for _, class := range classes {
		targetValue := totalValue * target.Allocations[class]
		classValue := current[class]
		valueDiff := targetValue - classValue

		var classHoldings []holdingValue
		for _, hv := range holdings {
			if hv.class == class {
				classHoldings = append(classHoldings, hv)
			}
		}

		if len(classHoldings) == 0 {
			if valueDiff > DustThreshold {
				s.log.Debug().
					Str("asset_class", string(class)).
					Float64("value_diff", valueDiff).
					Msg("Skipping class without holdings")
			}
			continue
		}

		for _, hv := range classHoldings {
			proportion := 0.0
			if classValue > 1e-9 {
				proportion = hv.value / classValue
			}
			valueToTrade := valueDiff * proportion

			var orderType domain.OrderType
			switch {
			case valueToTrade > DustThreshold:
				orderType = domain.OrderTypeBuy
			case valueToTrade < -DustThreshold:
				orderType = domain.OrderTypeSell
			default:
				continue
			}

			trades = append(trades, domain.TradeOrder{
				AssetID:        hv.holding.AssetID,
				OrderType:      orderType,
				Quantity:       math.Abs(valueToTrade / hv.price),
				EstimatedValue: math.Abs(valueToTrade),
				Reason:         fmt.Sprintf("Aligning %s to target", class),
			})
		}
	}

	return trades, nil
}

func (s *ThresholdStrategy) needsRebalance(
	classes []domain.AssetClass,
	target domain.TargetAllocation,
	current map[domain.AssetClass]float64,
	totalValue float64,
) bool {
	for _, class := range classes {
		deviation := math.Abs(current[class]/totalValue - target.Allocations[class])
		if deviation > s.config.DeviationThreshold {
			s.log.Debug().
				Str("asset_class", string(class)).
				Float64("deviation", deviation).
				Float64("threshold", s.config.DeviationThreshold).
				Msg("Class exceeds deviation threshold")
			return true
		}
	}
	return false
}
