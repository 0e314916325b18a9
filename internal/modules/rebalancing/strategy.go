// Package rebalancing turns holdings, targets and market data into trade plans.
package rebalancing

import (
	"fmt"

	"github.com/aristath/rebalancer/internal/domain"
)

// Value thresholds in currency units
const (
	// MinPortfolioValue is the smallest total value a strategy acts on
	MinPortfolioValue = 1.0
	// DustThreshold suppresses trades whose absolute value is not above it
	DustThreshold = 1.0
)

// StrategyExecutor produces the trades required to move a portfolio toward a strategy's goal.
type StrategyExecutor interface {
	Execute(
		portfolio *domain.Portfolio,
		target domain.TargetAllocation,
		md *domain.MarketDataContext,
		riskProfile domain.RiskProfile,
	) ([]domain.TradeOrder, error)
}

// StrategyKind names a rebalancing strategy
type StrategyKind string

// Supported strategies
const (
	StrategyThreshold    StrategyKind = "threshold"
	StrategyMeanVariance StrategyKind = "mean_variance"
)

// ThresholdConfig configures the threshold strategy
type ThresholdConfig struct {
	DeviationThreshold float64 `json:"deviation_threshold"`
}

// MVOConfig configures mean-variance optimization.
// MaxIterations and Tolerance are accepted for iterative backends; the analytic solver ignores them.
type MVOConfig struct {
	RiskAversion  float64 `json:"risk_aversion"`
	MaxIterations int     `json:"max_iterations,omitempty"`
	Tolerance     float64 `json:"tolerance,omitempty"`
}

// Strategy selects one rebalancing strategy with its configuration.
// Exactly one payload matching Kind must be set.
type Strategy struct {
	Kind         StrategyKind     `json:"kind"`
	Threshold    *ThresholdConfig `json:"threshold,omitempty"`
	MeanVariance *MVOConfig       `json:"mean_variance,omitempty"`
}

// NewThresholdStrategySelection selects the threshold strategy
func NewThresholdStrategySelection(deviationThreshold float64) Strategy {
	return Strategy{
		Kind:      StrategyThreshold,
		Threshold: &ThresholdConfig{DeviationThreshold: deviationThreshold},
	}
}

// NewMeanVarianceSelection selects mean-variance optimization
func NewMeanVarianceSelection(cfg MVOConfig) Strategy {
	return Strategy{Kind: StrategyMeanVariance, MeanVariance: &cfg}
}

// Validate checks that the selection is well-formed
func (s Strategy) Validate() error {
	switch s.Kind {
	case StrategyThreshold:
		if s.Threshold == nil || s.MeanVariance != nil {
			return domain.InvalidInputf("threshold strategy requires exactly the threshold configuration")
		}
		if s.Threshold.DeviationThreshold < 0 {
			return domain.InvalidInputf("deviation threshold must not be negative, got %v", s.Threshold.DeviationThreshold)
		}
	case StrategyMeanVariance:
		if s.MeanVariance == nil || s.Threshold != nil {
			return domain.InvalidInputf("mean-variance strategy requires exactly the mean_variance configuration")
		}
		if !(s.MeanVariance.RiskAversion > 0) {
			return domain.InvalidInputf("risk aversion must be positive, got %v", s.MeanVariance.RiskAversion)
		}
		if s.MeanVariance.MaxIterations < 0 || s.MeanVariance.Tolerance < 0 {
			return domain.InvalidInputf("max iterations and tolerance must not be negative")
		}
	default:
		return domain.InvalidInputf("unknown strategy kind %q", s.Kind)
	}
	return nil
}

// String names the strategy for plan summaries
func (s Strategy) String() string {
	switch s.Kind {
	case StrategyThreshold:
		if s.Threshold != nil {
			return fmt.Sprintf("Threshold (deviation %.2f%%)", s.Threshold.DeviationThreshold*100)
		}
		return "Threshold"
	case StrategyMeanVariance:
		if s.MeanVariance != nil {
			return fmt.Sprintf("MeanVarianceOptimization (risk aversion %g)", s.MeanVariance.RiskAversion)
		}
		return "MeanVarianceOptimization"
	default:
		return string(s.Kind)
	}
}

// holdingValue is a priced holding tagged with its asset class
type holdingValue struct {
	holding domain.Holding
	class   domain.AssetClass
	price   float64
	value   float64
}

// valuePortfolio prices every holding and returns them with the total portfolio value including cash
func valuePortfolio(portfolio *domain.Portfolio, md *domain.MarketDataContext) ([]holdingValue, float64, error) {
	values := make([]holdingValue, 0, len(portfolio.Holdings))
	total := portfolio.CashBalance
	for _, h := range portfolio.Holdings {
		price, err := md.Price(h.AssetID)
		if err != nil {
			return nil, 0, err
		}
		asset, err := md.Asset(h.AssetID)
		if err != nil {
			return nil, 0, err
		}
		v := h.Quantity * price
		values = append(values, holdingValue{holding: h, class: asset.AssetClass, price: price, value: v})
		total += v
	}
	return values, total, nil
}
