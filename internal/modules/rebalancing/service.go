package rebalancing

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/rebalancer/internal/domain"
	"github.com/aristath/rebalancer/internal/modules/optimization"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultModelTimeout bounds the joined predictor and risk-model calls of one plan generation
const DefaultModelTimeout = 10 * time.Second

// Plan summaries
const (
	summaryEmptyPortfolio = "Portfolio is empty, no action needed."
	summaryWithinLimits   = "No rebalancing needed, portfolio is within strategy limits."
	summaryGeneratedFmt   = "Rebalancing plan generated using %s strategy."
)

// Service generates rebalancing plans.
// It holds no per-call state and is safe for concurrent use as long as the
// injected predictor and risk model are.
type Service struct {
	predictor    optimization.ExpectedReturnsPredictor
	riskModel    optimization.RiskModel
	modelTimeout time.Duration
	now          func() time.Time
	newID        func() uuid.UUID
	log          zerolog.Logger
}

// ServiceOption customizes a Service
type ServiceOption func(*Service)

// WithModelTimeout sets the timeout for the model calls of one plan generation
func WithModelTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.modelTimeout = d
		}
	}
}

// WithClock overrides the wall clock used for plan timestamps
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides plan ID generation
func WithIDGenerator(newID func() uuid.UUID) ServiceOption {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// NewService creates a new rebalancing service
func NewService(
	predictor optimization.ExpectedReturnsPredictor,
	riskModel optimization.RiskModel,
	log zerolog.Logger,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		predictor:    predictor,
		riskModel:    riskModel,
		modelTimeout: DefaultModelTimeout,
		now:          time.Now,
		newID:        uuid.New,
		log:          log.With().Str("service", "rebalancing").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GeneratePlan produces a rebalancing plan for the portfolio.
// Every failure aborts the call and no partial plan is returned.
func (s *Service) GeneratePlan(
	ctx context.Context,
	portfolio *domain.Portfolio,
	target domain.TargetAllocation,
	riskProfile domain.RiskProfile,
	strategy Strategy,
	md *domain.MarketDataContext,
) (*domain.RebalancingPlan, error) {
	if portfolio == nil {
		return nil, domain.InvalidInputf("portfolio is required")
	}

	s.log.Info().
		Str("portfolio_id", portfolio.ID.String()).
		Str("user_id", portfolio.UserID).
		Str("strategy", string(strategy.Kind)).
		Str("risk_profile", riskProfile.String()).
		Msg("Generating rebalancing plan")

	if portfolio.IsEmpty() {
		return domain.NewNoActionPlan(s.newID(), portfolio.ID, summaryEmptyPortfolio, s.now()), nil
	}

	if md == nil {
		return nil, domain.InvalidInputf("market data is required")
	}
	if err := md.ValidateForPortfolio(portfolio); err != nil {
		return nil, err
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}
	if err := strategy.Validate(); err != nil {
		return nil, err
	}

	executor, err := s.executorFor(ctx, strategy, md)
	if err != nil {
		return nil, err
	}

	trades, err := executor.Execute(portfolio, target, md, riskProfile)
	if err != nil {
		return nil, err
	}

	if len(trades) == 0 {
		s.log.Info().Str("portfolio_id", portfolio.ID.String()).Msg("Portfolio within strategy limits")
		return domain.NewNoActionPlan(s.newID(), portfolio.ID, summaryWithinLimits, s.now()), nil
	}

	plan := &domain.RebalancingPlan{
		ID:          s.newID(),
		PortfolioID: portfolio.ID,
		CreatedAt:   s.now().UTC(),
		Trades:      trades,
		Summary:     fmt.Sprintf(summaryGeneratedFmt, strategy),
		Status:      domain.PlanStatusPending,
	}

	s.log.Info().
		Str("plan_id", plan.ID.String()).
		Str("portfolio_id", portfolio.ID.String()).
		Int("num_trades", len(trades)).
		Msg("Rebalancing plan generated")

	return plan, nil
}

func (s *Service) executorFor(ctx context.Context, strategy Strategy, md *domain.MarketDataContext) (StrategyExecutor, error) {
	switch strategy.Kind {
	case StrategyThreshold:
		return NewThresholdStrategy(*strategy.Threshold, s.log), nil
	case StrategyMeanVariance:
		return s.buildMVOStrategy(ctx, *strategy.MeanVariance, md)
	default:
		return nil, domain.InvalidInputf("unknown strategy kind %q", strategy.Kind)
	}
}

// buildMVOStrategy runs the predictor and the risk model concurrently on one
// captured asset ordering and feeds both into a mean-variance optimizer.
func (s *Service) buildMVOStrategy(ctx context.Context, cfg MVOConfig, md *domain.MarketDataContext) (*MVOStrategy, error) {
	if s.predictor == nil || s.riskModel == nil {
		return nil, domain.InternalErrorf("mean-variance strategy requires a predictor and a risk model")
	}

	assetIDs := md.AssetIDs()

	modelCtx, cancel := context.WithTimeout(ctx, s.modelTimeout)
	defer cancel()

	var (
		returns []float64
		cov     [][]float64
	)

	g, gctx := errgroup.WithContext(modelCtx)
	g.Go(func() error {
		start := time.Now()
		r, err := callModel(gctx, func(c context.Context) ([]float64, error) {
			return s.predictor.Predict(c, assetIDs, md)
		})
		if err != nil {
			return classifyModelError(err, domain.ErrPrediction)
		}
		if len(r) != len(assetIDs) {
			return domain.PredictionErrorf("predictor returned %d values for %d assets", len(r), len(assetIDs))
		}
		returns = r
		s.log.Debug().Dur("elapsed", time.Since(start)).Int("num_assets", len(assetIDs)).Msg("Expected returns predicted")
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		c, err := callModel(gctx, func(c context.Context) ([][]float64, error) {
			return s.riskModel.Calculate(c, assetIDs, md)
		})
		if err != nil {
			return classifyModelError(err, domain.ErrRiskModel)
		}
		if err := optimization.ValidateCovariance(c, len(assetIDs)); err != nil {
			return domain.RiskModelErrorf("risk model output rejected: %v", err)
		}
		cov = c
		s.log.Debug().Dur("elapsed", time.Since(start)).Int("num_assets", len(assetIDs)).Msg("Covariance matrix calculated")
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	optimizer := optimization.NewMeanVarianceOptimizer(returns, cov, cfg.RiskAversion)
	return NewMVOStrategy(optimizer, assetIDs, s.log), nil
}

// callModel runs fn and gives up as soon as ctx is done.
// An abandoned call finishes in the background and its result is dropped.
func callModel[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}

	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{value: v, err: err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case r := <-done:
		return r.value, r.err
	}
}

// classifyModelError tags an unclassified model failure with kind.
// Context errors stay reachable through errors.Is.
func classifyModelError(err error, kind error) error {
	if domain.IsClassified(err) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
