package di

import (
	"fmt"

	"github.com/aristath/rebalancer/internal/config"
	"github.com/aristath/rebalancer/internal/modules/marketdata"
	"github.com/aristath/rebalancer/internal/modules/optimization"
	"github.com/aristath/rebalancer/internal/modules/plans"
	"github.com/aristath/rebalancer/internal/modules/rebalancing"
	rebalancinghandlers "github.com/aristath/rebalancer/internal/modules/rebalancing/handlers"
	"github.com/rs/zerolog"
)

// InitializeServices builds market data access, the models, the plan service and its handler
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	// Market data: providers in priority order behind a failover aggregator
	providers, err := marketdata.NewProviders(cfg.MarketDataProviders, cfg.ProviderRateLimit, cfg.ProviderBurst)
	if err != nil {
		return fmt.Errorf("failed to create market data providers: %w", err)
	}
	aggregator, err := marketdata.NewAggregator(providers, log)
	if err != nil {
		return fmt.Errorf("failed to create market data aggregator: %w", err)
	}
	container.MarketData = aggregator
	container.ContextBuilder = marketdata.NewContextBuilder(aggregator, nil, marketdata.DefaultFetchConcurrency, log)

	// Models used by mean-variance optimization
	container.Predictor = optimization.NewCachingPredictor(
		optimization.NewDefaultHistoricalReturnsPredictor(),
		cfg.PredictionCacheTTL,
		log,
	)
	container.RiskModel = optimization.NewSampleCovarianceModel()

	container.RebalancingService = rebalancing.NewService(
		container.Predictor,
		container.RiskModel,
		log,
		rebalancing.WithModelTimeout(cfg.ModelTimeout),
	)

	container.PlanRepo = plans.NewRepository(container.PlansDB, log)

	container.RebalancingHandler = rebalancinghandlers.NewHandler(
		container.RebalancingService,
		container.ContextBuilder,
		container.PlanRepo,
		rebalancinghandlers.Defaults{
			DeviationThreshold: cfg.DefaultDeviationThreshold,
			RiskAversion:       cfg.DefaultRiskAversion,
		},
		log,
	)

	log.Info().
		Strs("providers", cfg.MarketDataProviders).
		Dur("model_timeout", cfg.ModelTimeout).
		Msg("Services initialized")

	return nil
}
