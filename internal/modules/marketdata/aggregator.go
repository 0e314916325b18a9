package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Aggregator fails over across providers in priority order.
// The first successful response wins; if every provider fails the last error is returned.
type Aggregator struct {
	providers []Provider
	log       zerolog.Logger
}

// NewAggregator creates an aggregator. Providers are tried in the given order.
func NewAggregator(providers []Provider, log zerolog.Logger) (*Aggregator, error) {
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}
	return &Aggregator{
		providers: providers,
		log:       log.With().Str("component", "market_data_aggregator").Logger(),
	}, nil
}

// Name implements Provider
func (a *Aggregator) Name() string {
	return "Aggregator"
}

// LatestQuote implements Provider
func (a *Aggregator) LatestQuote(ctx context.Context, symbol string) (*Quote, error) {
	return firstSuccess(ctx, a, "quote", symbol, func(p Provider) (*Quote, error) {
		return p.LatestQuote(ctx, symbol)
	})
}

// LatestTrade implements Provider
func (a *Aggregator) LatestTrade(ctx context.Context, symbol string) (*Trade, error) {
	return firstSuccess(ctx, a, "trade", symbol, func(p Provider) (*Trade, error) {
		return p.LatestTrade(ctx, symbol)
	})
}

// HistoricalBars implements Provider. An empty response counts as a failure.
func (a *Aggregator) HistoricalBars(ctx context.Context, symbol string, timeframe Timeframe, start, end time.Time) ([]Bar, error) {
	return firstSuccess(ctx, a, "bars", symbol, func(p Provider) ([]Bar, error) {
		bars, err := p.HistoricalBars(ctx, symbol, timeframe, start, end)
		if err != nil {
			return nil, err
		}
		if len(bars) == 0 {
			return nil, fmt.Errorf("%w: %s bars for %s", ErrNoData, p.Name(), symbol)
		}
		return bars, nil
	})
}

// AssetDetails implements Provider
func (a *Aggregator) AssetDetails(ctx context.Context, symbol string) (*AssetDetails, error) {
	return firstSuccess(ctx, a, "asset details", symbol, func(p Provider) (*AssetDetails, error) {
		return p.AssetDetails(ctx, symbol)
	})
}

func firstSuccess[T any](ctx context.Context, a *Aggregator, what, symbol string, fetch func(Provider) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	for _, p := range a.providers {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		result, err := fetch(p)
		if err == nil {
			return result, nil
		}
		a.log.Warn().
			Err(err).
			Str("provider", p.Name()).
			Str("symbol", symbol).
			Msgf("Failed to fetch %s, trying next provider", what)
		lastErr = err
	}
	return zero, lastErr
}
