package marketdata

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitedProvider throttles calls to another provider with a token bucket.
// Waiting callers give up when their context is done.
type RateLimitedProvider struct {
	inner   Provider
	limiter *rate.Limiter
}

// NewRateLimitedProvider wraps inner with a limit of perSecond calls and the given burst
func NewRateLimitedProvider(inner Provider, perSecond float64, burst int) *RateLimitedProvider {
	return &RateLimitedProvider{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Name implements Provider
func (r *RateLimitedProvider) Name() string {
	return r.inner.Name()
}

func (r *RateLimitedProvider) wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s: %v", ErrRateLimited, r.inner.Name(), err)
	}
	return nil
}

// LatestQuote implements Provider
func (r *RateLimitedProvider) LatestQuote(ctx context.Context, symbol string) (*Quote, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.LatestQuote(ctx, symbol)
}

// LatestTrade implements Provider
func (r *RateLimitedProvider) LatestTrade(ctx context.Context, symbol string) (*Trade, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.LatestTrade(ctx, symbol)
}

// HistoricalBars implements Provider
func (r *RateLimitedProvider) HistoricalBars(ctx context.Context, symbol string, timeframe Timeframe, start, end time.Time) ([]Bar, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.HistoricalBars(ctx, symbol, timeframe, start, end)
}

// AssetDetails implements Provider
func (r *RateLimitedProvider) AssetDetails(ctx context.Context, symbol string) (*AssetDetails, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.AssetDetails(ctx, symbol)
}
