package marketdata

import (
	"context"
	"time"
)

// Provider is a source of market data.
// Implementations must be safe for concurrent use.
type Provider interface {
	Name() string
	LatestQuote(ctx context.Context, symbol string) (*Quote, error)
	LatestTrade(ctx context.Context, symbol string) (*Trade, error)
	HistoricalBars(ctx context.Context, symbol string, timeframe Timeframe, start, end time.Time) ([]Bar, error)
	AssetDetails(ctx context.Context, symbol string) (*AssetDetails, error)
}
