// Package marketdata fetches quotes, trades and asset details from market-data
// providers and assembles them into rebalancing snapshots.
package marketdata

import (
	"errors"
	"fmt"
	"time"
)

// Quote is the latest bid/ask for a symbol
type Quote struct {
	Symbol    string    `json:"symbol"`
	AskPrice  float64   `json:"ask_price"`
	AskSize   uint64    `json:"ask_size"`
	BidPrice  float64   `json:"bid_price"`
	BidSize   uint64    `json:"bid_size"`
	Timestamp time.Time `json:"timestamp"`
	Provider  string    `json:"provider"`
}

// Trade is the last executed trade for a symbol
type Trade struct {
	Symbol     string    `json:"symbol"`
	Price      float64   `json:"price"`
	Size       uint64    `json:"size"`
	Timestamp  time.Time `json:"timestamp"`
	Exchange   string    `json:"exchange"`
	Conditions []string  `json:"conditions"`
	Provider   string    `json:"provider"`
}

// Bar is one OHLCV candle
type Bar struct {
	Symbol    string    `json:"symbol"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    uint64    `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// ProviderAssetClass is the instrument class as reported by a provider
type ProviderAssetClass string

// Provider asset classes
const (
	ProviderClassUsEquity ProviderAssetClass = "us_equity"
	ProviderClassCrypto   ProviderAssetClass = "crypto"
	ProviderClassFx       ProviderAssetClass = "fx"
	ProviderClassOption   ProviderAssetClass = "option"
	ProviderClassFuture   ProviderAssetClass = "future"
	ProviderClassUnknown  ProviderAssetClass = "unknown"
)

// AssetDetails is provider reference data for a symbol
type AssetDetails struct {
	Symbol   string             `json:"symbol"`
	Name     string             `json:"name"`
	Class    ProviderAssetClass `json:"class"`
	Exchange string             `json:"exchange"`
	Status   string             `json:"status"`
	Tradable bool               `json:"tradable"`
}

// Timeframe is a bar aggregation period
type Timeframe string

// Supported timeframes
const (
	Timeframe1Min  Timeframe = "1Min"
	Timeframe5Min  Timeframe = "5Min"
	Timeframe15Min Timeframe = "15Min"
	Timeframe1Hour Timeframe = "1Hour"
	Timeframe1Day  Timeframe = "1Day"
)

// Duration returns the length of one bar
func (tf Timeframe) Duration() (time.Duration, error) {
	switch tf {
	case Timeframe1Min:
		return time.Minute, nil
	case Timeframe5Min:
		return 5 * time.Minute, nil
	case Timeframe15Min:
		return 15 * time.Minute, nil
	case Timeframe1Hour:
		return time.Hour, nil
	case Timeframe1Day:
		return 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("%w: timeframe %q", ErrUnsupported, string(tf))
	}
}

// Provider errors. Implementations wrap these so callers can use errors.Is.
var (
	ErrSymbolNotFound = errors.New("symbol not found")
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrNoData         = errors.New("provider returned no data")
	ErrUnsupported    = errors.New("unsupported operation")
	ErrNoProviders    = errors.New("no market data providers configured")
	ErrConfiguration  = errors.New("provider configuration error")
)
