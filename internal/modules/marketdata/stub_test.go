package marketdata

import (
	"context"
	"sync/atomic"
	"time"
)

// stubProvider returns canned results and counts calls
type stubProvider struct {
	name    string
	trade   *Trade
	details *AssetDetails
	bars    []Bar
	err     error
	calls   atomic.Int32
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) LatestQuote(_ context.Context, symbol string) (*Quote, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return &Quote{Symbol: symbol, Provider: s.name}, nil
}

func (s *stubProvider) LatestTrade(_ context.Context, symbol string) (*Trade, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	if s.trade != nil {
		return s.trade, nil
	}
	return &Trade{Symbol: symbol, Price: 10, Provider: s.name}, nil
}

func (s *stubProvider) HistoricalBars(context.Context, string, Timeframe, time.Time, time.Time) ([]Bar, error) {
	s.calls.Add(1)
	return s.bars, s.err
}

func (s *stubProvider) AssetDetails(_ context.Context, symbol string) (*AssetDetails, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	if s.details != nil {
		return s.details, nil
	}
	return &AssetDetails{Symbol: symbol, Class: ProviderClassUsEquity}, nil
}
