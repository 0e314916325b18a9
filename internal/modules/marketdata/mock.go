package marketdata

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"
)

const (
	mockProviderName = "Mock"
	mockExchange     = "MOCK_X"
	mockBarCount     = 50
	mockMinPrice     = 100.0
	mockPriceRange   = 400.0
)

// DefaultMockAssets are the symbols the mock provider knows reference data for
var DefaultMockAssets = map[string]AssetDetails{
	"AAPL":   {Symbol: "AAPL", Name: "Apple Inc.", Class: ProviderClassUsEquity, Exchange: "NASDAQ", Status: "active", Tradable: true},
	"MSFT":   {Symbol: "MSFT", Name: "Microsoft Corporation", Class: ProviderClassUsEquity, Exchange: "NASDAQ", Status: "active", Tradable: true},
	"VTI":    {Symbol: "VTI", Name: "Vanguard Total Stock Market ETF", Class: ProviderClassUsEquity, Exchange: "ARCA", Status: "active", Tradable: true},
	"BND":    {Symbol: "BND", Name: "Vanguard Total Bond Market ETF", Class: ProviderClassUsEquity, Exchange: "NASDAQ", Status: "active", Tradable: true},
	"VNQ":    {Symbol: "VNQ", Name: "Vanguard Real Estate ETF", Class: ProviderClassUsEquity, Exchange: "ARCA", Status: "active", Tradable: true},
	"GLD":    {Symbol: "GLD", Name: "SPDR Gold Shares", Class: ProviderClassUsEquity, Exchange: "ARCA", Status: "active", Tradable: true},
	"BTCUSD": {Symbol: "BTCUSD", Name: "Bitcoin", Class: ProviderClassCrypto, Exchange: "CRYPTO", Status: "active", Tradable: true},
}

// MockProvider serves deterministic synthetic data for development and tests.
// Prices come from the configured table, otherwise from a hash of the symbol.
type MockProvider struct {
	prices map[string]float64
	assets map[string]AssetDetails
	now    func() time.Time
}

// NewMockProvider creates a mock provider. Nil maps fall back to hashed prices and DefaultMockAssets.
func NewMockProvider(prices map[string]float64, assets map[string]AssetDetails) *MockProvider {
	if assets == nil {
		assets = DefaultMockAssets
	}
	return &MockProvider{
		prices: prices,
		assets: assets,
		now:    time.Now,
	}
}

// Name implements Provider
func (m *MockProvider) Name() string {
	return mockProviderName
}

func (m *MockProvider) price(symbol string) float64 {
	if p, ok := m.prices[symbol]; ok {
		return p
	}
	return mockMinPrice + float64(symbolSeed(symbol)%40000)/100.0
}

func symbolSeed(symbol string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(symbol))
	return h.Sum64()
}

// LatestQuote implements Provider
func (m *MockProvider) LatestQuote(ctx context.Context, symbol string) (*Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	price := m.price(symbol)
	size := (symbolSeed(symbol)%9 + 1) * 100
	return &Quote{
		Symbol:    symbol,
		AskPrice:  price + 0.02,
		AskSize:   size,
		BidPrice:  price - 0.02,
		BidSize:   size,
		Timestamp: m.now().UTC(),
		Provider:  mockProviderName,
	}, nil
}

// LatestTrade implements Provider
func (m *MockProvider) LatestTrade(ctx context.Context, symbol string) (*Trade, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Trade{
		Symbol:     symbol,
		Price:      m.price(symbol),
		Size:       (symbolSeed(symbol)%49 + 1) * 10,
		Timestamp:  m.now().UTC(),
		Exchange:   mockExchange,
		Conditions: []string{"@"},
		Provider:   mockProviderName,
	}, nil
}

// HistoricalBars implements Provider. It returns a fixed number of bars from start,
// one per timeframe step, as a seeded random walk around the symbol's price.
func (m *MockProvider) HistoricalBars(ctx context.Context, symbol string, timeframe Timeframe, start, _ time.Time) ([]Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	step, err := timeframe.Duration()
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(int64(symbolSeed(symbol))))
	bars := make([]Bar, 0, mockBarCount)
	ts := start.UTC()
	lastClose := m.price(symbol)
	for i := 0; i < mockBarCount; i++ {
		open := lastClose
		high := open + rng.Float64()*2.5
		low := open - rng.Float64()*2.5
		closePrice := low + rng.Float64()*(high-low)
		bars = append(bars, Bar{
			Symbol:    symbol,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    uint64(10000 + rng.Intn(990000)),
			Timestamp: ts,
		})
		lastClose = closePrice
		ts = ts.Add(step)
	}
	return bars, nil
}

// AssetDetails implements Provider
func (m *MockProvider) AssetDetails(ctx context.Context, symbol string) (*AssetDetails, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	details, ok := m.assets[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}
	return &details, nil
}
