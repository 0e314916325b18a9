package domain

import (
	"sort"
	"time"
)

// MarketPrice is a price observation for one asset
type MarketPrice struct {
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// MarketDataContext is a read-only snapshot of prices and asset classifications.
// It is assembled by the market-data acquisition layer and never mutated during plan generation.
type MarketDataContext struct {
	Prices map[string]MarketPrice `json:"prices"`
	Assets map[string]Asset       `json:"assets"`
}

// NewMarketDataContext creates an empty snapshot
func NewMarketDataContext() *MarketDataContext {
	return &MarketDataContext{
		Prices: make(map[string]MarketPrice),
		Assets: make(map[string]Asset),
	}
}

// AddAsset registers an asset and its price. Used while assembling a snapshot.
func (m *MarketDataContext) AddAsset(asset Asset, price float64, ts time.Time) {
	if m.Prices == nil {
		m.Prices = make(map[string]MarketPrice)
	}
	if m.Assets == nil {
		m.Assets = make(map[string]Asset)
	}
	m.Assets[asset.ID] = asset
	m.Prices[asset.ID] = MarketPrice{Price: price, Timestamp: ts.UTC()}
}

// Price returns the price for an asset or a MarketDataMissing error
func (m *MarketDataContext) Price(assetID string) (float64, error) {
	p, ok := m.Prices[assetID]
	if !ok {
		return 0, MissingPrice(assetID)
	}
	return p.Price, nil
}

// Asset returns the reference data for an asset or a MarketDataMissing error
func (m *MarketDataContext) Asset(assetID string) (Asset, error) {
	a, ok := m.Assets[assetID]
	if !ok {
		return Asset{}, MissingAssetDetails(assetID)
	}
	return a, nil
}

// AssetIDs returns every classified asset ID in sorted order.
// Callers that feed several models must capture this slice once and reuse it:
// return vectors and covariance rows are aligned to it positionally.
func (m *MarketDataContext) AssetIDs() []string {
	ids := make([]string, 0, len(m.Assets))
	for id := range m.Assets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ValidateForPortfolio checks that every holding resolves to both a price and an asset.
// The first missing entry, in holding order, is reported.
func (m *MarketDataContext) ValidateForPortfolio(p *Portfolio) error {
	for _, h := range p.Holdings {
		if _, ok := m.Prices[h.AssetID]; !ok {
			return MissingPrice(h.AssetID)
		}
		if _, ok := m.Assets[h.AssetID]; !ok {
			return MissingAssetDetails(h.AssetID)
		}
	}
	return nil
}
