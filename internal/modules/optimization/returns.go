package optimization

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/aristath/rebalancer/internal/domain"
	"github.com/rs/zerolog"
)

// Default equilibrium model parameters
const (
	DefaultRiskFreeRate   = 0.02
	DefaultEquityPremium  = 0.05
	DefaultHistoricalRate = 0.05
	DefaultPredictionTTL  = 15 * time.Minute
)

// ExpectedReturnsPredictor produces expected annual returns for a set of assets.
// The returned slice has the same length and order as assetIDs.
// Implementations must be safe for concurrent use.
type ExpectedReturnsPredictor interface {
	Predict(ctx context.Context, assetIDs []string, md *domain.MarketDataContext) ([]float64, error)
}

// HistoricalReturnsPredictor looks up a per-asset historical return.
// The table is a stand-in for a historical performance store.
type HistoricalReturnsPredictor struct {
	table    map[string]float64
	fallback float64
}

// NewHistoricalReturnsPredictor creates a predictor from an asset-to-return table.
// A nil table uses the built-in defaults.
func NewHistoricalReturnsPredictor(table map[string]float64, fallback float64) *HistoricalReturnsPredictor {
	if table == nil {
		table = map[string]float64{
			"AAPL": 0.15,
			"BND":  0.03,
		}
	}
	return &HistoricalReturnsPredictor{table: table, fallback: fallback}
}

// NewDefaultHistoricalReturnsPredictor creates the predictor used when nothing else is configured
func NewDefaultHistoricalReturnsPredictor() *HistoricalReturnsPredictor {
	return NewHistoricalReturnsPredictor(nil, DefaultHistoricalRate)
}

// Predict implements ExpectedReturnsPredictor.
// Assets are matched by ID first, then by symbol.
func (p *HistoricalReturnsPredictor) Predict(ctx context.Context, assetIDs []string, md *domain.MarketDataContext) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	returns := make([]float64, len(assetIDs))
	for i, id := range assetIDs {
		returns[i] = p.lookup(id, md)
	}
	return returns, nil
}

func (p *HistoricalReturnsPredictor) lookup(id string, md *domain.MarketDataContext) float64 {
	if r, ok := p.table[id]; ok {
		return r
	}
	if md != nil {
		if asset, err := md.Asset(id); err == nil {
			if r, ok := p.table[asset.Symbol]; ok {
				return r
			}
		}
	}
	return p.fallback
}

// EquilibriumPredictor estimates returns CAPM-style: riskFree + beta(class) * equityPremium.
// Betas are per asset class rather than per asset.
type EquilibriumPredictor struct {
	riskFreeRate  float64
	equityPremium float64
	betas         map[domain.AssetClass]float64
}

// DefaultClassBetas are the market betas used by the equilibrium predictor
var DefaultClassBetas = map[domain.AssetClass]float64{
	domain.AssetClassEquity:      1.0,
	domain.AssetClassRealEstate:  0.8,
	domain.AssetClassCommodity:   0.6,
	domain.AssetClassCrypto:      1.8,
	domain.AssetClassFixedIncome: 0.2,
	domain.AssetClassCash:        0.0,
}

// NewEquilibriumPredictor creates an equilibrium predictor. A nil betas map uses DefaultClassBetas.
func NewEquilibriumPredictor(riskFreeRate, equityPremium float64, betas map[domain.AssetClass]float64) *EquilibriumPredictor {
	if betas == nil {
		betas = DefaultClassBetas
	}
	return &EquilibriumPredictor{
		riskFreeRate:  riskFreeRate,
		equityPremium: equityPremium,
		betas:         betas,
	}
}

// Predict implements ExpectedReturnsPredictor.
// Unclassified assets and classes without a beta are treated as market-beta (1.0).
func (p *EquilibriumPredictor) Predict(ctx context.Context, assetIDs []string, md *domain.MarketDataContext) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	returns := make([]float64, len(assetIDs))
	for i, id := range assetIDs {
		beta := 1.0
		if md != nil {
			if asset, err := md.Asset(id); err == nil {
				if b, ok := p.betas[asset.AssetClass]; ok {
					beta = b
				}
			}
		}
		returns[i] = p.riskFreeRate + beta*p.equityPremium
	}
	return returns, nil
}

// ConstantPredictor returns a fixed value per asset. Used as a mock and for what-if runs.
type ConstantPredictor struct {
	value     float64
	overrides map[string]float64
}

// NewConstantPredictor creates a predictor returning value for every asset not in overrides
func NewConstantPredictor(value float64, overrides map[string]float64) *ConstantPredictor {
	return &ConstantPredictor{value: value, overrides: overrides}
}

// NewMockReturnsPredictor returns the predictor used in tests: AAPL 20%, BND 4%, everything else 6%.
func NewMockReturnsPredictor() *ConstantPredictor {
	return NewConstantPredictor(0.06, map[string]float64{"AAPL": 0.20, "BND": 0.04})
}

// Predict implements ExpectedReturnsPredictor
func (p *ConstantPredictor) Predict(ctx context.Context, assetIDs []string, _ *domain.MarketDataContext) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	returns := make([]float64, len(assetIDs))
	for i, id := range assetIDs {
		if r, ok := p.overrides[id]; ok {
			returns[i] = r
			continue
		}
		returns[i] = p.value
	}
	return returns, nil
}

type cachedPrediction struct {
	returns   []float64
	expiresAt time.Time
}

// CachingPredictor memoizes another predictor's output per ordered asset set.
// It is internally synchronized and safe to share across concurrent plan generations.
type CachingPredictor struct {
	inner   ExpectedReturnsPredictor
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
	entries map[string]cachedPrediction
	log     zerolog.Logger
}

// NewCachingPredictor wraps inner with a TTL cache. A non-positive ttl uses DefaultPredictionTTL.
func NewCachingPredictor(inner ExpectedReturnsPredictor, ttl time.Duration, log zerolog.Logger) *CachingPredictor {
	if ttl <= 0 {
		ttl = DefaultPredictionTTL
	}
	return &CachingPredictor{
		inner:   inner,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cachedPrediction),
		log:     log.With().Str("component", "returns_cache").Logger(),
	}
}

// cacheKey covers the ordering and the classification of every asset,
// since class-driven predictors depend on both.
func cacheKey(assetIDs []string, md *domain.MarketDataContext) string {
	var b strings.Builder
	for _, id := range assetIDs {
		b.WriteString(id)
		b.WriteByte('=')
		if md != nil {
			if asset, err := md.Asset(id); err == nil {
				b.WriteString(string(asset.AssetClass))
			}
		}
		b.WriteByte(';')
	}
	return b.String()
}

// Predict implements ExpectedReturnsPredictor
func (p *CachingPredictor) Predict(ctx context.Context, assetIDs []string, md *domain.MarketDataContext) ([]float64, error) {
	key := cacheKey(assetIDs, md)
	now := p.now()

	p.mu.RLock()
	entry, ok := p.entries[key]
	p.mu.RUnlock()
	if ok && now.Before(entry.expiresAt) {
		p.log.Debug().Int("num_assets", len(assetIDs)).Msg("Using cached expected returns")
		return append([]float64(nil), entry.returns...), nil
	}

	returns, err := p.inner.Predict(ctx, assetIDs, md)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.entries[key] = cachedPrediction{
		returns:   append([]float64(nil), returns...),
		expiresAt: now.Add(p.ttl),
	}
	p.mu.Unlock()

	return returns, nil
}

// Purge drops expired entries and returns how many were removed
func (p *CachingPredictor) Purge() int {
	now := p.now()
	p.mu.Lock()
	defer p.mu.Unlock()

	removed := 0
	for key, entry := range p.entries {
		if !now.Before(entry.expiresAt) {
			delete(p.entries, key)
			removed++
		}
	}
	return removed
}
