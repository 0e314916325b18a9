package marketdata

import (
	"context"
	"fmt"
	"sort"

	"github.com/aristath/rebalancer/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultFetchConcurrency bounds concurrent symbol fetches during a build
const DefaultFetchConcurrency = 4

// AssetClassOther is assigned to provider classes with no allocation counterpart
const AssetClassOther domain.AssetClass = "Other"

// DefaultClassOverrides reclassifies exchange-traded funds whose provider class is plain equity
var DefaultClassOverrides = map[string]domain.AssetClass{
	"BND": domain.AssetClassFixedIncome,
	"AGG": domain.AssetClassFixedIncome,
	"TLT": domain.AssetClassFixedIncome,
	"VNQ": domain.AssetClassRealEstate,
	"GLD": domain.AssetClassCommodity,
}

// MapAssetClass converts a provider asset class to an allocation class
func MapAssetClass(class ProviderAssetClass) domain.AssetClass {
	switch class {
	case ProviderClassUsEquity:
		return domain.AssetClassEquity
	case ProviderClassCrypto:
		return domain.AssetClassCrypto
	case ProviderClassFx:
		return domain.AssetClassCash
	default:
		return AssetClassOther
	}
}

// ContextBuilder assembles MarketDataContext snapshots from a provider.
// Asset IDs in the snapshot are the provider symbols.
type ContextBuilder struct {
	provider    Provider
	overrides   map[string]domain.AssetClass
	concurrency int
	log         zerolog.Logger
}

// NewContextBuilder creates a builder. A nil overrides map uses DefaultClassOverrides.
func NewContextBuilder(provider Provider, overrides map[string]domain.AssetClass, concurrency int, log zerolog.Logger) *ContextBuilder {
	if overrides == nil {
		overrides = DefaultClassOverrides
	}
	if concurrency <= 0 {
		concurrency = DefaultFetchConcurrency
	}
	return &ContextBuilder{
		provider:    provider,
		overrides:   overrides,
		concurrency: concurrency,
		log:         log.With().Str("component", "market_data_builder").Logger(),
	}
}

type fetchedAsset struct {
	trade   *Trade
	details *AssetDetails
}

// Build fetches the latest trade and reference data for every symbol.
// Any fetch failure fails the whole build with an external service error.
func (b *ContextBuilder) Build(ctx context.Context, symbols []string) (*domain.MarketDataContext, error) {
	unique := dedupe(symbols)
	results := make([]fetchedAsset, len(unique))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, symbol := range unique {
		i, symbol := i, symbol
		g.Go(func() error {
			trade, err := b.provider.LatestTrade(gctx, symbol)
			if err != nil {
				return domain.ExternalServiceError(fmt.Errorf("failed to fetch trade for %s: %w", symbol, err))
			}
			details, err := b.provider.AssetDetails(gctx, symbol)
			if err != nil {
				return domain.ExternalServiceError(fmt.Errorf("failed to fetch asset details for %s: %w", symbol, err))
			}
			results[i] = fetchedAsset{trade: trade, details: details}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	md := domain.NewMarketDataContext()
	for i, symbol := range unique {
		r := results[i]
		md.AddAsset(domain.Asset{
			ID:         symbol,
			Symbol:     symbol,
			Name:       r.details.Name,
			AssetClass: b.classify(symbol, r.details.Class),
		}, r.trade.Price, r.trade.Timestamp)
	}

	b.log.Debug().Int("num_assets", len(unique)).Msg("Market data snapshot built")
	return md, nil
}

func (b *ContextBuilder) classify(symbol string, class ProviderAssetClass) domain.AssetClass {
	if override, ok := b.overrides[symbol]; ok {
		return override
	}
	return MapAssetClass(class)
}

func dedupe(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	unique := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		unique = append(unique, s)
	}
	sort.Strings(unique)
	return unique
}
