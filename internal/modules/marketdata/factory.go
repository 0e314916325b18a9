package marketdata

import (
	"fmt"
	"strings"
)

// NewProviders builds the named providers in priority order, each behind its own rate limiter.
// Only "mock" is available in-repo; vendor clients plug in through the Provider interface.
func NewProviders(names []string, perSecond float64, burst int) ([]Provider, error) {
	providers := make([]Provider, 0, len(names))
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}

		var p Provider
		switch name {
		case "mock":
			p = NewMockProvider(nil, nil)
		default:
			return nil, fmt.Errorf("%w: unknown provider %q", ErrConfiguration, raw)
		}

		if perSecond > 0 {
			p = NewRateLimitedProvider(p, perSecond, burst)
		}
		providers = append(providers, p)
	}
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}
	return providers, nil
}
