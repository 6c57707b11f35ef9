package pricing

import (
	"context"

	"github.com/shopspring/decimal"
)

// PriceSource fetches base-currency unit prices from an upstream quote
// provider. Implementations should return ErrRateLimited when the upstream
// throttles the request so the cache can apply the longer retry delay.
type PriceSource interface {
	Fetch(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error)
}

// Service is the process-wide price oracle cache.
type Service interface {
	// GetPrices returns base-currency unit prices for the given symbols.
	GetPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error)

	// Convert normalizes an amount in the given currency to the base
	// currency.
	Convert(ctx context.Context, amount decimal.Decimal, currency string) (decimal.Decimal, error)
}
