package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config holds configuration for the price oracle cache.
type Config struct {
	BaseCurrency   string
	TTL            time.Duration
	MaxRetries     int
	RetryBase      time.Duration
	RateLimitDelay time.Duration

	// Pegged maps stablecoins and fixed-rate tokens to their base-currency
	// unit price; these never hit the network.
	Pegged map[string]decimal.Decimal

	// Fallback holds last-resort static prices used when retries exhaust
	// and no previously fetched quote exists.
	Fallback map[string]decimal.Decimal

	// Now is the clock; defaults to time.Now. Injected for tests.
	Now func() time.Time
}

type quote struct {
	Price     decimal.Decimal
	FetchedAt time.Time

	// Degraded marks a stale or static fallback value substituted after a
	// failed upstream fetch.
	Degraded bool
}
