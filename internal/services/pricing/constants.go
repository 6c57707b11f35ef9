package pricing

import "time"

// Default configuration values
const (
	DefaultBaseCurrency   = "USD"
	DefaultTTL            = 5 * time.Minute
	DefaultMaxRetries     = 3
	DefaultRetryBase      = 500 * time.Millisecond
	DefaultRateLimitDelay = 10 * time.Second
)
