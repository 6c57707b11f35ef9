package pricing

import "errors"

// Service errors
var (
	ErrRateLimited           = errors.New("price source rate limited")
	ErrConversionUnavailable = errors.New("no price available for symbol")
	ErrNoSymbols             = errors.New("no symbols requested")
)
