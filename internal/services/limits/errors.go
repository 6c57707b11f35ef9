package limits

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Service errors
var (
	ErrKycRequired     = errors.New("identity verification required")
	ErrUnknownCategory = errors.New("unknown spend category")
	ErrLimitExceeded   = errors.New("spend limit exceeded")
)

// Limit scopes
const (
	ScopeDaily   = "daily"
	ScopeMonthly = "monthly"
)

// LimitExceededError reports which window tripped and how much headroom
// remains in the base currency.
type LimitExceededError struct {
	Scope    string
	Limit    decimal.Decimal
	Current  decimal.Decimal
	Headroom decimal.Decimal
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("%s spend limit exceeded: limit %s, headroom %s",
		e.Scope, e.Limit.String(), e.Headroom.String())
}

func (e *LimitExceededError) Unwrap() error {
	return ErrLimitExceeded
}
