package limits

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Spend categories
const (
	CategoryUtility = "utility"
	CategoryCrypto  = "crypto"
	CategoryFiat    = "fiat"
)

// CategoryLimits holds the daily and monthly caps for one category, in the
// base currency.
type CategoryLimits struct {
	Daily   decimal.Decimal
	Monthly decimal.Decimal
}

// Table maps KYC level to per-category limits. Level 0 never appears: it is
// hard-blocked before the table is consulted.
type Table map[int]map[string]CategoryLimits

// SpendWindow is the cached rolling aggregate of successful spend for one
// user and category, normalized to the base currency.
type SpendWindow struct {
	DailyTotal   decimal.Decimal `json:"daily_total"`
	MonthlyTotal decimal.Decimal `json:"monthly_total"`
	ComputedAt   time.Time       `json:"computed_at"`
}

// CheckResult carries the normalized amount and the projected totals after
// the prospective charge.
type CheckResult struct {
	NormalizedAmount decimal.Decimal
	ProjectedDaily   decimal.Decimal
	ProjectedMonthly decimal.Decimal
}

// Config holds configuration for the spend-limit engine.
type Config struct {
	Table     Table
	WindowTTL time.Duration

	// Now is the clock; defaults to time.Now. Injected for tests.
	Now func() time.Time
}

// WindowCache is the TTL cache holding computed spend windows. Satisfied by
// the Redis cache service.
type WindowCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Service is the KYC spend-limit engine.
type Service interface {
	// CheckAndCharge validates the prospective spend against the user's
	// daily and monthly limits. It does not persist anything: the charge
	// becomes visible to later checks when the ledger entry completes and
	// the window is invalidated.
	CheckAndCharge(ctx context.Context, userID uint, amount decimal.Decimal, currency, category string) (*CheckResult, error)

	// Invalidate drops the cached spend window so the next check recomputes
	// from the ledger. Called by the orchestrator after settlement.
	Invalidate(ctx context.Context, userID uint, category string) error
}
