// Package idempotency provides the pre-flight duplicate gate for funds
// movement. It matches a request's fingerprint against recent non-final
// ledger entries and caps the number of concurrently in-flight entries per
// user per flow. The gate is a read-then-decide check, not a lock: the
// orchestrator still creates the ledger entry before calling any external
// rail so that a crash leaves a PENDING row this guard catches on retry.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Manniegenie/ZeusODX-server-sub005/internal/repositories"
	"github.com/shopspring/decimal"
)

// Default configuration values
const (
	DefaultWindow     = 15 * time.Minute
	DefaultMaxPending = 5
)

// Config holds per-flow duplicate windows and the in-flight cap.
type Config struct {
	// Windows overrides the duplicate window per transaction type.
	Windows map[string]time.Duration

	// DefaultWindow applies to types without an override.
	DefaultWindow time.Duration

	// MaxPending caps concurrent PENDING/PROCESSING entries per user per
	// flow type.
	MaxPending int

	// Now is the clock; defaults to time.Now. Injected for tests.
	Now func() time.Time
}

// Request is the fingerprint of an inbound funds movement.
type Request struct {
	UserID      uint
	Destination string
	Currency    string
	Amount      decimal.Decimal
	Type        string
}

// Guard checks requests against the transaction ledger.
type Guard struct {
	ledger repositories.TransactionRepository
	config Config
}

// NewGuard creates a duplicate guard over the transaction ledger.
func NewGuard(ledger repositories.TransactionRepository, config Config) *Guard {
	if ledger == nil {
		panic("transaction repository is required")
	}
	if config.DefaultWindow == 0 {
		config.DefaultWindow = DefaultWindow
	}
	if config.MaxPending == 0 {
		config.MaxPending = DefaultMaxPending
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Guard{ledger: ledger, config: config}
}

// Check blocks the request if an identical one is still in flight or if
// the user already has too many in-flight entries of this type.
func (g *Guard) Check(ctx context.Context, req Request) error {
	window := g.config.DefaultWindow
	if w, ok := g.config.Windows[req.Type]; ok {
		window = w
	}

	existing, err := g.ledger.FindDuplicate(ctx, repositories.DuplicateQuery{
		UserID:      req.UserID,
		Destination: req.Destination,
		Currency:    req.Currency,
		Amount:      req.Amount,
		Types:       []string{req.Type},
		Since:       g.config.Now().Add(-window),
	})
	if err == nil {
		return &DuplicateError{ExistingID: existing.ID}
	}
	if !errors.Is(err, repositories.ErrTransactionNotFound) {
		return fmt.Errorf("duplicate lookup failed: %w", err)
	}

	active, err := g.ledger.CountActive(ctx, req.UserID, []string{req.Type})
	if err != nil {
		return fmt.Errorf("pending count failed: %w", err)
	}
	if active >= int64(g.config.MaxPending) {
		return ErrTooManyPending
	}
	return nil
}
