// Package providers contains the settlement rails the funds engine hands
// off to: the custody network for crypto withdrawals, the bill-payment
// processor for utility purchases and Stripe payouts for fiat. Each rail
// reports whether its success answer is final or still in flight; the
// orchestrator picks commit-vs-processing from that.
package providers

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Rail statuses
const (
	RailStatusCompleted  = "completed"
	RailStatusProcessing = "processing"
	RailStatusFailed     = "failed"
)

// Provider errors
var (
	// ErrProviderTimeout means the rail did not answer in time. The outcome
	// is unknown: callers must not assume the money moved, and must not
	// assume it didn't.
	ErrProviderTimeout = errors.New("settlement provider timed out")

	ErrProviderRejected = errors.New("settlement provider rejected the request")
)

// RailRequest describes one settlement to execute externally. Reference is
// the ledger entry's unique reference; rails that support idempotent
// retries key on it.
type RailRequest struct {
	Reference   string
	UserID      uint
	Currency    string
	Amount      decimal.Decimal
	Destination string
	Metadata    map[string]string
}

// RailResult is the rail's answer.
type RailResult struct {
	Status      string
	ProviderRef string
	Message     string
}

// SettlementRail executes one settlement against an external provider.
type SettlementRail interface {
	Name() string
	Execute(ctx context.Context, req RailRequest) (RailResult, error)
}
