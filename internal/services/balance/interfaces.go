package balance

import (
	"context"

	"github.com/Manniegenie/ZeusODX-server-sub005/internal/models"
	"github.com/shopspring/decimal"
)

// Service is the balance ledger: every movement of user funds goes through
// one of these operations. Reserve/Release/Commit implement the two-phase
// settlement protocol; the Direct operations represent immediate external
// in/outflow with no reservation phase.
type Service interface {
	// Reserve moves amount from available to pending. Fails with
	// ErrInsufficientBalance if available is short, leaving state untouched.
	Reserve(ctx context.Context, userID uint, currency string, amount decimal.Decimal) error

	// Release reverses a reservation, moving amount from pending back to
	// available. Releasing more than is currently pending is a caller bug
	// and fails with ErrReservationConflict.
	Release(ctx context.Context, userID uint, currency string, amount decimal.Decimal) error

	// Commit finalizes a reservation as externally spent: pending shrinks
	// and nothing is credited back.
	Commit(ctx context.Context, userID uint, currency string, amount decimal.Decimal) error

	// DirectDebit removes amount from available, for rails that settle
	// synchronously.
	DirectDebit(ctx context.Context, userID uint, currency string, amount decimal.Decimal) error

	// DirectCredit adds amount to available, creating the balance row on a
	// user's first deposit in a currency.
	DirectCredit(ctx context.Context, userID uint, currency string, amount decimal.Decimal) error

	// TransferAtomic debits the sender and credits the recipient in one
	// all-or-nothing unit.
	TransferAtomic(ctx context.Context, senderID, recipientID uint, currency string, amount decimal.Decimal) error

	GetBalance(ctx context.Context, userID uint, currency string) (*models.Balance, error)
}
