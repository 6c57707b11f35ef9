package repositories

import (
	"context"

	"github.com/Manniegenie/ZeusODX-server-sub005/internal/models"
	"github.com/shopspring/decimal"
)

// AccountRepository owns the per-user per-currency balance rows. All
// mutation goes through Adjust / TransferAtomic, which apply deltas as a
// single conditional update: the store refuses any change that would leave
// available or pending negative, and reports that as ErrConditionFailed.
// This is what makes reserve/commit/release linearizable per (user,
// currency) without external locks.
type AccountRepository interface {
	Get(ctx context.Context, userID uint, currency string) (*models.Balance, error)
	Create(ctx context.Context, balance *models.Balance) error

	// Adjust atomically applies (availableDelta, pendingDelta) to one row,
	// guarded by available+delta >= 0 and pending+delta >= 0.
	Adjust(ctx context.Context, userID uint, currency string, availableDelta, pendingDelta decimal.Decimal) error

	// TransferAtomic debits the sender's available balance (conditioned on
	// sufficiency) and credits the recipient in one all-or-nothing unit.
	TransferAtomic(ctx context.Context, senderID, recipientID uint, currency string, amount decimal.Decimal) error
}
