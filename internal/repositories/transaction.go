package repositories

import (
	"context"
	"time"

	"github.com/Manniegenie/ZeusODX-server-sub005/internal/models"
	"github.com/shopspring/decimal"
)

// DuplicateQuery describes the fingerprint the idempotency guard matches
// against recent non-final ledger entries.
type DuplicateQuery struct {
	UserID      uint
	Destination string
	Currency    string
	Amount      decimal.Decimal
	Types       []string
	Since       time.Time
}

// TransactionRepository owns the append-only transaction ledger. Entries
// are created PENDING and move through UpdateStatus along defined
// transitions; rows in a final status are immutable and never deleted.
type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	GetByID(ctx context.Context, id uint) (*models.Transaction, error)
	GetByReference(ctx context.Context, reference string) (*models.Transaction, error)

	// UpdateStatus patches a non-final entry. Updating a final entry fails
	// with ErrFinalState.
	UpdateStatus(ctx context.Context, id uint, status string, patch map[string]interface{}) error

	// FindDuplicate returns the most recent PENDING/PROCESSING entry
	// matching the fingerprint, or ErrTransactionNotFound.
	FindDuplicate(ctx context.Context, q DuplicateQuery) (*models.Transaction, error)

	// CountActive counts a user's PENDING/PROCESSING entries of the given
	// types.
	CountActive(ctx context.Context, userID uint, types []string) (int64, error)

	// ListCompletedSince returns the user's COMPLETED entries of the given
	// types created at or after the cutoff, for spend-window rebuilds.
	ListCompletedSince(ctx context.Context, userID uint, types []string, since time.Time) ([]models.Transaction, error)
}
