package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types
const (
	TransactionTypeWithdrawal       = "WITHDRAWAL"
	TransactionTypeTransferSent     = "INTERNAL_TRANSFER_SENT"
	TransactionTypeTransferReceived = "INTERNAL_TRANSFER_RECEIVED"
	TransactionTypeBillPurchase     = "BILL_PURCHASE"
	TransactionTypeDeposit          = "DEPOSIT"
)

// Transaction statuses
const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
	StatusRefunded   = "REFUNDED"
)

// Transaction is one ledger entry. Rows are created PENDING before any
// external call and are never deleted; failed attempts stay behind for
// audit and for the duplicate-window queries of the idempotency guard.
type Transaction struct {
	ID             uint            `gorm:"primarykey"`
	Type           string          `gorm:"not null;index:idx_user_type,priority:2"`
	UserID         uint            `gorm:"not null;index:idx_user_type,priority:1"`
	CounterpartyID *uint           `gorm:"index"`
	Currency       string          `gorm:"not null"`
	Amount         decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	Fee            decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	Status         string          `gorm:"not null;default:'PENDING';index"`
	Reference      string          `gorm:"uniqueIndex;not null"`
	Destination    string          // address, account or meter number
	Description    string
	ProviderRef    string
	Metadata       JSON `gorm:"type:jsonb"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
}

// Final reports whether the entry reached a terminal status and is
// therefore immutable.
func (t *Transaction) Final() bool {
	switch t.Status {
	case StatusCompleted, StatusFailed, StatusRefunded:
		return true
	}
	return false
}
