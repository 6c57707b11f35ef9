// Package funds is the movement orchestrator: it runs every user-initiated
// outflow through the same gate sequence (PIN, duplicate guard, spend
// limits, reservation), records the ledger entry before touching any
// external rail, and drives the entry through its state machine based on
// the rail's answer.
package funds

import (
	"context"

	"github.com/Manniegenie/ZeusODX-server-sub005/internal/models"
)

// Service orchestrates funds movement end to end.
type Service interface {
	// Withdraw sends funds to an external address or bank account via the
	// matching settlement rail, reserving first and committing only on
	// confirmed settlement.
	Withdraw(ctx context.Context, req WithdrawRequest) (*Receipt, error)

	// Transfer moves funds between two internal accounts atomically.
	Transfer(ctx context.Context, req TransferRequest) (*Receipt, error)

	// PurchaseBill pays a utility bill through the bill-payment rail,
	// debiting directly since that rail settles synchronously.
	PurchaseBill(ctx context.Context, req BillRequest) (*Receipt, error)

	// Initiate dispatches a generic movement request to the matching flow.
	Initiate(ctx context.Context, req InitiateRequest) (*Receipt, error)

	// GetStatus returns the ledger entry view for a transaction.
	GetStatus(ctx context.Context, transactionID uint) (*models.Transaction, error)
}
