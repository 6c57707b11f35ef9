package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Manniegenie/ZeusODX-server-sub005/internal/models"
	"github.com/shopspring/decimal"
)

type memoryAccountRepository struct {
	mu       sync.Mutex
	balances map[string]*models.Balance

	// FailCreditFor forces the credit leg of TransferAtomic to fail for a
	// given recipient, for exercising all-or-nothing behaviour in tests.
	FailCreditFor uint
}

// NewMemoryAccountRepository creates a concurrency-safe in-memory account
// store with the same conditional-update semantics as the Postgres
// implementation. Useful for unit tests.
func NewMemoryAccountRepository() *memoryAccountRepository {
	return &memoryAccountRepository{balances: make(map[string]*models.Balance)}
}

func accountKey(userID uint, currency string) string {
	return fmt.Sprintf("%d:%s", userID, currency)
}

func (r *memoryAccountRepository) Get(_ context.Context, userID uint, currency string) (*models.Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	balance, ok := r.balances[accountKey(userID, currency)]
	if !ok {
		return nil, ErrBalanceNotFound
	}
	copied := *balance
	return &copied, nil
}

func (r *memoryAccountRepository) Create(_ context.Context, balance *models.Balance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *balance
	r.balances[accountKey(balance.UserID, balance.Currency)] = &copied
	return nil
}

func (r *memoryAccountRepository) Adjust(_ context.Context, userID uint, currency string, availableDelta, pendingDelta decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.adjustLocked(userID, currency, availableDelta, pendingDelta)
}

func (r *memoryAccountRepository) adjustLocked(userID uint, currency string, availableDelta, pendingDelta decimal.Decimal) error {
	balance, ok := r.balances[accountKey(userID, currency)]
	if !ok {
		return ErrBalanceNotFound
	}
	newAvailable := balance.Available.Add(availableDelta)
	newPending := balance.Pending.Add(pendingDelta)
	if newAvailable.IsNegative() || newPending.IsNegative() {
		return ErrConditionFailed
	}
	balance.Available = newAvailable
	balance.Pending = newPending
	balance.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memoryAccountRepository) TransferAtomic(_ context.Context, senderID, recipientID uint, currency string, amount decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.adjustLocked(senderID, currency, amount.Neg(), decimal.Zero); err != nil {
		return err
	}

	rollback := func() {
		// Re-credit cannot fail: the row exists and the deltas are positive.
		_ = r.adjustLocked(senderID, currency, amount, decimal.Zero)
	}

	if r.FailCreditFor != 0 && r.FailCreditFor == recipientID {
		rollback()
		return fmt.Errorf("injected credit failure for user %d", recipientID)
	}

	if _, ok := r.balances[accountKey(recipientID, currency)]; !ok {
		r.balances[accountKey(recipientID, currency)] = &models.Balance{
			UserID:    recipientID,
			Currency:  currency,
			Available: decimal.Zero,
			Pending:   decimal.Zero,
		}
	}
	if err := r.adjustLocked(recipientID, currency, amount, decimal.Zero); err != nil {
		rollback()
		return err
	}
	return nil
}
