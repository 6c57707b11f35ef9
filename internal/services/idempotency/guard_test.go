package idempotency

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Manniegenie/ZeusODX-server-sub005/internal/models"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/repositories"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedEntry(t *testing.T, ledger repositories.TransactionRepository, status string, createdAt time.Time) *models.Transaction {
	t.Helper()
	tx := &models.Transaction{
		Type:        models.TransactionTypeWithdrawal,
		UserID:      1,
		Currency:    "USDT",
		Amount:      decimal.NewFromInt(100),
		Status:      status,
		Destination: "0xabc",
		Reference:   fmt.Sprintf("ref-%d", createdAt.UnixNano()),
		CreatedAt:   createdAt,
	}
	require.NoError(t, ledger.Create(context.Background(), tx))
	return tx
}

func withdrawalRequest() Request {
	return Request{
		UserID:      1,
		Destination: "0xabc",
		Currency:    "USDT",
		Amount:      decimal.NewFromInt(100),
		Type:        models.TransactionTypeWithdrawal,
	}
}

func TestGuard_BlocksDuplicateInWindow(t *testing.T) {
	ledger := repositories.NewMemoryTransactionRepository()
	now := time.Now()
	guard := NewGuard(ledger, Config{Now: func() time.Time { return now }})

	existing := seedEntry(t, ledger, models.StatusPending, now.Add(-time.Minute))

	err := guard.Check(context.Background(), withdrawalRequest())
	require.ErrorIs(t, err, ErrDuplicateRequest)

	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, existing.ID, dup.ExistingID, "error must reference the colliding entry")
}

func TestGuard_AllowsOutsideWindow(t *testing.T) {
	ledger := repositories.NewMemoryTransactionRepository()
	now := time.Now()
	guard := NewGuard(ledger, Config{Now: func() time.Time { return now }})

	seedEntry(t, ledger, models.StatusPending, now.Add(-DefaultWindow-time.Minute))

	assert.NoError(t, guard.Check(context.Background(), withdrawalRequest()))
}

func TestGuard_IgnoresFinalEntries(t *testing.T) {
	ledger := repositories.NewMemoryTransactionRepository()
	now := time.Now()
	guard := NewGuard(ledger, Config{Now: func() time.Time { return now }})

	seedEntry(t, ledger, models.StatusCompleted, now.Add(-time.Minute))
	seedEntry(t, ledger, models.StatusFailed, now.Add(-time.Minute))

	assert.NoError(t, guard.Check(context.Background(), withdrawalRequest()))
}

func TestGuard_DifferentFingerprintPasses(t *testing.T) {
	ledger := repositories.NewMemoryTransactionRepository()
	now := time.Now()
	guard := NewGuard(ledger, Config{Now: func() time.Time { return now }})

	seedEntry(t, ledger, models.StatusPending, now.Add(-time.Minute))

	req := withdrawalRequest()
	req.Amount = decimal.NewFromInt(101)
	assert.NoError(t, guard.Check(context.Background(), req))
}

func TestGuard_TooManyPending(t *testing.T) {
	ledger := repositories.NewMemoryTransactionRepository()
	now := time.Now()
	guard := NewGuard(ledger, Config{MaxPending: 3, Now: func() time.Time { return now }})

	// Distinct destinations so none is a fingerprint duplicate.
	for i := 0; i < 3; i++ {
		tx := &models.Transaction{
			Type:        models.TransactionTypeWithdrawal,
			UserID:      1,
			Currency:    "USDT",
			Amount:      decimal.NewFromInt(int64(10 + i)),
			Status:      models.StatusProcessing,
			Destination: fmt.Sprintf("0xdest%d", i),
			Reference:   fmt.Sprintf("ref-%d", i),
			CreatedAt:   now,
		}
		require.NoError(t, ledger.Create(context.Background(), tx))
	}

	err := guard.Check(context.Background(), withdrawalRequest())
	assert.ErrorIs(t, err, ErrTooManyPending)
}

func TestGuard_PerFlowWindowOverride(t *testing.T) {
	ledger := repositories.NewMemoryTransactionRepository()
	now := time.Now()
	guard := NewGuard(ledger, Config{
		Windows: map[string]time.Duration{models.TransactionTypeWithdrawal: 5 * time.Minute},
		Now:     func() time.Time { return now },
	})

	seedEntry(t, ledger, models.StatusPending, now.Add(-10*time.Minute))

	assert.NoError(t, guard.Check(context.Background(), withdrawalRequest()),
		"entry older than the flow's window must not block")
}
