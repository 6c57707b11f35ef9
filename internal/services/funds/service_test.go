package funds

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/Manniegenie/ZeusODX-server-sub005/internal/events"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/logging"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/models"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/providers"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/repositories"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/repositories/cache"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/services/balance"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/services/idempotency"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/services/limits"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/services/twofactor"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// identityPricing treats every currency as already being in the base
// currency.
type identityPricing struct{}

func (identityPricing) GetPrices(_ context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(symbols))
	for _, s := range symbols {
		out[s] = decimal.NewFromInt(1)
	}
	return out, nil
}

func (identityPricing) Convert(_ context.Context, amount decimal.Decimal, _ string) (decimal.Decimal, error) {
	return amount, nil
}

// memWindowCache is an in-process stand-in for the Redis window cache.
type memWindowCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deletes int
}

func newMemWindowCache() *memWindowCache {
	return &memWindowCache{data: make(map[string][]byte)}
}

func (c *memWindowCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memWindowCache) SetWithTTL(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	return nil
}

func (c *memWindowCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	c.deletes += len(keys)
	return nil
}

// stubRail records its calls and plays back a fixed answer.
type stubRail struct {
	name    string
	result  providers.RailResult
	err     error
	calls   int
	lastReq providers.RailRequest
}

func (r *stubRail) Name() string { return r.name }

func (r *stubRail) Execute(_ context.Context, req providers.RailRequest) (providers.RailResult, error) {
	r.calls++
	r.lastReq = req
	return r.result, r.err
}

type capturePublisher struct {
	events []events.TransactionEvent
}

func (p *capturePublisher) PublishTransaction(_ context.Context, e events.TransactionEvent) error {
	p.events = append(p.events, e)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

type fixture struct {
	svc       Service
	balances  balance.Service
	ledger    repositories.TransactionRepository
	accounts  repositories.AccountRepository
	windows   *memWindowCache
	custody   *stubRail
	bill      *stubRail
	publisher *capturePublisher
	now       time.Time
}

const testPin = "1234"

func newFixture(t *testing.T) *fixture {
	t.Helper()

	accounts := repositories.NewMemoryAccountRepository()
	ledger := repositories.NewMemoryTransactionRepository()
	users := repositories.NewMemoryUserRepository()
	windows := newMemWindowCache()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	hash, err := twofactor.HashPin(testPin)
	require.NoError(t, err)
	users.Put(&models.User{
		Model:    gorm.Model{ID: 1},
		Email:    "sender@example.com",
		KYCLevel: 2,
		PinHash:  hash,
	})
	users.Put(&models.User{
		Model:    gorm.Model{ID: 2},
		Email:    "recipient@example.com",
		KYCLevel: 2,
		PinHash:  hash,
	})
	users.Put(&models.User{
		Model:    gorm.Model{ID: 3},
		Email:    "unverified@example.com",
		KYCLevel: 0,
		PinHash:  hash,
	})

	require.NoError(t, accounts.Create(context.Background(), &models.Balance{
		UserID:    1,
		Currency:  "USDT",
		Available: decimal.NewFromInt(1000),
	}))

	balances := balance.NewService(accounts, nil)
	limitsSvc := limits.NewService(users, ledger, identityPricing{}, windows, limits.Config{Now: clock}, logging.Discard())
	guard := idempotency.NewGuard(ledger, idempotency.Config{Now: clock})
	verifier := twofactor.NewPinVerifier(users)

	custody := &stubRail{name: "custody", result: providers.RailResult{
		Status:      providers.RailStatusCompleted,
		ProviderRef: "fb-123",
	}}
	bill := &stubRail{name: "billpay", result: providers.RailResult{
		Status:      providers.RailStatusCompleted,
		ProviderRef: "vtu-456",
	}}
	publisher := &capturePublisher{}

	svc := NewService(balances, ledger, guard, limitsSvc, verifier, Rails{
		Custody: custody,
		Bill:    bill,
	}, publisher, Config{Now: clock}, logging.Discard())

	return &fixture{
		svc:       svc,
		balances:  balances,
		ledger:    ledger,
		accounts:  accounts,
		windows:   windows,
		custody:   custody,
		bill:      bill,
		publisher: publisher,
		now:       now,
	}
}

func (f *fixture) balanceOf(t *testing.T, userID uint, currency string) *models.Balance {
	t.Helper()
	b, err := f.balances.GetBalance(context.Background(), userID, currency)
	require.NoError(t, err)
	return b
}

func TestWithdraw_FullBalanceWithFee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	receipt, err := f.svc.Withdraw(ctx, WithdrawRequest{
		UserID:      1,
		Currency:    "USDT",
		Amount:      decimal.NewFromInt(1000),
		Fee:         decimal.NewFromInt(5),
		Destination: "0xabc",
		Pin:         testPin,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, receipt.Status)

	after := f.balanceOf(t, 1, "USDT")
	assert.True(t, after.Available.IsZero())
	assert.True(t, after.Pending.IsZero())

	entry, err := f.ledger.GetByID(ctx, receipt.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, entry.Status)
	assert.Equal(t, "fb-123", entry.ProviderRef)
	assert.True(t, entry.Fee.Equal(decimal.NewFromInt(5)))
	require.NotNil(t, entry.CompletedAt)

	// The rail moves amount minus fee.
	assert.Equal(t, 1, f.custody.calls)
	assert.True(t, f.custody.lastReq.Amount.Equal(decimal.NewFromInt(995)))

	// Settlement dropped the spend window and published the event.
	assert.Equal(t, 1, f.windows.deletes)
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, "transaction.completed", f.publisher.events[0].EventType)
	assert.Equal(t, receipt.Reference, f.publisher.events[0].Reference)
}

func TestWithdraw_AmountDoesNotCoverFee(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Withdraw(context.Background(), WithdrawRequest{
		UserID:      1,
		Currency:    "USDT",
		Amount:      decimal.NewFromInt(5),
		Fee:         decimal.NewFromInt(5),
		Destination: "0xabc",
		Pin:         testPin,
	})
	assert.ErrorIs(t, err, ErrAmountTooLow)
	assert.Equal(t, 0, f.custody.calls)
}

func TestWithdraw_KycLevelZeroBlocked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.balances.DirectCredit(ctx, 3, "USDT", decimal.NewFromInt(500)))

	_, err := f.svc.Withdraw(ctx, WithdrawRequest{
		UserID:      3,
		Currency:    "USDT",
		Amount:      decimal.NewFromInt(10),
		Fee:         decimal.NewFromInt(1),
		Destination: "0xabc",
		Pin:         testPin,
	})
	assert.ErrorIs(t, err, limits.ErrKycRequired)

	// Nothing moved and nothing was recorded.
	after := f.balanceOf(t, 3, "USDT")
	assert.True(t, after.Available.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, 0, f.custody.calls)
}

func TestWithdraw_WrongPinFailsClosed(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Withdraw(context.Background(), WithdrawRequest{
		UserID:      1,
		Currency:    "USDT",
		Amount:      decimal.NewFromInt(100),
		Fee:         decimal.NewFromInt(1),
		Destination: "0xabc",
		Pin:         "9999",
	})
	assert.ErrorIs(t, err, twofactor.ErrInvalidPin)

	after := f.balanceOf(t, 1, "USDT")
	assert.True(t, after.Available.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, 0, f.custody.calls)
}

func TestWithdraw_DuplicateRejectedWithExistingID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.custody.result = providers.RailResult{
		Status:      providers.RailStatusProcessing,
		ProviderRef: "fb-async",
	}

	req := WithdrawRequest{
		UserID:      1,
		Currency:    "USDT",
		Amount:      decimal.NewFromInt(100),
		Fee:         decimal.NewFromInt(1),
		Destination: "0xabc",
		Pin:         testPin,
	}
	first, err := f.svc.Withdraw(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, first.Status)

	_, err = f.svc.Withdraw(ctx, req)
	require.Error(t, err)
	assert.ErrorIs(t, err, idempotency.ErrDuplicateRequest)

	var dup *idempotency.DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, first.TransactionID, dup.ExistingID)
}

func TestWithdraw_RailRejectionReleasesReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.custody.err = providers.ErrProviderRejected
	f.custody.result = providers.RailResult{Status: providers.RailStatusFailed}

	_, err := f.svc.Withdraw(ctx, WithdrawRequest{
		UserID:      1,
		Currency:    "USDT",
		Amount:      decimal.NewFromInt(200),
		Fee:         decimal.NewFromInt(2),
		Destination: "0xabc",
		Pin:         testPin,
	})
	assert.ErrorIs(t, err, providers.ErrProviderRejected)

	after := f.balanceOf(t, 1, "USDT")
	assert.True(t, after.Available.Equal(decimal.NewFromInt(1000)))
	assert.True(t, after.Pending.IsZero())

	entry, lookupErr := f.ledger.GetByReference(ctx, f.custody.lastReq.Reference)
	require.NoError(t, lookupErr)
	assert.Equal(t, models.StatusFailed, entry.Status)
}

func TestWithdraw_AsyncRailKeepsReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.custody.result = providers.RailResult{
		Status:      providers.RailStatusProcessing,
		ProviderRef: "fb-async",
	}

	receipt, err := f.svc.Withdraw(ctx, WithdrawRequest{
		UserID:      1,
		Currency:    "USDT",
		Amount:      decimal.NewFromInt(300),
		Fee:         decimal.NewFromInt(3),
		Destination: "0xabc",
		Pin:         testPin,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, receipt.Status)

	after := f.balanceOf(t, 1, "USDT")
	assert.True(t, after.Available.Equal(decimal.NewFromInt(700)))
	assert.True(t, after.Pending.Equal(decimal.NewFromInt(300)))

	entry, err := f.ledger.GetByID(ctx, receipt.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, "fb-async", entry.ProviderRef)
	assert.Nil(t, entry.CompletedAt)

	// No settlement yet, so no window drop and no event.
	assert.Equal(t, 0, f.windows.deletes)
	assert.Empty(t, f.publisher.events)
}

func TestWithdraw_TimeoutLeavesProcessingForReconciliation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.custody.err = providers.ErrProviderTimeout

	_, err := f.svc.Withdraw(ctx, WithdrawRequest{
		UserID:      1,
		Currency:    "USDT",
		Amount:      decimal.NewFromInt(400),
		Fee:         decimal.NewFromInt(4),
		Destination: "0xabc",
		Pin:         testPin,
	})
	assert.ErrorIs(t, err, providers.ErrProviderTimeout)

	// Outcome unknown: funds stay reserved, entry waits for reconciliation.
	after := f.balanceOf(t, 1, "USDT")
	assert.True(t, after.Available.Equal(decimal.NewFromInt(600)))
	assert.True(t, after.Pending.Equal(decimal.NewFromInt(400)))

	entry, lookupErr := f.ledger.GetByReference(ctx, f.custody.lastReq.Reference)
	require.NoError(t, lookupErr)
	assert.Equal(t, models.StatusProcessing, entry.Status)
}

func TestTransfer_MovesFundsAndRecordsBothLegs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	receipt, err := f.svc.Transfer(ctx, TransferRequest{
		SenderID:    1,
		RecipientID: 2,
		Currency:    "USDT",
		Amount:      decimal.NewFromInt(250),
		Pin:         testPin,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, receipt.Status)

	sender := f.balanceOf(t, 1, "USDT")
	recipient := f.balanceOf(t, 2, "USDT")
	assert.True(t, sender.Available.Equal(decimal.NewFromInt(750)))
	assert.True(t, recipient.Available.Equal(decimal.NewFromInt(250)))

	sent, err := f.ledger.GetByID(ctx, receipt.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionTypeTransferSent, sent.Type)
	assert.Equal(t, models.StatusCompleted, sent.Status)
	require.NotNil(t, sent.CounterpartyID)
	assert.Equal(t, uint(2), *sent.CounterpartyID)

	got, err := f.ledger.ListCompletedSince(ctx, 2,
		[]string{models.TransactionTypeTransferReceived}, f.now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Amount.Equal(decimal.NewFromInt(250)))
}

func TestTransfer_SelfTransferRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Transfer(context.Background(), TransferRequest{
		SenderID:    1,
		RecipientID: 1,
		Currency:    "USDT",
		Amount:      decimal.NewFromInt(10),
		Pin:         testPin,
	})
	assert.ErrorIs(t, err, ErrSelfTransfer)
}

func TestTransfer_InsufficientBalanceLeavesBothUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Transfer(ctx, TransferRequest{
		SenderID:    1,
		RecipientID: 2,
		Currency:    "USDT",
		Amount:      decimal.NewFromInt(5000),
		Pin:         testPin,
	})
	assert.ErrorIs(t, err, balance.ErrInsufficientBalance)

	sender := f.balanceOf(t, 1, "USDT")
	assert.True(t, sender.Available.Equal(decimal.NewFromInt(1000)))
	_, err = f.balances.GetBalance(ctx, 2, "USDT")
	assert.ErrorIs(t, err, balance.ErrAccountNotFound)
}

func TestPurchaseBill_SynchronousSettlement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	receipt, err := f.svc.PurchaseBill(ctx, BillRequest{
		UserID:     1,
		Currency:   "USDT",
		Amount:     decimal.NewFromInt(50),
		BillType:   "electricity",
		CustomerID: "meter-001",
		Provider:   "ikeja",
		Pin:        testPin,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, receipt.Status)

	after := f.balanceOf(t, 1, "USDT")
	assert.True(t, after.Available.Equal(decimal.NewFromInt(950)))
	assert.True(t, after.Pending.IsZero())

	entry, err := f.ledger.GetByID(ctx, receipt.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, "vtu-456", entry.ProviderRef)
	assert.Equal(t, "meter-001", entry.Destination)
}

func TestPurchaseBill_RejectionRefundsDebit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.bill.err = providers.ErrProviderRejected
	f.bill.result = providers.RailResult{Status: providers.RailStatusFailed}

	_, err := f.svc.PurchaseBill(ctx, BillRequest{
		UserID:     1,
		Currency:   "USDT",
		Amount:     decimal.NewFromInt(50),
		BillType:   "electricity",
		CustomerID: "meter-001",
		Pin:        testPin,
	})
	assert.ErrorIs(t, err, providers.ErrProviderRejected)

	after := f.balanceOf(t, 1, "USDT")
	assert.True(t, after.Available.Equal(decimal.NewFromInt(1000)))

	entry, lookupErr := f.ledger.GetByReference(ctx, f.bill.lastReq.Reference)
	require.NoError(t, lookupErr)
	assert.Equal(t, models.StatusRefunded, entry.Status)
}

func TestInitiate_DispatchesAndRejectsUnknownFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	receipt, err := f.svc.Initiate(ctx, InitiateRequest{
		FlowType:    FlowWithdrawal,
		UserID:      1,
		Currency:    "USDT",
		Amount:      decimal.NewFromInt(100),
		Fee:         decimal.NewFromInt(1),
		Destination: "0xabc",
		Pin:         testPin,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, receipt.Status)

	_, err = f.svc.Initiate(ctx, InitiateRequest{FlowType: "chargeback"})
	assert.ErrorIs(t, err, ErrUnknownFlow)
}

func TestGetStatus_ReturnsLedgerView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	receipt, err := f.svc.Withdraw(ctx, WithdrawRequest{
		UserID:      1,
		Currency:    "USDT",
		Amount:      decimal.NewFromInt(100),
		Fee:         decimal.NewFromInt(1),
		Destination: "0xabc",
		Pin:         testPin,
	})
	require.NoError(t, err)

	entry, err := f.svc.GetStatus(ctx, receipt.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, receipt.Reference, entry.Reference)

	_, err = f.svc.GetStatus(ctx, 9999)
	assert.ErrorIs(t, err, repositories.ErrTransactionNotFound)
}
