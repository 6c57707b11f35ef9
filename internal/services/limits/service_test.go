package limits

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Manniegenie/ZeusODX-server-sub005/internal/logging"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/models"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/repositories"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/repositories/cache"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/services/pricing"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakePricing normalizes via a fixed rate table; USD is the base currency.
type fakePricing struct {
	rates map[string]decimal.Decimal
}

func (f *fakePricing) GetPrices(_ context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal)
	for _, sym := range symbols {
		rate, ok := f.rates[strings.ToUpper(sym)]
		if !ok {
			return nil, fmt.Errorf("%w: %s", pricing.ErrConversionUnavailable, sym)
		}
		out[strings.ToUpper(sym)] = rate
	}
	return out, nil
}

func (f *fakePricing) Convert(ctx context.Context, amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	if strings.ToUpper(currency) == "USD" {
		return amount, nil
	}
	prices, err := f.GetPrices(ctx, []string{currency})
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(prices[strings.ToUpper(currency)]), nil
}

func newFixture(t *testing.T, kycLevel int) (Service, repositories.TransactionRepository, time.Time) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	windows := cache.NewCacheService(client, time.Hour)

	users := repositories.NewMemoryUserRepository()
	users.Put(&models.User{
		Model:    gorm.Model{ID: 1},
		Email:    "user@example.com",
		Password: "x",
		Name:     "Test User",
		Phone:    "+2348000000000",
		KYCLevel: kycLevel,
	})

	ledger := repositories.NewMemoryTransactionRepository()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	prices := &fakePricing{rates: map[string]decimal.Decimal{
		"USDT": decimal.NewFromInt(1),
		"BTC":  decimal.NewFromInt(50_000),
	}}

	svc := NewService(users, ledger, prices, windows, Config{
		Now: func() time.Time { return now },
	}, logging.Discard())
	return svc, ledger, now
}

func completedSpend(t *testing.T, ledger repositories.TransactionRepository, txType, currency string, amount decimal.Decimal, createdAt time.Time) {
	t.Helper()
	require.NoError(t, ledger.Create(context.Background(), &models.Transaction{
		Type:      txType,
		UserID:    1,
		Currency:  currency,
		Amount:    amount,
		Status:    models.StatusCompleted,
		Reference: fmt.Sprintf("ref-%s-%d", currency, createdAt.UnixNano()),
		CreatedAt: createdAt,
	}))
}

func TestCheckAndCharge_KycLevelZeroBlocked(t *testing.T) {
	svc, _, _ := newFixture(t, 0)

	_, err := svc.CheckAndCharge(context.Background(), 1, decimal.NewFromInt(1), "USD", CategoryCrypto)
	assert.ErrorIs(t, err, ErrKycRequired)
}

func TestCheckAndCharge_DailyBoundary(t *testing.T) {
	svc, ledger, now := newFixture(t, 1)
	ctx := context.Background()

	// Level 1 crypto daily cap is 500; 400 already spent today.
	completedSpend(t, ledger, models.TransactionTypeWithdrawal, "USDT", decimal.NewFromInt(400), now.Add(-2*time.Hour))

	t.Run("spend landing exactly on the limit passes", func(t *testing.T) {
		res, err := svc.CheckAndCharge(ctx, 1, decimal.NewFromInt(100), "USDT", CategoryCrypto)
		require.NoError(t, err)
		assert.True(t, res.ProjectedDaily.Equal(decimal.NewFromInt(500)))
	})

	t.Run("one cent over fails with headroom", func(t *testing.T) {
		_, err := svc.CheckAndCharge(ctx, 1, decimal.RequireFromString("100.01"), "USDT", CategoryCrypto)
		require.ErrorIs(t, err, ErrLimitExceeded)

		var limitErr *LimitExceededError
		require.ErrorAs(t, err, &limitErr)
		assert.Equal(t, ScopeDaily, limitErr.Scope)
		assert.True(t, limitErr.Headroom.Equal(decimal.NewFromInt(100)))
	})
}

func TestCheckAndCharge_MonthlyTripsFirst(t *testing.T) {
	svc, ledger, now := newFixture(t, 1)
	ctx := context.Background()

	// Spread 4900 across the month, nothing today: daily headroom is full
	// but monthly (5000) has only 100 left.
	for day := 1; day <= 7; day++ {
		completedSpend(t, ledger, models.TransactionTypeWithdrawal, "USDT",
			decimal.NewFromInt(700), now.AddDate(0, 0, -day))
	}

	_, err := svc.CheckAndCharge(ctx, 1, decimal.NewFromInt(200), "USDT", CategoryCrypto)
	require.ErrorIs(t, err, ErrLimitExceeded)

	var limitErr *LimitExceededError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, ScopeMonthly, limitErr.Scope)
	assert.True(t, limitErr.Headroom.Equal(decimal.NewFromInt(100)))
}

func TestCheckAndCharge_NormalizesCurrency(t *testing.T) {
	svc, _, _ := newFixture(t, 3)
	ctx := context.Background()

	// 0.5 BTC at 50k = 25k USD, within level 3 crypto daily cap of 50k.
	res, err := svc.CheckAndCharge(ctx, 1, decimal.RequireFromString("0.5"), "BTC", CategoryCrypto)
	require.NoError(t, err)
	assert.True(t, res.NormalizedAmount.Equal(decimal.NewFromInt(25_000)))

	// 1.5 BTC = 75k USD blows the daily cap.
	_, err = svc.CheckAndCharge(ctx, 1, decimal.RequireFromString("1.5"), "BTC", CategoryCrypto)
	assert.ErrorIs(t, err, ErrLimitExceeded)
}

func TestCheckAndCharge_SkipsInconvertibleEntries(t *testing.T) {
	svc, ledger, now := newFixture(t, 1)
	ctx := context.Background()

	// An old entry in a currency with no quote must be skipped, not guessed.
	completedSpend(t, ledger, models.TransactionTypeWithdrawal, "XYZ", decimal.NewFromInt(9999), now.Add(-time.Hour))
	completedSpend(t, ledger, models.TransactionTypeWithdrawal, "USDT", decimal.NewFromInt(100), now.Add(-time.Hour))

	res, err := svc.CheckAndCharge(ctx, 1, decimal.NewFromInt(50), "USDT", CategoryCrypto)
	require.NoError(t, err)
	assert.True(t, res.ProjectedDaily.Equal(decimal.NewFromInt(150)))
}

func TestInvalidate_ForcesRecompute(t *testing.T) {
	svc, ledger, now := newFixture(t, 1)
	ctx := context.Background()

	// Prime the cached window with zero spend.
	_, err := svc.CheckAndCharge(ctx, 1, decimal.NewFromInt(1), "USDT", CategoryCrypto)
	require.NoError(t, err)

	// A settlement lands; the stale cached window still hides it.
	completedSpend(t, ledger, models.TransactionTypeWithdrawal, "USDT", decimal.NewFromInt(500), now)
	_, err = svc.CheckAndCharge(ctx, 1, decimal.NewFromInt(500), "USDT", CategoryCrypto)
	require.NoError(t, err, "stale window within TTL is acceptable")

	// After invalidation the recomputed window includes it.
	require.NoError(t, svc.Invalidate(ctx, 1, CategoryCrypto))
	_, err = svc.CheckAndCharge(ctx, 1, decimal.NewFromInt(500), "USDT", CategoryCrypto)
	assert.ErrorIs(t, err, ErrLimitExceeded)
}

func TestCheckAndCharge_UnknownCategory(t *testing.T) {
	svc, _, _ := newFixture(t, 1)
	_, err := svc.CheckAndCharge(context.Background(), 1, decimal.NewFromInt(1), "USD", "gaming")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}
