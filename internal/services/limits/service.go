package limits

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Manniegenie/ZeusODX-server-sub005/internal/repositories"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/repositories/cache"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/services/pricing"
	"github.com/shopspring/decimal"
)

type service struct {
	users   repositories.UserRepository
	ledger  repositories.TransactionRepository
	pricing pricing.Service
	windows WindowCache
	config  Config
	logger  *slog.Logger
}

// NewService creates the spend-limit engine.
func NewService(
	users repositories.UserRepository,
	ledger repositories.TransactionRepository,
	pricingSvc pricing.Service,
	windows WindowCache,
	config Config,
	logger *slog.Logger,
) Service {
	if users == nil {
		panic("user repository is required")
	}
	if ledger == nil {
		panic("transaction repository is required")
	}
	if pricingSvc == nil {
		panic("pricing service is required")
	}
	if windows == nil {
		panic("window cache is required")
	}

	if config.Table == nil {
		config.Table = DefaultTable()
	}
	if config.WindowTTL == 0 {
		config.WindowTTL = DefaultWindowTTL
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &service{
		users:   users,
		ledger:  ledger,
		pricing: pricingSvc,
		windows: windows,
		config:  config,
		logger:  logger,
	}
}

func (s *service) CheckAndCharge(ctx context.Context, userID uint, amount decimal.Decimal, currency, category string) (*CheckResult, error) {
	if _, ok := categoryTypes[category]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	if user.KYCLevel <= 0 {
		return nil, ErrKycRequired
	}

	caps, err := s.resolveLimits(user.KYCLevel, category)
	if err != nil {
		return nil, err
	}

	normalized, err := s.pricing.Convert(ctx, amount, currency)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize amount: %w", err)
	}

	window, err := s.window(ctx, userID, category)
	if err != nil {
		return nil, err
	}

	projectedDaily := window.DailyTotal.Add(normalized)
	projectedMonthly := window.MonthlyTotal.Add(normalized)

	if projectedDaily.GreaterThan(caps.Daily) {
		return nil, &LimitExceededError{
			Scope:    ScopeDaily,
			Limit:    caps.Daily,
			Current:  window.DailyTotal,
			Headroom: decimal.Max(caps.Daily.Sub(window.DailyTotal), decimal.Zero),
		}
	}
	if projectedMonthly.GreaterThan(caps.Monthly) {
		return nil, &LimitExceededError{
			Scope:    ScopeMonthly,
			Limit:    caps.Monthly,
			Current:  window.MonthlyTotal,
			Headroom: decimal.Max(caps.Monthly.Sub(window.MonthlyTotal), decimal.Zero),
		}
	}

	return &CheckResult{
		NormalizedAmount: normalized,
		ProjectedDaily:   projectedDaily,
		ProjectedMonthly: projectedMonthly,
	}, nil
}

func (s *service) Invalidate(ctx context.Context, userID uint, category string) error {
	return s.windows.Delete(ctx, windowKey(userID, category))
}

func (s *service) resolveLimits(level int, category string) (CategoryLimits, error) {
	// Levels above the table top out at the highest configured tier.
	for l := level; l >= 1; l-- {
		if byCategory, ok := s.config.Table[l]; ok {
			caps, ok := byCategory[category]
			if !ok {
				return CategoryLimits{}, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
			}
			return caps, nil
		}
	}
	return CategoryLimits{}, ErrKycRequired
}

// window returns the cached spend window, rebuilding it from the ledger
// when absent or expired.
func (s *service) window(ctx context.Context, userID uint, category string) (*SpendWindow, error) {
	key := windowKey(userID, category)

	var cached SpendWindow
	err := s.windows.Get(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		// A broken cache must not let a limit check pass on missing data.
		return nil, fmt.Errorf("spend window lookup failed: %w", err)
	}

	window, err := s.rebuild(ctx, userID, category)
	if err != nil {
		return nil, err
	}

	if err := s.windows.SetWithTTL(ctx, key, window, s.config.WindowTTL); err != nil {
		s.logger.Warn("failed to cache spend window",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("category", category),
			slog.Any("error", err))
	}
	return window, nil
}

func (s *service) rebuild(ctx context.Context, userID uint, category string) (*SpendWindow, error) {
	now := s.config.Now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	entries, err := s.ledger.ListCompletedSince(ctx, userID, categoryTypes[category], startOfMonth)
	if err != nil {
		return nil, fmt.Errorf("spend window rebuild failed: %w", err)
	}

	window := &SpendWindow{
		DailyTotal:   decimal.Zero,
		MonthlyTotal: decimal.Zero,
		ComputedAt:   now,
	}
	for _, entry := range entries {
		normalized, err := s.pricing.Convert(ctx, entry.Amount.Abs(), entry.Currency)
		if err != nil {
			// Never guess a value for an inconvertible entry.
			s.logger.Warn("skipping inconvertible ledger entry",
				slog.Uint64("transaction_id", uint64(entry.ID)),
				slog.String("currency", entry.Currency),
				slog.Any("error", err))
			continue
		}
		window.MonthlyTotal = window.MonthlyTotal.Add(normalized)
		if !entry.CreatedAt.Before(startOfDay) {
			window.DailyTotal = window.DailyTotal.Add(normalized)
		}
	}
	return window, nil
}

func windowKey(userID uint, category string) string {
	return fmt.Sprintf("%s%d:%s", windowCachePrefix, userID, category)
}
