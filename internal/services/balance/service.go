package balance

import (
	"context"
	"errors"
	"fmt"

	"github.com/Manniegenie/ZeusODX-server-sub005/internal/models"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/repositories"
	"github.com/shopspring/decimal"
)

type service struct {
	accounts repositories.AccountRepository
	metrics  MetricsCollector
}

// NewService creates a new balance ledger service.
func NewService(accounts repositories.AccountRepository, metrics MetricsCollector) Service {
	if accounts == nil {
		panic("account repository is required")
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}
	return &service{accounts: accounts, metrics: metrics}
}

func (s *service) Reserve(ctx context.Context, userID uint, currency string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if err := s.adjust(ctx, "reserve", userID, currency, amount.Neg(), amount, ErrInsufficientBalance); err != nil {
		return err
	}
	s.metrics.RecordOperation("reserve", currency, amount)
	return nil
}

func (s *service) Release(ctx context.Context, userID uint, currency string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if err := s.adjust(ctx, "release", userID, currency, amount, amount.Neg(), ErrReservationConflict); err != nil {
		return err
	}
	s.metrics.RecordOperation("release", currency, amount)
	return nil
}

func (s *service) Commit(ctx context.Context, userID uint, currency string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if err := s.adjust(ctx, "commit", userID, currency, decimal.Zero, amount.Neg(), ErrReservationConflict); err != nil {
		return err
	}
	s.metrics.RecordOperation("commit", currency, amount)
	return nil
}

func (s *service) DirectDebit(ctx context.Context, userID uint, currency string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if err := s.adjust(ctx, "direct_debit", userID, currency, amount.Neg(), decimal.Zero, ErrInsufficientBalance); err != nil {
		return err
	}
	s.metrics.RecordOperation("direct_debit", currency, amount)
	return nil
}

func (s *service) DirectCredit(ctx context.Context, userID uint, currency string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	err := s.accounts.Adjust(ctx, userID, currency, amount, decimal.Zero)
	if errors.Is(err, repositories.ErrBalanceNotFound) {
		// First deposit in this currency creates the row.
		err = s.accounts.Create(ctx, &models.Balance{
			UserID:    userID,
			Currency:  currency,
			Available: amount,
			Pending:   decimal.Zero,
		})
	}
	if err != nil {
		s.metrics.RecordError("direct_credit", err.Error())
		return fmt.Errorf("failed to credit balance: %w", err)
	}
	s.metrics.RecordOperation("direct_credit", currency, amount)
	return nil
}

func (s *service) TransferAtomic(ctx context.Context, senderID, recipientID uint, currency string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if senderID == recipientID {
		return errors.New("cannot transfer to self")
	}

	err := s.accounts.TransferAtomic(ctx, senderID, recipientID, currency, amount)
	switch {
	case errors.Is(err, repositories.ErrConditionFailed):
		s.metrics.RecordError("transfer", "insufficient_balance")
		return ErrInsufficientBalance
	case errors.Is(err, repositories.ErrBalanceNotFound):
		return ErrAccountNotFound
	case err != nil:
		s.metrics.RecordError("transfer", err.Error())
		return fmt.Errorf("transfer failed: %w", err)
	}
	s.metrics.RecordOperation("transfer", currency, amount)
	return nil
}

func (s *service) GetBalance(ctx context.Context, userID uint, currency string) (*models.Balance, error) {
	b, err := s.accounts.Get(ctx, userID, currency)
	if errors.Is(err, repositories.ErrBalanceNotFound) {
		return nil, ErrAccountNotFound
	}
	return b, err
}

// adjust applies a conditional delta pair and maps a failed condition onto
// the operation's domain error.
func (s *service) adjust(ctx context.Context, op string, userID uint, currency string, availableDelta, pendingDelta decimal.Decimal, conditionErr error) error {
	err := s.accounts.Adjust(ctx, userID, currency, availableDelta, pendingDelta)
	switch {
	case errors.Is(err, repositories.ErrConditionFailed):
		s.metrics.RecordError(op, "condition_failed")
		return conditionErr
	case errors.Is(err, repositories.ErrBalanceNotFound):
		return ErrAccountNotFound
	case err != nil:
		s.metrics.RecordError(op, err.Error())
		return fmt.Errorf("%s failed: %w", op, err)
	}
	return nil
}
