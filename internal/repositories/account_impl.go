package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Manniegenie/ZeusODX-server-sub005/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Get(ctx context.Context, userID uint, currency string) (*models.Balance, error) {
	var balance models.Balance
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND currency = ?", userID, currency).
		First(&balance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBalanceNotFound
		}
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return &balance, nil
}

func (r *accountRepository) Create(ctx context.Context, balance *models.Balance) error {
	if err := r.db.WithContext(ctx).Create(balance).Error; err != nil {
		return fmt.Errorf("failed to create balance: %w", err)
	}
	return nil
}

func (r *accountRepository) Adjust(ctx context.Context, userID uint, currency string, availableDelta, pendingDelta decimal.Decimal) error {
	return r.adjust(r.db.WithContext(ctx), userID, currency, availableDelta, pendingDelta)
}

// adjust is a compare-and-swap style update: the WHERE clause re-checks
// sufficiency at write time, so concurrent spends race on rows-affected
// instead of on a stale read.
func (r *accountRepository) adjust(db *gorm.DB, userID uint, currency string, availableDelta, pendingDelta decimal.Decimal) error {
	res := db.Model(&models.Balance{}).
		Where("user_id = ? AND currency = ? AND available + ? >= 0 AND pending + ? >= 0",
			userID, currency, availableDelta, pendingDelta).
		Updates(map[string]interface{}{
			"available":  gorm.Expr("available + ?", availableDelta),
			"pending":    gorm.Expr("pending + ?", pendingDelta),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to adjust balance: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := db.Model(&models.Balance{}).
			Where("user_id = ? AND currency = ?", userID, currency).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to adjust balance: %w", err)
		}
		if count == 0 {
			return ErrBalanceNotFound
		}
		return ErrConditionFailed
	}
	return nil
}

func (r *accountRepository) TransferAtomic(ctx context.Context, senderID, recipientID uint, currency string, amount decimal.Decimal) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.adjust(tx, senderID, currency, amount.Neg(), decimal.Zero); err != nil {
			return err
		}

		// First credit to a currency creates the recipient row.
		err := r.adjust(tx, recipientID, currency, amount, decimal.Zero)
		if errors.Is(err, ErrBalanceNotFound) {
			if err := tx.Create(&models.Balance{
				UserID:    recipientID,
				Currency:  currency,
				Available: amount,
				Pending:   decimal.Zero,
			}).Error; err != nil {
				return fmt.Errorf("failed to create recipient balance: %w", err)
			}
			return nil
		}
		return err
	})
}
