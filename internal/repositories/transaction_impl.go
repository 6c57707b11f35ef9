package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Manniegenie/ZeusODX-server-sub005/internal/models"
	"gorm.io/gorm"
)

var activeStatuses = []string{models.StatusPending, models.StatusProcessing}

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *transactionRepository) GetByID(ctx context.Context, id uint) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.WithContext(ctx).First(&tx, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &tx, nil
}

func (r *transactionRepository) GetByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &tx, nil
}

func (r *transactionRepository) UpdateStatus(ctx context.Context, id uint, status string, patch map[string]interface{}) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	for k, v := range patch {
		updates[k] = v
	}

	res := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status IN ?", id, activeStatuses).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update transaction status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Transaction{}).
			Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to update transaction status: %w", err)
		}
		if count == 0 {
			return ErrTransactionNotFound
		}
		return ErrFinalState
	}
	return nil
}

func (r *transactionRepository) FindDuplicate(ctx context.Context, q DuplicateQuery) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND destination = ? AND currency = ? AND amount = ? AND type IN ? AND status IN ? AND created_at >= ?",
			q.UserID, q.Destination, q.Currency, q.Amount, q.Types, activeStatuses, q.Since).
		Order("created_at DESC").
		First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to query duplicates: %w", err)
	}
	return &tx, nil
}

func (r *transactionRepository) CountActive(ctx context.Context, userID uint, types []string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("user_id = ? AND type IN ? AND status IN ?", userID, types, activeStatuses).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count active transactions: %w", err)
	}
	return count, nil
}

func (r *transactionRepository) ListCompletedSince(ctx context.Context, userID uint, types []string, since time.Time) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND type IN ? AND status = ? AND created_at >= ?",
			userID, types, models.StatusCompleted, since).
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list completed transactions: %w", err)
	}
	return txs, nil
}
