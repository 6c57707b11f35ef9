package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/Manniegenie/ZeusODX-server-sub005/internal/models"
)

type memoryTransactionRepository struct {
	mu     sync.Mutex
	nextID uint
	txs    map[uint]*models.Transaction
}

// NewMemoryTransactionRepository creates an in-memory transaction ledger
// mirroring the Postgres repository's semantics. Useful for unit tests.
func NewMemoryTransactionRepository() TransactionRepository {
	return &memoryTransactionRepository{nextID: 1, txs: make(map[uint]*models.Transaction)}
}

func (r *memoryTransactionRepository) Create(_ context.Context, tx *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx.ID = r.nextID
	r.nextID++
	if tx.Status == "" {
		tx.Status = models.StatusPending
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	copied := *tx
	r.txs[tx.ID] = &copied
	return nil
}

func (r *memoryTransactionRepository) GetByID(_ context.Context, id uint) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	copied := *tx
	return &copied, nil
}

func (r *memoryTransactionRepository) GetByReference(_ context.Context, reference string) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.txs {
		if tx.Reference == reference {
			copied := *tx
			return &copied, nil
		}
	}
	return nil, ErrTransactionNotFound
}

func (r *memoryTransactionRepository) UpdateStatus(_ context.Context, id uint, status string, patch map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[id]
	if !ok {
		return ErrTransactionNotFound
	}
	if tx.Final() {
		return ErrFinalState
	}
	tx.Status = status
	tx.UpdatedAt = time.Now().UTC()
	for k, v := range patch {
		switch k {
		case "provider_ref":
			if s, ok := v.(string); ok {
				tx.ProviderRef = s
			}
		case "description":
			if s, ok := v.(string); ok {
				tx.Description = s
			}
		case "completed_at":
			if t, ok := v.(time.Time); ok {
				tx.CompletedAt = &t
			}
		case "metadata":
			if m, ok := v.(models.JSON); ok {
				tx.Metadata = m
			}
		}
	}
	return nil
}

func (r *memoryTransactionRepository) FindDuplicate(_ context.Context, q DuplicateQuery) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var match *models.Transaction
	for _, tx := range r.txs {
		if tx.UserID != q.UserID || tx.Destination != q.Destination || tx.Currency != q.Currency {
			continue
		}
		if !tx.Amount.Equal(q.Amount) || !containsString(q.Types, tx.Type) {
			continue
		}
		if tx.Final() || tx.CreatedAt.Before(q.Since) {
			continue
		}
		if match == nil || tx.CreatedAt.After(match.CreatedAt) {
			match = tx
		}
	}
	if match == nil {
		return nil, ErrTransactionNotFound
	}
	copied := *match
	return &copied, nil
}

func (r *memoryTransactionRepository) CountActive(_ context.Context, userID uint, types []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, tx := range r.txs {
		if tx.UserID == userID && !tx.Final() && containsString(types, tx.Type) {
			count++
		}
	}
	return count, nil
}

func (r *memoryTransactionRepository) ListCompletedSince(_ context.Context, userID uint, types []string, since time.Time) ([]models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Transaction
	for _, tx := range r.txs {
		if tx.UserID == userID && tx.Status == models.StatusCompleted &&
			containsString(types, tx.Type) && !tx.CreatedAt.Before(since) {
			out = append(out, *tx)
		}
	}
	return out, nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
