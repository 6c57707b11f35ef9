package repositories

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Manniegenie/ZeusODX-server-sub005/internal/models"
	"gorm.io/gorm"
)

// UserRepository exposes the user attributes the funds engine reads: the
// KYC level for spend limits and the PIN hash for the 2FA gate.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

type memoryUserRepository struct {
	mu    sync.Mutex
	users map[uint]*models.User
}

// NewMemoryUserRepository creates an in-memory user store for tests.
func NewMemoryUserRepository() *memoryUserRepository {
	return &memoryUserRepository{users: make(map[uint]*models.User)}
}

func (r *memoryUserRepository) Put(user *models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.users[user.ID] = &copied
}

func (r *memoryUserRepository) GetByID(_ context.Context, id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}
