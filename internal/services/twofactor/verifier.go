// Package twofactor gates funds movement behind the user's transaction
// PIN. The gate fails closed: any lookup or comparison problem rejects the
// request.
package twofactor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Manniegenie/ZeusODX-server-sub005/internal/repositories"
	"golang.org/x/crypto/bcrypt"
)

// Service errors
var (
	ErrInvalidPin = errors.New("transaction PIN verification failed")
	ErrPinNotSet  = errors.New("transaction PIN not set")
	ErrPinLocked  = errors.New("transaction PIN temporarily locked")
)

// Verifier answers whether the presented factor authorizes the user to
// move funds.
type Verifier interface {
	Verify(ctx context.Context, userID uint, pin string) error
}

type pinVerifier struct {
	users repositories.UserRepository
	now   func() time.Time
}

// NewPinVerifier creates a Verifier backed by bcrypt PIN hashes on the
// user record.
func NewPinVerifier(users repositories.UserRepository) Verifier {
	if users == nil {
		panic("user repository is required")
	}
	return &pinVerifier{users: users, now: time.Now}
}

func (v *pinVerifier) Verify(ctx context.Context, userID uint, pin string) error {
	user, err := v.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user.PinHash == "" {
		return ErrPinNotSet
	}
	if user.PinLockoutUntil != nil && user.PinLockoutUntil.After(v.now()) {
		return ErrPinLocked
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PinHash), []byte(pin)); err != nil {
		return ErrInvalidPin
	}
	return nil
}

// HashPin hashes a transaction PIN for storage.
func HashPin(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash pin: %w", err)
	}
	return string(hash), nil
}
