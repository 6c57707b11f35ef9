package balance

import "errors"

// Service errors
var (
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInsufficientBalance = errors.New("insufficient available balance")
	ErrReservationConflict = errors.New("amount exceeds reserved funds")
	ErrAccountNotFound     = errors.New("balance account not found")
)
