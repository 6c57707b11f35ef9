package repositories

import "errors"

var (
	ErrBalanceNotFound     = errors.New("balance not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrUserNotFound        = errors.New("user not found")

	// ErrConditionFailed means a conditional balance update matched the row
	// but applying the deltas would have driven a column negative.
	ErrConditionFailed = errors.New("balance condition not met")

	// ErrFinalState means a status update targeted a transaction that
	// already reached COMPLETED, FAILED or REFUNDED.
	ErrFinalState = errors.New("transaction already finalized")
)
