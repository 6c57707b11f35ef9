package funds

import "errors"

// Service errors
var (
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrAmountTooLow     = errors.New("amount does not cover the fee")
	ErrUnknownFlow      = errors.New("unknown flow type")
	ErrMissingRail      = errors.New("no settlement rail configured for this flow")
	ErrSelfTransfer     = errors.New("cannot transfer to self")
	ErrMissingRecipient = errors.New("recipient is required")
)
