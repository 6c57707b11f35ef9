package errors

var (
	ErrInsufficientBalance = &DomainError{
		Code:    "INSUFFICIENT_BALANCE",
		Message: "insufficient available balance",
	}
	ErrInvalidAmount = &DomainError{
		Code:    "INVALID_AMOUNT",
		Message: "invalid amount",
	}
	ErrAmountTooLow = &DomainError{
		Code:    "AMOUNT_TOO_LOW",
		Message: "amount does not cover fees",
	}
	ErrDuplicateRequest = &DomainError{
		Code:    "DUPLICATE_REQUEST",
		Message: "an identical request is already being processed",
	}
	ErrTooManyPending = &DomainError{
		Code:    "TOO_MANY_PENDING",
		Message: "too many pending transactions",
	}
	ErrKycRequired = &DomainError{
		Code:    "KYC_REQUIRED",
		Message: "identity verification required before transacting",
	}
	ErrLimitExceeded = &DomainError{
		Code:    "LIMIT_EXCEEDED",
		Message: "spend limit exceeded",
	}
	ErrConversionUnavailable = &DomainError{
		Code:    "CONVERSION_UNAVAILABLE",
		Message: "currency conversion unavailable",
	}
	ErrReservationConflict = &DomainError{
		Code:    "RESERVATION_CONFLICT",
		Message: "release exceeds reserved funds",
	}
	ErrExternalProvider = &DomainError{
		Code:    "EXTERNAL_PROVIDER_ERROR",
		Message: "settlement provider rejected the request",
	}
	ErrExternalTimeout = &DomainError{
		Code:    "EXTERNAL_TIMEOUT",
		Message: "settlement provider timed out",
	}
	ErrStateConflict = &DomainError{
		Code:    "STATE_CONFLICT",
		Message: "transaction is not in a modifiable state",
	}
	ErrInvalidPin = &DomainError{
		Code:    "INVALID_PIN",
		Message: "transaction PIN verification failed",
	}
	ErrAccountNotFound = &DomainError{
		Code:    "ACCOUNT_NOT_FOUND",
		Message: "balance account not found",
	}
)
