package handlers

import (
	"errors"

	domainerrors "github.com/Manniegenie/ZeusODX-server-sub005/internal/errors"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/providers"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/repositories"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/services/balance"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/services/funds"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/services/idempotency"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/services/limits"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/services/pricing"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/services/twofactor"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/utils/response"
	"github.com/gofiber/fiber/v2"
)

// respondError maps service sentinel errors onto the API error catalogue.
// Payloads carry remediation detail where the service computed it (the
// existing entry for duplicates, headroom for limit rejections).
func respondError(c *fiber.Ctx, err error) error {
	var dup *idempotency.DuplicateError
	if errors.As(err, &dup) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":                   domainerrors.ErrDuplicateRequest.Message,
			"code":                    domainerrors.ErrDuplicateRequest.Code,
			"existing_transaction_id": dup.ExistingID,
		})
	}

	var limited *limits.LimitExceededError
	if errors.As(err, &limited) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":    domainerrors.ErrLimitExceeded.Message,
			"code":     domainerrors.ErrLimitExceeded.Code,
			"scope":    limited.Scope,
			"limit":    limited.Limit,
			"headroom": limited.Headroom,
		})
	}

	switch {
	case errors.Is(err, funds.ErrInvalidAmount),
		errors.Is(err, balance.ErrInvalidAmount):
		return response.Error(c, fiber.StatusBadRequest,
			domainerrors.ErrInvalidAmount.Code, domainerrors.ErrInvalidAmount.Message)
	case errors.Is(err, funds.ErrAmountTooLow):
		return response.Error(c, fiber.StatusBadRequest,
			domainerrors.ErrAmountTooLow.Code, domainerrors.ErrAmountTooLow.Message)
	case errors.Is(err, funds.ErrUnknownFlow),
		errors.Is(err, funds.ErrSelfTransfer),
		errors.Is(err, funds.ErrMissingRecipient):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, balance.ErrInsufficientBalance):
		return response.Error(c, fiber.StatusBadRequest,
			domainerrors.ErrInsufficientBalance.Code, domainerrors.ErrInsufficientBalance.Message)
	case errors.Is(err, balance.ErrReservationConflict):
		return response.Error(c, fiber.StatusConflict,
			domainerrors.ErrReservationConflict.Code, domainerrors.ErrReservationConflict.Message)
	case errors.Is(err, balance.ErrAccountNotFound):
		return response.Error(c, fiber.StatusNotFound,
			domainerrors.ErrAccountNotFound.Code, domainerrors.ErrAccountNotFound.Message)
	case errors.Is(err, idempotency.ErrTooManyPending):
		return response.Error(c, fiber.StatusTooManyRequests,
			domainerrors.ErrTooManyPending.Code, domainerrors.ErrTooManyPending.Message)
	case errors.Is(err, limits.ErrKycRequired):
		return response.Error(c, fiber.StatusForbidden,
			domainerrors.ErrKycRequired.Code, domainerrors.ErrKycRequired.Message)
	case errors.Is(err, pricing.ErrConversionUnavailable):
		return response.Error(c, fiber.StatusServiceUnavailable,
			domainerrors.ErrConversionUnavailable.Code, domainerrors.ErrConversionUnavailable.Message)
	case errors.Is(err, twofactor.ErrInvalidPin),
		errors.Is(err, twofactor.ErrPinNotSet),
		errors.Is(err, twofactor.ErrPinLocked):
		return response.Error(c, fiber.StatusForbidden,
			domainerrors.ErrInvalidPin.Code, domainerrors.ErrInvalidPin.Message)
	case errors.Is(err, providers.ErrProviderTimeout):
		return response.Error(c, fiber.StatusGatewayTimeout,
			domainerrors.ErrExternalTimeout.Code, domainerrors.ErrExternalTimeout.Message)
	case errors.Is(err, providers.ErrProviderRejected):
		return response.Error(c, fiber.StatusBadGateway,
			domainerrors.ErrExternalProvider.Code, domainerrors.ErrExternalProvider.Message)
	case errors.Is(err, repositories.ErrFinalState):
		return response.Error(c, fiber.StatusConflict,
			domainerrors.ErrStateConflict.Code, domainerrors.ErrStateConflict.Message)
	case errors.Is(err, repositories.ErrTransactionNotFound):
		return response.NotFound(c, "transaction not found")
	}
	return response.ServerError(c, "something went wrong")
}
