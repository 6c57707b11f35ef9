package handlers

import (
	"errors"

	"github.com/Manniegenie/ZeusODX-server-sub005/internal/models"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/repositories"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/services/balance"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/utils/response"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// WalletHandler serves balance reads and the inbound deposit webhook.
type WalletHandler struct {
	balances      balance.Service
	ledger        repositories.TransactionRepository
	webhookSecret string
}

func NewWalletHandler(balances balance.Service, ledger repositories.TransactionRepository, webhookSecret string) *WalletHandler {
	return &WalletHandler{
		balances:      balances,
		ledger:        ledger,
		webhookSecret: webhookSecret,
	}
}

func (h *WalletHandler) GetBalance(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}

	currency := c.Params("currency")
	if currency == "" {
		return response.BadRequest(c, "currency is required")
	}

	bal, err := h.balances.GetBalance(c.Context(), claims.UserID, currency)
	if err != nil {
		return respondError(c, err)
	}
	return response.Success(c, "balance", fiber.Map{
		"currency":  bal.Currency,
		"available": bal.Available,
		"pending":   bal.Pending,
		"total":     bal.Total(),
	})
}

type depositInput struct {
	UserID      uint            `json:"user_id" validate:"required"`
	Currency    string          `json:"currency" validate:"required,uppercase"`
	Amount      decimal.Decimal `json:"amount"`
	ProviderRef string          `json:"provider_ref" validate:"required"`
}

// DepositWebhook credits a confirmed inbound deposit reported by the
// custody provider. The ledger reference is derived from the provider's
// reference, so redeliveries of the same deposit ack the existing entry
// instead of crediting again.
func (h *WalletHandler) DepositWebhook(c *fiber.Ctx) error {
	if c.Get("X-Webhook-Secret") != h.webhookSecret {
		return response.Unauthorized(c, "invalid webhook signature")
	}

	var input depositInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "invalid request format")
	}
	if err := validate.Struct(input); err != nil {
		return response.BadRequest(c, err.Error())
	}
	if input.Amount.Sign() <= 0 {
		return response.BadRequest(c, "amount must be positive")
	}

	reference := "DEP-" + input.ProviderRef
	if existing, err := h.ledger.GetByReference(c.Context(), reference); err == nil {
		return response.Success(c, "deposit already credited", fiber.Map{
			"transaction_id": existing.ID,
			"reference":      existing.Reference,
		})
	} else if !errors.Is(err, repositories.ErrTransactionNotFound) {
		return respondError(c, err)
	}

	entry := &models.Transaction{
		Type:        models.TransactionTypeDeposit,
		UserID:      input.UserID,
		Currency:    input.Currency,
		Amount:      input.Amount,
		Status:      models.StatusPending,
		Reference:   reference,
		ProviderRef: input.ProviderRef,
	}
	if err := h.ledger.Create(c.Context(), entry); err != nil {
		return respondError(c, err)
	}

	if err := h.balances.DirectCredit(c.Context(), input.UserID, input.Currency, input.Amount); err != nil {
		if markErr := h.ledger.UpdateStatus(c.Context(), entry.ID, models.StatusFailed, map[string]interface{}{
			"description": err.Error(),
		}); markErr != nil {
			return respondError(c, markErr)
		}
		return respondError(c, err)
	}
	if err := h.ledger.UpdateStatus(c.Context(), entry.ID, models.StatusCompleted, nil); err != nil {
		return respondError(c, err)
	}

	return response.Created(c, "deposit credited", fiber.Map{
		"transaction_id": entry.ID,
		"reference":      entry.Reference,
	})
}
