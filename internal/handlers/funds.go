// Package handlers exposes the funds movement engine over HTTP.
package handlers

import (
	"strconv"

	"github.com/Manniegenie/ZeusODX-server-sub005/internal/models"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/services/funds"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/utils/response"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// extractUserClaims pulls the authenticated claims set by the auth
// middleware.
func extractUserClaims(c *fiber.Ctx) (*models.UserClaims, error) {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok || claims == nil {
		return nil, fiber.ErrUnauthorized
	}
	return claims, nil
}

type FundsHandler struct {
	fundsService funds.Service
}

func NewFundsHandler(fundsService funds.Service) *FundsHandler {
	return &FundsHandler{fundsService: fundsService}
}

type withdrawInput struct {
	Currency    string          `json:"currency" validate:"required,uppercase"`
	Amount      decimal.Decimal `json:"amount"`
	Fee         decimal.Decimal `json:"fee"`
	Destination string          `json:"destination" validate:"required"`
	Pin         string          `json:"pin" validate:"required,len=4,numeric"`
	Description string          `json:"description"`
}

func (h *FundsHandler) Withdraw(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}

	var input withdrawInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "invalid request format")
	}
	if err := validate.Struct(input); err != nil {
		return response.BadRequest(c, err.Error())
	}

	receipt, err := h.fundsService.Withdraw(c.Context(), funds.WithdrawRequest{
		UserID:      claims.UserID,
		Currency:    input.Currency,
		Amount:      input.Amount,
		Fee:         input.Fee,
		Destination: input.Destination,
		Pin:         input.Pin,
		Description: input.Description,
	})
	if err != nil {
		return respondError(c, err)
	}
	return response.Created(c, "withdrawal initiated", receipt)
}

type transferInput struct {
	RecipientID uint            `json:"recipient_id" validate:"required"`
	Currency    string          `json:"currency" validate:"required,uppercase"`
	Amount      decimal.Decimal `json:"amount"`
	Pin         string          `json:"pin" validate:"required,len=4,numeric"`
	Description string          `json:"description"`
}

func (h *FundsHandler) Transfer(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}

	var input transferInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "invalid request format")
	}
	if err := validate.Struct(input); err != nil {
		return response.BadRequest(c, err.Error())
	}

	receipt, err := h.fundsService.Transfer(c.Context(), funds.TransferRequest{
		SenderID:    claims.UserID,
		RecipientID: input.RecipientID,
		Currency:    input.Currency,
		Amount:      input.Amount,
		Pin:         input.Pin,
		Description: input.Description,
	})
	if err != nil {
		return respondError(c, err)
	}
	return response.Created(c, "transfer completed", receipt)
}

type billInput struct {
	Currency   string          `json:"currency" validate:"required,uppercase"`
	Amount     decimal.Decimal `json:"amount"`
	BillType   string          `json:"bill_type" validate:"required,oneof=electricity airtime data cable"`
	CustomerID string          `json:"customer_id" validate:"required"`
	Provider   string          `json:"provider"`
	Pin        string          `json:"pin" validate:"required,len=4,numeric"`
}

func (h *FundsHandler) PurchaseBill(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}

	var input billInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "invalid request format")
	}
	if err := validate.Struct(input); err != nil {
		return response.BadRequest(c, err.Error())
	}

	receipt, err := h.fundsService.PurchaseBill(c.Context(), funds.BillRequest{
		UserID:     claims.UserID,
		Currency:   input.Currency,
		Amount:     input.Amount,
		BillType:   input.BillType,
		CustomerID: input.CustomerID,
		Provider:   input.Provider,
		Pin:        input.Pin,
	})
	if err != nil {
		return respondError(c, err)
	}
	return response.Created(c, "bill purchase completed", receipt)
}

func (h *FundsHandler) GetStatus(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid transaction id")
	}

	entry, err := h.fundsService.GetStatus(c.Context(), uint(id))
	if err != nil {
		return respondError(c, err)
	}
	if entry.UserID != claims.UserID && (entry.CounterpartyID == nil || *entry.CounterpartyID != claims.UserID) {
		return response.NotFound(c, "transaction not found")
	}
	return response.Success(c, "transaction status", entry)
}
