package funds

import (
	"time"

	"github.com/Manniegenie/ZeusODX-server-sub005/internal/providers"
	"github.com/shopspring/decimal"
)

// WithdrawRequest describes an external withdrawal.
type WithdrawRequest struct {
	UserID      uint
	Currency    string
	Amount      decimal.Decimal
	Fee         decimal.Decimal
	Destination string // crypto address or bank account
	Pin         string
	Description string
}

// TransferRequest describes an internal account-to-account transfer.
type TransferRequest struct {
	SenderID    uint
	RecipientID uint
	Currency    string
	Amount      decimal.Decimal
	Pin         string
	Description string
}

// BillRequest describes a utility bill purchase.
type BillRequest struct {
	UserID     uint
	Currency   string
	Amount     decimal.Decimal
	BillType   string // electricity, airtime, data, cable
	CustomerID string // meter, phone or smartcard number
	Provider   string
	Pin        string
}

// InitiateRequest is the generic entry point used by transport handlers.
type InitiateRequest struct {
	FlowType    string
	UserID      uint
	Currency    string
	Amount      decimal.Decimal
	Fee         decimal.Decimal
	Destination string
	RecipientID uint
	BillType    string
	Provider    string
	Pin         string
	Description string
}

// Receipt is the orchestrator's answer: the ledger entry id plus where the
// movement stands.
type Receipt struct {
	TransactionID uint            `json:"transaction_id"`
	Reference     string          `json:"reference"`
	Status        string          `json:"status"`
	Currency      string          `json:"currency"`
	Amount        decimal.Decimal `json:"amount"`
}

// Rails holds the settlement rails the orchestrator dispatches to.
type Rails struct {
	Custody    providers.SettlementRail // async crypto withdrawals
	FiatPayout providers.SettlementRail // fiat withdrawals
	Bill       providers.SettlementRail // synchronous bill payments
}

// Config holds configuration for the orchestrator.
type Config struct {
	// RailTimeout bounds every external rail call.
	RailTimeout time.Duration

	// FiatCurrencies routes withdrawals in these currencies to the fiat
	// payout rail instead of custody.
	FiatCurrencies map[string]bool

	// Now is the clock; defaults to time.Now. Injected for tests.
	Now func() time.Time
}
