package funds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Manniegenie/ZeusODX-server-sub005/internal/events"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/models"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/providers"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/repositories"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/services/balance"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/services/idempotency"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/services/limits"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/services/twofactor"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type service struct {
	balances  balance.Service
	ledger    repositories.TransactionRepository
	guard     *idempotency.Guard
	limits    limits.Service
	verifier  twofactor.Verifier
	rails     Rails
	publisher events.Publisher
	config    Config
	logger    *slog.Logger
}

// NewService creates the funds movement orchestrator.
func NewService(
	balances balance.Service,
	ledger repositories.TransactionRepository,
	guard *idempotency.Guard,
	limitsSvc limits.Service,
	verifier twofactor.Verifier,
	rails Rails,
	publisher events.Publisher,
	config Config,
	logger *slog.Logger,
) Service {
	if balances == nil {
		panic("balance service is required")
	}
	if ledger == nil {
		panic("transaction repository is required")
	}
	if guard == nil {
		panic("idempotency guard is required")
	}
	if limitsSvc == nil {
		panic("limits service is required")
	}
	if verifier == nil {
		panic("two-factor verifier is required")
	}

	if config.RailTimeout == 0 {
		config.RailTimeout = DefaultRailTimeout
	}
	if config.FiatCurrencies == nil {
		config.FiatCurrencies = defaultFiatCurrencies()
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &service{
		balances:  balances,
		ledger:    ledger,
		guard:     guard,
		limits:    limitsSvc,
		verifier:  verifier,
		rails:     rails,
		publisher: publisher,
		config:    config,
		logger:    logger,
	}
}

func (s *service) Initiate(ctx context.Context, req InitiateRequest) (*Receipt, error) {
	switch req.FlowType {
	case FlowWithdrawal:
		return s.Withdraw(ctx, WithdrawRequest{
			UserID:      req.UserID,
			Currency:    req.Currency,
			Amount:      req.Amount,
			Fee:         req.Fee,
			Destination: req.Destination,
			Pin:         req.Pin,
			Description: req.Description,
		})
	case FlowTransfer:
		return s.Transfer(ctx, TransferRequest{
			SenderID:    req.UserID,
			RecipientID: req.RecipientID,
			Currency:    req.Currency,
			Amount:      req.Amount,
			Pin:         req.Pin,
			Description: req.Description,
		})
	case FlowBillPurchase:
		return s.PurchaseBill(ctx, BillRequest{
			UserID:     req.UserID,
			Currency:   req.Currency,
			Amount:     req.Amount,
			BillType:   req.BillType,
			CustomerID: req.Destination,
			Provider:   req.Provider,
			Pin:        req.Pin,
		})
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFlow, req.FlowType)
}

func (s *service) Withdraw(ctx context.Context, req WithdrawRequest) (*Receipt, error) {
	if req.Amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.Fee.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	if req.Amount.Sub(req.Fee).Sign() <= 0 {
		return nil, ErrAmountTooLow
	}

	rail := s.rails.Custody
	if s.config.FiatCurrencies[req.Currency] {
		rail = s.rails.FiatPayout
	}
	if rail == nil {
		return nil, ErrMissingRail
	}

	if err := s.runGates(ctx, gateInput{
		userID:      req.UserID,
		currency:    req.Currency,
		amount:      req.Amount,
		destination: req.Destination,
		txType:      models.TransactionTypeWithdrawal,
		category:    limits.CategoryCrypto,
		pin:         req.Pin,
	}); err != nil {
		return nil, err
	}

	if err := s.balances.Reserve(ctx, req.UserID, req.Currency, req.Amount); err != nil {
		return nil, err
	}

	entry := &models.Transaction{
		Type:        models.TransactionTypeWithdrawal,
		UserID:      req.UserID,
		Currency:    req.Currency,
		Amount:      req.Amount,
		Fee:         req.Fee,
		Status:      models.StatusPending,
		Reference:   newReference(refPrefixWithdrawal),
		Destination: req.Destination,
		Description: req.Description,
		Metadata: models.NewJSON(map[string]interface{}{
			"rail": rail.Name(),
		}),
	}
	if err := s.ledger.Create(ctx, entry); err != nil {
		s.compensateRelease(ctx, req.UserID, req.Currency, req.Amount, entry.Reference)
		return nil, fmt.Errorf("failed to record withdrawal: %w", err)
	}

	result, err := s.executeRail(ctx, rail, providers.RailRequest{
		Reference:   entry.Reference,
		UserID:      req.UserID,
		Currency:    req.Currency,
		Amount:      req.Amount.Sub(req.Fee),
		Destination: req.Destination,
	})
	if err != nil {
		if errors.Is(err, providers.ErrProviderTimeout) {
			// Outcome unknown: the reservation stays and the entry waits
			// for reconciliation.
			s.markStatus(ctx, entry, models.StatusProcessing, map[string]interface{}{
				"description": "settlement outcome unknown after timeout",
			})
			return nil, err
		}
		s.compensateRelease(ctx, req.UserID, req.Currency, req.Amount, entry.Reference)
		s.markStatus(ctx, entry, models.StatusFailed, map[string]interface{}{
			"description": err.Error(),
		})
		return nil, err
	}

	switch result.Status {
	case providers.RailStatusCompleted:
		if err := s.balances.Commit(ctx, req.UserID, req.Currency, req.Amount); err != nil {
			// Settlement happened but the commit did not apply. Leave the
			// entry PROCESSING so reconciliation can finish the job.
			s.logger.Error("commit failed after confirmed settlement",
				slog.String("reference", entry.Reference),
				slog.Any("error", err))
			s.markStatus(ctx, entry, models.StatusProcessing, map[string]interface{}{
				"provider_ref": result.ProviderRef,
			})
			return nil, fmt.Errorf("failed to finalize withdrawal: %w", err)
		}
		s.finalize(ctx, entry, result.ProviderRef, limits.CategoryCrypto)
	default:
		s.markStatus(ctx, entry, models.StatusProcessing, map[string]interface{}{
			"provider_ref": result.ProviderRef,
		})
		entry.Status = models.StatusProcessing
	}

	return s.receipt(entry), nil
}

func (s *service) Transfer(ctx context.Context, req TransferRequest) (*Receipt, error) {
	if req.Amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.RecipientID == 0 {
		return nil, ErrMissingRecipient
	}
	if req.SenderID == req.RecipientID {
		return nil, ErrSelfTransfer
	}

	if err := s.runGates(ctx, gateInput{
		userID:      req.SenderID,
		currency:    req.Currency,
		amount:      req.Amount,
		destination: fmt.Sprintf("user:%d", req.RecipientID),
		txType:      models.TransactionTypeTransferSent,
		category:    limits.CategoryFiat,
		pin:         req.Pin,
	}); err != nil {
		return nil, err
	}

	entry := &models.Transaction{
		Type:           models.TransactionTypeTransferSent,
		UserID:         req.SenderID,
		CounterpartyID: &req.RecipientID,
		Currency:       req.Currency,
		Amount:         req.Amount,
		Status:         models.StatusPending,
		Reference:      newReference(refPrefixTransfer),
		Destination:    fmt.Sprintf("user:%d", req.RecipientID),
		Description:    req.Description,
	}
	if err := s.ledger.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record transfer: %w", err)
	}

	if err := s.balances.TransferAtomic(ctx, req.SenderID, req.RecipientID, req.Currency, req.Amount); err != nil {
		s.markStatus(ctx, entry, models.StatusFailed, map[string]interface{}{
			"description": err.Error(),
		})
		return nil, err
	}

	received := &models.Transaction{
		Type:           models.TransactionTypeTransferReceived,
		UserID:         req.RecipientID,
		CounterpartyID: &req.SenderID,
		Currency:       req.Currency,
		Amount:         req.Amount,
		Status:         models.StatusCompleted,
		Reference:      newReference(refPrefixTransfer),
		Description:    req.Description,
		CompletedAt:    ptrTime(s.config.Now()),
	}
	if err := s.ledger.Create(ctx, received); err != nil {
		// Money already moved; the sender's entry is still the source of
		// truth for both legs.
		s.logger.Error("failed to record recipient leg",
			slog.String("reference", entry.Reference),
			slog.Any("error", err))
	}

	s.finalize(ctx, entry, "", limits.CategoryFiat)
	return s.receipt(entry), nil
}

func (s *service) PurchaseBill(ctx context.Context, req BillRequest) (*Receipt, error) {
	if req.Amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if s.rails.Bill == nil {
		return nil, ErrMissingRail
	}

	if err := s.runGates(ctx, gateInput{
		userID:      req.UserID,
		currency:    req.Currency,
		amount:      req.Amount,
		destination: req.CustomerID,
		txType:      models.TransactionTypeBillPurchase,
		category:    limits.CategoryUtility,
		pin:         req.Pin,
	}); err != nil {
		return nil, err
	}

	// The bill rail settles synchronously, so the debit is immediate with
	// no reservation phase.
	if err := s.balances.DirectDebit(ctx, req.UserID, req.Currency, req.Amount); err != nil {
		return nil, err
	}

	entry := &models.Transaction{
		Type:        models.TransactionTypeBillPurchase,
		UserID:      req.UserID,
		Currency:    req.Currency,
		Amount:      req.Amount,
		Status:      models.StatusPending,
		Reference:   newReference(refPrefixBill),
		Destination: req.CustomerID,
		Description: req.BillType,
		Metadata: models.NewJSON(map[string]interface{}{
			"bill_type": req.BillType,
			"provider":  req.Provider,
		}),
	}
	if err := s.ledger.Create(ctx, entry); err != nil {
		s.compensateCredit(ctx, req.UserID, req.Currency, req.Amount, entry.Reference)
		return nil, fmt.Errorf("failed to record bill purchase: %w", err)
	}

	result, err := s.executeRail(ctx, s.rails.Bill, providers.RailRequest{
		Reference:   entry.Reference,
		UserID:      req.UserID,
		Currency:    req.Currency,
		Amount:      req.Amount,
		Destination: req.CustomerID,
		Metadata: map[string]string{
			"bill_type": req.BillType,
			"provider":  req.Provider,
		},
	})
	if err != nil {
		if errors.Is(err, providers.ErrProviderTimeout) {
			s.markStatus(ctx, entry, models.StatusProcessing, map[string]interface{}{
				"description": "settlement outcome unknown after timeout",
			})
			return nil, err
		}
		// The debit already applied, so a rejected purchase refunds.
		s.compensateCredit(ctx, req.UserID, req.Currency, req.Amount, entry.Reference)
		s.markStatus(ctx, entry, models.StatusRefunded, map[string]interface{}{
			"description": err.Error(),
		})
		return nil, err
	}

	s.finalize(ctx, entry, result.ProviderRef, limits.CategoryUtility)
	return s.receipt(entry), nil
}

func (s *service) GetStatus(ctx context.Context, transactionID uint) (*models.Transaction, error) {
	return s.ledger.GetByID(ctx, transactionID)
}

type gateInput struct {
	userID      uint
	currency    string
	amount      decimal.Decimal
	destination string
	txType      string
	category    string
	pin         string
}

// runGates runs the pre-reservation gate sequence: PIN, duplicate guard,
// spend limits. Nothing is persisted and no money moves until all pass.
func (s *service) runGates(ctx context.Context, in gateInput) error {
	if err := s.verifier.Verify(ctx, in.userID, in.pin); err != nil {
		return err
	}
	if err := s.guard.Check(ctx, idempotency.Request{
		UserID:      in.userID,
		Destination: in.destination,
		Currency:    in.currency,
		Amount:      in.amount,
		Type:        in.txType,
	}); err != nil {
		return err
	}
	if _, err := s.limits.CheckAndCharge(ctx, in.userID, in.amount, in.currency, in.category); err != nil {
		return err
	}
	return nil
}

func (s *service) executeRail(ctx context.Context, rail providers.SettlementRail, req providers.RailRequest) (providers.RailResult, error) {
	railCtx, cancel := context.WithTimeout(ctx, s.config.RailTimeout)
	defer cancel()

	result, err := rail.Execute(railCtx, req)
	if err != nil && errors.Is(railCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, providers.ErrProviderTimeout) {
		err = fmt.Errorf("%w: %v", providers.ErrProviderTimeout, err)
	}
	return result, err
}

// finalize marks the entry COMPLETED, drops the spend window and publishes
// the settlement event. Failures here are logged, not surfaced: the money
// movement itself already concluded.
func (s *service) finalize(ctx context.Context, entry *models.Transaction, providerRef, category string) {
	patch := map[string]interface{}{
		"completed_at": s.config.Now(),
	}
	if providerRef != "" {
		patch["provider_ref"] = providerRef
	}
	s.markStatus(ctx, entry, models.StatusCompleted, patch)
	entry.Status = models.StatusCompleted
	entry.ProviderRef = providerRef

	if err := s.limits.Invalidate(ctx, entry.UserID, category); err != nil {
		s.logger.Warn("spend window invalidation failed",
			slog.String("reference", entry.Reference),
			slog.Any("error", err))
	}

	if err := s.publisher.PublishTransaction(ctx, events.TransactionEvent{
		EventType:   "transaction.completed",
		Reference:   entry.Reference,
		UserID:      entry.UserID,
		Type:        entry.Type,
		Status:      entry.Status,
		Currency:    entry.Currency,
		Amount:      entry.Amount,
		ProviderRef: providerRef,
		OccurredAt:  s.config.Now(),
	}); err != nil {
		s.logger.Warn("event publish failed",
			slog.String("reference", entry.Reference),
			slog.Any("error", err))
	}
}

func (s *service) markStatus(ctx context.Context, entry *models.Transaction, status string, patch map[string]interface{}) {
	if err := s.ledger.UpdateStatus(ctx, entry.ID, status, patch); err != nil {
		s.logger.Error("ledger status update failed",
			slog.String("reference", entry.Reference),
			slog.String("status", status),
			slog.Any("error", err))
		return
	}
	entry.Status = status
}

// compensateRelease undoes a reservation after a later step failed. A
// failed release is logged loudly: it leaves funds stuck in pending and
// needs operator reconciliation.
func (s *service) compensateRelease(ctx context.Context, userID uint, currency string, amount decimal.Decimal, reference string) {
	if err := s.balances.Release(ctx, userID, currency, amount); err != nil {
		s.logger.Error("compensating release failed",
			slog.String("reference", reference),
			slog.Uint64("user_id", uint64(userID)),
			slog.String("currency", currency),
			slog.Any("error", err))
	}
}

// compensateCredit refunds a direct debit after the rail rejected the
// purchase.
func (s *service) compensateCredit(ctx context.Context, userID uint, currency string, amount decimal.Decimal, reference string) {
	if err := s.balances.DirectCredit(ctx, userID, currency, amount); err != nil {
		s.logger.Error("compensating credit failed",
			slog.String("reference", reference),
			slog.Uint64("user_id", uint64(userID)),
			slog.String("currency", currency),
			slog.Any("error", err))
	}
}

func (s *service) receipt(entry *models.Transaction) *Receipt {
	return &Receipt{
		TransactionID: entry.ID,
		Reference:     entry.Reference,
		Status:        entry.Status,
		Currency:      entry.Currency,
		Amount:        entry.Amount,
	}
}

func newReference(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.New().String())
}

func ptrTime(t time.Time) *time.Time { return &t }
