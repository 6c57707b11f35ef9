package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/payout"
)

// StripePayoutRail pays out fiat withdrawals through Stripe. Payouts are
// accepted synchronously but settle on banking rails, so an accepted
// payout comes back PROCESSING.
type StripePayoutRail struct {
	logger *slog.Logger
}

func NewStripePayoutRail(secretKey string, logger *slog.Logger) *StripePayoutRail {
	stripe.Key = secretKey
	if logger == nil {
		logger = slog.Default()
	}
	return &StripePayoutRail{logger: logger}
}

func (r *StripePayoutRail) Name() string { return "stripe" }

func (r *StripePayoutRail) Execute(ctx context.Context, req RailRequest) (RailResult, error) {
	minor := req.Amount.Mul(decimal.NewFromInt(100)).IntPart()

	params := &stripe.PayoutParams{
		Amount:   stripe.Int64(minor),
		Currency: stripe.String(req.Currency),
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.Reference)
	params.AddMetadata("user_id", fmt.Sprintf("%d", req.UserID))
	params.AddMetadata("destination", req.Destination)

	p, err := payout.New(params)
	if err != nil {
		if isTimeout(err) {
			return RailResult{}, ErrProviderTimeout
		}
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			r.logger.Warn("stripe payout rejected",
				slog.String("reference", req.Reference),
				slog.String("code", string(stripeErr.Code)))
			return RailResult{Status: RailStatusFailed, Message: stripeErr.Msg},
				fmt.Errorf("%w: %s", ErrProviderRejected, stripeErr.Msg)
		}
		return RailResult{}, fmt.Errorf("stripe payout failed: %w", err)
	}

	result := RailResult{ProviderRef: p.ID}
	switch p.Status {
	case stripe.PayoutStatusPaid:
		result.Status = RailStatusCompleted
	case stripe.PayoutStatusFailed, stripe.PayoutStatusCanceled:
		result.Status = RailStatusFailed
		return result, fmt.Errorf("%w: payout %s", ErrProviderRejected, p.Status)
	default:
		result.Status = RailStatusProcessing
	}
	return result, nil
}
