package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// DefaultBillPayTimeout bounds one bill-payment call.
const DefaultBillPayTimeout = 20 * time.Second

// BillPayRail purchases airtime, data and utility tokens through the VTU
// provider. The provider answers synchronously: a successful response is
// final, so the orchestrator settles with an immediate debit rather than a
// reservation.
type BillPayRail struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

func NewBillPayRail(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *BillPayRail {
	if timeout == 0 {
		timeout = DefaultBillPayTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BillPayRail{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (r *BillPayRail) Name() string { return "billpay" }

type billPayRequest struct {
	RequestID string `json:"request_id"`
	ServiceID string `json:"service_id"`
	BillType  string `json:"bill_type"`
	Customer  string `json:"customer"`
	Amount    string `json:"amount"`
}

type billPayResponse struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Message   string `json:"message"`
}

func (r *BillPayRail) Execute(ctx context.Context, req RailRequest) (RailResult, error) {
	body, err := json.Marshal(billPayRequest{
		RequestID: req.Reference,
		ServiceID: req.Metadata["provider"],
		BillType:  req.Metadata["bill_type"],
		Customer:  req.Destination,
		Amount:    req.Amount.String(),
	})
	if err != nil {
		return RailResult{}, fmt.Errorf("failed to encode bill payment: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/api/pay", bytes.NewReader(body))
	if err != nil {
		return RailResult{}, fmt.Errorf("failed to build bill payment: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", r.apiKey)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return RailResult{}, ErrProviderTimeout
		}
		return RailResult{}, fmt.Errorf("bill payment failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded billPayResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return RailResult{}, fmt.Errorf("failed to decode bill payment response: %w", err)
	}

	if resp.StatusCode >= 300 || decoded.Status == "failed" {
		r.logger.Warn("bill payment rejected",
			slog.String("reference", req.Reference),
			slog.String("message", decoded.Message))
		return RailResult{Status: RailStatusFailed, ProviderRef: decoded.Reference, Message: decoded.Message},
			fmt.Errorf("%w: %s", ErrProviderRejected, decoded.Message)
	}

	return RailResult{
		Status:      RailStatusCompleted,
		ProviderRef: decoded.Reference,
		Message:     decoded.Message,
	}, nil
}
