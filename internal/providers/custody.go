package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Default custody rail settings
const (
	DefaultCustodyTimeout = 30 * time.Second
)

// CustodyRail submits crypto withdrawals to the custody provider's
// transaction API. The provider settles on-chain asynchronously, so a
// successful submission comes back PROCESSING and is finalized later by
// the provider's webhook.
type CustodyRail struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

func NewCustodyRail(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *CustodyRail {
	if timeout == 0 {
		timeout = DefaultCustodyTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CustodyRail{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (r *CustodyRail) Name() string { return "custody" }

type custodyRequest struct {
	ExternalID  string `json:"externalTxId"`
	AssetID     string `json:"assetId"`
	Amount      string `json:"amount"`
	Destination string `json:"destination"`
}

type custodyResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (r *CustodyRail) Execute(ctx context.Context, req RailRequest) (RailResult, error) {
	body, err := json.Marshal(custodyRequest{
		ExternalID:  req.Reference,
		AssetID:     req.Currency,
		Amount:      req.Amount.String(),
		Destination: req.Destination,
	})
	if err != nil {
		return RailResult{}, fmt.Errorf("failed to encode custody request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/transactions", bytes.NewReader(body))
	if err != nil {
		return RailResult{}, fmt.Errorf("failed to build custody request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return RailResult{}, ErrProviderTimeout
		}
		return RailResult{}, fmt.Errorf("custody request failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded custodyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return RailResult{}, fmt.Errorf("failed to decode custody response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.logger.Warn("custody rejected withdrawal",
			slog.String("reference", req.Reference),
			slog.Int("status_code", resp.StatusCode),
			slog.String("message", decoded.Message))
		return RailResult{Status: RailStatusFailed, ProviderRef: decoded.ID, Message: decoded.Message},
			fmt.Errorf("%w: %s", ErrProviderRejected, decoded.Message)
	}

	result := RailResult{ProviderRef: decoded.ID, Message: decoded.Message}
	switch decoded.Status {
	case "COMPLETED":
		result.Status = RailStatusCompleted
	case "FAILED", "REJECTED", "CANCELLED":
		result.Status = RailStatusFailed
		return result, fmt.Errorf("%w: %s", ErrProviderRejected, decoded.Message)
	default:
		// SUBMITTED, QUEUED, BROADCASTING and friends: in flight.
		result.Status = RailStatusProcessing
	}
	return result, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
