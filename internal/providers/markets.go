package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Manniegenie/ZeusODX-server-sub005/internal/services/pricing"
	"github.com/shopspring/decimal"
)

// DefaultMarketTimeout bounds one quote fetch.
const DefaultMarketTimeout = 10 * time.Second

// MarketDataSource fetches spot prices from the market-data provider's
// simple-price endpoint. It implements pricing.PriceSource.
type MarketDataSource struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewMarketDataSource(baseURL, apiKey string, timeout time.Duration) *MarketDataSource {
	if timeout == 0 {
		timeout = DefaultMarketTimeout
	}
	return &MarketDataSource{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *MarketDataSource) Fetch(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	url := fmt.Sprintf("%s/api/v3/simple/price?symbols=%s", s.baseURL, strings.Join(symbols, ","))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if s.apiKey != "" {
		req.Header.Set("X-API-Key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, ErrProviderTimeout
		}
		return nil, fmt.Errorf("price fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, pricing.ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price provider returned status %d", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode price response: %w", err)
	}

	prices := make(map[string]decimal.Decimal, len(body))
	for symbol, raw := range body {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("unparseable price for %s: %w", symbol, err)
		}
		prices[symbol] = price
	}
	return prices, nil
}
