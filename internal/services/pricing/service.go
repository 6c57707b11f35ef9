package pricing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Manniegenie/ZeusODX-server-sub005/internal/backoff"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

type service struct {
	source PriceSource
	config Config
	logger *slog.Logger

	flight singleflight.Group

	mu     sync.RWMutex
	quotes map[string]quote
}

// NewService creates the price oracle cache.
func NewService(source PriceSource, config Config, logger *slog.Logger) Service {
	if source == nil {
		panic("price source is required")
	}

	if config.BaseCurrency == "" {
		config.BaseCurrency = DefaultBaseCurrency
	}
	if config.TTL == 0 {
		config.TTL = DefaultTTL
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.RetryBase == 0 {
		config.RetryBase = DefaultRetryBase
	}
	if config.RateLimitDelay == 0 {
		config.RateLimitDelay = DefaultRateLimitDelay
	}
	if config.Pegged == nil {
		config.Pegged = map[string]decimal.Decimal{
			"USDT": decimal.NewFromInt(1),
			"USDC": decimal.NewFromInt(1),
			"BUSD": decimal.NewFromInt(1),
		}
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &service{
		source: source,
		config: config,
		logger: logger,
		quotes: make(map[string]quote),
	}
}

func (s *service) GetPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	if len(symbols) == 0 {
		return nil, ErrNoSymbols
	}

	out := make(map[string]decimal.Decimal, len(symbols))
	var needed []string
	for _, sym := range symbols {
		sym = strings.ToUpper(sym)
		if sym == s.config.BaseCurrency {
			out[sym] = decimal.NewFromInt(1)
			continue
		}
		if price, ok := s.config.Pegged[sym]; ok {
			out[sym] = price
			continue
		}
		needed = append(needed, sym)
	}
	if len(needed) == 0 {
		return out, nil
	}

	if stale := s.staleSymbols(needed); len(stale) > 0 {
		// Concurrent misses for the same symbols converge on one upstream
		// fetch; others block on the shared call.
		key := flightKey(stale)
		_, err, _ := s.flight.Do(key, func() (interface{}, error) {
			miss := s.staleSymbols(stale)
			if len(miss) == 0 {
				return nil, nil
			}
			return nil, s.refresh(ctx, miss)
		})
		if err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sym := range needed {
		q, ok := s.quotes[sym]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrConversionUnavailable, sym)
		}
		out[sym] = q.Price
	}
	return out, nil
}

func (s *service) Convert(ctx context.Context, amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	currency = strings.ToUpper(currency)
	if currency == s.config.BaseCurrency {
		return amount, nil
	}
	prices, err := s.GetPrices(ctx, []string{currency})
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(prices[currency]), nil
}

func (s *service) staleSymbols(symbols []string) []string {
	now := s.config.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stale []string
	for _, sym := range symbols {
		q, ok := s.quotes[sym]
		if !ok || now.Sub(q.FetchedAt) >= s.config.TTL {
			stale = append(stale, sym)
		}
	}
	return stale
}

// refresh fetches fresh quotes with retries. When retries exhaust it falls
// back to the last good cached value if one exists, then to the static
// fallback table; the degraded values are logged and marked so they are
// never mistaken for live quotes.
func (s *service) refresh(ctx context.Context, symbols []string) error {
	var fetchErr error
	for attempt := 0; attempt < s.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := backoff.Exponential(s.config.RetryBase, attempt-1)
			if errors.Is(fetchErr, ErrRateLimited) {
				delay = s.config.RateLimitDelay
			}
			if err := backoff.SleepWithContext(ctx, delay); err != nil {
				return err
			}
		}

		prices, err := s.source.Fetch(ctx, symbols)
		if err == nil {
			now := s.config.Now()
			s.mu.Lock()
			for sym, price := range prices {
				s.quotes[strings.ToUpper(sym)] = quote{Price: price, FetchedAt: now}
			}
			s.mu.Unlock()
			return nil
		}
		fetchErr = err
		s.logger.Warn("price fetch failed",
			slog.Int("attempt", attempt+1),
			slog.Any("error", err))
	}

	now := s.config.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sym := range symbols {
		if q, ok := s.quotes[sym]; ok {
			// Keep serving the stale quote until upstream recovers.
			q.FetchedAt = now
			q.Degraded = true
			s.quotes[sym] = q
			s.logger.Warn("serving stale price", slog.String("symbol", sym))
			continue
		}
		if price, ok := s.config.Fallback[sym]; ok {
			s.quotes[sym] = quote{Price: price, FetchedAt: now, Degraded: true}
			s.logger.Warn("serving static fallback price", slog.String("symbol", sym))
		}
	}
	return nil
}

func flightKey(symbols []string) string {
	sorted := make([]string, len(symbols))
	copy(sorted, symbols)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
