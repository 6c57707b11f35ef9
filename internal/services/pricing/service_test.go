package pricing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Manniegenie/ZeusODX-server-sub005/internal/logging"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu      sync.Mutex
	prices  map[string]decimal.Decimal
	err     error
	delay   time.Duration
	fetches int64
}

func (f *fakeSource) Fetch(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	atomic.AddInt64(&f.fetches, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]decimal.Decimal)
	for _, sym := range symbols {
		if p, ok := f.prices[sym]; ok {
			out[sym] = p
		}
	}
	return out, nil
}

func (f *fakeSource) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func testConfig(now *time.Time) Config {
	return Config{
		MaxRetries: 1,
		RetryBase:  time.Millisecond,
		Now:        func() time.Time { return *now },
	}
}

func TestGetPrices_SingleFlight(t *testing.T) {
	source := &fakeSource{
		prices: map[string]decimal.Decimal{"BTC": decimal.NewFromInt(64000)},
		delay:  20 * time.Millisecond,
	}
	now := time.Now()
	svc := NewService(source, testConfig(&now), logging.Discard())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			prices, err := svc.GetPrices(context.Background(), []string{"BTC"})
			assert.NoError(t, err)
			assert.True(t, prices["BTC"].Equal(decimal.NewFromInt(64000)))
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&source.fetches),
		"concurrent cache misses must share one upstream fetch")
}

func TestGetPrices_TTLExpiry(t *testing.T) {
	source := &fakeSource{prices: map[string]decimal.Decimal{"ETH": decimal.NewFromInt(3100)}}
	now := time.Now()
	svc := NewService(source, testConfig(&now), logging.Discard())

	_, err := svc.GetPrices(context.Background(), []string{"ETH"})
	require.NoError(t, err)
	_, err = svc.GetPrices(context.Background(), []string{"ETH"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), source.fetches, "fresh quote must not refetch")

	now = now.Add(DefaultTTL + time.Second)
	_, err = svc.GetPrices(context.Background(), []string{"ETH"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), source.fetches, "expired quote must refetch")
}

func TestGetPrices_PeggedBypassesNetwork(t *testing.T) {
	source := &fakeSource{}
	now := time.Now()
	svc := NewService(source, testConfig(&now), logging.Discard())

	prices, err := svc.GetPrices(context.Background(), []string{"USDT", "USD"})
	require.NoError(t, err)
	assert.True(t, prices["USDT"].Equal(decimal.NewFromInt(1)))
	assert.True(t, prices["USD"].Equal(decimal.NewFromInt(1)))
	assert.Equal(t, int64(0), source.fetches)
}

func TestGetPrices_StaticFallback(t *testing.T) {
	source := &fakeSource{err: errors.New("upstream down")}
	now := time.Now()
	cfg := testConfig(&now)
	cfg.Fallback = map[string]decimal.Decimal{"BTC": decimal.NewFromInt(60000)}
	svc := NewService(source, cfg, logging.Discard())

	prices, err := svc.GetPrices(context.Background(), []string{"BTC"})
	require.NoError(t, err)
	assert.True(t, prices["BTC"].Equal(decimal.NewFromInt(60000)))
}

func TestGetPrices_StaleQuoteSurvivesOutage(t *testing.T) {
	source := &fakeSource{prices: map[string]decimal.Decimal{"BTC": decimal.NewFromInt(64000)}}
	now := time.Now()
	svc := NewService(source, testConfig(&now), logging.Discard())

	_, err := svc.GetPrices(context.Background(), []string{"BTC"})
	require.NoError(t, err)

	source.setErr(errors.New("upstream down"))
	now = now.Add(DefaultTTL + time.Second)

	prices, err := svc.GetPrices(context.Background(), []string{"BTC"})
	require.NoError(t, err)
	assert.True(t, prices["BTC"].Equal(decimal.NewFromInt(64000)),
		"last good quote should be served during the outage")
}

func TestGetPrices_UnknownSymbol(t *testing.T) {
	source := &fakeSource{err: errors.New("upstream down")}
	now := time.Now()
	svc := NewService(source, testConfig(&now), logging.Discard())

	_, err := svc.GetPrices(context.Background(), []string{"DOGE"})
	assert.ErrorIs(t, err, ErrConversionUnavailable)
}

func TestConvert(t *testing.T) {
	source := &fakeSource{prices: map[string]decimal.Decimal{"BTC": decimal.NewFromInt(64000)}}
	now := time.Now()
	svc := NewService(source, testConfig(&now), logging.Discard())

	t.Run("base currency bypasses conversion", func(t *testing.T) {
		got, err := svc.Convert(context.Background(), decimal.NewFromInt(250), "USD")
		require.NoError(t, err)
		assert.True(t, got.Equal(decimal.NewFromInt(250)))
		assert.Equal(t, int64(0), source.fetches)
	})

	t.Run("crypto converts at unit price", func(t *testing.T) {
		got, err := svc.Convert(context.Background(), decimal.RequireFromString("0.5"), "BTC")
		require.NoError(t, err)
		assert.True(t, got.Equal(decimal.NewFromInt(32000)))
	})
}
