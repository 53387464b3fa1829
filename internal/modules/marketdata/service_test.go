package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livefolio/internal/domain"
)

// fakeProvider records every batch it is asked for and can fail a configured
// number of leading calls.
type fakeProvider struct {
	quotes    map[string]ProviderQuote
	failFirst int
	calls     [][]string
}

func (f *fakeProvider) Quotes(_ context.Context, symbols []string) (map[string]ProviderQuote, error) {
	f.calls = append(f.calls, append([]string(nil), symbols...))
	if f.failFirst > 0 {
		f.failFirst--
		return nil, errors.New("transport error")
	}
	out := make(map[string]ProviderQuote)
	for _, sym := range symbols {
		if q, ok := f.quotes[sym]; ok {
			out[sym] = q
		}
	}
	return out, nil
}

type fakeStore struct {
	upserts map[string]domain.PriceQuote
}

func (f *fakeStore) Upsert(q domain.PriceQuote) error {
	if f.upserts == nil {
		f.upserts = make(map[string]domain.PriceQuote)
	}
	f.upserts[q.Ticker] = q
	return nil
}

func (f *fakeStore) LastKnown(symbol string) (decimal.Decimal, time.Time, bool) {
	q, ok := f.upserts[symbol]
	if !ok {
		return decimal.Zero, time.Time{}, false
	}
	return q.Price, q.AsOf, true
}

func newTestService(provider Provider, store LastKnownStore, includePrePost bool) *Service {
	clock, _ := NewSessionClock()
	svc := NewService(ServiceConfig{
		Provider:       provider,
		Clock:          clock,
		Store:          store,
		IncludePrePost: includePrePost,
		Log:            zerolog.Nop(),
	})
	svc.retryBackoff = time.Millisecond
	return svc
}

func regularQuote(symbol string, price float64) ProviderQuote {
	return ProviderQuote{
		Symbol:       symbol,
		QuoteType:    "EQUITY",
		MarketState:  "REGULAR",
		RegularPrice: price,
	}
}

func TestService_Resolve_DeduplicatesAndNormalizes(t *testing.T) {
	provider := &fakeProvider{quotes: map[string]ProviderQuote{
		"AAPL": regularQuote("AAPL", 200),
		"SHEL": regularQuote("SHEL", 30),
	}}
	svc := newTestService(provider, nil, true)

	result := svc.Resolve(context.Background(), []string{"NASDAQ:AAPL", "aapl", "AAPL", "LON:SHEL"})

	require.Len(t, provider.calls, 1)
	assert.Equal(t, []string{"AAPL", "SHEL"}, provider.calls[0])

	require.Len(t, result.Quotes, 2)
	assert.True(t, result.Quotes["AAPL"].Price.Equal(decimal.NewFromInt(200)))
	assert.Empty(t, result.Failures)
}

func TestService_Resolve_RetriesBatchOnTransportError(t *testing.T) {
	provider := &fakeProvider{
		quotes:    map[string]ProviderQuote{"AAPL": regularQuote("AAPL", 200)},
		failFirst: 1,
	}
	svc := newTestService(provider, nil, true)

	result := svc.Resolve(context.Background(), []string{"AAPL"})

	assert.Len(t, provider.calls, 2)
	assert.Len(t, result.Quotes, 1)
	assert.Empty(t, result.Failures)
}

func TestService_Resolve_DeadProviderFailsInBoundedCalls(t *testing.T) {
	provider := &fakeProvider{failFirst: 1 << 30}
	svc := newTestService(provider, nil, true)

	symbols := []string{"AAPL", "KO", "NVDA", "SOFI", "TSLA"}
	result := svc.Resolve(context.Background(), symbols)

	// One batch plus its single retry; no per-symbol fallbacks against an
	// unreachable provider, so the call count does not grow with the batch.
	assert.Len(t, provider.calls, 2)

	assert.Empty(t, result.Quotes)
	require.Len(t, result.Failures, len(symbols))
	for _, f := range result.Failures {
		assert.Equal(t, domain.FailureDataFetch, f.Kind)
		assert.Contains(t, f.Reason, "quote batch failed")
	}
}

func TestService_Resolve_UnknownSymbolFailsWithoutBlockingOthers(t *testing.T) {
	provider := &fakeProvider{quotes: map[string]ProviderQuote{
		"AAPL": regularQuote("AAPL", 200),
	}}
	svc := newTestService(provider, nil, true)

	result := svc.Resolve(context.Background(), []string{"AAPL", "BOGUS"})

	require.Len(t, result.Quotes, 1)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "BOGUS", result.Failures[0].Subject)
	assert.Equal(t, domain.FailureDataFetch, result.Failures[0].Kind)
}

func TestService_Resolve_ZeroPriceIsMissingPrice(t *testing.T) {
	provider := &fakeProvider{quotes: map[string]ProviderQuote{
		"HALTED": regularQuote("HALTED", 0),
	}}
	svc := newTestService(provider, nil, true)

	result := svc.Resolve(context.Background(), []string{"HALTED"})

	assert.Empty(t, result.Quotes)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, domain.FailureMissingPrice, result.Failures[0].Kind)
}

func TestService_Resolve_PrefersPreMarketPrice(t *testing.T) {
	provider := &fakeProvider{quotes: map[string]ProviderQuote{
		"AAPL": {
			Symbol:       "AAPL",
			QuoteType:    "EQUITY",
			MarketState:  "PRE",
			RegularPrice: 200,
			PrePrice:     203.5,
		},
	}}
	svc := newTestService(provider, nil, true)

	result := svc.Resolve(context.Background(), []string{"AAPL"})

	require.Len(t, result.Quotes, 1)
	q := result.Quotes["AAPL"]
	assert.True(t, q.Price.Equal(decimal.NewFromFloat(203.5)))
	assert.Equal(t, domain.SessionPreMarket, q.Session)
}

func TestService_Resolve_PrePostDisabledUsesRegularPrice(t *testing.T) {
	provider := &fakeProvider{quotes: map[string]ProviderQuote{
		"AAPL": {
			Symbol:       "AAPL",
			QuoteType:    "EQUITY",
			MarketState:  "POST",
			RegularPrice: 200,
			PostPrice:    195,
		},
	}}
	svc := newTestService(provider, nil, false)

	result := svc.Resolve(context.Background(), []string{"AAPL"})

	require.Len(t, result.Quotes, 1)
	assert.True(t, result.Quotes["AAPL"].Price.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, domain.SessionAfterHours, result.Quotes["AAPL"].Session)
}

func TestService_Resolve_FuturesAlwaysUseRegularPrice(t *testing.T) {
	provider := &fakeProvider{quotes: map[string]ProviderQuote{
		"ES=F": {
			Symbol:       "ES=F",
			QuoteType:    "FUTURE",
			MarketState:  "PRE",
			RegularPrice: 5600.25,
			PrePrice:     5601.75,
		},
	}}
	svc := newTestService(provider, nil, true)

	result := svc.Resolve(context.Background(), []string{"ES=F"})

	require.Len(t, result.Quotes, 1)
	q := result.Quotes["ES=F"]
	assert.Equal(t, domain.AssetFuture, q.AssetClass)
	assert.True(t, q.Price.Equal(decimal.NewFromFloat(5600.25)))
}

func TestService_Resolve_PersistsAndServesLastKnown(t *testing.T) {
	store := &fakeStore{}
	provider := &fakeProvider{quotes: map[string]ProviderQuote{
		"AAPL": regularQuote("AAPL", 200),
	}}
	svc := newTestService(provider, store, true)

	svc.Resolve(context.Background(), []string{"AAPL"})

	price, ok := svc.LastKnown("NASDAQ:AAPL")
	require.True(t, ok)
	assert.True(t, price.Equal(decimal.NewFromInt(200)))

	_, ok = svc.LastKnown("NEVER")
	assert.False(t, ok)
}

func TestService_Resolve_EmptyInput(t *testing.T) {
	provider := &fakeProvider{}
	svc := newTestService(provider, nil, true)

	result := svc.Resolve(context.Background(), nil)
	assert.Empty(t, result.Quotes)
	assert.Empty(t, result.Failures)
	assert.Empty(t, provider.calls)
}

func TestIsFuture(t *testing.T) {
	assert.True(t, IsFuture("ES=F"))
	assert.True(t, IsFuture("GC=F"))
	assert.False(t, IsFuture("AAPL"))
	assert.False(t, IsFuture("EURUSD=X"))
}
