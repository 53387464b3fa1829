package marketdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"livefolio/internal/clients/yahoo"
	"livefolio/internal/domain"
)

// ProviderQuote is the provider-agnostic raw quote payload
type ProviderQuote struct {
	Symbol       string
	QuoteType    string
	MarketState  string
	RegularPrice float64
	RegularTime  int64
	PrePrice     float64
	PreTime      int64
	PostPrice    float64
	PostTime     int64
}

// Provider resolves a set of symbols to raw quotes in one batch. Symbols the
// provider does not recognize are absent from the map; only transport-level
// problems surface as an error. The concrete data vendor is swappable behind
// this interface.
type Provider interface {
	Quotes(ctx context.Context, symbols []string) (map[string]ProviderQuote, error)
}

// LastKnownStore persists the most recent good price per symbol so unpriced
// positions can be annotated across cycles.
type LastKnownStore interface {
	Upsert(q domain.PriceQuote) error
	LastKnown(symbol string) (decimal.Decimal, time.Time, bool)
}

// Result is one cycle's quote resolution outcome
type Result struct {
	Quotes   map[string]domain.PriceQuote
	Failures []domain.PartialFailure
}

// Service is the market data client: it resolves distinct ticker sets to
// session-aware PriceQuotes with per-ticker failure isolation.
type Service struct {
	provider       Provider
	clock          *SessionClock
	store          LastKnownStore
	includePrePost bool
	retryBackoff   time.Duration
	log            zerolog.Logger
}

// ServiceConfig holds market data service dependencies
type ServiceConfig struct {
	Provider       Provider
	Clock          *SessionClock
	Store          LastKnownStore // optional
	IncludePrePost bool
	Log            zerolog.Logger
}

// NewService creates a new market data service
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		provider:       cfg.Provider,
		clock:          cfg.Clock,
		store:          cfg.Store,
		includePrePost: cfg.IncludePrePost,
		retryBackoff:   500 * time.Millisecond,
		log:            cfg.Log.With().Str("component", "marketdata").Logger(),
	}
}

// Resolve fetches quotes for a set of symbols. Symbols are normalized and
// deduplicated, so an underlying appearing both as a holding and an option
// underlying costs one lookup. The returned map is keyed by normalized symbol;
// symbols with no usable quote are reported in Failures instead.
func (s *Service) Resolve(ctx context.Context, symbols []string) Result {
	result := Result{Quotes: make(map[string]domain.PriceQuote)}

	distinct := dedupe(symbols)
	if len(distinct) == 0 {
		return result
	}

	raw, err := s.fetchBatch(ctx, distinct)
	if err != nil {
		// The provider is unreachable; per-symbol fallbacks against the same
		// dead endpoint would make cycle latency scale with ticker count.
		s.log.Error().Err(err).Int("symbols", len(distinct)).Msg("Quote batch failed after retry")
		for _, sym := range distinct {
			result.Failures = append(result.Failures, domain.PartialFailure{
				Subject: sym,
				Kind:    domain.FailureDataFetch,
				Reason:  fmt.Sprintf("quote batch failed: %v", err),
			})
		}
		return result
	}

	now := time.Now()
	for _, sym := range distinct {
		pq, ok := raw[sym]
		if !ok {
			// Symbols individually omitted from a successful batch get one
			// retried attempt of their own.
			pq, ok = s.fetchSingle(ctx, sym)
		}
		if !ok {
			result.Failures = append(result.Failures, domain.PartialFailure{
				Subject: sym,
				Kind:    domain.FailureDataFetch,
				Reason:  "no quote obtainable",
			})
			continue
		}

		quote, err := s.buildQuote(sym, pq, now)
		if err != nil {
			result.Failures = append(result.Failures, domain.PartialFailure{
				Subject: sym,
				Kind:    domain.FailureMissingPrice,
				Reason:  err.Error(),
			})
			continue
		}

		result.Quotes[sym] = quote
		if s.store != nil {
			if err := s.store.Upsert(quote); err != nil {
				s.log.Warn().Err(err).Str("symbol", sym).Msg("Failed to persist last-known quote")
			}
		}
	}

	s.log.Debug().
		Int("requested", len(distinct)).
		Int("priced", len(result.Quotes)).
		Int("failed", len(result.Failures)).
		Msg("Quote resolution complete")

	return result
}

// LastKnown returns the persisted price for a symbol from a previous cycle
func (s *Service) LastKnown(symbol string) (decimal.Decimal, bool) {
	if s.store == nil {
		return decimal.Zero, false
	}
	price, _, ok := s.store.LastKnown(Normalize(symbol))
	return price, ok
}

// Normalize converts a display ticker to its provider symbol
func Normalize(symbol string) string {
	return yahoo.NormalizeSymbol(symbol)
}

// IsFuture reports whether a symbol is a continuous-session futures contract
func IsFuture(symbol string) bool {
	return strings.HasSuffix(symbol, "=F")
}

func (s *Service) fetchBatch(ctx context.Context, symbols []string) (map[string]ProviderQuote, error) {
	raw, err := s.provider.Quotes(ctx, symbols)
	if err == nil {
		return raw, nil
	}

	// Single bounded retry with short backoff on transport errors
	s.log.Warn().Err(err).Msg("Quote batch failed, retrying once")
	select {
	case <-time.After(s.retryBackoff):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return s.provider.Quotes(ctx, symbols)
}

func (s *Service) fetchSingle(ctx context.Context, symbol string) (ProviderQuote, bool) {
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(s.retryBackoff):
			case <-ctx.Done():
				return ProviderQuote{}, false
			}
		}

		raw, err := s.provider.Quotes(ctx, []string{symbol})
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Int("attempt", attempt+1).Msg("Single quote fetch failed")
			continue
		}
		if pq, ok := raw[symbol]; ok {
			return pq, true
		}
		// Provider does not know the symbol; retrying will not help
		return ProviderQuote{}, false
	}

	return ProviderQuote{}, false
}

// buildQuote applies session rules to pick the authoritative price.
// Futures always use their continuous-session last price; equities prefer the
// extended-hours trade when allowed and the market is in such a window.
func (s *Service) buildQuote(symbol string, pq ProviderQuote, now time.Time) (domain.PriceQuote, error) {
	assetClass := domain.AssetEquity
	if IsFuture(symbol) || pq.QuoteType == "FUTURE" {
		assetClass = domain.AssetFuture
	}

	session := mapMarketState(pq.MarketState)
	if pq.MarketState == "" && s.clock != nil {
		session = s.clock.SessionAt(now)
	}

	price := pq.RegularPrice
	asOf := unixOr(pq.RegularTime, now)

	if assetClass == domain.AssetEquity && s.includePrePost {
		switch session {
		case domain.SessionPreMarket:
			if pq.PrePrice > 0 {
				price = pq.PrePrice
				asOf = unixOr(pq.PreTime, now)
			}
		case domain.SessionAfterHours:
			if pq.PostPrice > 0 {
				price = pq.PostPrice
				asOf = unixOr(pq.PostTime, now)
			}
		}
	}

	if price <= 0 {
		return domain.PriceQuote{}, fmt.Errorf("no usable price (market state %s)", pq.MarketState)
	}

	return domain.PriceQuote{
		Ticker:     symbol,
		Price:      decimal.NewFromFloat(price),
		AsOf:       asOf,
		Session:    session,
		AssetClass: assetClass,
	}, nil
}

func mapMarketState(state string) domain.Session {
	switch state {
	case "PRE":
		return domain.SessionPreMarket
	case "REGULAR":
		return domain.SessionRegular
	case "POST":
		return domain.SessionAfterHours
	default:
		return domain.SessionClosed
	}
}

func unixOr(ts int64, fallback time.Time) time.Time {
	if ts > 0 {
		return time.Unix(ts, 0)
	}
	return fallback
}

func dedupe(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	var out []string
	for _, sym := range symbols {
		normalized := Normalize(sym)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, normalized)
	}
	return out
}
