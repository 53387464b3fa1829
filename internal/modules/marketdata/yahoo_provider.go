package marketdata

import (
	"context"

	"livefolio/internal/clients/yahoo"
)

// YahooProvider adapts the Yahoo Finance client to the Provider interface
type YahooProvider struct {
	client *yahoo.Client
}

// NewYahooProvider creates a provider backed by Yahoo Finance
func NewYahooProvider(client *yahoo.Client) *YahooProvider {
	return &YahooProvider{client: client}
}

// Quotes implements Provider
func (p *YahooProvider) Quotes(ctx context.Context, symbols []string) (map[string]ProviderQuote, error) {
	raw, err := p.client.Quotes(ctx, symbols)
	if err != nil {
		return nil, err
	}

	out := make(map[string]ProviderQuote, len(raw))
	for sym, q := range raw {
		out[sym] = ProviderQuote{
			Symbol:       q.Symbol,
			QuoteType:    q.QuoteType,
			MarketState:  q.MarketState,
			RegularPrice: q.RegularMarketPrice,
			RegularTime:  q.RegularMarketTime,
			PrePrice:     q.PreMarketPrice,
			PreTime:      q.PreMarketTime,
			PostPrice:    q.PostMarketPrice,
			PostTime:     q.PostMarketTime,
		}
	}
	return out, nil
}
