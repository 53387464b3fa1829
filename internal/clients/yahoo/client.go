package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultQuoteURL = "https://query1.finance.yahoo.com/v7/finance/quote"
	defaultChartURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	userAgent       = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
)

// Client is a Yahoo Finance API client
type Client struct {
	client   *http.Client
	quoteURL string
	chartURL string
	log      zerolog.Logger
}

// NewClient creates a new Yahoo Finance client
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		quoteURL: defaultQuoteURL,
		chartURL: defaultChartURL,
		log:      log.With().Str("client", "yahoo").Logger(),
	}
}

// NewClientWithBaseURLs creates a client pointed at alternate endpoints.
// Used by tests to target a local server.
func NewClientWithBaseURLs(log zerolog.Logger, quoteURL, chartURL string) *Client {
	c := NewClient(log)
	c.quoteURL = quoteURL
	c.chartURL = chartURL
	return c
}

// NormalizeSymbol converts a display ticker to a Yahoo Finance symbol.
// Spreadsheet sources often carry exchange-prefixed tickers
// (NASDAQ:AAPL, NYSE:KO, LON:SHEL); Yahoo wants the bare symbol.
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	for _, prefix := range []string{"NASDAQ:", "NYSE:", "LON:"} {
		s = strings.TrimPrefix(s, prefix)
	}
	return s
}

// yahooQuoteResponse represents the response from the Yahoo Finance quote API
type yahooQuoteResponse struct {
	QuoteResponse struct {
		Result []Quote     `json:"result"`
		Error  interface{} `json:"error"`
	} `json:"quoteResponse"`
}

// Quotes fetches quotes for a batch of symbols in a single request.
// Symbols Yahoo does not recognize are simply absent from the returned map;
// only transport-level problems surface as an error.
func (c *Client) Quotes(ctx context.Context, symbols []string) (map[string]Quote, error) {
	if len(symbols) == 0 {
		return map[string]Quote{}, nil
	}

	params := url.Values{}
	params.Add("symbols", strings.Join(symbols, ","))
	params.Add("fields", "symbol,quoteType,marketState,regularMarketPrice,regularMarketTime,"+
		"preMarketPrice,preMarketTime,postMarketPrice,postMarketTime")

	body, err := c.get(ctx, c.quoteURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var result yahooQuoteResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse quote response: %w", err)
	}

	if result.QuoteResponse.Error != nil {
		return nil, fmt.Errorf("quote API error: %v", result.QuoteResponse.Error)
	}

	quotes := make(map[string]Quote, len(result.QuoteResponse.Result))
	for _, q := range result.QuoteResponse.Result {
		quotes[strings.ToUpper(q.Symbol)] = q
	}

	c.log.Debug().
		Int("requested", len(symbols)).
		Int("returned", len(quotes)).
		Msg("Fetched quote batch")

	return quotes, nil
}

// DailyCloses fetches daily closing prices for a symbol over a chart range
// such as "ytd", "1mo", or "1y".
func (c *Client) DailyCloses(ctx context.Context, symbol, chartRange string) ([]DailyClose, error) {
	params := url.Values{}
	params.Add("interval", "1d")
	params.Add("range", chartRange)

	reqURL := c.chartURL + "/" + url.PathEscape(symbol) + "?" + params.Encode()

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var result struct {
		Chart struct {
			Result []struct {
				Timestamp  []int64 `json:"timestamp"`
				Indicators struct {
					Quote []struct {
						Close []float64 `json:"close"`
					} `json:"quote"`
					AdjClose []struct {
						AdjClose []float64 `json:"adjclose"`
					} `json:"adjclose"`
				} `json:"indicators"`
			} `json:"result"`
			Error interface{} `json:"error"`
		} `json:"chart"`
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse chart response: %w", err)
	}

	if result.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error: %v", result.Chart.Error)
	}

	if len(result.Chart.Result) == 0 || len(result.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no chart data returned for %s", symbol)
	}

	chartData := result.Chart.Result[0]
	closes := chartData.Indicators.Quote[0].Close

	var adjCloses []float64
	if len(chartData.Indicators.AdjClose) > 0 {
		adjCloses = chartData.Indicators.AdjClose[0].AdjClose
	}

	var out []DailyClose
	for i, ts := range chartData.Timestamp {
		if i >= len(closes) || closes[i] == 0 {
			// Yahoo pads incomplete days with nulls
			continue
		}
		dc := DailyClose{Timestamp: ts, Close: closes[i], AdjClose: closes[i]}
		if i < len(adjCloses) && adjCloses[i] != 0 {
			dc.AdjClose = adjCloses[i]
		}
		out = append(out, dc)
	}

	return out, nil
}

// YTDRange returns the first and latest adjusted closes of the current year.
func (c *Client) YTDRange(ctx context.Context, symbol string) (first, last float64, err error) {
	closes, err := c.DailyCloses(ctx, symbol, "ytd")
	if err != nil {
		return 0, 0, err
	}
	if len(closes) == 0 {
		return 0, 0, fmt.Errorf("empty ytd history for %s", symbol)
	}
	return closes[0].AdjClose, closes[len(closes)-1].AdjClose, nil
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Yahoo rejects requests without a browser-like UA
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Yahoo Finance API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, nil
}
