package yahoo

// Quote represents one symbol's entry from the Yahoo Finance quote API.
// The extended-hours prices are zero when Yahoo has no extended-hours trade.
type Quote struct {
	Symbol             string  `json:"symbol"`
	QuoteType          string  `json:"quoteType"`   // EQUITY, FUTURE, INDEX, ...
	MarketState        string  `json:"marketState"` // PRE, REGULAR, POST, CLOSED, PREPRE, POSTPOST
	RegularMarketPrice float64 `json:"regularMarketPrice"`
	RegularMarketTime  int64   `json:"regularMarketTime"`
	PreMarketPrice     float64 `json:"preMarketPrice"`
	PreMarketTime      int64   `json:"preMarketTime"`
	PostMarketPrice    float64 `json:"postMarketPrice"`
	PostMarketTime     int64   `json:"postMarketTime"`
}

// DailyClose is a single day's closing price from the chart API
type DailyClose struct {
	Timestamp int64
	Close     float64
	AdjClose  float64
}
