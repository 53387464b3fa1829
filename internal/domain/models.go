package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Session represents the market-hours phase governing which price is authoritative
type Session string

const (
	SessionRegular    Session = "regular"
	SessionPreMarket  Session = "pre_market"
	SessionAfterHours Session = "after_hours"
	SessionClosed     Session = "closed"
)

// AssetClass distinguishes equity symbols from continuous-session futures
type AssetClass string

const (
	AssetEquity AssetClass = "equity"
	AssetFuture AssetClass = "future"
)

// OptionType is the contract type from the "C/P" column
type OptionType string

const (
	OptionCall OptionType = "C"
	OptionPut  OptionType = "P"
)

// Side is the position direction from the "Side" column
type Side string

const (
	SideLong  Side = "Long"
	SideShort Side = "Short"
)

// EquityPosition is one validated equity holding. Duplicate tickers in the
// source are merged into a single position (shares summed, avg buy share-weighted).
type EquityPosition struct {
	Ticker string          `json:"ticker"`
	Shares decimal.Decimal `json:"shares"`
	AvgBuy decimal.Decimal `json:"avg_buy"`
}

// OptionPosition is one validated option contract row.
// Side is authoritative for direction; Qty is stored as an absolute count and
// SignConflict records rows where the source's signed Qty disagreed with Side.
type OptionPosition struct {
	Underlying     string           `json:"underlying"`
	Expiry         time.Time        `json:"expiry"`
	Strike         decimal.Decimal  `json:"strike"`
	Type           OptionType       `json:"type"`
	Side           Side             `json:"side"`
	Qty            int64            `json:"qty"`
	PremiumOpen    decimal.Decimal  `json:"premium_open"`
	PremiumCurrent *decimal.Decimal `json:"premium_current,omitempty"`
	SignConflict   bool             `json:"sign_conflict,omitempty"`
}

// SectorMapEntry maps one ticker to a sector name
type SectorMapEntry struct {
	Ticker string `json:"ticker"`
	Sector string `json:"sector"`
}

// PriceQuote is a price observation for a symbol at a point in time.
// Never persisted beyond one refresh cycle.
type PriceQuote struct {
	Ticker     string          `json:"ticker"`
	Price      decimal.Decimal `json:"price"`
	AsOf       time.Time       `json:"as_of"`
	Session    Session         `json:"session"`
	AssetClass AssetClass      `json:"asset_class"`
}

// FailureKind classifies a partial failure by the stage that produced it
type FailureKind string

const (
	FailureConfig       FailureKind = "config_error"
	FailureSchema       FailureKind = "schema_error"
	FailureDataFetch    FailureKind = "data_fetch_error"
	FailureMissingPrice FailureKind = "missing_price_error"
	FailureComputation  FailureKind = "computation_error"
)

// PartialFailure is a per-item error that degraded one data point without
// aborting the cycle. Subject is a ticker for quote failures, or
// "<source>:row <n>" for row-level schema errors.
type PartialFailure struct {
	Subject string      `json:"subject"`
	Kind    FailureKind `json:"kind"`
	Reason  string      `json:"reason"`
}

// ValuedEquity is one equity position combined with its quote.
// Unpriced positions are retained with Priced=false and zero market value so
// the holding is still visible; LastKnown carries the most recent persisted
// price for display context only.
type ValuedEquity struct {
	Ticker            string           `json:"ticker"`
	Shares            decimal.Decimal  `json:"shares"`
	AvgBuy            decimal.Decimal  `json:"avg_buy"`
	Price             decimal.Decimal  `json:"price"`
	CostBasis         decimal.Decimal  `json:"cost_basis"`
	MarketValue       decimal.Decimal  `json:"market_value"`
	UnrealizedPL      decimal.Decimal  `json:"unrealized_pl"`
	PLPercent         *decimal.Decimal `json:"pl_percent,omitempty"`
	AllocationPercent decimal.Decimal  `json:"allocation_percent"`
	Sector            string           `json:"sector,omitempty"`
	Session           Session          `json:"session,omitempty"`
	Priced            bool             `json:"priced"`
	LastKnown         *decimal.Decimal `json:"last_known_price,omitempty"`
}

// ValuedOption is one option contract with its computed premium P/L.
// Unvalued contracts (no current premium obtainable) keep PnL nil and are
// excluded from the aggregate total.
type ValuedOption struct {
	OptionPosition
	PnL *decimal.Decimal `json:"pnl,omitempty"`
}

// OptionsSummary aggregates valued contracts only; UnvaluedCount tells the
// reader the total is partial.
type OptionsSummary struct {
	TotalPnL      decimal.Decimal `json:"total_pnl"`
	ValuedCount   int             `json:"valued_count"`
	UnvaluedCount int             `json:"unvalued_count"`
}

// ValuedFuture is one futures symbol from the configured panel
type ValuedFuture struct {
	Symbol  string          `json:"symbol"`
	Price   decimal.Decimal `json:"price"`
	AsOf    time.Time       `json:"as_of"`
	Session Session         `json:"session"`
}

// SectorSlice is one bucket of the sector breakdown, ordered by descending
// market value. Percentages across all slices sum to exactly 100.
type SectorSlice struct {
	Sector      string          `json:"sector"`
	MarketValue decimal.Decimal `json:"market_value"`
	Percent     decimal.Decimal `json:"percent"`
}

// Totals holds portfolio-level aggregates across priced equity rows
type Totals struct {
	MarketValue  decimal.Decimal  `json:"market_value"`
	CostBasis    decimal.Decimal  `json:"cost_basis"`
	UnrealizedPL decimal.Decimal  `json:"unrealized_pl"`
	PLPercent    *decimal.Decimal `json:"pl_percent,omitempty"`
}

// BenchmarkReturn is a simple year-to-date return for one reference symbol.
// YTD is nil when the fetch failed ("unavailable").
type BenchmarkReturn struct {
	Symbol string           `json:"symbol"`
	YTD    *decimal.Decimal `json:"ytd,omitempty"`
}

// MoverEntry ranks one position for the gainers/losers panels
type MoverEntry struct {
	Ticker       string           `json:"ticker"`
	UnrealizedPL decimal.Decimal  `json:"unrealized_pl"`
	PLPercent    *decimal.Decimal `json:"pl_percent,omitempty"`
}

// PortfolioSnapshot is the complete, internally consistent valuation result
// for one refresh cycle. It is immutable once constructed; the scheduler
// replaces the externally visible snapshot atomically at the end of a cycle.
type PortfolioSnapshot struct {
	ID              uuid.UUID         `json:"id"`
	GeneratedAt     time.Time         `json:"generated_at"`
	ConfigError     string            `json:"config_error,omitempty"`
	EquityRows      []ValuedEquity    `json:"equity_rows"`
	OptionRows      []ValuedOption    `json:"option_rows"`
	Options         OptionsSummary    `json:"options_summary"`
	SectorBreakdown []SectorSlice     `json:"sector_breakdown"`
	Totals          Totals            `json:"totals"`
	Movers          []MoverEntry      `json:"movers"`
	TopGainers      []MoverEntry      `json:"top_gainers"`
	TopLosers       []MoverEntry      `json:"top_losers"`
	Benchmarks      []BenchmarkReturn `json:"benchmarks"`
	Futures         []ValuedFuture    `json:"futures"`
	PartialFailures []PartialFailure  `json:"partial_failures"`
}
