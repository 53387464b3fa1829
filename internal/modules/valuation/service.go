package valuation

import (
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"livefolio/internal/domain"
	"livefolio/pkg/formulas"
)

// MoversCount is how many positions the movers panel ranks
const MoversCount = 5

// GainersCount is how many positions the gainers/losers panels rank
const GainersCount = 10

// LastKnownFunc supplies a previous cycle's price for a symbol, for display
// annotation of unpriced positions only.
type LastKnownFunc func(symbol string) (decimal.Decimal, bool)

// Service combines validated equity positions with one cycle's quotes
type Service struct {
	log zerolog.Logger
}

// NewService creates a new valuation service
func NewService(log zerolog.Logger) *Service {
	return &Service{log: log.With().Str("component", "valuation").Logger()}
}

// Value computes per-position figures and portfolio totals from a single
// quote mapping. Positions whose ticker has no quote are retained with
// Priced=false and contribute nothing to totals; each is reported as a
// partial failure. Rows come back sorted by descending market value.
func (s *Service) Value(
	positions []domain.EquityPosition,
	quotes map[string]domain.PriceQuote,
	lastKnown LastKnownFunc,
) ([]domain.ValuedEquity, domain.Totals, []domain.PartialFailure) {
	rows := make([]domain.ValuedEquity, 0, len(positions))
	var failures []domain.PartialFailure
	var totals domain.Totals

	for _, pos := range positions {
		row := domain.ValuedEquity{
			Ticker:    pos.Ticker,
			Shares:    pos.Shares,
			AvgBuy:    pos.AvgBuy,
			CostBasis: pos.Shares.Mul(pos.AvgBuy),
		}

		quote, ok := quotes[pos.Ticker]
		if !ok {
			if lastKnown != nil {
				if price, found := lastKnown(pos.Ticker); found {
					row.LastKnown = &price
				}
			}
			failures = append(failures, domain.PartialFailure{
				Subject: pos.Ticker,
				Kind:    domain.FailureMissingPrice,
				Reason:  "position retained unpriced; excluded from totals",
			})
			rows = append(rows, row)
			continue
		}

		row.Priced = true
		row.Price = quote.Price
		row.Session = quote.Session
		row.MarketValue = pos.Shares.Mul(quote.Price)
		row.UnrealizedPL = row.MarketValue.Sub(row.CostBasis)
		row.PLPercent = formulas.Ratio(row.UnrealizedPL, row.CostBasis.Abs())

		totals.MarketValue = totals.MarketValue.Add(row.MarketValue)
		totals.CostBasis = totals.CostBasis.Add(row.CostBasis)
		totals.UnrealizedPL = totals.UnrealizedPL.Add(row.UnrealizedPL)

		rows = append(rows, row)
	}

	totals.PLPercent = formulas.Ratio(totals.UnrealizedPL, totals.CostBasis.Abs())

	for i := range rows {
		if rows[i].Priced {
			rows[i].AllocationPercent = formulas.PercentOf(rows[i].MarketValue, totals.MarketValue)
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].MarketValue.Equal(rows[j].MarketValue) {
			return rows[i].MarketValue.GreaterThan(rows[j].MarketValue)
		}
		return rows[i].Ticker < rows[j].Ticker
	})

	return rows, totals, failures
}

// Movers returns the n priced positions with the largest absolute unrealized
// P/L. Ties break by larger absolute P/L percent, then ticker order, so the
// ranking is deterministic across runs.
func Movers(rows []domain.ValuedEquity, n int) []domain.MoverEntry {
	priced := pricedEntries(rows)

	sort.SliceStable(priced, func(i, j int) bool {
		absI, absJ := priced[i].UnrealizedPL.Abs(), priced[j].UnrealizedPL.Abs()
		if !absI.Equal(absJ) {
			return absI.GreaterThan(absJ)
		}
		pctI, pctJ := absPct(priced[i].PLPercent), absPct(priced[j].PLPercent)
		if !pctI.Equal(pctJ) {
			return pctI.GreaterThan(pctJ)
		}
		return priced[i].Ticker < priced[j].Ticker
	})

	return truncate(priced, n)
}

// TopGainers returns the n priced positions with the highest P/L percent
func TopGainers(rows []domain.ValuedEquity, n int) []domain.MoverEntry {
	priced := pricedEntries(rows)
	sort.SliceStable(priced, func(i, j int) bool {
		pctI, pctJ := pctOrZero(priced[i].PLPercent), pctOrZero(priced[j].PLPercent)
		if !pctI.Equal(pctJ) {
			return pctI.GreaterThan(pctJ)
		}
		return priced[i].Ticker < priced[j].Ticker
	})
	return truncate(priced, n)
}

// TopLosers returns the n priced positions with the lowest P/L percent
func TopLosers(rows []domain.ValuedEquity, n int) []domain.MoverEntry {
	priced := pricedEntries(rows)
	sort.SliceStable(priced, func(i, j int) bool {
		pctI, pctJ := pctOrZero(priced[i].PLPercent), pctOrZero(priced[j].PLPercent)
		if !pctI.Equal(pctJ) {
			return pctI.LessThan(pctJ)
		}
		return priced[i].Ticker < priced[j].Ticker
	})
	return truncate(priced, n)
}

func pricedEntries(rows []domain.ValuedEquity) []domain.MoverEntry {
	var out []domain.MoverEntry
	for _, row := range rows {
		if !row.Priced {
			continue
		}
		out = append(out, domain.MoverEntry{
			Ticker:       row.Ticker,
			UnrealizedPL: row.UnrealizedPL,
			PLPercent:    row.PLPercent,
		})
	}
	return out
}

func truncate(entries []domain.MoverEntry, n int) []domain.MoverEntry {
	if len(entries) > n {
		return entries[:n]
	}
	return entries
}

func absPct(p *decimal.Decimal) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	return p.Abs()
}

func pctOrZero(p *decimal.Decimal) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	return *p
}
