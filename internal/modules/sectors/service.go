package sectors

import (
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"livefolio/internal/domain"
	"livefolio/pkg/formulas"
)

// UnmappedSector is the bucket for tickers with no sector mapping
const UnmappedSector = "Unmapped"

var hundred = decimal.NewFromInt(100)

// Service rolls equity market value up by sector
type Service struct {
	log zerolog.Logger
}

// NewService creates a new sector aggregation service
func NewService(log zerolog.Logger) *Service {
	return &Service{log: log.With().Str("component", "sectors").Logger()}
}

// Breakdown groups priced market value by sector. Tickers absent from the
// mapping (or an entirely absent mapping source) land in the "Unmapped"
// bucket. Slices are ordered by descending market value; percentages are
// rounded to 2 decimals with the last bucket absorbing the remainder so they
// sum to exactly 100.
func (s *Service) Breakdown(rows []domain.ValuedEquity, mapping []domain.SectorMapEntry) []domain.SectorSlice {
	bySector := make(map[string]string, len(mapping))
	for _, entry := range mapping {
		bySector[entry.Ticker] = entry.Sector
	}

	totals := make(map[string]decimal.Decimal)
	grandTotal := decimal.Zero

	for _, row := range rows {
		if !row.Priced {
			continue
		}
		sector := bySector[row.Ticker]
		if sector == "" {
			sector = UnmappedSector
		}
		totals[sector] = totals[sector].Add(row.MarketValue)
		grandTotal = grandTotal.Add(row.MarketValue)
	}

	if len(totals) == 0 {
		return nil
	}

	slices := make([]domain.SectorSlice, 0, len(totals))
	for sector, value := range totals {
		slices = append(slices, domain.SectorSlice{Sector: sector, MarketValue: value})
	}

	sort.SliceStable(slices, func(i, j int) bool {
		if !slices[i].MarketValue.Equal(slices[j].MarketValue) {
			return slices[i].MarketValue.GreaterThan(slices[j].MarketValue)
		}
		return slices[i].Sector < slices[j].Sector
	})

	// Round every bucket but the last, which absorbs the remainder so the pie
	// always closes at exactly 100%.
	remaining := hundred
	for i := range slices {
		if i == len(slices)-1 {
			slices[i].Percent = remaining
			break
		}
		pct := formulas.PercentOf(slices[i].MarketValue, grandTotal).Round(2)
		slices[i].Percent = pct
		remaining = remaining.Sub(pct)
	}

	return slices
}
