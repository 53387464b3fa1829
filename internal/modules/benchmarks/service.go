package benchmarks

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"livefolio/internal/domain"
)

// HistoryFetcher supplies the first and latest closes of the current year for
// a symbol. Satisfied by the Yahoo client's YTDRange.
type HistoryFetcher interface {
	YTDRange(ctx context.Context, symbol string) (first, last float64, err error)
}

// Service computes simple year-to-date returns for a fixed reference list,
// independent of the user portfolio.
type Service struct {
	fetcher HistoryFetcher
	log     zerolog.Logger
}

// NewService creates a new benchmark service
func NewService(fetcher HistoryFetcher, log zerolog.Logger) *Service {
	return &Service{
		fetcher: fetcher,
		log:     log.With().Str("component", "benchmarks").Logger(),
	}
}

// Returns computes (current - yearStart) / yearStart per symbol. A fetch
// failure degrades that one entry to unavailable (nil YTD) and never blocks
// the others.
func (s *Service) Returns(ctx context.Context, symbols []string) []domain.BenchmarkReturn {
	out := make([]domain.BenchmarkReturn, 0, len(symbols))

	for _, symbol := range symbols {
		entry := domain.BenchmarkReturn{Symbol: symbol}

		first, last, err := s.fetcher.YTDRange(ctx, symbol)
		if err != nil || first <= 0 {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Benchmark unavailable")
			out = append(out, entry)
			continue
		}

		start := decimal.NewFromFloat(first)
		ytd := decimal.NewFromFloat(last).Sub(start).Div(start)
		entry.YTD = &ytd
		out = append(out, entry)
	}

	return out
}
