package options

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"livefolio/internal/domain"
)

// ContractMultiplier is the standard 100-share equivalent per contract
const ContractMultiplier = 100

var multiplier = decimal.NewFromInt(ContractMultiplier)

// Service computes premium-based option P&L
type Service struct {
	log zerolog.Logger
}

// NewService creates a new options P&L service
func NewService(log zerolog.Logger) *Service {
	return &Service{log: log.With().Str("component", "options").Logger()}
}

// Value computes per-contract and aggregate P&L:
//
//	pnl = (premiumCurrent - premiumOpen) * qty * multiplier * directionSign
//
// where directionSign is +1 for Long and -1 for Short and qty is the absolute
// contract count (the validator already resolved the Qty/Side sign question).
// Contracts without a current premium are listed unvalued; the aggregate sums
// valued contracts only and reports how many were skipped.
func (s *Service) Value(positions []domain.OptionPosition) ([]domain.ValuedOption, domain.OptionsSummary) {
	rows := make([]domain.ValuedOption, 0, len(positions))
	var summary domain.OptionsSummary

	for _, pos := range positions {
		row := domain.ValuedOption{OptionPosition: pos}

		if pos.PremiumCurrent == nil {
			summary.UnvaluedCount++
			rows = append(rows, row)
			continue
		}

		sign := decimal.NewFromInt(1)
		if pos.Side == domain.SideShort {
			sign = decimal.NewFromInt(-1)
		}

		pnl := pos.PremiumCurrent.Sub(pos.PremiumOpen).
			Mul(decimal.NewFromInt(pos.Qty)).
			Mul(multiplier).
			Mul(sign)

		row.PnL = &pnl
		summary.TotalPnL = summary.TotalPnL.Add(pnl)
		summary.ValuedCount++
		rows = append(rows, row)
	}

	if summary.UnvaluedCount > 0 {
		s.log.Debug().
			Int("valued", summary.ValuedCount).
			Int("unvalued", summary.UnvaluedCount).
			Msg("Options total is partial")
	}

	return rows, summary
}
