package options

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livefolio/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func contract(underlying string, side domain.Side, qty int64, open string, current *decimal.Decimal) domain.OptionPosition {
	return domain.OptionPosition{
		Underlying:     underlying,
		Expiry:         time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC),
		Strike:         dec("100"),
		Type:           domain.OptionCall,
		Side:           side,
		Qty:            qty,
		PremiumOpen:    dec(open),
		PremiumCurrent: current,
	}
}

func TestService_Value_LongCall(t *testing.T) {
	svc := NewService(zerolog.Nop())

	// 2 long calls opened at 5.20, now 7.00: (7.00-5.20)*2*100 = +360
	current := dec("7.00")
	rows, summary := svc.Value([]domain.OptionPosition{
		contract("NVDA", domain.SideLong, 2, "5.20", &current),
	})

	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].PnL)
	assert.True(t, rows[0].PnL.Equal(dec("360")), "pnl = %s", rows[0].PnL)
	assert.True(t, summary.TotalPnL.Equal(dec("360")))
	assert.Equal(t, 1, summary.ValuedCount)
	assert.Equal(t, 0, summary.UnvaluedCount)
}

func TestService_Value_ShortPutProfitsWhenPremiumFalls(t *testing.T) {
	svc := NewService(zerolog.Nop())

	// 2 short puts sold at 3.20, now 1.85: (1.85-3.20)*2*100*(-1) = +270
	current := dec("1.85")
	rows, summary := svc.Value([]domain.OptionPosition{
		contract("HOOD", domain.SideShort, 2, "3.20", &current),
	})

	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].PnL)
	assert.True(t, rows[0].PnL.Equal(dec("270")), "pnl = %s", rows[0].PnL)
	assert.True(t, summary.TotalPnL.Equal(dec("270")))
}

func TestService_Value_ShortLosesWhenPremiumRises(t *testing.T) {
	svc := NewService(zerolog.Nop())

	current := dec("4.00")
	rows, _ := svc.Value([]domain.OptionPosition{
		contract("TSLA", domain.SideShort, 1, "3.00", &current),
	})

	require.NotNil(t, rows[0].PnL)
	assert.True(t, rows[0].PnL.Equal(dec("-100")))
}

func TestService_Value_UnvaluedContractsExcludedFromTotal(t *testing.T) {
	svc := NewService(zerolog.Nop())

	current := dec("7.00")
	rows, summary := svc.Value([]domain.OptionPosition{
		contract("NVDA", domain.SideLong, 2, "5.20", &current),
		contract("AMD", domain.SideLong, 1, "6.50", nil),
	})

	require.Len(t, rows, 2)
	assert.Nil(t, rows[1].PnL)

	// The total covers valued contracts only; the count tells the reader it
	// is partial.
	assert.True(t, summary.TotalPnL.Equal(dec("360")))
	assert.Equal(t, 1, summary.ValuedCount)
	assert.Equal(t, 1, summary.UnvaluedCount)
}

func TestService_Value_Empty(t *testing.T) {
	svc := NewService(zerolog.Nop())

	rows, summary := svc.Value(nil)
	assert.Empty(t, rows)
	assert.True(t, summary.TotalPnL.IsZero())
}
