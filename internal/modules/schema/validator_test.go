package schema

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livefolio/internal/domain"
)

func TestParseEquities_MergesDuplicateTickers(t *testing.T) {
	rows := [][]string{
		{"Ticker", "Shares", "AvgBuy"},
		{"SOFI", "2000", "8.00"},
		{"AAPL", "10", "150"},
		{"SOFI", "1096", "9.13"},
	}

	positions, failures, err := ParseEquities(rows)
	require.NoError(t, err)
	assert.Empty(t, failures)
	require.Len(t, positions, 2)

	// First-seen order is preserved
	sofi := positions[0]
	assert.Equal(t, "SOFI", sofi.Ticker)
	assert.True(t, sofi.Shares.Equal(decimal.NewFromInt(3096)), "shares = %s", sofi.Shares)

	// (2000*8.00 + 1096*9.13) / 3096
	wantAvg := decimal.RequireFromString("26006.48").Div(decimal.NewFromInt(3096))
	assert.True(t, sofi.AvgBuy.Equal(wantAvg), "avg buy = %s, want %s", sofi.AvgBuy, wantAvg)

	assert.Equal(t, "AAPL", positions[1].Ticker)
}

func TestParseEquities_HeaderCaseInsensitive(t *testing.T) {
	rows := [][]string{
		{"ticker", "SHARES", " AvgBuy "},
		{"msft", "5", "300"},
	}

	positions, failures, err := ParseEquities(rows)
	require.NoError(t, err)
	assert.Empty(t, failures)
	require.Len(t, positions, 1)
	assert.Equal(t, "MSFT", positions[0].Ticker)
}

func TestParseEquities_MissingColumnsFatal(t *testing.T) {
	rows := [][]string{
		{"Ticker", "Shares"},
		{"AAPL", "10"},
	}

	_, _, err := ParseEquities(rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing columns: AvgBuy")
}

func TestParseEquities_EmptySource(t *testing.T) {
	_, _, err := ParseEquities(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header row is mandatory")
}

func TestParseEquities_RowLevelFailures(t *testing.T) {
	rows := [][]string{
		{"Ticker", "Shares", "AvgBuy"},
		{"", "10", "100"},          // row 2: empty ticker
		{"AAPL", "abc", "100"},     // row 3: non-numeric shares
		{"TSLA", "0", "250"},       // row 4: zero shares
		{"NVDA", "4", "-1"},        // row 5: negative avg buy
		{"KO", "12", "58.30"},      // row 6: good
	}

	positions, failures, err := ParseEquities(rows)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "KO", positions[0].Ticker)

	require.Len(t, failures, 4)
	assert.Equal(t, "equities:row 2", failures[0].Subject)
	assert.Equal(t, domain.FailureSchema, failures[0].Kind)
	assert.Equal(t, "equities:row 3", failures[1].Subject)
	assert.Equal(t, "equities:row 4", failures[2].Subject)
	assert.Equal(t, "equities:row 5", failures[3].Subject)
}

func TestParseOptions_ValidRows(t *testing.T) {
	rows := [][]string{
		{"Underlying", "Expiry", "Strike", "C/P", "Side", "Qty", "PremiumOpen", "PremiumCurrent"},
		{"NVDA", "2026-01-16", "140", "C", "Long", "2", "5.20", "7.00"},
		{"HOOD", "Jan-2026", "25", "P", "Short", "-2", "3.20", "1.85"},
	}

	positions, failures, err := ParseOptions(rows)
	require.NoError(t, err)
	assert.Empty(t, failures)
	require.Len(t, positions, 2)

	nvda := positions[0]
	assert.Equal(t, domain.OptionCall, nvda.Type)
	assert.Equal(t, domain.SideLong, nvda.Side)
	assert.Equal(t, int64(2), nvda.Qty)
	assert.Equal(t, time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC), nvda.Expiry)
	require.NotNil(t, nvda.PremiumCurrent)

	// A negative Qty on a Short row is the usual spreadsheet convention,
	// not a conflict. The stored Qty is absolute.
	hood := positions[1]
	assert.Equal(t, domain.SideShort, hood.Side)
	assert.Equal(t, int64(2), hood.Qty)
	assert.False(t, hood.SignConflict)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), hood.Expiry)
}

func TestParseOptions_SignConflict(t *testing.T) {
	rows := [][]string{
		{"Underlying", "Expiry", "Strike", "C/P", "Side", "Qty", "PremiumOpen"},
		{"AAPL", "2026-06-19", "200", "C", "Long", "-3", "4.10"},
		{"TSLA", "2026-06-19", "300", "P", "Short", "5", "9.00"},
	}

	positions, failures, err := ParseOptions(rows)
	require.NoError(t, err)
	require.Len(t, positions, 2)

	// Side stays authoritative; the row is kept with the conflict flagged
	assert.True(t, positions[0].SignConflict)
	assert.Equal(t, domain.SideLong, positions[0].Side)
	assert.Equal(t, int64(3), positions[0].Qty)

	assert.True(t, positions[1].SignConflict)
	assert.Equal(t, int64(5), positions[1].Qty)

	require.Len(t, failures, 2)
	assert.Equal(t, "options:row 2", failures[0].Subject)
	assert.Contains(t, failures[0].Reason, "conflicts with Side")
}

func TestParseOptions_RowLevelFailures(t *testing.T) {
	rows := [][]string{
		{"Underlying", "Expiry", "Strike", "C/P", "Side", "Qty", "PremiumOpen"},
		{"NVDA", "not-a-date", "140", "C", "Long", "1", "5.20"},
		{"NVDA", "2026-01-16", "-140", "C", "Long", "1", "5.20"},
		{"NVDA", "2026-01-16", "140", "X", "Long", "1", "5.20"},
		{"NVDA", "2026-01-16", "140", "C", "Hold", "1", "5.20"},
		{"NVDA", "2026-01-16", "140", "C", "Long", "0", "5.20"},
		{"NVDA", "2026-01-16", "140", "C", "Long", "1", "-5.20"},
	}

	positions, failures, err := ParseOptions(rows)
	require.NoError(t, err)
	assert.Empty(t, positions)
	assert.Len(t, failures, 6)
}

func TestParseOptions_MissingPremiumCurrentIsAllowed(t *testing.T) {
	rows := [][]string{
		{"Underlying", "Expiry", "Strike", "C/P", "Side", "Qty", "PremiumOpen", "PremiumCurrent"},
		{"AMD", "2026-03-20", "180", "C", "Long", "1", "6.50", ""},
	}

	positions, failures, err := ParseOptions(rows)
	require.NoError(t, err)
	assert.Empty(t, failures)
	require.Len(t, positions, 1)
	assert.Nil(t, positions[0].PremiumCurrent)
}

func TestParseOptions_AcceptsSpelledOutTypeAndExpiryFormats(t *testing.T) {
	rows := [][]string{
		{"Underlying", "Expiry", "Strike", "C/P", "Side", "Qty", "PremiumOpen"},
		{"KO", "01/16/2026", "60", "Call", "long", "1", "1.00"},
		{"PEP", "16-Jan-2026", "170", "put", "SHORT", "-1", "2.00"},
	}

	positions, failures, err := ParseOptions(rows)
	require.NoError(t, err)
	assert.Empty(t, failures)
	require.Len(t, positions, 2)
	assert.Equal(t, domain.OptionCall, positions[0].Type)
	assert.Equal(t, domain.OptionPut, positions[1].Type)
	assert.Equal(t, positions[0].Expiry, positions[1].Expiry)
}

func TestParseSectors_LaterRowsWin(t *testing.T) {
	rows := [][]string{
		{"Ticker", "Sector"},
		{"AAPL", "Technology"},
		{"KO", "Consumer Staples"},
		{"AAPL", "Consumer Electronics"},
	}

	entries, failures, err := ParseSectors(rows)
	require.NoError(t, err)
	assert.Empty(t, failures)
	require.Len(t, entries, 2)
	assert.Equal(t, "Consumer Electronics", entries[0].Sector)
	assert.Equal(t, "Consumer Staples", entries[1].Sector)
}

func TestParseSectors_RequiresBothFields(t *testing.T) {
	rows := [][]string{
		{"Ticker", "Sector"},
		{"AAPL", ""},
		{"", "Technology"},
	}

	entries, failures, err := ParseSectors(rows)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Len(t, failures, 2)
}
