package benchmarks

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	ranges map[string][2]float64
}

func (f *fakeFetcher) YTDRange(_ context.Context, symbol string) (float64, float64, error) {
	r, ok := f.ranges[symbol]
	if !ok {
		return 0, 0, errors.New("no history")
	}
	return r[0], r[1], nil
}

func TestService_Returns(t *testing.T) {
	svc := NewService(&fakeFetcher{ranges: map[string][2]float64{
		"SPY": {500, 550},
		"QQQ": {400, 380},
	}}, zerolog.Nop())

	out := svc.Returns(context.Background(), []string{"SPY", "QQQ"})
	require.Len(t, out, 2)

	require.NotNil(t, out[0].YTD)
	assert.True(t, out[0].YTD.Equal(decimal.RequireFromString("0.1")), "SPY ytd = %s", out[0].YTD)

	require.NotNil(t, out[1].YTD)
	assert.True(t, out[1].YTD.Equal(decimal.RequireFromString("-0.05")), "QQQ ytd = %s", out[1].YTD)
}

func TestService_Returns_FailureIsolatedPerSymbol(t *testing.T) {
	svc := NewService(&fakeFetcher{ranges: map[string][2]float64{
		"SPY": {500, 550},
	}}, zerolog.Nop())

	out := svc.Returns(context.Background(), []string{"SPY", "BOGUS"})
	require.Len(t, out, 2)
	assert.NotNil(t, out[0].YTD)
	assert.Nil(t, out[1].YTD)
	assert.Equal(t, "BOGUS", out[1].Symbol)
}

func TestService_Returns_ZeroStartIsUnavailable(t *testing.T) {
	svc := NewService(&fakeFetcher{ranges: map[string][2]float64{
		"NEW": {0, 10},
	}}, zerolog.Nop())

	out := svc.Returns(context.Background(), []string{"NEW"})
	require.Len(t, out, 1)
	assert.Nil(t, out[0].YTD)
}
