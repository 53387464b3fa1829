package formulas

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// WeightedAverageCost combines two lots of the same security into a single
// average cost. totalShares must be the sum of both lots' shares; returns zero
// when the combined share count is zero.
func WeightedAverageCost(sharesA, costA, sharesB, costB decimal.Decimal) decimal.Decimal {
	totalShares := sharesA.Add(sharesB)
	if totalShares.IsZero() {
		return decimal.Zero
	}
	totalCost := sharesA.Mul(costA).Add(sharesB.Mul(costB))
	return totalCost.Div(totalShares)
}

// PercentOf returns part/whole expressed as a percentage, zero when the whole
// is zero.
func PercentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

// Ratio returns numer/denom, or nil when denom is zero. Used for P/L
// percentages where a zero cost basis makes the figure undefined.
func Ratio(numer, denom decimal.Decimal) *decimal.Decimal {
	if denom.IsZero() {
		return nil
	}
	r := numer.Div(denom)
	return &r
}
