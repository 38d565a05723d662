package analytics

import (
	"github.com/shopspring/decimal"

	"stockpulse/backend/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Compare reduces the current and comparison windows to the revenue total and
// the period-over-period change. Growth from an empty comparison window is
// reported as a flat 100%; two empty windows report 0% and a positive sign.
func Compare(current []float64, comparison []float64) domain.ComparisonResult {
	cur := sum(current)
	prev := sum(comparison)

	result := domain.ComparisonResult{
		TotalRevenue: finite(cur.InexactFloat64()),
		IsPositive:   cur.GreaterThanOrEqual(prev),
	}

	switch {
	case prev.IsPositive():
		change := cur.Sub(prev).Div(prev).Mul(hundred).Round(1).Abs()
		result.PercentageChange = finite(change.InexactFloat64())
	case cur.IsPositive():
		result.PercentageChange = 100
		result.IsPositive = true
	default:
		result.PercentageChange = 0
		result.IsPositive = true
	}
	return result
}

func sum(values []float64) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(finite(v)))
	}
	return total
}
