package formulas

import (
	"github.com/shopspring/decimal"
)

var (
	thousand = decimal.NewFromInt(1_000)
	million  = decimal.NewFromInt(1_000_000)
	billion  = decimal.NewFromInt(1_000_000_000)
)

// FormatCurrency renders a dollar amount for narrative text:
// $1.25B, $60.0M, $250K, or $93.50 below one thousand.
func FormatCurrency(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	switch {
	case d.GreaterThanOrEqual(billion):
		return sign + "$" + d.Div(billion).StringFixed(2) + "B"
	case d.GreaterThanOrEqual(million):
		return sign + "$" + d.Div(million).StringFixed(1) + "M"
	case d.GreaterThanOrEqual(thousand):
		return sign + "$" + d.Div(thousand).StringFixed(0) + "K"
	default:
		return sign + "$" + d.StringFixed(2)
	}
}

// FormatMultiple renders a valuation multiple, e.g. 6.0x.
func FormatMultiple(d decimal.Decimal) string {
	return d.StringFixed(1) + "x"
}

// FormatPercent renders a fraction as a percentage with the given decimals: 0.4615 -> 46.2%.
func FormatPercent(fraction decimal.Decimal, places int32) string {
	return fraction.Mul(hundred).StringFixed(places) + "%"
}

// FormatSignedPercent is FormatPercent with an explicit + for non-negative values.
func FormatSignedPercent(fraction decimal.Decimal, places int32) string {
	if fraction.IsNegative() {
		return FormatPercent(fraction, places)
	}
	return "+" + FormatPercent(fraction, places)
}
