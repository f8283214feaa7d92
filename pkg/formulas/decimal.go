package formulas

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// DivisionPlaces is the fixed number of fractional digits kept whenever a quotient
// may not terminate. Every division in the valuation path goes through Div so the
// same inputs always produce the same digits.
const DivisionPlaces int32 = 16

// ErrEmptySeries is returned by statistics that are undefined for an empty input.
var ErrEmptySeries = errors.New("cannot compute statistic of an empty series")

var (
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

// Div divides a by b rounding half-up to DivisionPlaces.
func Div(a, b decimal.Decimal) decimal.Decimal {
	return a.DivRound(b, DivisionPlaces)
}

// RoundHalfUp rounds half away from zero to the given number of places.
func RoundHalfUp(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}

// Sorted returns an ascending copy of values.
func Sorted(values []decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	copy(out, values)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LessThan(out[j])
	})
	return out
}

// Median returns the middle value; for an even count the mean of the two middle values.
func Median(values []decimal.Decimal) (decimal.Decimal, error) {
	if len(values) == 0 {
		return decimal.Zero, ErrEmptySeries
	}

	sorted := Sorted(values)
	n := len(sorted)
	mid := n / 2
	if n%2 == 0 {
		return sorted[mid-1].Add(sorted[mid]).Div(two), nil
	}
	return sorted[mid], nil
}

// Percentile computes the p-th percentile (0-100) using linear interpolation
// between order statistics:
//
//	rank = p/100 * (n-1)
//	lo   = floor(rank), hi = min(lo+1, n-1)
//	P    = v[lo] + (rank-lo) * (v[hi]-v[lo])
//
// All arithmetic is exact, so Percentile([1,2,3,4], 25) is exactly 1.75.
func Percentile(values []decimal.Decimal, p int) (decimal.Decimal, error) {
	if len(values) == 0 {
		return decimal.Zero, ErrEmptySeries
	}
	if p < 0 || p > 100 {
		return decimal.Zero, fmt.Errorf("percentile must be between 0 and 100, got %d", p)
	}

	sorted := Sorted(values)
	n := len(sorted)
	if n == 1 {
		return sorted[0], nil
	}

	rank := decimal.NewFromInt(int64(p)).
		Mul(decimal.NewFromInt(int64(n - 1))).
		Div(hundred)
	lo := int(rank.Floor().IntPart())
	hi := lo + 1
	if hi > n-1 {
		hi = n - 1
	}
	fraction := rank.Sub(decimal.NewFromInt(int64(lo)))

	return sorted[lo].Add(fraction.Mul(sorted[hi].Sub(sorted[lo]))), nil
}

// Mean returns the arithmetic mean.
func Mean(values []decimal.Decimal) (decimal.Decimal, error) {
	if len(values) == 0 {
		return decimal.Zero, ErrEmptySeries
	}
	return Div(decimal.Sum(decimal.Zero, values...), decimal.NewFromInt(int64(len(values)))), nil
}

// Min returns the smallest value.
func Min(values []decimal.Decimal) (decimal.Decimal, error) {
	if len(values) == 0 {
		return decimal.Zero, ErrEmptySeries
	}
	return decimal.Min(values[0], values[1:]...), nil
}

// Max returns the largest value.
func Max(values []decimal.Decimal) (decimal.Decimal, error) {
	if len(values) == 0 {
		return decimal.Zero, ErrEmptySeries
	}
	return decimal.Max(values[0], values[1:]...), nil
}

// DispersionBelow reports whether the population coefficient of variation of
// values is strictly below threshold. The comparison is done without square
// roots or division: CV < t  <=>  n*Σx² - (Σx)² < t² * (Σx)²  (for Σx > 0).
// A non-positive sum never counts as tightly clustered.
func DispersionBelow(values []decimal.Decimal, threshold decimal.Decimal) bool {
	if len(values) == 0 {
		return false
	}

	n := decimal.NewFromInt(int64(len(values)))
	sum := decimal.Zero
	sumSquares := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
		sumSquares = sumSquares.Add(v.Mul(v))
	}
	if !sum.IsPositive() {
		return false
	}

	lhs := n.Mul(sumSquares).Sub(sum.Mul(sum))
	rhs := threshold.Mul(threshold).Mul(sum.Mul(sum))
	return lhs.LessThan(rhs)
}

// CoefficientOfVariation returns population standard deviation divided by the mean,
// rounded to DivisionPlaces. It is meant for display; use DispersionBelow for decisions.
func CoefficientOfVariation(values []decimal.Decimal) (decimal.Decimal, error) {
	mean, err := Mean(values)
	if err != nil {
		return decimal.Zero, err
	}
	if !mean.IsPositive() {
		return decimal.Zero, fmt.Errorf("coefficient of variation undefined for non-positive mean %s", mean)
	}

	squares := decimal.Zero
	for _, v := range values {
		d := v.Sub(mean)
		squares = squares.Add(d.Mul(d))
	}
	variance := Div(squares, decimal.NewFromInt(int64(len(values))))

	stdDev, err := Sqrt(variance)
	if err != nil {
		return decimal.Zero, err
	}
	return Div(stdDev, mean), nil
}

// Sqrt computes a square root with Newton's method at DivisionPlaces precision.
// The iteration count is bounded so the result is reproducible.
func Sqrt(d decimal.Decimal) (decimal.Decimal, error) {
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("square root of negative value %s", d)
	}
	if d.IsZero() {
		return decimal.Zero, nil
	}

	x := d
	if d.LessThan(decimal.NewFromInt(1)) {
		x = decimal.NewFromInt(1)
	}
	for i := 0; i < 200; i++ {
		next := x.Add(d.DivRound(x, DivisionPlaces+4)).Div(two).Round(DivisionPlaces + 4)
		if next.Equal(x) {
			break
		}
		x = next
	}
	return x.Round(DivisionPlaces), nil
}

// RelativeSpread returns (max-min)/mean of the values, or zero when the mean is not positive.
func RelativeSpread(values []decimal.Decimal) (decimal.Decimal, error) {
	lo, err := Min(values)
	if err != nil {
		return decimal.Zero, err
	}
	hi, _ := Max(values)
	mean, _ := Mean(values)
	if !mean.IsPositive() {
		return decimal.Zero, nil
	}
	return Div(hi.Sub(lo), mean), nil
}
