package formulas

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decimals(values ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.RequireFromString(v)
	}
	return out
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name     string
		values   []decimal.Decimal
		expected string
	}{
		{"odd count", decimals("12", "4", "8", "6", "10"), "8"},
		{"even count averages middle values", decimals("4", "1", "3", "2"), "2.5"},
		{"single value", decimals("7.25"), "7.25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Median(tt.values)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.expected)), "got %s", got)
		})
	}
}

func TestMedian_Empty(t *testing.T) {
	_, err := Median(nil)
	assert.ErrorIs(t, err, ErrEmptySeries)
}

func TestMedian_DoesNotReorderInput(t *testing.T) {
	values := decimals("3", "1", "2")
	_, err := Median(values)
	require.NoError(t, err)
	assert.Equal(t, "3", values[0].String())
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		name     string
		values   []decimal.Decimal
		p        int
		expected string
	}{
		{"interpolates between order statistics", decimals("1", "2", "3", "4"), 25, "1.75"},
		{"upper quartile", decimals("1", "2", "3", "4"), 75, "3.25"},
		{"exact rank", decimals("4", "6", "8", "10", "12"), 25, "6"},
		{"exact rank upper", decimals("4", "6", "8", "10", "12"), 75, "10"},
		{"minimum", decimals("4", "6", "8"), 0, "4"},
		{"maximum", decimals("4", "6", "8"), 100, "8"},
		{"single value", decimals("5"), 90, "5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Percentile(tt.values, tt.p)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.expected)), "got %s", got)
		})
	}
}

func TestPercentile_InvalidInput(t *testing.T) {
	_, err := Percentile(nil, 50)
	assert.ErrorIs(t, err, ErrEmptySeries)

	_, err = Percentile(decimals("1"), 101)
	assert.Error(t, err)

	_, err = Percentile(decimals("1"), -1)
	assert.Error(t, err)
}

func TestMeanMinMax(t *testing.T) {
	values := decimals("50000000", "80000000")

	mean, err := Mean(values)
	require.NoError(t, err)
	assert.True(t, mean.Equal(decimal.NewFromInt(65000000)))

	lo, err := Min(values)
	require.NoError(t, err)
	assert.True(t, lo.Equal(decimal.NewFromInt(50000000)))

	hi, err := Max(values)
	require.NoError(t, err)
	assert.True(t, hi.Equal(decimal.NewFromInt(80000000)))

	_, err = Mean(nil)
	assert.ErrorIs(t, err, ErrEmptySeries)
}

func TestMean_NonTerminatingQuotientIsFixedPrecision(t *testing.T) {
	mean, err := Mean(decimals("1", "1", "2"))
	require.NoError(t, err)
	assert.Equal(t, "1.3333333333333333", mean.String())
}

func TestDispersionBelow(t *testing.T) {
	// CV of [4,6,8,10,12] is sqrt(8)/8 ~ 0.354
	spread := decimals("4", "6", "8", "10", "12")

	assert.False(t, DispersionBelow(spread, decimal.RequireFromString("0.30")))
	assert.True(t, DispersionBelow(spread, decimal.RequireFromString("0.50")))
	assert.True(t, DispersionBelow(decimals("5", "5", "5"), decimal.RequireFromString("0.30")))
	assert.False(t, DispersionBelow(nil, decimal.RequireFromString("0.30")))
	assert.False(t, DispersionBelow(decimals("0", "0"), decimal.RequireFromString("0.30")))
}

func TestCoefficientOfVariation(t *testing.T) {
	cv, err := CoefficientOfVariation(decimals("4", "6", "8", "10", "12"))
	require.NoError(t, err)
	assert.Equal(t, "0.3536", cv.StringFixed(4))

	_, err = CoefficientOfVariation(decimals("0", "0"))
	assert.Error(t, err)
}

func TestSqrt(t *testing.T) {
	root, err := Sqrt(decimal.NewFromInt(4))
	require.NoError(t, err)
	assert.True(t, root.Equal(decimal.NewFromInt(2)), "got %s", root)

	root, err = Sqrt(decimal.NewFromInt(2))
	require.NoError(t, err)
	assert.Equal(t, "1.4142135624", root.StringFixed(10))

	root, err = Sqrt(decimal.RequireFromString("0.25"))
	require.NoError(t, err)
	assert.True(t, root.Equal(decimal.RequireFromString("0.5")), "got %s", root)

	root, err = Sqrt(decimal.Zero)
	require.NoError(t, err)
	assert.True(t, root.IsZero())

	_, err = Sqrt(decimal.NewFromInt(-1))
	assert.Error(t, err)
}

func TestSqrt_Deterministic(t *testing.T) {
	a, _ := Sqrt(decimal.RequireFromString("12345.6789"))
	b, _ := Sqrt(decimal.RequireFromString("12345.6789"))
	assert.Equal(t, a.String(), b.String())
}

func TestRoundHalfUp(t *testing.T) {
	assert.Equal(t, "93.50", RoundHalfUp(decimal.RequireFromString("93.5"), 2).StringFixed(2))
	assert.Equal(t, "0.13", RoundHalfUp(decimal.RequireFromString("0.125"), 2).String())
	assert.Equal(t, "-0.13", RoundHalfUp(decimal.RequireFromString("-0.125"), 2).String())
	assert.Equal(t, "0.12", RoundHalfUp(decimal.RequireFromString("0.1249"), 2).String())
}

func TestRelativeSpread(t *testing.T) {
	spread, err := RelativeSpread(decimals("50000000", "80000000"))
	require.NoError(t, err)
	assert.Equal(t, "46.2%", FormatPercent(spread, 1))

	_, err = RelativeSpread(nil)
	assert.ErrorIs(t, err, ErrEmptySeries)
}

func TestDiv(t *testing.T) {
	assert.Equal(t, "0.6666666666666667", Div(decimal.NewFromInt(2), decimal.NewFromInt(3)).String())
	assert.Equal(t, "6", Div(decimal.NewFromInt(60), decimal.NewFromInt(10)).String())
}
