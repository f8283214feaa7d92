package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is used to annualize daily index volatility.
const TradingDaysPerYear = 252

// MeanFloat calculates the arithmetic mean of a slice of float64 values
func MeanFloat(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// CalculateReturns converts index levels to period returns
// Returns[i] = (Level[i+1] - Level[i]) / Level[i]
func CalculateReturns(levels []float64) []float64 {
	if len(levels) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(levels)-1)
	for i := 1; i < len(levels); i++ {
		if levels[i-1] != 0 {
			returns[i-1] = (levels[i] - levels[i-1]) / levels[i-1]
		}
	}
	return returns
}

// AnnualizedVolatility scales the standard deviation of daily returns by sqrt(252).
func AnnualizedVolatility(dailyReturns []float64) float64 {
	if len(dailyReturns) < 2 {
		return 0
	}
	return StdDev(dailyReturns) * math.Sqrt(TradingDaysPerYear)
}

// MaxDrawdown returns the largest peak-to-trough decline as a positive fraction
// (0.25 = 25% below the running peak). Fewer than two levels yields zero.
func MaxDrawdown(levels []float64) float64 {
	if len(levels) < 2 {
		return 0
	}

	maxDrawdown := 0.0
	peak := levels[0]
	for _, level := range levels {
		if level > peak {
			peak = level
		}
		if peak > 0 {
			if drawdown := (peak - level) / peak; drawdown > maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}
	return maxDrawdown
}
