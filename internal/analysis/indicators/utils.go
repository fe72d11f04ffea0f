package indicators

import (
	"errors"
	"math"

	"crude-trader/internal/models"
)

var (
	// ErrInsufficientData is returned when there's not enough data for calculation.
	ErrInsufficientData = errors.New("insufficient data for calculation")
	// ErrInvalidPeriod is returned when the period is invalid.
	ErrInvalidPeriod = errors.New("invalid period")
)

// Value is a single indicator observation. Valid is false during warm-up
// or when the value is mathematically undefined for the bar.
type Value struct {
	Float float64
	Valid bool
}

// Defined wraps a float64 in a valid Value.
func Defined(f float64) Value {
	return Value{Float: f, Valid: true}
}

// Undefined is the zero Value, reported during warm-up.
var Undefined = Value{}

// Or returns the value if valid, otherwise the fallback.
func (v Value) Or(fallback float64) float64 {
	if v.Valid {
		return v.Float
	}
	return fallback
}

// abs returns the absolute value of a float64.
func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// sum calculates the sum of a slice of float64.
func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

// mean calculates the arithmetic mean of a slice of float64.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return sum(values) / float64(len(values))
}

// clamp bounds x to [lo, hi].
func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// round rounds to the nearest integer, at least 1.
func round(x float64) int {
	n := int(math.Round(x))
	if n < 1 {
		n = 1
	}
	return n
}

// trueRange calculates the true range for a bar.
func trueRange(current, previous models.Bar) float64 {
	highLow := current.High - current.Low
	highClose := abs(current.High - previous.Close)
	lowClose := abs(current.Low - previous.Close)
	return math.Max(highLow, math.Max(highClose, lowClose))
}

// closePrices extracts close prices from bars.
func closePrices(bars []models.Bar) []float64 {
	prices := make([]float64, len(bars))
	for i, b := range bars {
		prices[i] = b.Close
	}
	return prices
}

// trueRanges computes the true-range series. The first entry uses
// high minus low since there is no prior close.
func trueRanges(bars []models.Bar) []float64 {
	tr := make([]float64, len(bars))
	if len(bars) == 0 {
		return tr
	}
	tr[0] = bars[0].High - bars[0].Low
	for i := 1; i < len(bars); i++ {
		tr[i] = trueRange(bars[i], bars[i-1])
	}
	return tr
}
