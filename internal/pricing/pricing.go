// Package pricing provides Black-Scholes option pricing, Greeks and an
// implied-volatility solver. All functions are pure and stateless.
package pricing

import (
	"math"

	"crude-trader/internal/models"
)

const (
	ivInitialGuess  = 0.5
	ivMaxIterations = 100
	ivTolerance     = 1e-5
)

// Greeks holds option price sensitivities. Theta is per calendar day
// (annual theta / 365) and Vega is per 1% volatility (annual vega / 100).
type Greeks struct {
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
	Rho   float64
}

// normCDF is the standard normal cumulative distribution function.
func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// normPDF is the standard normal probability density function.
func normPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

func degenerate(s, k, t, sigma float64) bool {
	return s <= 0 || k <= 0 || t <= 0 || sigma <= 0 ||
		math.IsNaN(s) || math.IsNaN(k) || math.IsNaN(t) || math.IsNaN(sigma)
}

func d1d2(s, k, t, r, sigma float64) (float64, float64) {
	d1 := (math.Log(s/k) + (r+0.5*sigma*sigma)*t) / (sigma * math.Sqrt(t))
	return d1, d1 - sigma*math.Sqrt(t)
}

// Price returns the Black-Scholes price of a European option.
// The second return value is false for degenerate inputs (T <= 0, sigma <= 0).
func Price(s, k, t, r, sigma float64, side models.OptionSide) (float64, bool) {
	if degenerate(s, k, t, sigma) {
		return 0, false
	}
	d1, d2 := d1d2(s, k, t, r, sigma)
	if side.IsCall() {
		return s*normCDF(d1) - k*math.Exp(-r*t)*normCDF(d2), true
	}
	return k*math.Exp(-r*t)*normCDF(-d2) - s*normCDF(-d1), true
}

// ComputeGreeks returns delta, gamma, theta (per day), vega (per 1% vol)
// and rho for a European option. The second return value is false for
// degenerate inputs.
func ComputeGreeks(s, k, t, r, sigma float64, side models.OptionSide) (Greeks, bool) {
	if degenerate(s, k, t, sigma) {
		return Greeks{}, false
	}
	d1, d2 := d1d2(s, k, t, r, sigma)
	sqrtT := math.Sqrt(t)
	disc := math.Exp(-r * t)

	g := Greeks{
		Gamma: normPDF(d1) / (s * sigma * sqrtT),
		Vega:  s * sqrtT * normPDF(d1) / 100,
	}
	if side.IsCall() {
		g.Delta = normCDF(d1)
		g.Theta = (-s*normPDF(d1)*sigma/(2*sqrtT) - r*k*disc*normCDF(d2)) / 365
		g.Rho = k * t * disc * normCDF(d2) / 100
	} else {
		g.Delta = normCDF(d1) - 1
		g.Theta = (-s*normPDF(d1)*sigma/(2*sqrtT) + r*k*disc*normCDF(-d2)) / 365
		g.Rho = -k * t * disc * normCDF(-d2) / 100
	}
	return g, true
}

// rawVega is the price sensitivity to a full unit of volatility,
// used as the Newton derivative.
func rawVega(s, k, t, r, sigma float64) float64 {
	d1, _ := d1d2(s, k, t, r, sigma)
	return s * math.Sqrt(t) * normPDF(d1)
}

// ImpliedVolatility solves for the volatility that reproduces the target
// option price using Newton-Raphson. The second return value is false when
// vega underflows to zero or the iteration does not converge; callers must
// treat that as "no IV available".
func ImpliedVolatility(target, s, k, t, r float64, side models.OptionSide) (float64, bool) {
	if target <= 0 || s <= 0 || k <= 0 || t <= 0 {
		return 0, false
	}
	sigma := ivInitialGuess
	for i := 0; i < ivMaxIterations; i++ {
		price, ok := Price(s, k, t, r, sigma, side)
		if !ok {
			return 0, false
		}
		diff := target - price
		if math.Abs(diff) < ivTolerance {
			return sigma, true
		}
		vega := rawVega(s, k, t, r, sigma)
		if vega == 0 || math.IsNaN(vega) {
			return 0, false
		}
		sigma += diff / vega
		if sigma <= 0 || math.IsNaN(sigma) {
			return 0, false
		}
	}
	return 0, false
}
