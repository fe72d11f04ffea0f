// Package performance computes risk-adjusted statistics over an equity
// curve and its trade ledger. Ratios are annualized on a 252-day year
// and standard deviations use the sample estimator.
package performance

import (
	"math"
	"sort"

	"crude-trader/internal/models"
)

const tradingDaysPerYear = 252

// Report summarizes one run. Ratio fields are 0 when there is too
// little data to estimate them; Calmar and RecoveryFactor are NaN when
// the curve never draws down.
type Report struct {
	TotalReturnPct float64 `json:"total_return_pct"`
	NetProfit      float64 `json:"net_profit"`
	GrossProfit    float64 `json:"gross_profit"`
	GrossLoss      float64 `json:"gross_loss"`
	TotalCosts     float64 `json:"total_costs"`

	TotalTrades          int     `json:"total_trades"`
	WinRatePct           float64 `json:"win_rate_pct"`
	ProfitFactor         float64 `json:"profit_factor"`
	AvgWin               float64 `json:"avg_win"`
	AvgLoss              float64 `json:"avg_loss"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`

	SharpeRatio      float64 `json:"sharpe_ratio"`
	SortinoRatio     float64 `json:"sortino_ratio"`
	CalmarRatio      float64 `json:"calmar_ratio"`
	MaxDrawdownPct   float64 `json:"max_drawdown_pct"`
	MaxDrawdownValue float64 `json:"max_drawdown_value"`
	RecoveryFactor   float64 `json:"recovery_factor"`
	AnnualVolatility float64 `json:"annual_volatility"`
	ValueAtRisk95    float64 `json:"value_at_risk_95"`
}

// Compute builds a report from the equity curve and closed trades.
// riskFreeRate is annual; it is spread evenly over trading days.
func Compute(curve models.EquityCurve, trades []models.Trade, initialCapital, riskFreeRate float64) Report {
	var r Report

	returns := curve.Returns()
	dailyRF := riskFreeRate / tradingDaysPerYear
	excess := make([]float64, len(returns))
	for i, ret := range returns {
		excess[i] = ret - dailyRF
	}

	if initialCapital > 0 {
		r.TotalReturnPct = (curve.Last() - initialCapital) / initialCapital * 100
	}

	r.TotalTrades = len(trades)
	wins, losses := 0, 0
	for _, t := range trades {
		if t.GrossPnL > 0 {
			r.GrossProfit += t.GrossPnL
		} else if t.GrossPnL < 0 {
			r.GrossLoss += -t.GrossPnL
		}
		r.NetProfit += t.NetPnL
		r.TotalCosts += t.GrossPnL - t.NetPnL
		if t.NetPnL > 0 {
			wins++
		} else {
			losses++
		}
	}
	if len(trades) > 0 {
		r.WinRatePct = float64(wins) / float64(len(trades)) * 100
	}
	if wins > 0 {
		r.AvgWin = sumNet(trades, true) / float64(wins)
	}
	if losses > 0 {
		r.AvgLoss = sumNet(trades, false) / float64(losses)
	}
	r.ProfitFactor = profitFactor(r.GrossProfit, r.GrossLoss)
	r.MaxConsecutiveLosses = maxConsecutiveLosses(trades)

	r.MaxDrawdownPct, r.MaxDrawdownValue = maxDrawdown(curve)
	r.SharpeRatio = sharpe(excess)
	r.SortinoRatio = sortino(excess)
	r.CalmarRatio = calmar(curve, r.MaxDrawdownPct)
	r.AnnualVolatility = stddev(returns) * math.Sqrt(tradingDaysPerYear)
	r.ValueAtRisk95 = percentile(returns, 0.05)

	if r.MaxDrawdownPct != 0 {
		r.RecoveryFactor = r.TotalReturnPct / math.Abs(r.MaxDrawdownPct*100)
	} else {
		r.RecoveryFactor = math.NaN()
	}

	return r
}

func sumNet(trades []models.Trade, winners bool) float64 {
	total := 0.0
	for _, t := range trades {
		if winners == (t.NetPnL > 0) {
			total += t.NetPnL
		}
	}
	return total
}

func profitFactor(grossProfit, grossLoss float64) float64 {
	if grossLoss == 0 {
		if grossProfit > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return grossProfit / grossLoss
}

// maxConsecutiveLosses counts the longest run of non-positive net
// outcomes.
func maxConsecutiveLosses(trades []models.Trade) int {
	longest, run := 0, 0
	for _, t := range trades {
		if t.NetPnL <= 0 {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	return longest
}

// maxDrawdown returns the deepest peak-to-trough decline, both as a
// negative fraction of the peak and in currency terms.
func maxDrawdown(curve models.EquityCurve) (pct, value float64) {
	if len(curve) == 0 {
		return 0, 0
	}
	peak := curve[0].Equity
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			dd := (p.Equity - peak) / peak
			if dd < pct {
				pct = dd
			}
		}
		if diff := peak - p.Equity; diff > value {
			value = diff
		}
	}
	return pct, value
}

func sharpe(excess []float64) float64 {
	if len(excess) < 2 {
		return 0
	}
	sd := stddev(excess)
	if sd == 0 {
		return 0
	}
	return math.Sqrt(tradingDaysPerYear) * mean(excess) / sd
}

func sortino(excess []float64) float64 {
	if len(excess) < 2 {
		return 0
	}
	var downside []float64
	for _, e := range excess {
		if e < 0 {
			downside = append(downside, e)
		}
	}
	sd := stddev(downside)
	if sd == 0 || math.IsNaN(sd) {
		return 0
	}
	return mean(excess) * tradingDaysPerYear / (sd * math.Sqrt(tradingDaysPerYear))
}

// calmar is CAGR over the drawdown magnitude, with the growth rate
// annualized from the number of curve points. NaN when there was no
// drawdown.
func calmar(curve models.EquityCurve, maxDDPct float64) float64 {
	if maxDDPct == 0 {
		return math.NaN()
	}
	if len(curve) < 2 || curve[0].Equity <= 0 || curve.Last() <= 0 {
		return 0
	}
	years := float64(len(curve)) / tradingDaysPerYear
	cagr := math.Pow(curve.Last()/curve[0].Equity, 1/years) - 1
	return cagr / math.Abs(maxDDPct)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	total := 0.0
	for _, x := range xs {
		total += x
	}
	return total / float64(len(xs))
}

// stddev is the sample standard deviation. NaN for fewer than two
// observations, matching the estimator's degrees of freedom.
func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	m := mean(xs)
	total := 0.0
	for _, x := range xs {
		d := x - m
		total += d * d
	}
	return math.Sqrt(total / float64(len(xs)-1))
}

// percentile interpolates linearly between the order statistics.
func percentile(xs []float64, q float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
