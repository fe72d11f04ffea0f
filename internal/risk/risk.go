// Package risk converts equity and volatility into position sizes and
// manages stop-loss, trailing and take-profit levels, the trading-session
// gate and the daily loss cap.
package risk

import (
	"math"

	"crude-trader/internal/config"
	"crude-trader/internal/models"
)

// minStopDistancePct is the minimum stop distance as a fraction of the
// entry price. A stop is never placed closer than this, whatever the ATR
// multiple works out to.
const minStopDistancePct = 0.01

// Institutional-flow thresholds for the sizing boost.
const (
	boostVolumeRatio = 3.0
	boostOIRatio     = 1.2
	boostFactor      = 1.5
)

// Engine applies the risk parameters. It is stateless; per-day halt
// state lives in DayState, owned by each simulation leg.
type Engine struct {
	params config.RiskParams
}

// NewEngine creates a risk engine with the given parameters.
func NewEngine(params config.RiskParams) *Engine {
	return &Engine{params: params}
}

// Params returns the engine's risk parameters.
func (e *Engine) Params() config.RiskParams {
	return e.params
}

// SizingInput carries everything position sizing looks at.
type SizingInput struct {
	Equity      float64
	Price       float64
	ATR         float64
	VolFactor   float64
	VolumeRatio float64
	OIRatio     float64
}

// PositionSize returns the number of lots for a new position: a fixed
// fraction of equity, cut back in volatile conditions, boosted on
// institutional flow, floored at the minimum lot count and capped by
// what the account can actually afford. A zero return means skip the
// entry.
func (e *Engine) PositionSize(in SizingInput) int {
	if in.Equity <= 0 || in.Price <= 0 {
		return 0
	}

	base := in.Equity * e.params.BaseRiskFraction
	if in.ATR/in.Price > e.params.VolatilityThreshold && in.VolFactor > 0 {
		base *= 0.5 / in.VolFactor
	}
	if in.VolumeRatio >= boostVolumeRatio && in.OIRatio >= boostOIRatio {
		base *= boostFactor
	}

	lots := int(math.Floor(base))
	if lots < e.params.MinLots {
		lots = e.params.MinLots
	}

	affordable := int(math.Floor(in.Equity / (in.Price * float64(e.params.LotSize))))
	if affordable <= 0 {
		return 0
	}
	if lots > affordable {
		lots = affordable
	}
	return lots
}

// InitialStop places the stop entry ∓ ATR·multiplier, with the
// multiplier 2.5 in a trending regime and 1.5 otherwise, both scaled by
// the volatility factor, and the distance floored at 1% of entry.
func (e *Engine) InitialStop(entry, atr, volFactor float64, regime models.MarketRegime, side models.OptionSide) float64 {
	mult := 1.5 * volFactor
	if regime.Trending() {
		mult = 2.5 * volFactor
	}
	distance := math.Max(atr*mult, entry*minStopDistancePct)
	if side.IsCall() {
		return entry - distance
	}
	return entry + distance
}

// Excursion is the favorable move since entry for the given leg.
func Excursion(entry, close float64, side models.OptionSide) float64 {
	if side.IsCall() {
		return close - entry
	}
	return entry - close
}

// TrailStop ratchets the stop once the favorable excursion reaches
// trail_start_atr ATRs, trailing trail_distance_atr behind. The returned
// stop is never less favorable than the current one.
func (e *Engine) TrailStop(entry, stop, excursion, atr float64, side models.OptionSide) float64 {
	if atr <= 0 || excursion < e.params.TrailStartATR*atr {
		return stop
	}
	if side.IsCall() {
		candidate := entry + (excursion - e.params.TrailDistanceATR*atr)
		if candidate > stop {
			return candidate
		}
		return stop
	}
	candidate := entry - (excursion - e.params.TrailDistanceATR*atr)
	if candidate < stop {
		return candidate
	}
	return stop
}

// StopHit reports whether the bar's range touched the stop level.
func StopHit(bar models.Bar, stop float64, side models.OptionSide) bool {
	if side.IsCall() {
		return bar.Low <= stop
	}
	return bar.High >= stop
}

// TakeProfitHit reports whether the hard take-profit level is reached.
func (e *Engine) TakeProfitHit(excursion, atr float64) bool {
	return atr > 0 && excursion >= e.params.TakeProfitATR*atr
}
