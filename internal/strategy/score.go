package strategy

import (
	"math"
	"sync/atomic"

	"crude-trader/internal/config"
	"crude-trader/internal/models"
	"crude-trader/internal/pricing"
)

// Factor weights of the score strategy. Sub-terms that do not apply
// (failed IV solve, missing Greeks) contribute zero.
const (
	weightMomentum   = 0.25
	weightGreeks     = 0.30
	weightVolatility = 0.20
	weightVolume     = 0.15
	weightOI         = 0.10
)

// minValueScore rejects options that are almost pure time decay.
const minValueScore = 0.4

// ScoreStrategy is the weighted multi-factor strategy used for
// live-style decisioning on one option contract. The frames it evaluates
// carry option-premium bars; the underlying spot comes in separately
// through UpdateSpot, since no premium-derived series can stand in for it.
type ScoreStrategy struct {
	contract models.Contract
	params   config.StrategyParams
	riskFree float64
	spot     atomic.Uint64

	// DepthSignal is the order-book depth bias fed by the market-depth
	// consumer: positive for bid pressure, negative for ask pressure.
	DepthSignal int
}

// NewScoreStrategy creates a score strategy for the given contract.
func NewScoreStrategy(contract models.Contract, params config.StrategyParams, riskFree float64) *ScoreStrategy {
	return &ScoreStrategy{contract: contract, params: params, riskFree: riskFree}
}

// UpdateSpot sets the current underlying price. Safe to call while
// Evaluate runs on another goroutine.
func (s *ScoreStrategy) UpdateSpot(price float64) {
	s.spot.Store(math.Float64bits(price))
}

// Spot returns the last underlying price, 0 when none has been fed.
func (s *ScoreStrategy) Spot() float64 {
	return math.Float64frombits(s.spot.Load())
}

func (s *ScoreStrategy) Name() string {
	return "score"
}

// Evaluate emits BUY when the weighted score clears the dynamic
// threshold. The score path never emits EXIT; open positions are managed
// by the risk engine. Without a spot the value filter, IV and Greeks
// terms are skipped and only the technical terms can score.
func (s *ScoreStrategy) Evaluate(f Frame, side models.OptionSide) models.Signal {
	if f.BarsSeen < 3 {
		return models.SignalNone
	}

	price := f.Bar.Close
	spot := s.Spot()
	tte := s.contract.TimeToExpiry(f.Bar.Timestamp)

	if spot > 0 {
		valueScore, _, _ := OptionValueScore(price, s.contract.Strike, spot, side)
		if valueScore < minValueScore {
			return models.SignalNone
		}
	}

	iv, ivOK := 0.0, false
	var greeks pricing.Greeks
	greeksOK := false
	if spot > 0 {
		iv, ivOK = pricing.ImpliedVolatility(price, spot, s.contract.Strike, tte, s.riskFree, side)
		if ivOK {
			greeks, greeksOK = pricing.ComputeGreeks(spot, s.contract.Strike, tte, s.riskFree, iv, side)
		}
	}

	rsi := f.Point.RSI.Or(50)
	score := s.score(f, side, greeks, greeksOK, iv, ivOK, rsi)
	threshold := dynamicThreshold(iv, ivOK, greeks, greeksOK, rsi)

	if score >= threshold {
		return models.SignalBuy
	}
	return models.SignalNone
}

func (s *ScoreStrategy) score(f Frame, side models.OptionSide, greeks pricing.Greeks, greeksOK bool, iv float64, ivOK bool, rsi float64) float64 {
	price := f.Bar.Close
	isCE := side.IsCall()
	score := 0.0

	// 1. Price momentum
	if s.params.UseFastEMA && s.params.UseSlowEMA {
		fast := f.Point.FastEMA.Or(price)
		slow := f.Point.SlowEMA.Or(price)
		prevFast := f.PrevPoint.FastEMA.Or(fast)
		prevSlow := f.PrevPoint.SlowEMA.Or(slow)

		switch {
		case isCE && fast > slow && prevFast <= prevSlow:
			score += weightMomentum * 1.0
		case !isCE && fast < slow && prevFast >= prevSlow:
			score += weightMomentum * 1.0
		case isCE && fast > slow:
			score += weightMomentum * 0.7
		case !isCE && fast < slow:
			score += weightMomentum * 0.7
		}

		vwap := f.Point.VWAP.Or(price)
		if (isCE && price > vwap*1.002) || (!isCE && price < vwap*0.998) {
			score += weightMomentum * 0.3
		}
	}

	// 2. Greeks edge
	if greeksOK {
		absDelta := math.Abs(greeks.Delta)
		inBand := absDelta >= 0.3 && absDelta <= 0.7
		if !isCE {
			inBand = greeks.Delta >= -0.7 && greeks.Delta <= -0.3
		}
		if inBand {
			deltaScore := 1.0 - math.Abs(absDelta-0.5)*2
			score += weightGreeks * 0.4 * deltaScore
		}
		if greeks.Theta > -1.0 {
			score += weightGreeks * 0.3 * math.Min(1.0, 1.0+greeks.Theta)
		}
		if greeks.Gamma > 0.001 {
			score += weightGreeks * 0.3 * math.Min(1.0, greeks.Gamma*1000)
		}
	}

	// 3. Volatility edge
	if ivOK {
		if iv >= 0.15 && iv <= 0.45 {
			score += weightVolatility * (1.0 - math.Abs(iv-0.3)/0.15)
		} else if iv < 0.15 {
			score += weightVolatility * 0.8
		}
	}

	// 4. Volume surge
	volume := float64(f.Bar.Volume)
	volumeMA := f.Point.VolumeMA.Or(volume)
	if volumeMA > 0 {
		switch {
		case volume > volumeMA*1.5:
			score += weightVolume * (math.Min(2.0, volume/volumeMA) - 1.0)
		case volume > volumeMA*1.2:
			score += weightVolume * 0.5
		}
	}

	// 5. OI momentum
	oi := float64(f.Bar.OI)
	oiMA := f.Point.OIMA.Or(oi)
	if oiMA > 0 && oi > oiMA*1.1 {
		score += weightOI * (math.Min(1.5, oi/oiMA) - 1.0) * 2
	}

	// 6. Market depth bonus
	if (isCE && s.DepthSignal > 0) || (!isCE && s.DepthSignal < 0) {
		score += 0.05
	}

	// 7. RSI centering bonus
	if rsi > 25 && rsi < 75 {
		score += 0.05 * (1.0 - math.Abs(rsi-50)/25)
	}

	return score
}

// dynamicThreshold adapts the BUY cutoff to the option's IV, delta and
// the RSI backdrop, clamped to [0.2, 0.7].
func dynamicThreshold(iv float64, ivOK bool, greeks pricing.Greeks, greeksOK bool, rsi float64) float64 {
	threshold := 0.4

	if ivOK && iv < 0.2 {
		threshold -= 0.1
	}
	if greeksOK && math.Abs(greeks.Delta) > 0.4 {
		threshold -= 0.05
	}
	if rsi >= 40 && rsi <= 60 {
		threshold -= 0.05
	}
	if ivOK && iv > 0.5 {
		threshold += 0.1
	}

	return math.Max(0.2, math.Min(0.7, threshold))
}

// OptionValueScore rates how much of the option's premium is intrinsic.
// It returns the score plus the intrinsic and time value components.
func OptionValueScore(price, strike, underlying float64, side models.OptionSide) (float64, float64, float64) {
	var intrinsic float64
	if side.IsCall() {
		intrinsic = math.Max(0, underlying-strike)
	} else {
		intrinsic = math.Max(0, strike-underlying)
	}

	timeValue := price - intrinsic
	ratio := 1.0
	if price > 0 {
		ratio = timeValue / price
	}

	switch {
	case ratio <= 0.3:
		return 1.0, intrinsic, timeValue
	case ratio <= 0.5:
		return 0.8, intrinsic, timeValue
	case ratio <= 0.7:
		return 0.6, intrinsic, timeValue
	default:
		return 0.3, intrinsic, timeValue
	}
}
