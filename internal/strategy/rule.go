package strategy

import (
	"math"

	"crude-trader/internal/config"
	"crude-trader/internal/models"
)

// minTrendStrength is the |fast−slow|/slow ratio required before an exit
// on an opposing signal is honored.
const minTrendStrength = 0.002

// RuleStrategy is the deterministic crossover/threshold strategy used for
// systematic replay. Undefined indicator values make their condition
// false rather than guessing a default.
type RuleStrategy struct {
	params config.StrategyParams
}

// NewRuleStrategy creates a rule strategy with the given parameters.
func NewRuleStrategy(params config.StrategyParams) *RuleStrategy {
	return &RuleStrategy{params: params}
}

func (s *RuleStrategy) Name() string {
	return "rule"
}

// Evaluate emits BUY, EXIT or NONE for the bar in the frame.
func (s *RuleStrategy) Evaluate(f Frame, side models.OptionSide) models.Signal {
	warmup := s.params.VWAPPeriod
	if s.params.ATRPeriod > warmup {
		warmup = s.params.ATRPeriod
	}
	if f.BarsSeen < warmup || f.Prev == nil {
		return models.SignalNone
	}

	pt, prev := f.Point, f.PrevPoint

	vwapCrossUp := pt.VWAP.Valid && prev.VWAP.Valid &&
		f.Bar.Close > pt.VWAP.Float && f.Prev.Close < prev.VWAP.Float
	vwapCrossDown := pt.VWAP.Valid && prev.VWAP.Valid &&
		f.Bar.Close < pt.VWAP.Float && f.Prev.Close > prev.VWAP.Float

	emasDefined := pt.FastEMA.Valid && pt.SlowEMA.Valid
	emaBullish := emasDefined && pt.FastEMA.Float > pt.SlowEMA.Float
	emaBearish := emasDefined && pt.FastEMA.Float < pt.SlowEMA.Float

	rsiOversold := pt.RSI.Valid && pt.RSI.Float < s.params.RSIOversold
	rsiOverbought := pt.RSI.Valid && pt.RSI.Float > s.params.RSIOverbought

	volatilityOK := pt.ATR.Valid && pt.ATR.Float > f.Bar.Close*s.params.ATRVolatilityFactor
	volumeOK := pt.VolumeMA.Valid && float64(f.Bar.Volume) > pt.VolumeMA.Float*s.params.VolumeSurgeFactor

	strongTrend := emasDefined && pt.SlowEMA.Float != 0 &&
		math.Abs(pt.FastEMA.Float-pt.SlowEMA.Float)/pt.SlowEMA.Float > minTrendStrength

	if side.IsCall() {
		if ((vwapCrossUp && emaBullish) || (rsiOversold && emaBullish)) && volumeOK && volatilityOK {
			return models.SignalBuy
		}
		if ((vwapCrossDown && emaBearish) || rsiOverbought) && strongTrend {
			return models.SignalExit
		}
		return models.SignalNone
	}

	if ((vwapCrossDown && emaBearish) || (rsiOverbought && emaBearish)) && volumeOK && volatilityOK {
		return models.SignalBuy
	}
	if ((vwapCrossUp && emaBullish) || rsiOversold) && strongTrend {
		return models.SignalExit
	}
	return models.SignalNone
}
