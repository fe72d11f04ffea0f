package strategy

import (
	"math"
	"testing"
	"time"

	"crude-trader/internal/analysis/indicators"
	"crude-trader/internal/config"
	"crude-trader/internal/models"
	"crude-trader/internal/pricing"
)

func testContract(side models.OptionSide, expiry time.Time) models.Contract {
	return models.Contract{
		Symbol:  "CRUDEOIL19DEC2465000" + string(side),
		Side:    side,
		Strike:  6500,
		Expiry:  expiry,
		LotSize: 100,
	}
}

func TestOptionValueScore(t *testing.T) {
	tests := []struct {
		name       string
		price      float64
		strike     float64
		underlying float64
		side       models.OptionSide
		want       float64
	}{
		// Deep ITM call: intrinsic 500 of a 520 premium.
		{"mostly intrinsic call", 520, 6500, 7000, models.SideCE, 1.0},
		// OTM call: pure time value.
		{"pure time value call", 80, 6500, 6400, models.SideCE, 0.3},
		// ITM put with roughly half time value.
		{"half time value put", 220, 6500, 6400, models.SidePE, 0.8},
		{"zero premium", 0, 6500, 6400, models.SideCE, 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, _ := OptionValueScore(tt.price, tt.strike, tt.underlying, tt.side)
			if got != tt.want {
				t.Errorf("OptionValueScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDynamicThreshold_Clamped(t *testing.T) {
	// Every reduction at once still cannot drop below 0.2.
	got := dynamicThreshold(0.1, true, greeksWithDelta(0.6), true, 50)
	if got < 0.2-1e-9 {
		t.Errorf("dynamicThreshold() = %v, want clamped to 0.2", got)
	}
	// High IV raises it but never above 0.7.
	got = dynamicThreshold(0.9, true, greeksWithDelta(0.1), true, 10)
	if got > 0.7+1e-9 {
		t.Errorf("dynamicThreshold() = %v, want clamped to 0.7", got)
	}
	// No IV, no Greeks, neutral RSI: only the RSI reduction applies.
	got = dynamicThreshold(0, false, greeksWithDelta(0), false, 50)
	if math.Abs(got-0.35) > 1e-9 {
		t.Errorf("dynamicThreshold() = %v, want 0.35", got)
	}
}

func TestScoreStrategy_RejectsLowValueOption(t *testing.T) {
	expiry := time.Date(2024, 12, 19, 0, 0, 0, 0, time.UTC)
	s := NewScoreStrategy(testContract(models.SideCE, expiry), config.DefaultStrategyParams(), 0.05)

	// OTM call trading on pure time value: spot 6400 below the 6500 strike.
	s.UpdateSpot(6400)

	f := baseFrame()
	f.Bar.Close = 80
	f.Point.VWAP = indicators.Defined(80)
	f.Bar.Timestamp = expiry.AddDate(0, -1, 0)

	if got := s.Evaluate(f, models.SideCE); got != models.SignalNone {
		t.Errorf("Evaluate() = %v, want NONE for a low-value option", got)
	}
}

func TestScoreStrategy_BuysOnStrongTechnicalsWithoutGreeks(t *testing.T) {
	// An expired contract cannot price, so IV and Greeks contribute
	// nothing; strong momentum and volume alone must clear the threshold.
	expiry := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	s := NewScoreStrategy(testContract(models.SideCE, expiry), config.DefaultStrategyParams(), 0.05)
	// Deep ITM so the value filter passes with spot 7000 over strike 6500.
	s.UpdateSpot(7000)

	f := baseFrame()
	f.Bar.Timestamp = expiry.AddDate(0, 1, 0)
	f.Bar.Close = 520
	// Fresh EMA cross plus VWAP alignment.
	f.Point.VWAP = indicators.Defined(505)
	f.Point.FastEMA = indicators.Defined(515)
	f.Point.SlowEMA = indicators.Defined(505)
	f.PrevPoint.FastEMA = indicators.Defined(500)
	f.PrevPoint.SlowEMA = indicators.Defined(505)
	// Volume at twice its average.
	f.Bar.Volume = 2000
	f.Point.VolumeMA = indicators.Defined(1000)

	if got := s.Evaluate(f, models.SideCE); got != models.SignalBuy {
		t.Errorf("Evaluate() = %v, want BUY", got)
	}
}

func TestScoreStrategy_NeutralBarBelowThreshold(t *testing.T) {
	expiry := time.Date(2024, 12, 19, 0, 0, 0, 0, time.UTC)
	s := NewScoreStrategy(testContract(models.SideCE, expiry), config.DefaultStrategyParams(), 0.05)
	// Deep ITM so only the value filter passes; flat EMAs, no surge.
	s.UpdateSpot(7000)

	f := baseFrame()
	f.Bar.Timestamp = expiry.AddDate(0, -1, 0)
	f.Bar.Close = 520
	f.Point.VWAP = indicators.Defined(520)
	f.Point.FastEMA = indicators.Defined(520)
	f.Point.SlowEMA = indicators.Defined(520)
	f.PrevPoint.FastEMA = indicators.Defined(520)
	f.PrevPoint.SlowEMA = indicators.Defined(520)

	if got := s.Evaluate(f, models.SideCE); got != models.SignalNone {
		t.Errorf("Evaluate() = %v, want NONE on a neutral bar", got)
	}
}

func TestScoreStrategy_TooFewBars(t *testing.T) {
	expiry := time.Date(2024, 12, 19, 0, 0, 0, 0, time.UTC)
	s := NewScoreStrategy(testContract(models.SideCE, expiry), config.DefaultStrategyParams(), 0.05)

	f := baseFrame()
	f.BarsSeen = 2
	if got := s.Evaluate(f, models.SideCE); got != models.SignalNone {
		t.Errorf("Evaluate() = %v, want NONE with too few bars", got)
	}
}

// bullishPremiumFrame is a premium-scale bar with a fresh EMA cross,
// VWAP alignment, a 5x volume surge and rising OI.
func bullishPremiumFrame(ts time.Time) Frame {
	f := baseFrame()
	f.Bar.Timestamp = ts
	f.Bar.Close = 200
	f.Point.VWAP = indicators.Defined(198)
	f.Point.FastEMA = indicators.Defined(199)
	f.Point.SlowEMA = indicators.Defined(197)
	f.PrevPoint.FastEMA = indicators.Defined(196)
	f.PrevPoint.SlowEMA = indicators.Defined(197)
	f.Bar.Volume = 5000
	f.Point.VolumeMA = indicators.Defined(1000)
	f.Bar.OI = 6000
	f.Point.OIMA = indicators.Defined(5000)
	return f
}

func TestScoreStrategy_BuysOnPremiumScaleBarsWithSpot(t *testing.T) {
	// A near-the-money contract trading around 200 against a 6500 strike.
	// With the underlying fed in, the value filter sees real intrinsic
	// value and the bullish bar must clear the threshold.
	expiry := time.Date(2024, 12, 19, 0, 0, 0, 0, time.UTC)
	s := NewScoreStrategy(testContract(models.SideCE, expiry), config.DefaultStrategyParams(), 0.05)
	s.UpdateSpot(6600)

	f := bullishPremiumFrame(expiry.AddDate(0, -1, 0))
	if got := s.Evaluate(f, models.SideCE); got != models.SignalBuy {
		t.Errorf("Evaluate() = %v, want BUY", got)
	}
}

func TestScoreStrategy_NoSpotFallsBackToTechnicals(t *testing.T) {
	// Without an underlying quote the value filter must not reject the
	// contract outright; strong technicals alone can still buy.
	expiry := time.Date(2024, 12, 19, 0, 0, 0, 0, time.UTC)
	s := NewScoreStrategy(testContract(models.SideCE, expiry), config.DefaultStrategyParams(), 0.05)

	if s.Spot() != 0 {
		t.Fatalf("Spot() = %v, want 0 before any update", s.Spot())
	}
	f := bullishPremiumFrame(expiry.AddDate(0, -1, 0))
	if got := s.Evaluate(f, models.SideCE); got != models.SignalBuy {
		t.Errorf("Evaluate() = %v, want BUY on technicals alone", got)
	}
}

func greeksWithDelta(delta float64) pricing.Greeks {
	return pricing.Greeks{Delta: delta}
}
