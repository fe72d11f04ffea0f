package indicators

import (
	"fmt"

	"crude-trader/internal/models"
)

// SMA calculates Simple Moving Average of close prices.
type SMA struct {
	period int
}

// NewSMA creates a new SMA indicator.
func NewSMA(period int) *SMA {
	return &SMA{period: period}
}

func (s *SMA) Name() string {
	return fmt.Sprintf("SMA_%d", s.period)
}

func (s *SMA) Period() int {
	return s.period
}

func (s *SMA) Calculate(bars []models.Bar) ([]Value, error) {
	if s.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(bars) < s.period {
		return nil, ErrInsufficientData
	}

	result := make([]Value, len(bars))
	closes := closePrices(bars)

	for i := s.period - 1; i < len(bars); i++ {
		result[i] = Defined(mean(closes[i-s.period+1 : i+1]))
	}

	return result, nil
}

// AdaptiveEMA calculates an Exponential Moving Average whose effective
// period shrinks in volatile markets and grows in quiet ones. The
// per-bar period is round(base * volFactor), where volFactor is derived
// from ATR relative to price (see VolatilityFactors). The series is
// seeded at the first close, so every bar carries a defined value.
type AdaptiveEMA struct {
	period       int
	atrPeriod    int
	volThreshold float64
}

// NewAdaptiveEMA creates an adaptive EMA with the given base period.
// atrPeriod and volThreshold control the volatility adjustment.
func NewAdaptiveEMA(period, atrPeriod int, volThreshold float64) *AdaptiveEMA {
	return &AdaptiveEMA{period: period, atrPeriod: atrPeriod, volThreshold: volThreshold}
}

func (e *AdaptiveEMA) Name() string {
	return fmt.Sprintf("EMA_%d", e.period)
}

func (e *AdaptiveEMA) Period() int {
	return e.period
}

func (e *AdaptiveEMA) Calculate(bars []models.Bar) ([]Value, error) {
	if e.period <= 0 || e.atrPeriod <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(bars) == 0 {
		return nil, ErrInsufficientData
	}

	atr := NewATR(e.atrPeriod)
	atrValues, err := atr.Calculate(bars)
	if err != nil && len(bars) >= 1 {
		// Too few bars for ATR: every factor stays at 1.
		atrValues = make([]Value, len(bars))
		err = nil
	}
	if err != nil {
		return nil, err
	}

	factors := VolatilityFactors(bars, atrValues, e.volThreshold)
	return e.CalculateWithFactors(bars, factors)
}

// CalculateWithFactors computes the adaptive EMA from a precomputed
// volatility-factor series, avoiding a redundant ATR pass.
func (e *AdaptiveEMA) CalculateWithFactors(bars []models.Bar, factors []float64) ([]Value, error) {
	if e.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(bars) == 0 {
		return nil, ErrInsufficientData
	}
	if len(factors) != len(bars) {
		return nil, ErrInsufficientData
	}

	result := make([]Value, len(bars))
	ema := bars[0].Close
	result[0] = Defined(ema)

	for i := 1; i < len(bars); i++ {
		effective := round(float64(e.period) * factors[i])
		multiplier := 2.0 / float64(effective+1)
		ema += multiplier * (bars[i].Close - ema)
		result[i] = Defined(ema)
	}

	return result, nil
}
