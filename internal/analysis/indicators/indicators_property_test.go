package indicators

import (
	"context"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"crude-trader/internal/models"
)

// barGen generates valid bar data with realistic OHLCV values.
func barGen() gopter.Gen {
	return gen.Struct(reflect.TypeOf(models.Bar{}), map[string]gopter.Gen{
		"Timestamp": gen.TimeRange(time.Now().Add(-365*24*time.Hour), time.Hour),
		"Open":      gen.Float64Range(100.0, 1000.0),
		"High":      gen.Float64Range(100.0, 1000.0),
		"Low":       gen.Float64Range(100.0, 1000.0),
		"Close":     gen.Float64Range(100.0, 1000.0),
		"Volume":    gen.Int64Range(1000, 10000000),
		"OI":        gen.Int64Range(100, 1000000),
	}).Map(fixBar)
}

// fixBar enforces OHLC constraints after generation and shrinking.
func fixBar(b models.Bar) models.Bar {
	if b.Open <= 0 {
		b.Open = 100.0
	}
	if b.High <= 0 {
		b.High = 100.0
	}
	if b.Low <= 0 {
		b.Low = 100.0
	}
	if b.Close <= 0 {
		b.Close = 100.0
	}
	b.High = math.Max(b.High, math.Max(b.Open, b.Close))
	b.Low = math.Min(b.Low, math.Min(b.Open, b.Close))
	if b.Low > b.High {
		b.Low, b.High = b.High, b.Low
	}
	if b.High <= b.Low {
		b.High = b.Low + 1.0
	}
	return b
}

// barSliceGen generates a slice of valid bars with ordered timestamps.
func barSliceGen(minLen, maxLen int) gopter.Gen {
	return gen.SliceOfN(maxLen, barGen()).Map(func(bars []models.Bar) []models.Bar {
		if len(bars) == 0 {
			bars = append(bars, fixBar(models.Bar{}))
		}
		for len(bars) < minLen {
			bars = append(bars, bars[len(bars)-1])
		}
		base := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
		for i := range bars {
			bars[i] = fixBar(bars[i])
			bars[i].Timestamp = base.Add(time.Duration(i) * 5 * time.Minute)
		}
		return bars
	})
}

func TestProperty_RSIWithinBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("defined RSI values are within [0, 100]", prop.ForAll(
		func(bars []models.Bar) bool {
			rsi := NewRSI(14)
			values, err := rsi.Calculate(bars)
			if err != nil {
				return true
			}
			for _, v := range values {
				if v.Valid && (v.Float < 0 || v.Float > 100) {
					return false
				}
			}
			return true
		},
		barSliceGen(20, 100),
	))

	properties.TestingRun(t)
}

func TestProperty_ATRIsNonNegative(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("defined ATR values are non-negative", prop.ForAll(
		func(bars []models.Bar) bool {
			atr := NewATR(14)
			values, err := atr.Calculate(bars)
			if err != nil {
				return true
			}
			for _, v := range values {
				if v.Valid && v.Float < 0 {
					return false
				}
			}
			return true
		},
		barSliceGen(20, 100),
	))

	properties.TestingRun(t)
}

func TestProperty_VolatilityFactorWithinBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("volatility factor is 1 before warmup and within [0.5, 2] after", prop.ForAll(
		func(bars []models.Bar) bool {
			atr, err := NewATR(14).Calculate(bars)
			if err != nil {
				return true
			}
			factors := VolatilityFactors(bars, atr, 0.02)
			for i, f := range factors {
				if !atr[i].Valid {
					if f != 1.0 {
						return false
					}
					continue
				}
				if f < 0.5 || f > 2.0 {
					return false
				}
			}
			return true
		},
		barSliceGen(20, 100),
	))

	properties.TestingRun(t)
}

func TestProperty_AdaptiveEMAWithinCloseRange(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("adaptive EMA stays within the range of closes seen so far", prop.ForAll(
		func(bars []models.Bar) bool {
			ema := NewAdaptiveEMA(9, 14, 0.02)
			values, err := ema.Calculate(bars)
			if err != nil {
				return true
			}
			lo, hi := bars[0].Close, bars[0].Close
			for i, v := range values {
				lo = math.Min(lo, bars[i].Close)
				hi = math.Max(hi, bars[i].Close)
				if !v.Valid {
					return false
				}
				if v.Float < lo-1e-9 || v.Float > hi+1e-9 {
					return false
				}
			}
			return true
		},
		barSliceGen(5, 100),
	))

	properties.TestingRun(t)
}

func TestProperty_VWAPWithinPriceRange(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("defined VWAP values are within [lowest low, highest high]", prop.ForAll(
		func(bars []models.Bar) bool {
			vwap := NewVWAP(20)
			values, err := vwap.Calculate(bars)
			if err != nil {
				return true
			}
			var lo, hi float64 = math.Inf(1), math.Inf(-1)
			for _, b := range bars {
				lo = math.Min(lo, b.Low)
				hi = math.Max(hi, b.High)
			}
			for _, v := range values {
				if v.Valid && (v.Float < lo-1e-9 || v.Float > hi+1e-9) {
					return false
				}
			}
			return true
		},
		barSliceGen(25, 100),
	))

	properties.TestingRun(t)
}

func TestProperty_StreamMatchesPipeline(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	valueEqual := func(a, b Value) bool {
		if a.Valid != b.Valid {
			return false
		}
		return !a.Valid || math.Abs(a.Float-b.Float) < 1e-6
	}

	properties.Property("incremental stream reproduces the batch pipeline", prop.ForAll(
		func(bars []models.Bar) bool {
			cfg := DefaultConfig()
			batch, err := NewPipeline(cfg).Compute(context.Background(), bars)
			if err != nil {
				return true
			}
			stream := NewStream(cfg)
			for i, b := range bars {
				pt := stream.Push(b)
				want := batch[i]
				if !valueEqual(pt.FastEMA, want.FastEMA) ||
					!valueEqual(pt.SlowEMA, want.SlowEMA) ||
					!valueEqual(pt.RSI, want.RSI) ||
					!valueEqual(pt.ATR, want.ATR) ||
					!valueEqual(pt.VWAP, want.VWAP) ||
					!valueEqual(pt.VolumeMA, want.VolumeMA) ||
					!valueEqual(pt.OIMA, want.OIMA) {
					return false
				}
				if math.Abs(pt.VolFactor-want.VolFactor) > 1e-9 {
					return false
				}
			}
			return true
		},
		barSliceGen(30, 80),
	))

	properties.TestingRun(t)
}
