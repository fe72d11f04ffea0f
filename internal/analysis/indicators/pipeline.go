package indicators

import (
	"context"

	"crude-trader/internal/models"
)

// Config holds the periods for the full indicator set.
type Config struct {
	FastEMA      int
	SlowEMA      int
	RSI          int
	ATR          int
	VWAP         int
	VolumeMA     int
	OIMA         int
	VolThreshold float64
	Workers      int
}

// DefaultConfig returns the standard periods for 5-minute crude-oil bars.
func DefaultConfig() Config {
	return Config{
		FastEMA:      9,
		SlowEMA:      21,
		RSI:          14,
		ATR:          14,
		VWAP:         20,
		VolumeMA:     20,
		OIMA:         20,
		VolThreshold: 0.02,
		Workers:      4,
	}
}

// Point carries every indicator value for one bar. Fields are undefined
// during their indicator's warm-up.
type Point struct {
	FastEMA   Value
	SlowEMA   Value
	RSI       Value
	ATR       Value
	VWAP      Value
	VolumeMA  Value
	OIMA      Value
	VolFactor float64
}

// Pipeline computes the full indicator set for a bar series. The
// independent indicators run in parallel through an Engine; the adaptive
// EMAs run afterwards from the shared volatility factors.
type Pipeline struct {
	cfg    Config
	engine *Engine
	atr    *ATR
	rsi    *RSI
	vwap   *VWAP
	volMA  *VolumeMA
	oiMA   *OIMA
}

// NewPipeline creates a pipeline for the given configuration.
func NewPipeline(cfg Config) *Pipeline {
	p := &Pipeline{
		cfg:    cfg,
		engine: NewEngine(cfg.Workers),
		atr:    NewATR(cfg.ATR),
		rsi:    NewRSI(cfg.RSI),
		vwap:   NewVWAP(cfg.VWAP),
		volMA:  NewVolumeMA(cfg.VolumeMA),
		oiMA:   NewOIMA(cfg.OIMA),
	}
	p.engine.Register(p.atr)
	p.engine.Register(p.rsi)
	p.engine.Register(p.vwap)
	p.engine.Register(p.volMA)
	p.engine.Register(p.oiMA)
	return p
}

// Warmup returns the number of bars needed before every indicator in the
// set carries a defined value.
func (p *Pipeline) Warmup() int {
	warmup := p.cfg.RSI + 1
	for _, w := range []int{p.cfg.ATR, p.cfg.VWAP, p.cfg.VolumeMA, p.cfg.OIMA, p.cfg.SlowEMA} {
		if w > warmup {
			warmup = w
		}
	}
	return warmup
}

// Compute calculates the indicator set for the whole series. Indicators
// with insufficient data contribute undefined values rather than failing
// the run.
func (p *Pipeline) Compute(ctx context.Context, bars []models.Bar) ([]Point, error) {
	if len(bars) == 0 {
		return nil, ErrInsufficientData
	}

	results, err := p.engine.CalculateAll(ctx, bars)
	if err != nil {
		return nil, err
	}

	series := func(name string) []Value {
		if v, ok := results[name]; ok {
			return v
		}
		return make([]Value, len(bars))
	}

	atr := series(p.atr.Name())
	factors := VolatilityFactors(bars, atr, p.cfg.VolThreshold)

	fast, err := NewAdaptiveEMA(p.cfg.FastEMA, p.cfg.ATR, p.cfg.VolThreshold).CalculateWithFactors(bars, factors)
	if err != nil {
		return nil, err
	}
	slow, err := NewAdaptiveEMA(p.cfg.SlowEMA, p.cfg.ATR, p.cfg.VolThreshold).CalculateWithFactors(bars, factors)
	if err != nil {
		return nil, err
	}

	rsi := series(p.rsi.Name())
	vwap := series(p.vwap.Name())
	volMA := series(p.volMA.Name())
	oiMA := series(p.oiMA.Name())

	points := make([]Point, len(bars))
	for i := range bars {
		points[i] = Point{
			FastEMA:   fast[i],
			SlowEMA:   slow[i],
			RSI:       rsi[i],
			ATR:       atr[i],
			VWAP:      vwap[i],
			VolumeMA:  volMA[i],
			OIMA:      oiMA[i],
			VolFactor: factors[i],
		}
	}

	return points, nil
}
