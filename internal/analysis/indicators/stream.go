package indicators

import "crude-trader/internal/models"

// rollingSum keeps a fixed-size window sum with O(1) pushes. positive
// counts the window entries above zero, since the float total can carry
// residue after subtraction and is not a reliable zero test.
type rollingSum struct {
	window   []float64
	idx      int
	count    int
	total    float64
	positive int
}

func newRollingSum(period int) *rollingSum {
	return &rollingSum{window: make([]float64, period)}
}

func (r *rollingSum) push(v float64) {
	if r.count == len(r.window) {
		old := r.window[r.idx]
		r.total -= old
		if old > 0 {
			r.positive--
		}
	} else {
		r.count++
	}
	r.window[r.idx] = v
	r.total += v
	if v > 0 {
		r.positive++
	}
	r.idx = (r.idx + 1) % len(r.window)
}

func (r *rollingSum) full() bool {
	return r.count == len(r.window)
}

func (r *rollingSum) mean() float64 {
	if r.count == 0 {
		return 0
	}
	return r.total / float64(r.count)
}

// Stream computes the indicator set incrementally, one bar at a time,
// with constant work per bar. Push returns the same Point the batch
// Pipeline would produce for the bar at that position.
type Stream struct {
	cfg Config

	prev    models.Bar
	hasPrev bool

	tr     *rollingSum
	gains  *rollingSum
	losses *rollingSum
	pv     *rollingSum
	vol    *rollingSum
	volMA  *rollingSum
	oiMA   *rollingSum

	fastEMA float64
	slowEMA float64
	seeded  bool
	bars    int
}

// NewStream creates an incremental calculator for the given configuration.
func NewStream(cfg Config) *Stream {
	return &Stream{
		cfg:    cfg,
		tr:     newRollingSum(cfg.ATR),
		gains:  newRollingSum(cfg.RSI),
		losses: newRollingSum(cfg.RSI),
		pv:     newRollingSum(cfg.VWAP),
		vol:    newRollingSum(cfg.VWAP),
		volMA:  newRollingSum(cfg.VolumeMA),
		oiMA:   newRollingSum(cfg.OIMA),
	}
}

// Len returns the number of bars pushed so far.
func (s *Stream) Len() int {
	return s.bars
}

// Push folds one bar into the stream and returns its indicator point.
func (s *Stream) Push(bar models.Bar) Point {
	if s.hasPrev {
		s.tr.push(trueRange(bar, s.prev))
		delta := bar.Close - s.prev.Close
		if delta > 0 {
			s.gains.push(delta)
			s.losses.push(0)
		} else {
			s.gains.push(0)
			s.losses.push(-delta)
		}
	} else {
		s.tr.push(bar.High - bar.Low)
	}

	s.pv.push(bar.TypicalPrice() * float64(bar.Volume))
	s.vol.push(float64(bar.Volume))
	s.volMA.push(float64(bar.Volume))
	s.oiMA.push(float64(bar.OI))

	var pt Point
	if s.tr.full() {
		pt.ATR = Defined(s.tr.mean())
	}

	pt.VolFactor = 1.0
	if pt.ATR.Valid && bar.Close > 0 && s.cfg.VolThreshold > 0 {
		pt.VolFactor = clamp(pt.ATR.Float/bar.Close/s.cfg.VolThreshold, 0.5, 2.0)
	}

	if !s.seeded {
		s.fastEMA = bar.Close
		s.slowEMA = bar.Close
		s.seeded = true
	} else {
		fastEff := round(float64(s.cfg.FastEMA) * pt.VolFactor)
		slowEff := round(float64(s.cfg.SlowEMA) * pt.VolFactor)
		s.fastEMA += 2.0 / float64(fastEff+1) * (bar.Close - s.fastEMA)
		s.slowEMA += 2.0 / float64(slowEff+1) * (bar.Close - s.slowEMA)
	}
	pt.FastEMA = Defined(s.fastEMA)
	pt.SlowEMA = Defined(s.slowEMA)

	if s.gains.full() && s.losses.positive > 0 {
		rs := s.gains.mean() / s.losses.mean()
		pt.RSI = Defined(100 - 100/(1+rs))
	}

	if s.pv.full() && s.vol.positive > 0 {
		pt.VWAP = Defined(s.pv.total / s.vol.total)
	}
	if s.volMA.full() {
		pt.VolumeMA = Defined(s.volMA.mean())
	}
	if s.oiMA.full() {
		pt.OIMA = Defined(s.oiMA.mean())
	}

	s.prev = bar
	s.hasPrev = true
	s.bars++
	return pt
}
