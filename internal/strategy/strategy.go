// Package strategy provides the signal strategies that drive entries and
// exits: a deterministic rule strategy for systematic replay and a
// weighted Greek-score strategy for live-style decisioning.
package strategy

import (
	"crude-trader/internal/analysis/indicators"
	"crude-trader/internal/models"
)

// Frame is the per-bar evaluation input. It carries the current and
// previous bar with their indicator points, so strategies stay stateless
// and the same frame can come from a batch replay or a live stream.
type Frame struct {
	Bar       models.Bar
	Prev      *models.Bar
	Point     indicators.Point
	PrevPoint indicators.Point
	BarsSeen  int
}

// SignalStrategy decides the trading action for one bar of one option leg.
type SignalStrategy interface {
	Name() string
	Evaluate(f Frame, side models.OptionSide) models.Signal
}

// FrameAt builds the evaluation frame for index i of a bar series with
// precomputed indicator points.
func FrameAt(bars []models.Bar, points []indicators.Point, i int) Frame {
	f := Frame{
		Bar:      bars[i],
		Point:    points[i],
		BarsSeen: i + 1,
	}
	if i > 0 {
		f.Prev = &bars[i-1]
		f.PrevPoint = points[i-1]
	}
	return f
}
