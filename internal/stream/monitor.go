package stream

import (
	"context"

	"crude-trader/internal/analysis/indicators"
	"crude-trader/internal/models"
	"crude-trader/internal/strategy"
)

// SignalEvent is one strategy decision on a live bar.
type SignalEvent struct {
	Symbol   string
	Bar      models.Bar
	Point    indicators.Point
	Signal   models.Signal
	BarsSeen int
}

// Monitor evaluates a signal strategy over one symbol's live bars,
// keeping indicator state incrementally so each bar costs O(1).
type Monitor struct {
	symbol string
	side   models.OptionSide
	strat  strategy.SignalStrategy
	stream *indicators.Stream
	events chan SignalEvent

	barsSeen  int
	prevBar   models.Bar
	prevPoint indicators.Point
	hasPrev   bool
}

// NewMonitor creates a monitor for one contract leg.
func NewMonitor(symbol string, side models.OptionSide, strat strategy.SignalStrategy, cfg indicators.Config) *Monitor {
	return &Monitor{
		symbol: symbol,
		side:   side,
		strat:  strat,
		stream: indicators.NewStream(cfg),
		events: make(chan SignalEvent, 16),
	}
}

// Events returns the channel of non-neutral strategy decisions. It is
// closed when Run returns.
func (m *Monitor) Events() <-chan SignalEvent {
	return m.events
}

// Run consumes bars until the channel closes or the context is
// canceled. Each bar updates the indicator state and is evaluated by
// the strategy; BUY and EXIT decisions are forwarded as events.
func (m *Monitor) Run(ctx context.Context, bars <-chan models.Bar) {
	defer close(m.events)

	for {
		select {
		case <-ctx.Done():
			return
		case bar, ok := <-bars:
			if !ok {
				return
			}
			if event, fired := m.process(bar); fired {
				select {
				case m.events <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (m *Monitor) process(bar models.Bar) (SignalEvent, bool) {
	point := m.stream.Push(bar)
	m.barsSeen++

	frame := strategy.Frame{
		Bar:      bar,
		Point:    point,
		BarsSeen: m.barsSeen,
	}
	if m.hasPrev {
		prev := m.prevBar
		frame.Prev = &prev
		frame.PrevPoint = m.prevPoint
	}

	signal := m.strat.Evaluate(frame, m.side)

	m.prevBar = bar
	m.prevPoint = point
	m.hasPrev = true

	if signal == models.SignalNone {
		return SignalEvent{}, false
	}
	return SignalEvent{
		Symbol:   m.symbol,
		Bar:      bar,
		Point:    point,
		Signal:   signal,
		BarsSeen: m.barsSeen,
	}, true
}
