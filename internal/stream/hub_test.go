package stream

import (
	"context"
	"testing"
	"time"

	"crude-trader/internal/analysis/indicators"
	"crude-trader/internal/models"
	"crude-trader/internal/strategy"
)

func barWithClose(i int, close float64) models.Bar {
	base := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	return models.Bar{
		Timestamp: base.Add(time.Duration(i) * time.Minute),
		Open:      close, High: close + 1, Low: close - 1, Close: close,
		Volume: 1000, OI: 1000,
	}
}

func TestHub_FanOutPerSymbol(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub.Start(ctx)
	defer hub.Stop()

	ce := hub.Subscribe("CRUDEOIL24JUN6500CE")
	pe := hub.Subscribe("CRUDEOIL24JUN6500PE")

	hub.Publish("CRUDEOIL24JUN6500CE", barWithClose(0, 100))

	select {
	case bar := <-ce:
		if bar.Close != 100 {
			t.Errorf("received close %v, want 100", bar.Close)
		}
	case <-time.After(time.Second):
		t.Fatal("CE subscriber received nothing")
	}

	select {
	case bar := <-pe:
		t.Errorf("PE subscriber received %v for a CE publish", bar)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHubWithConfig(HubConfig{BufferSize: 100, SubscriberBufferSize: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub.Start(ctx)
	defer hub.Stop()

	_ = hub.Subscribe("X")

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			hub.Publish("X", barWithClose(i, 100))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publishing blocked on a slow subscriber")
	}
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe("X")
	hub.Unsubscribe("X", ch)

	if _, ok := <-ch; ok {
		t.Error("channel still open after Unsubscribe")
	}
	if got := hub.GetStats().Subscribers; got != 0 {
		t.Errorf("Subscribers = %d, want 0", got)
	}
}

// closeAbove buys once the close clears a level, for driving the
// monitor deterministically.
type closeAbove struct {
	level float64
}

func (closeAbove) Name() string { return "close-above" }

func (s closeAbove) Evaluate(f strategy.Frame, _ models.OptionSide) models.Signal {
	if f.Bar.Close > s.level {
		return models.SignalBuy
	}
	return models.SignalNone
}

func TestMonitor_EmitsSignalEvents(t *testing.T) {
	cfg := indicators.DefaultConfig()
	m := NewMonitor("CRUDEOIL24JUN6500CE", models.SideCE, closeAbove{level: 105}, cfg)

	bars := make(chan models.Bar)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx, bars)

	for i := 0; i < 20; i++ {
		bars <- barWithClose(i, 100)
	}
	bars <- barWithClose(20, 110)
	close(bars)

	var events []SignalEvent
	for ev := range m.Events() {
		events = append(events, ev)
	}

	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	ev := events[0]
	if ev.Signal != models.SignalBuy || ev.Bar.Close != 110 || ev.BarsSeen != 21 {
		t.Errorf("event = %+v", ev)
	}
	if !ev.Point.ATR.Valid {
		t.Error("event carries no ATR after warmup")
	}
}
