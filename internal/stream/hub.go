// Package stream provides live bar distribution: a fan-out hub that
// feeds completed option bars to per-symbol subscribers, and a monitor
// that evaluates a signal strategy on each bar as it arrives.
package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"crude-trader/internal/models"
)

// HubConfig holds configuration for the bar hub.
type HubConfig struct {
	// BufferSize is the size of the internal bar channel buffer.
	BufferSize int
	// SubscriberBufferSize is the size of each subscriber's channel buffer.
	SubscriberBufferSize int
}

// DefaultHubConfig returns the default hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		BufferSize:           1000,
		SubscriberBufferSize: 100,
	}
}

// SymbolBar pairs a bar with the contract symbol it belongs to.
type SymbolBar struct {
	Symbol string
	Bar    models.Bar
}

// Hub fans bars from a single source out to per-symbol subscribers.
// Publishing never blocks; a full subscriber channel drops the bar for
// that subscriber only.
type Hub struct {
	config      HubConfig
	mu          sync.RWMutex
	subscribers map[string][]*Subscriber
	barChan     chan SymbolBar
	done        chan struct{}
	started     bool

	barsReceived  atomic.Uint64
	barsBroadcast atomic.Uint64
	barsDropped   atomic.Uint64
}

// Subscriber represents one bar consumer.
type Subscriber struct {
	Channel      chan models.Bar
	DroppedCount int
	CreatedAt    time.Time
}

// NewHub creates a hub with default configuration.
func NewHub() *Hub {
	return NewHubWithConfig(DefaultHubConfig())
}

// NewHubWithConfig creates a hub with custom configuration.
func NewHubWithConfig(config HubConfig) *Hub {
	return &Hub{
		config:      config,
		subscribers: make(map[string][]*Subscriber),
		barChan:     make(chan SymbolBar, config.BufferSize),
		done:        make(chan struct{}),
	}
}

// Start begins the distribution loop.
func (h *Hub) Start(ctx context.Context) {
	h.mu.Lock()
	if h.started {
		h.mu.Unlock()
		return
	}
	h.started = true
	h.mu.Unlock()

	go h.broadcastLoop(ctx)
}

func (h *Hub) broadcastLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case sb := <-h.barChan:
			h.barsReceived.Add(1)
			h.broadcast(sb)
		}
	}
}

func (h *Hub) broadcast(sb SymbolBar) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscribers[sb.Symbol] {
		select {
		case sub.Channel <- sb.Bar:
			h.barsBroadcast.Add(1)
		default:
			sub.DroppedCount++
			h.barsDropped.Add(1)
		}
	}
}

// Stop shuts the hub down and closes all subscriber channels.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started {
		return
	}
	close(h.done)
	h.started = false

	for symbol, subs := range h.subscribers {
		for _, sub := range subs {
			close(sub.Channel)
		}
		delete(h.subscribers, symbol)
	}
}

// Subscribe registers a consumer for a symbol's bars.
func (h *Hub) Subscribe(symbol string) <-chan models.Bar {
	ch := make(chan models.Bar, h.config.SubscriberBufferSize)
	sub := &Subscriber{
		Channel:   ch,
		CreatedAt: time.Now(),
	}

	h.mu.Lock()
	h.subscribers[symbol] = append(h.subscribers[symbol], sub)
	h.mu.Unlock()

	return ch
}

// Unsubscribe removes and closes one subscriber channel.
func (h *Hub) Unsubscribe(symbol string, ch <-chan models.Bar) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subscribers[symbol]
	for i, sub := range subs {
		if sub.Channel == ch {
			close(sub.Channel)
			h.subscribers[symbol] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(h.subscribers[symbol]) == 0 {
		delete(h.subscribers, symbol)
	}
}

// Publish hands a bar to the hub for distribution. Non-blocking; the
// bar is dropped if the internal buffer is full.
func (h *Hub) Publish(symbol string, bar models.Bar) {
	select {
	case h.barChan <- SymbolBar{Symbol: symbol, Bar: bar}:
	default:
		h.barsDropped.Add(1)
	}
}

// PublishWait blocks until the bar is accepted or the context is
// canceled. Replays use it to push data faster than real time without
// losing bars.
func (h *Hub) PublishWait(ctx context.Context, symbol string, bar models.Bar) error {
	select {
	case h.barChan <- SymbolBar{Symbol: symbol, Bar: bar}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats reports hub counters.
type Stats struct {
	BarsReceived  uint64
	BarsBroadcast uint64
	BarsDropped   uint64
	Subscribers   int
}

// GetStats returns a snapshot of the hub counters.
func (h *Hub) GetStats() Stats {
	h.mu.RLock()
	count := 0
	for _, subs := range h.subscribers {
		count += len(subs)
	}
	h.mu.RUnlock()

	return Stats{
		BarsReceived:  h.barsReceived.Load(),
		BarsBroadcast: h.barsBroadcast.Load(),
		BarsDropped:   h.barsDropped.Load(),
		Subscribers:   count,
	}
}
