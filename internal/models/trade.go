package models

import "time"

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitStopLoss   ExitReason = "STOP_LOSS"
	ExitTakeProfit ExitReason = "TAKE_PROFIT"
	ExitSignal     ExitReason = "SIGNAL"
)

// Trade represents a completed round trip on one option leg.
// Trades are immutable once appended to a ledger.
type Trade struct {
	Leg           OptionSide
	EntryTime     time.Time
	ExitTime      time.Time
	EntryPrice    float64
	ExitPrice     float64
	Lots          int
	GrossPnL      float64
	NetPnL        float64
	ReturnPercent float64
	Reason        ExitReason
}

// EquityPoint is one entry of an equity curve.
type EquityPoint struct {
	Timestamp time.Time
	Equity    float64
}

// EquityCurve is an ordered, forward-filled sequence of equity points.
type EquityCurve []EquityPoint

// Last returns the final equity value, or 0 for an empty curve.
func (c EquityCurve) Last() float64 {
	if len(c) == 0 {
		return 0
	}
	return c[len(c)-1].Equity
}

// Returns computes simple per-point returns of the curve.
func (c EquityCurve) Returns() []float64 {
	if len(c) < 2 {
		return nil
	}
	out := make([]float64, 0, len(c)-1)
	for i := 1; i < len(c); i++ {
		prev := c[i-1].Equity
		if prev == 0 {
			continue
		}
		out = append(out, (c[i].Equity-prev)/prev)
	}
	return out
}
