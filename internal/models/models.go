// Package models provides domain models for the trading application.
package models

import (
	"math"
	"time"
)

// OptionSide identifies the option leg of a contract.
type OptionSide string

const (
	SideCE OptionSide = "CE" // call
	SidePE OptionSide = "PE" // put
)

// IsCall returns true for the call leg.
func (s OptionSide) IsCall() bool {
	return s == SideCE
}

// Signal represents a trading signal emitted by a strategy.
type Signal int

const (
	SignalNone Signal = 0
	SignalBuy  Signal = 1
	SignalExit Signal = -1
)

// String returns a human-readable signal name.
func (s Signal) String() string {
	switch s {
	case SignalBuy:
		return "BUY"
	case SignalExit:
		return "EXIT"
	default:
		return "NONE"
	}
}

// MarketRegime classifies the prevailing market context.
type MarketRegime string

const (
	RegimeUnknown   MarketRegime = "UNKNOWN"
	RegimeVolatile  MarketRegime = "VOLATILE"
	RegimeUptrend   MarketRegime = "UPTREND"
	RegimeDowntrend MarketRegime = "DOWNTREND"
	RegimeRanging   MarketRegime = "RANGING"
)

// Trending reports whether the regime is directional.
func (r MarketRegime) Trending() bool {
	return r == RegimeUptrend || r == RegimeDowntrend
}

// Bar represents OHLCV data for a time period, with open interest for options.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
	OI        int64
}

// TypicalPrice returns (high + low + close) / 3.
func (b Bar) TypicalPrice() float64 {
	return (b.High + b.Low + b.Close) / 3
}

// Finite reports whether all price fields hold finite values.
func (b Bar) Finite() bool {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
