// Package store provides data persistence: CSV ingestion of option
// bars, input sanitization and a SQLite archive for bars, trades and
// backtest runs.
package store

import (
	"context"
	"time"

	"crude-trader/internal/models"
)

// DataStore defines the persistence interface.
type DataStore interface {
	// Bars
	SaveBars(ctx context.Context, symbol string, bars []models.Bar) error
	GetBars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error)

	// Trades
	SaveTrades(ctx context.Context, runID int64, trades []models.Trade) error
	GetTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error)

	// Backtest runs
	SaveRun(ctx context.Context, run *RunRecord) error
	GetRuns(ctx context.Context, limit int) ([]RunRecord, error)

	// Lifecycle
	Close() error
}

// TradeFilter narrows trade queries.
type TradeFilter struct {
	RunID     int64
	Leg       models.OptionSide
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}

// RunRecord is one archived backtest run. ParamsJSON and ReportJSON
// hold the strategy parameters and the combined performance report as
// serialized JSON.
type RunRecord struct {
	ID             int64
	CreatedAt      time.Time
	Symbol         string
	InitialCapital float64
	FinalEquity    float64
	TotalTrades    int
	SharpeRatio    float64
	ParamsJSON     string
	ReportJSON     string
}
