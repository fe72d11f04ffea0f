// Package backtest replays the rule strategy bar by bar over CE and PE
// option legs with ATR-based sizing, stop management and daily loss
// capping, and aggregates the legs into a combined result.
package backtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"crude-trader/internal/analysis/indicators"
	"crude-trader/internal/config"
	apperrors "crude-trader/internal/errors"
	"crude-trader/internal/logging"
	"crude-trader/internal/models"
	"crude-trader/internal/performance"
	"crude-trader/internal/risk"
	"crude-trader/internal/strategy"
)

// Config describes one backtest run.
type Config struct {
	Strategy       config.StrategyParams
	Risk           config.RiskParams
	InitialCapital float64
}

// LegResult holds the outcome of one option leg.
type LegResult struct {
	Leg            models.OptionSide
	InitialCapital float64
	FinalEquity    float64
	EquityCurve    models.EquityCurve
	Trades         []models.Trade
	GrossProfit    float64
	GrossLoss      float64
	TotalCosts     float64
	NetProfit      float64
	TotalReturnPct float64
	WinRatePct     float64
}

// Result holds both legs plus the combined view.
type Result struct {
	CE       LegResult
	PE       LegResult
	Combined Combined
}

// Combined is the portfolio view over both legs.
type Combined struct {
	EquityCurve models.EquityCurve
	Trades      []models.Trade
	Report      performance.Report
}

// Engine runs backtests. It holds only configuration; every run owns
// fresh per-leg state, so one engine can serve concurrent runs.
type Engine struct {
	cfg    Config
	risk   *risk.Engine
	strat  strategy.SignalStrategy
	logger zerolog.Logger
}

// New creates a backtest engine driven by the rule strategy.
func New(cfg Config, logger zerolog.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		risk:   risk.NewEngine(cfg.Risk),
		strat:  strategy.NewRuleStrategy(cfg.Strategy),
		logger: logger,
	}
}

// UseStrategy swaps the signal source. The strategy must be safe for
// concurrent use since both legs evaluate it.
func (e *Engine) UseStrategy(s strategy.SignalStrategy) {
	e.strat = s
}

// Run replays both legs concurrently, each on half the initial capital,
// and combines them. Bars must be sanitized (sorted, deduplicated) and
// are treated as read-only.
func (e *Engine) Run(ctx context.Context, ceBars, peBars []models.Bar) (*Result, error) {
	if len(ceBars) == 0 || len(peBars) == 0 {
		return nil, apperrors.ErrNoData
	}

	half := e.cfg.InitialCapital / 2

	var wg sync.WaitGroup
	var ce, pe LegResult
	var ceErr, peErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		ce, ceErr = e.runLeg(ctx, ceBars, models.SideCE, half)
	}()
	go func() {
		defer wg.Done()
		pe, peErr = e.runLeg(ctx, peBars, models.SidePE, half)
	}()
	wg.Wait()

	if ceErr != nil {
		return nil, fmt.Errorf("CE leg: %w", ceErr)
	}
	if peErr != nil {
		return nil, fmt.Errorf("PE leg: %w", peErr)
	}

	combinedCurve := combineCurves(ce.EquityCurve, pe.EquityCurve)
	trades := make([]models.Trade, 0, len(ce.Trades)+len(pe.Trades))
	trades = append(trades, ce.Trades...)
	trades = append(trades, pe.Trades...)

	report := performance.Compute(combinedCurve, trades, e.cfg.InitialCapital, e.cfg.Risk.AnalyticsRiskFreeRate)
	// The portfolio win rate averages the two leg rates rather than
	// pooling trades, so a thin leg is not drowned out by a busy one.
	report.WinRatePct = (ce.WinRatePct + pe.WinRatePct) / 2

	return &Result{
		CE: ce,
		PE: pe,
		Combined: Combined{
			EquityCurve: combinedCurve,
			Trades:      trades,
			Report:      report,
		},
	}, nil
}

// position is the open-trade state of one leg, owned by its loop.
type position struct {
	open      bool
	entry     float64
	entryTime time.Time
	lots      int
	stop      float64
}

func (e *Engine) runLeg(ctx context.Context, bars []models.Bar, side models.OptionSide, capital float64) (LegResult, error) {
	pipeline := indicators.NewPipeline(e.indicatorConfig())
	points, err := pipeline.Compute(ctx, bars)
	if err != nil {
		return LegResult{}, fmt.Errorf("computing indicators: %w", err)
	}

	sma := make([]indicators.Value, len(bars))
	if values, err := indicators.NewSMA(e.cfg.Strategy.SlowEMAPeriod).Calculate(bars); err == nil {
		sma = values
	}

	params := e.cfg.Risk
	legLogger := logging.WithLeg(e.logger, side)

	equity := capital
	curve := make(models.EquityCurve, len(bars))
	curve[0] = models.EquityPoint{Timestamp: bars[0].Timestamp, Equity: equity}

	var trades []models.Trade
	var pos position
	var day risk.DayState
	day.Roll(bars[0].Timestamp, equity)

	for i := 1; i < len(bars); i++ {
		bar := bars[i]
		pt := points[i]
		day.Roll(bar.Timestamp, equity)

		signal := e.strat.Evaluate(strategy.FrameAt(bars, points, i), side)
		atr := pt.ATR

		if pos.open {
			excursion := risk.Excursion(pos.entry, bar.Close, side)
			if atr.Valid && atr.Float > 0 {
				pos.stop = e.risk.TrailStop(pos.entry, pos.stop, excursion, atr.Float, side)
			}

			exitPrice := 0.0
			var reason models.ExitReason
			switch {
			case risk.StopHit(bar, pos.stop, side):
				exitPrice = pos.stop
				reason = models.ExitStopLoss
			case e.risk.TakeProfitHit(excursion, atr.Or(0)):
				exitPrice = bar.Close
				reason = models.ExitTakeProfit
			case signal == models.SignalExit:
				exitPrice = bar.Close
				reason = models.ExitSignal
			}

			if reason != "" {
				trade := e.closeTrade(&pos, bar, exitPrice, reason, side, params)
				equity += trade.NetPnL
				trades = append(trades, trade)
				logging.LogTrade(e.logger, trade)
			}
		}

		wasHalted := day.Halted()
		day.CheckHalt(equity, params.DailyLossCapPct)
		if !wasHalted && day.Halted() {
			logging.LogHalt(e.logger, side, equity, day.StartEquity())
		}

		if !pos.open && !day.Halted() && risk.InSession(bar.Timestamp) &&
			signal == models.SignalBuy && atr.Valid && atr.Float > 0 {
			lots := e.risk.PositionSize(risk.SizingInput{
				Equity:      equity,
				Price:       bar.Close,
				ATR:         atr.Float,
				VolFactor:   pt.VolFactor,
				VolumeRatio: surgeRatio(float64(bar.Volume), pt.VolumeMA),
				OIRatio:     surgeRatio(float64(bar.OI), pt.OIMA),
			})
			if lots > 0 {
				regime := risk.Classify(bar.Close, sma[i], atr, params.VolatilityThreshold)
				pos = position{
					open:      true,
					entry:     bar.Close,
					entryTime: bar.Timestamp,
					lots:      lots,
					stop:      e.risk.InitialStop(bar.Close, atr.Float, pt.VolFactor, regime, side),
				}
				equity -= params.CostPerTrade
				legLogger.Debug().
					Float64("entry", pos.entry).
					Int("lots", lots).
					Float64("stop", pos.stop).
					Msg("position opened")
			}
		}

		curve[i] = models.EquityPoint{Timestamp: bar.Timestamp, Equity: equity}
	}

	return legSummary(side, capital, equity, curve, trades, params), nil
}

func (e *Engine) closeTrade(pos *position, bar models.Bar, exitPrice float64, reason models.ExitReason, side models.OptionSide, params config.RiskParams) models.Trade {
	perUnit := exitPrice - pos.entry
	if !side.IsCall() {
		perUnit = pos.entry - exitPrice
	}
	gross := perUnit * float64(pos.lots) * float64(params.LotSize)
	net := gross - params.CostPerTrade

	returnPct := 0.0
	if pos.entry > 0 {
		returnPct = net / (pos.entry * float64(pos.lots) * float64(params.LotSize)) * 100
	}

	trade := models.Trade{
		Leg:           side,
		EntryTime:     pos.entryTime,
		ExitTime:      bar.Timestamp,
		EntryPrice:    pos.entry,
		ExitPrice:     exitPrice,
		Lots:          pos.lots,
		GrossPnL:      gross,
		NetPnL:        net,
		ReturnPercent: returnPct,
		Reason:        reason,
	}
	*pos = position{}
	return trade
}

func (e *Engine) indicatorConfig() indicators.Config {
	cfg := e.cfg.Strategy.IndicatorConfig()
	cfg.VolThreshold = e.cfg.Risk.VolatilityThreshold
	return cfg
}

// surgeRatio compares a bar value against its moving average, defaulting
// to 1 while the average is still warming up.
func surgeRatio(value float64, ma indicators.Value) float64 {
	if !ma.Valid || ma.Float <= 0 {
		return 1
	}
	return value / ma.Float
}

func legSummary(side models.OptionSide, capital, equity float64, curve models.EquityCurve, trades []models.Trade, params config.RiskParams) LegResult {
	result := LegResult{
		Leg:            side,
		InitialCapital: capital,
		FinalEquity:    equity,
		EquityCurve:    curve,
		Trades:         trades,
		TotalCosts:     float64(len(trades)) * params.CostPerTrade,
	}

	wins := 0
	for _, t := range trades {
		if t.GrossPnL > 0 {
			result.GrossProfit += t.GrossPnL
		} else if t.GrossPnL < 0 {
			result.GrossLoss += -t.GrossPnL
		}
		result.NetProfit += t.NetPnL
		if t.NetPnL > 0 {
			wins++
		}
	}
	if capital > 0 {
		result.TotalReturnPct = (equity - capital) / capital * 100
	}
	if len(trades) > 0 {
		result.WinRatePct = float64(wins) / float64(len(trades)) * 100
	}
	return result
}

// combineCurves sums two leg curves over the union of their timestamps,
// forward-filling each leg between its own points.
func combineCurves(a, b models.EquityCurve) models.EquityCurve {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}

	combined := make(models.EquityCurve, 0, len(a)+len(b))
	lastA, lastB := a[0].Equity, b[0].Equity
	i, j := 0, 0

	for i < len(a) || j < len(b) {
		var ts time.Time
		switch {
		case i >= len(a):
			ts = b[j].Timestamp
		case j >= len(b):
			ts = a[i].Timestamp
		case a[i].Timestamp.Before(b[j].Timestamp):
			ts = a[i].Timestamp
		default:
			ts = b[j].Timestamp
		}

		for i < len(a) && a[i].Timestamp.Equal(ts) {
			lastA = a[i].Equity
			i++
		}
		for j < len(b) && b[j].Timestamp.Equal(ts) {
			lastB = b[j].Equity
			j++
		}
		combined = append(combined, models.EquityPoint{Timestamp: ts, Equity: lastA + lastB})
	}

	return combined
}
