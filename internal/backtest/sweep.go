package backtest

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"crude-trader/internal/config"
	"crude-trader/internal/models"
	"crude-trader/internal/performance"
)

// SweepResult pairs one parameter set with its combined report.
type SweepResult struct {
	Params config.StrategyParams
	Report performance.Report
	Err    error
}

// Sweeper runs a batch of backtests over different strategy parameter
// sets on a fixed worker pool and ranks the outcomes by Sharpe ratio.
type Sweeper struct {
	risk    config.RiskParams
	capital float64
	workers int
	logger  zerolog.Logger
}

// NewSweeper creates a sweep runner. If workers is 0 it defaults to
// runtime.NumCPU().
func NewSweeper(risk config.RiskParams, capital float64, workers int, logger zerolog.Logger) *Sweeper {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Sweeper{
		risk:    risk,
		capital: capital,
		workers: workers,
		logger:  logger,
	}
}

// Run backtests every parameter set against the same bar data and
// returns the results sorted by combined Sharpe ratio, best first.
// Failed runs sort last and carry their error.
func (s *Sweeper) Run(ctx context.Context, paramSets []config.StrategyParams, ceBars, peBars []models.Bar) []SweepResult {
	results := make([]SweepResult, len(paramSets))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = s.runOne(ctx, paramSets[idx], ceBars, peBars)
			}
		}()
	}

	for i := range paramSets {
		select {
		case <-ctx.Done():
			results[i] = SweepResult{Params: paramSets[i], Err: ctx.Err()}
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	sort.SliceStable(results, func(i, j int) bool {
		if (results[i].Err == nil) != (results[j].Err == nil) {
			return results[i].Err == nil
		}
		return results[i].Report.SharpeRatio > results[j].Report.SharpeRatio
	})
	return results
}

func (s *Sweeper) runOne(ctx context.Context, params config.StrategyParams, ceBars, peBars []models.Bar) SweepResult {
	engine := New(Config{
		Strategy:       params,
		Risk:           s.risk,
		InitialCapital: s.capital,
	}, s.logger)

	result, err := engine.Run(ctx, ceBars, peBars)
	if err != nil {
		s.logger.Warn().Err(err).Msg("sweep run failed")
		return SweepResult{Params: params, Err: err}
	}
	return SweepResult{Params: params, Report: result.Combined.Report}
}
