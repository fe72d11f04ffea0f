package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/spf13/cobra"

	"crude-trader/internal/backtest"
	"crude-trader/internal/config"
	"crude-trader/internal/logging"
	"crude-trader/internal/models"
	"crude-trader/internal/performance"
	"crude-trader/internal/store"
	"crude-trader/pkg/utils"
)

// addBacktestCommands adds the backtest command group.
func addBacktestCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Backtest the two-leg option strategy",
	}
	cmd.AddCommand(newBacktestRunCmd(app))
	cmd.AddCommand(newBacktestSweepCmd(app))
	rootCmd.AddCommand(cmd)
}

func newBacktestRunCmd(app *App) *cobra.Command {
	var (
		ceFile  string
		peFile  string
		capital float64
		symbol  string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one backtest over CE and PE bar files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			ceBars, err := loadAndSanitize(ceFile)
			if err != nil {
				return err
			}
			peBars, err := loadAndSanitize(peFile)
			if err != nil {
				return err
			}

			engine := backtest.New(backtest.Config{
				Strategy:       app.Config.Strategy,
				Risk:           app.Config.Risk,
				InitialCapital: capital,
			}, app.Logger)

			started := time.Now()
			result, err := engine.Run(cmd.Context(), ceBars, peBars)
			if err != nil {
				return err
			}
			logging.LogRun(app.Logger, symbol, len(result.Combined.Trades),
				result.Combined.EquityCurve.Last(), time.Since(started))

			if app.Store != nil {
				if err := archiveRun(app, symbol, capital, result); err != nil {
					app.Logger.Warn().Err(err).Msg("Failed to archive run")
				}
			}

			if output.IsJSON() {
				return output.JSON(result.Combined.Report)
			}
			printResult(output, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&ceFile, "ce", "", "CSV file with CE leg bars (required)")
	cmd.Flags().StringVar(&peFile, "pe", "", "CSV file with PE leg bars (required)")
	cmd.Flags().Float64Var(&capital, "capital", 100000, "initial capital, split across legs")
	cmd.Flags().StringVar(&symbol, "symbol", "CRUDEOIL", "contract symbol for archiving")
	cmd.MarkFlagRequired("ce")
	cmd.MarkFlagRequired("pe")

	return cmd
}

func newBacktestSweepCmd(app *App) *cobra.Command {
	var (
		ceFile     string
		peFile     string
		capital    float64
		paramsFile string
		workers    int
		top        int
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Backtest many parameter sets and rank them by Sharpe ratio",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			ceBars, err := loadAndSanitize(ceFile)
			if err != nil {
				return err
			}
			peBars, err := loadAndSanitize(peFile)
			if err != nil {
				return err
			}
			paramSets, err := loadParamSets(paramsFile)
			if err != nil {
				return err
			}

			sweeper := backtest.NewSweeper(app.Config.Risk, capital, workers, app.Logger)
			results := sweeper.Run(cmd.Context(), paramSets, ceBars, peBars)

			if top > 0 && top < len(results) {
				results = results[:top]
			}
			if output.IsJSON() {
				return output.JSON(results)
			}
			printSweep(output, results)
			return nil
		},
	}

	cmd.Flags().StringVar(&ceFile, "ce", "", "CSV file with CE leg bars (required)")
	cmd.Flags().StringVar(&peFile, "pe", "", "CSV file with PE leg bars (required)")
	cmd.Flags().Float64Var(&capital, "capital", 100000, "initial capital per run")
	cmd.Flags().StringVar(&paramsFile, "params-file", "", "JSON file with an array of strategy parameter sets (required)")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent runs (default: number of CPUs)")
	cmd.Flags().IntVar(&top, "top", 10, "show only the best N parameter sets")
	cmd.MarkFlagRequired("ce")
	cmd.MarkFlagRequired("pe")
	cmd.MarkFlagRequired("params-file")

	return cmd
}

func loadAndSanitize(path string) ([]models.Bar, error) {
	bars, err := store.LoadBarsCSV(path)
	if err != nil {
		return nil, err
	}
	return store.Sanitize(path, bars)
}

func loadParamSets(path string) ([]config.StrategyParams, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var sets []config.StrategyParams
	if err := json.Unmarshal(data, &sets); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("%s contains no parameter sets", path)
	}
	return sets, nil
}

func archiveRun(app *App, symbol string, capital float64, result *backtest.Result) error {
	params, err := json.Marshal(app.Config.Strategy)
	if err != nil {
		return err
	}
	report, err := json.Marshal(sanitizeForJSON(result.Combined.Report))
	if err != nil {
		return err
	}

	run := &store.RunRecord{
		Symbol:         symbol,
		InitialCapital: capital,
		FinalEquity:    result.Combined.EquityCurve.Last(),
		TotalTrades:    len(result.Combined.Trades),
		SharpeRatio:    result.Combined.Report.SharpeRatio,
		ParamsJSON:     string(params),
		ReportJSON:     string(report),
	}

	ctx := context.Background()
	if err := app.Store.SaveRun(ctx, run); err != nil {
		return err
	}
	return app.Store.SaveTrades(ctx, run.ID, result.Combined.Trades)
}

// sanitizeForJSON clears non-finite ratios, which encoding/json rejects.
func sanitizeForJSON(r performance.Report) performance.Report {
	for _, f := range []*float64{&r.ProfitFactor, &r.CalmarRatio, &r.RecoveryFactor, &r.AnnualVolatility} {
		if math.IsNaN(*f) || math.IsInf(*f, 0) {
			*f = 0
		}
	}
	return r
}

func printResult(output *Output, result *backtest.Result) {
	printLeg(output, result.CE)
	printLeg(output, result.PE)

	r := result.Combined.Report
	output.Bold("Combined")
	output.Printf("  total return:      %s\n",
		output.Signed(r.TotalReturnPct, utils.FormatPercent(r.TotalReturnPct)))
	output.Printf("  net profit:        %s\n",
		output.Signed(r.NetProfit, utils.FormatPnL(r.NetProfit)))
	output.Printf("  trades:            %d  (win rate %.1f%%)\n", r.TotalTrades, r.WinRatePct)
	output.Printf("  costs:             %s\n", utils.FormatIndianCurrency(r.TotalCosts))
	output.Printf("  profit factor:     %s\n", formatRatio(r.ProfitFactor))
	output.Printf("  sharpe:            %.3f\n", r.SharpeRatio)
	output.Printf("  sortino:           %.3f\n", r.SortinoRatio)
	output.Printf("  calmar:            %s\n", formatRatio(r.CalmarRatio))
	output.Printf("  max drawdown:      %.2f%%  (%.2f)\n", r.MaxDrawdownPct*100, r.MaxDrawdownValue)
	output.Printf("  annual volatility: %.2f%%\n", r.AnnualVolatility*100)
	output.Printf("  VaR 95:            %.4f\n", r.ValueAtRisk95)
	output.Printf("  max consec losses: %d\n", r.MaxConsecutiveLosses)
}

func printLeg(output *Output, leg backtest.LegResult) {
	output.Bold(fmt.Sprintf("%s leg", leg.Leg))
	output.Printf("  trades:            %d  (win rate %.1f%%)\n", len(leg.Trades), leg.WinRatePct)
	output.Printf("  gross P/L:         +%s / -%s\n",
		utils.FormatIndianCurrency(leg.GrossProfit), utils.FormatIndianCurrency(leg.GrossLoss))
	output.Printf("  net profit:        %s\n",
		output.Signed(leg.NetProfit, utils.FormatPnL(leg.NetProfit)))
	output.Printf("  return:            %s\n",
		output.Signed(leg.TotalReturnPct, utils.FormatPercent(leg.TotalReturnPct)))
}

func printSweep(output *Output, results []backtest.SweepResult) {
	output.Bold("Rank  Sharpe   Return%%   Trades  Fast/Slow  RSI  ATR  VWAP")
	for i, res := range results {
		if res.Err != nil {
			output.Error("%4d  failed: %v", i+1, res.Err)
			continue
		}
		p, r := res.Params, res.Report
		output.Printf("%4d  %6.3f  %7.2f  %6d  %4d/%-4d  %3d  %3d  %4d\n",
			i+1, r.SharpeRatio, r.TotalReturnPct, r.TotalTrades,
			p.FastEMAPeriod, p.SlowEMAPeriod, p.RSIPeriod, p.ATRPeriod, p.VWAPPeriod)
	}
}

func formatRatio(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsNaN(v):
		return "n/a"
	default:
		return fmt.Sprintf("%.3f", v)
	}
}
