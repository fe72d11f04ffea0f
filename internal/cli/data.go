package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"crude-trader/internal/store"
	"crude-trader/pkg/utils"
)

// addDataCommands adds bar import and run history commands.
func addDataCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "data",
		Short: "Manage archived bar data and run history",
	}
	cmd.AddCommand(newDataImportCmd(app))
	cmd.AddCommand(newDataRunsCmd(app))
	rootCmd.AddCommand(cmd)
}

func newDataImportCmd(app *App) *cobra.Command {
	var (
		file   string
		symbol string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a CSV bar file into the local database",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}

			bars, err := store.LoadBarsCSV(file)
			if err != nil {
				return err
			}
			bars, err = store.Sanitize(symbol, bars)
			if err != nil {
				return err
			}
			if err := app.Store.SaveBars(cmd.Context(), symbol, bars); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"symbol": symbol,
					"bars":   len(bars),
				})
			}
			output.Success("Imported %d bars for %s", len(bars), symbol)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "CSV file to import (required)")
	cmd.Flags().StringVar(&symbol, "symbol", "", "contract symbol (required)")
	cmd.MarkFlagRequired("file")
	cmd.MarkFlagRequired("symbol")

	return cmd
}

func newDataRunsCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List archived backtest runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}

			runs, err := app.Store.GetRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(runs)
			}
			if len(runs) == 0 {
				output.Dim("No archived runs")
				return nil
			}

			output.Bold("  ID  Date              Symbol                Trades  Sharpe   Final equity")
			for _, r := range runs {
				output.Printf("%4d  %s  %-20s  %6d  %6.3f  %s\n",
					r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.Symbol,
					r.TotalTrades, r.SharpeRatio,
					output.Signed(r.FinalEquity-r.InitialCapital, utils.FormatIndianCurrency(r.FinalEquity)))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	return cmd
}
