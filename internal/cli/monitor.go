package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"crude-trader/internal/logging"
	"crude-trader/internal/models"
	"crude-trader/internal/store"
	"crude-trader/internal/strategy"
	"crude-trader/internal/stream"
	"crude-trader/pkg/utils"
)

// addMonitorCommands adds the live signal monitor.
func addMonitorCommands(rootCmd *cobra.Command, app *App) {
	var (
		file     string
		symbol   string
		useScore bool
		spot     float64
	)

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Replay a bar file through the live signal monitor",
		Long: `Replays a CSV bar file through the streaming hub and prints each
BUY and EXIT decision as the strategy would have produced it live.
With --score the contract-aware scoring strategy is used instead of
the EMA/RSI/VWAP rules; the contract is parsed from the symbol.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			contract, err := models.ParseContract(symbol, utils.IndiaLocation)
			if err != nil {
				return err
			}

			bars, err := store.LoadBarsCSV(file)
			if err != nil {
				return err
			}
			bars, err = store.Sanitize(symbol, bars)
			if err != nil {
				return err
			}

			var strat strategy.SignalStrategy = strategy.NewRuleStrategy(app.Config.Strategy)
			if useScore {
				if spot <= 0 {
					return fmt.Errorf("--score needs --spot, the underlying price the premium is priced against")
				}
				scored := strategy.NewScoreStrategy(contract, app.Config.Strategy, app.Config.Risk.PricingRiskFreeRate)
				scored.UpdateSpot(spot)
				strat = scored
			}

			// Replays outrun real time, so the subscriber buffer must
			// hold the whole file to rule out drops.
			hub := stream.NewHubWithConfig(stream.HubConfig{
				BufferSize:           1000,
				SubscriberBufferSize: len(bars) + 1,
			})
			ctx := cmd.Context()
			hub.Start(ctx)
			defer hub.Stop()

			monitor := stream.NewMonitor(symbol, contract.Side, strat, app.Config.Strategy.IndicatorConfig())
			barCh := hub.Subscribe(symbol)

			done := make(chan struct{})
			go func() {
				defer close(done)
				monitor.Run(ctx, barCh)
			}()

			go func() {
				for _, bar := range bars {
					if err := hub.PublishWait(ctx, symbol, bar); err != nil {
						return
					}
				}
				for hub.GetStats().BarsBroadcast < uint64(len(bars)) {
					select {
					case <-ctx.Done():
						return
					case <-time.After(10 * time.Millisecond):
					}
				}
				hub.Unsubscribe(symbol, barCh)
			}()

			count := 0
			for ev := range monitor.Events() {
				count++
				logging.LogSignal(app.Logger, ev.Symbol, ev.Signal, ev.Bar.Close)
				if output.IsJSON() {
					output.JSON(ev)
					continue
				}
				tag := output.Green("BUY ")
				if ev.Signal == models.SignalExit {
					tag = output.Red("EXIT")
				}
				output.Printf("%s  %s  close=%.2f  bar=%d\n",
					ev.Bar.Timestamp.Format("2006-01-02 15:04"), tag, ev.Bar.Close, ev.BarsSeen)
			}
			<-done

			if !output.IsJSON() {
				output.Dim("%d signals over %d bars", count, len(bars))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "CSV file with option bars (required)")
	cmd.Flags().StringVar(&symbol, "symbol", "", "contract symbol, e.g. CRUDEOIL19DEC2406500CE (required)")
	cmd.Flags().BoolVar(&useScore, "score", false, "use the contract-aware scoring strategy")
	cmd.Flags().Float64Var(&spot, "spot", 0, "underlying price for the scoring strategy (required with --score)")
	cmd.MarkFlagRequired("file")
	cmd.MarkFlagRequired("symbol")

	rootCmd.AddCommand(cmd)
}
