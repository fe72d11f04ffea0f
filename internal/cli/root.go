package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"crude-trader/internal/config"
	"crude-trader/internal/logging"
	"crude-trader/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-06-01"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  store.DataStore
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Initialize SQLite store
	dbPath := config.DefaultConfigDir() + "/trader.db"
	dataStore, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, run archiving unavailable")
	} else {
		app.Store = dataStore
		logger.Debug().Msg("SQLite store initialized")
	}

	rootCmd := &cobra.Command{
		Use:   "crude-trader",
		Short: "Crude Trader - MCX crude-oil options backtester",
		Long: `Crude Trader backtests a two-leg intraday strategy on MCX crude-oil
option premiums. It replays CE and PE bar data through EMA/RSI/VWAP
rules with ATR-based stops, a daily loss cap and per-leg capital.

Use 'crude-trader help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/crude-trader)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addBacktestCommands(rootCmd, app)
	addDataCommands(rootCmd, app)
	addMonitorCommands(rootCmd, app)

	return rootCmd
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Crude Trader v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	s, r := cfg.Strategy, cfg.Risk

	output.Bold("Strategy")
	output.Printf("  fast/slow EMA:     %d / %d\n", s.FastEMAPeriod, s.SlowEMAPeriod)
	output.Printf("  RSI period:        %d  (oversold %.0f, overbought %.0f)\n",
		s.RSIPeriod, s.RSIOversold, s.RSIOverbought)
	output.Printf("  ATR period:        %d\n", s.ATRPeriod)
	output.Printf("  VWAP period:       %d\n", s.VWAPPeriod)
	output.Printf("  volume surge:      %.2fx\n", s.VolumeSurgeFactor)
	output.Printf("  ATR vol factor:    %.3f\n", s.ATRVolatilityFactor)

	output.Bold("Risk")
	output.Printf("  cost per trade:    %.0f\n", r.CostPerTrade)
	output.Printf("  lot size:          %d\n", r.LotSize)
	output.Printf("  daily loss cap:    %.1f%%\n", r.DailyLossCapPct*100)
	output.Printf("  base risk:         %.1f%%\n", r.BaseRiskFraction*100)
	output.Printf("  trail start/dist:  %.1f / %.1f ATR\n", r.TrailStartATR, r.TrailDistanceATR)
	output.Printf("  take profit:       %.1f ATR\n", r.TakeProfitATR)
	return nil
}
