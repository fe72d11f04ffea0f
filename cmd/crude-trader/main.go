package main

import (
	"fmt"
	"os"

	"crude-trader/internal/cli"
	"crude-trader/internal/config"
	"crude-trader/internal/logging"
)

func main() {
	// The config flag has to be known before cobra parses anything,
	// since the loaded config feeds the command tree.
	configDir := ""
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			configDir = os.Args[i+1]
		}
	}

	logger := logging.NewLogger()

	cfg, err := config.Load(configDir)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rootCmd := cli.NewRootCmd(cfg, logger)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
