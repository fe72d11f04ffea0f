package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Crude Trader Configuration

[strategy]
# Indicator periods (5-minute bars)
fast_ema_period = 5
slow_ema_period = 13
rsi_period = 8
atr_period = 10
vwap_period = 15
# RSI thresholds
rsi_oversold = 35.0
rsi_overbought = 65.0
# Entry gates
volume_surge_factor = 1.1
atr_volatility_factor = 0.01
# Indicator toggles
use_fast_ema = true
use_slow_ema = true
use_rsi = true
use_atr = true
use_vwap = true

[risk]
# Per-trade transaction cost in INR
cost_per_trade = 75.0
# Units per contract
lot_size = 100
# Halt new entries when intraday equity falls this far below day start
daily_loss_cap_pct = -0.03
# Trailing stop: arm after +1 ATR, trail 0.5 ATR behind
trail_start_atr = 1.0
trail_distance_atr = 0.5
# Hard take-profit at +2 ATR
take_profit_atr = 2.0
# Fraction of equity risked per position
base_risk_fraction = 0.02
min_lots = 1
# ATR/close ratio above which sizing is reduced
volatility_threshold = 0.02
# Risk-free rates: pricing uses 5%, analytics 2%
pricing_risk_free_rate = 0.05
analytics_risk_free_rate = 0.02

[ui]
# Enable colored output
color_enabled = true
# Date format
date_format = "02-Jan-2006"
# Time format
time_format = "15:04:05"
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return fmt.Errorf("config file not found, created template at %s", path)
}
