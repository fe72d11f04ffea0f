// Package config provides configuration management for the trading application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"

	"crude-trader/internal/analysis/indicators"
	apperrors "crude-trader/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	Strategy StrategyParams `mapstructure:"strategy" toml:"strategy" json:"strategy"`
	Risk     RiskParams     `mapstructure:"risk" toml:"risk" json:"risk"`
	UI       UIConfig       `mapstructure:"ui" toml:"ui" json:"ui"`
}

// StrategyParams holds the signal-generation parameters. The key set is
// closed: unknown keys in the config file are rejected at load time so a
// typo cannot silently fall back to a default.
type StrategyParams struct {
	FastEMAPeriod       int     `mapstructure:"fast_ema_period" toml:"fast_ema_period" json:"fast_ema_period"`
	SlowEMAPeriod       int     `mapstructure:"slow_ema_period" toml:"slow_ema_period" json:"slow_ema_period"`
	RSIPeriod           int     `mapstructure:"rsi_period" toml:"rsi_period" json:"rsi_period"`
	ATRPeriod           int     `mapstructure:"atr_period" toml:"atr_period" json:"atr_period"`
	VWAPPeriod          int     `mapstructure:"vwap_period" toml:"vwap_period" json:"vwap_period"`
	RSIOversold         float64 `mapstructure:"rsi_oversold" toml:"rsi_oversold" json:"rsi_oversold"`
	RSIOverbought       float64 `mapstructure:"rsi_overbought" toml:"rsi_overbought" json:"rsi_overbought"`
	VolumeSurgeFactor   float64 `mapstructure:"volume_surge_factor" toml:"volume_surge_factor" json:"volume_surge_factor"`
	ATRVolatilityFactor float64 `mapstructure:"atr_volatility_factor" toml:"atr_volatility_factor" json:"atr_volatility_factor"`
	UseFastEMA          bool    `mapstructure:"use_fast_ema" toml:"use_fast_ema" json:"use_fast_ema"`
	UseSlowEMA          bool    `mapstructure:"use_slow_ema" toml:"use_slow_ema" json:"use_slow_ema"`
	UseRSI              bool    `mapstructure:"use_rsi" toml:"use_rsi" json:"use_rsi"`
	UseATR              bool    `mapstructure:"use_atr" toml:"use_atr" json:"use_atr"`
	UseVWAP             bool    `mapstructure:"use_vwap" toml:"use_vwap" json:"use_vwap"`
}

// RiskParams holds risk management configuration.
type RiskParams struct {
	CostPerTrade          float64 `mapstructure:"cost_per_trade" toml:"cost_per_trade" json:"cost_per_trade"`
	LotSize               int     `mapstructure:"lot_size" toml:"lot_size" json:"lot_size"`
	DailyLossCapPct       float64 `mapstructure:"daily_loss_cap_pct" toml:"daily_loss_cap_pct" json:"daily_loss_cap_pct"`
	TrailStartATR         float64 `mapstructure:"trail_start_atr" toml:"trail_start_atr" json:"trail_start_atr"`
	TrailDistanceATR      float64 `mapstructure:"trail_distance_atr" toml:"trail_distance_atr" json:"trail_distance_atr"`
	TakeProfitATR         float64 `mapstructure:"take_profit_atr" toml:"take_profit_atr" json:"take_profit_atr"`
	BaseRiskFraction      float64 `mapstructure:"base_risk_fraction" toml:"base_risk_fraction" json:"base_risk_fraction"`
	MinLots               int     `mapstructure:"min_lots" toml:"min_lots" json:"min_lots"`
	VolatilityThreshold   float64 `mapstructure:"volatility_threshold" toml:"volatility_threshold" json:"volatility_threshold"`
	PricingRiskFreeRate   float64 `mapstructure:"pricing_risk_free_rate" toml:"pricing_risk_free_rate" json:"pricing_risk_free_rate"`
	AnalyticsRiskFreeRate float64 `mapstructure:"analytics_risk_free_rate" toml:"analytics_risk_free_rate" json:"analytics_risk_free_rate"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled" toml:"color_enabled" json:"color_enabled"`
	DateFormat   string `mapstructure:"date_format" toml:"date_format" json:"date_format"`
	TimeFormat   string `mapstructure:"time_format" toml:"time_format" json:"time_format"`
}

// DefaultStrategyParams returns the tuned replay parameters.
func DefaultStrategyParams() StrategyParams {
	return StrategyParams{
		FastEMAPeriod:       5,
		SlowEMAPeriod:       13,
		RSIPeriod:           8,
		ATRPeriod:           10,
		VWAPPeriod:          15,
		RSIOversold:         35,
		RSIOverbought:       65,
		VolumeSurgeFactor:   1.1,
		ATRVolatilityFactor: 0.01,
		UseFastEMA:          true,
		UseSlowEMA:          true,
		UseRSI:              true,
		UseATR:              true,
		UseVWAP:             true,
	}
}

// DefaultRiskParams returns MCX crude-oil risk defaults.
func DefaultRiskParams() RiskParams {
	return RiskParams{
		CostPerTrade:          75,
		LotSize:               100,
		DailyLossCapPct:       -0.03,
		TrailStartATR:         1.0,
		TrailDistanceATR:      0.5,
		TakeProfitATR:         2.0,
		BaseRiskFraction:      0.02,
		MinLots:               1,
		VolatilityThreshold:   0.02,
		PricingRiskFreeRate:   0.05,
		AnalyticsRiskFreeRate: 0.02,
	}
}

// Default returns a fully populated default configuration.
func Default() *Config {
	return &Config{
		Strategy: DefaultStrategyParams(),
		Risk:     DefaultRiskParams(),
		UI: UIConfig{
			ColorEnabled: true,
			DateFormat:   "02-Jan-2006",
			TimeFormat:   "15:04:05",
		},
	}
}

// IndicatorConfig maps the strategy parameters onto the indicator
// pipeline. Volume and OI moving averages use the fixed 20-bar window
// the rule strategy gates on.
func (p StrategyParams) IndicatorConfig() indicators.Config {
	return indicators.Config{
		FastEMA:      p.FastEMAPeriod,
		SlowEMA:      p.SlowEMAPeriod,
		RSI:          p.RSIPeriod,
		ATR:          p.ATRPeriod,
		VWAP:         p.VWAPPeriod,
		VolumeMA:     20,
		OIMA:         20,
		VolThreshold: 0.02,
		Workers:      4,
	}
}

// recognizedKeys is the closed key set accepted in config files.
var recognizedKeys = map[string]bool{
	"strategy.fast_ema_period":       true,
	"strategy.slow_ema_period":       true,
	"strategy.rsi_period":            true,
	"strategy.atr_period":            true,
	"strategy.vwap_period":           true,
	"strategy.rsi_oversold":          true,
	"strategy.rsi_overbought":        true,
	"strategy.volume_surge_factor":   true,
	"strategy.atr_volatility_factor": true,
	"strategy.use_fast_ema":          true,
	"strategy.use_slow_ema":          true,
	"strategy.use_rsi":               true,
	"strategy.use_atr":               true,
	"strategy.use_vwap":              true,
	"risk.cost_per_trade":            true,
	"risk.lot_size":                  true,
	"risk.daily_loss_cap_pct":        true,
	"risk.trail_start_atr":           true,
	"risk.trail_distance_atr":        true,
	"risk.take_profit_atr":           true,
	"risk.base_risk_fraction":        true,
	"risk.min_lots":                  true,
	"risk.volatility_threshold":      true,
	"risk.pricing_risk_free_rate":    true,
	"risk.analytics_risk_free_rate":  true,
	"ui.color_enabled":               true,
	"ui.date_format":                 true,
	"ui.time_format":                 true,
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/crude-trader"
	}
	return filepath.Join(home, ".config", "crude-trader")
}

// ConfigPath returns the path of the main config file under configDir.
func ConfigPath(configDir string) string {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	return filepath.Join(configDir, "config.toml")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := Default()

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir string, target *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateConfig(configDir)
		}
		return err
	}

	for _, key := range v.AllKeys() {
		if !recognizedKeys[key] {
			return apperrors.NewConfigError(key, "unrecognized key")
		}
	}

	return v.Unmarshal(target)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CRUDE_TRADER_COST_PER_TRADE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Risk.CostPerTrade = f
		}
	}
	if v := os.Getenv("CRUDE_TRADER_LOT_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Risk.LotSize = n
		}
	}
	if v := os.Getenv("CRUDE_TRADER_COLOR"); v != "" {
		cfg.UI.ColorEnabled = v == "1" || v == "true"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for key, period := range map[string]int{
		"strategy.fast_ema_period": c.Strategy.FastEMAPeriod,
		"strategy.slow_ema_period": c.Strategy.SlowEMAPeriod,
		"strategy.rsi_period":      c.Strategy.RSIPeriod,
		"strategy.atr_period":      c.Strategy.ATRPeriod,
		"strategy.vwap_period":     c.Strategy.VWAPPeriod,
	} {
		if period <= 0 {
			return apperrors.NewConfigError(key, "must be a positive period")
		}
	}
	if c.Strategy.FastEMAPeriod >= c.Strategy.SlowEMAPeriod {
		return apperrors.NewConfigError("strategy.fast_ema_period", "must be shorter than slow_ema_period")
	}
	if c.Strategy.RSIOversold < 0 || c.Strategy.RSIOversold > 100 {
		return apperrors.NewConfigError("strategy.rsi_oversold", "must be between 0 and 100")
	}
	if c.Strategy.RSIOverbought < 0 || c.Strategy.RSIOverbought > 100 {
		return apperrors.NewConfigError("strategy.rsi_overbought", "must be between 0 and 100")
	}
	if c.Strategy.RSIOversold >= c.Strategy.RSIOverbought {
		return apperrors.NewConfigError("strategy.rsi_oversold", "must be below rsi_overbought")
	}
	if c.Strategy.VolumeSurgeFactor <= 0 {
		return apperrors.NewConfigError("strategy.volume_surge_factor", "must be positive")
	}
	if c.Strategy.ATRVolatilityFactor < 0 {
		return apperrors.NewConfigError("strategy.atr_volatility_factor", "must be non-negative")
	}

	if c.Risk.CostPerTrade < 0 {
		return apperrors.NewConfigError("risk.cost_per_trade", "must be non-negative")
	}
	if c.Risk.LotSize <= 0 {
		return apperrors.NewConfigError("risk.lot_size", "must be positive")
	}
	if c.Risk.DailyLossCapPct >= 0 {
		return apperrors.NewConfigError("risk.daily_loss_cap_pct", "must be negative")
	}
	if c.Risk.TrailStartATR <= 0 || c.Risk.TrailDistanceATR <= 0 {
		return apperrors.NewConfigError("risk.trail_start_atr", "trail parameters must be positive")
	}
	if c.Risk.TakeProfitATR <= 0 {
		return apperrors.NewConfigError("risk.take_profit_atr", "must be positive")
	}
	if c.Risk.BaseRiskFraction <= 0 || c.Risk.BaseRiskFraction > 1 {
		return apperrors.NewConfigError("risk.base_risk_fraction", "must be within (0, 1]")
	}
	if c.Risk.MinLots < 1 {
		return apperrors.NewConfigError("risk.min_lots", "must be at least 1")
	}
	if c.Risk.VolatilityThreshold <= 0 {
		return apperrors.NewConfigError("risk.volatility_threshold", "must be positive")
	}

	return nil
}
