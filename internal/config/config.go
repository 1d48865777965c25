// Package config loads the LM and FRA engines' configuration from a YAML
// file with environment-variable overrides, following the same viper
// pattern as the sibling Polymarket bot's internal/config package.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mExOms/tradecore/internal/strategies/engine"
	"github.com/mExOms/tradecore/internal/strategies/fra"
	"github.com/mExOms/tradecore/internal/strategies/lm"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// LMFileConfig is the YAML/env-shaped mirror of lm.Config: durations and
// percentages arrive as plain numbers from the file and are converted to
// their strict types in ToStrategyConfig.
type LMFileConfig struct {
	Exchange                     string   `mapstructure:"exchange"`
	Markets                      []string `mapstructure:"markets"`
	Token                        string   `mapstructure:"token"`
	OrderAmount                  float64  `mapstructure:"order_amount"`
	SpreadPct                    float64  `mapstructure:"spread"`
	DynamicSpread                bool     `mapstructure:"dynamic_spread"`
	InventorySkewEnabled         bool     `mapstructure:"inventory_skew_enabled"`
	TargetBasePct                float64  `mapstructure:"target_base_pct"`
	OrderRefreshTimeSecs         int      `mapstructure:"order_refresh_time"`
	OrderRefreshTolerancePct     float64  `mapstructure:"order_refresh_tolerance_pct"`
	InventoryRangeMultiplier     float64  `mapstructure:"inventory_range_multiplier"`
	VolatilityInterval           int      `mapstructure:"volatility_interval"`
	AvgVolatilityPeriod          int      `mapstructure:"avg_volatility_period"`
	VolatilityToSpreadMultiplier float64  `mapstructure:"volatility_to_spread_multiplier"`
	MaxSpreadPct                 float64  `mapstructure:"max_spread"`
	MaxOrderAgeSecs               int     `mapstructure:"max_order_age"`
}

// ToStrategyConfig converts the loaded file shape into lm.Config, dividing
// every percent-denominated field by 100 to arrive at the fraction form
// the strategy package works with internally.
func (f LMFileConfig) ToStrategyConfig() lm.Config {
	cfg := lm.DefaultConfig()
	cfg.Exchange = f.Exchange
	cfg.Token = f.Token
	cfg.OrderAmount = decimal.NewFromFloat(f.OrderAmount)
	cfg.Spread = decimal.NewFromFloat(f.SpreadPct / 100)
	cfg.DynamicSpread = f.DynamicSpread
	cfg.InventorySkewEnabled = f.InventorySkewEnabled
	cfg.TargetBasePct = decimal.NewFromFloat(f.TargetBasePct / 100)

	cfg.Markets = make([]engine.Market, len(f.Markets))
	for i, m := range f.Markets {
		cfg.Markets[i] = engine.Market(m)
	}

	if f.OrderRefreshTimeSecs > 0 {
		cfg.OrderRefreshTime = time.Duration(f.OrderRefreshTimeSecs) * time.Second
	}
	if f.OrderRefreshTolerancePct != 0 {
		cfg.OrderRefreshTolerancePct = decimal.NewFromFloat(f.OrderRefreshTolerancePct / 100)
	}
	if f.InventoryRangeMultiplier > 0 {
		cfg.InventoryRangeMultiplier = decimal.NewFromFloat(f.InventoryRangeMultiplier)
	}
	if f.VolatilityInterval > 0 {
		cfg.VolatilityInterval = f.VolatilityInterval
	}
	if f.AvgVolatilityPeriod > 0 {
		cfg.AvgVolatilityPeriod = f.AvgVolatilityPeriod
	}
	if f.VolatilityToSpreadMultiplier > 0 {
		cfg.VolatilityToSpreadMultiplier = decimal.NewFromFloat(f.VolatilityToSpreadMultiplier)
	}
	if f.MaxSpreadPct != 0 {
		cfg.MaxSpread = decimal.NewFromFloat(f.MaxSpreadPct / 100)
	}
	if f.MaxOrderAgeSecs > 0 {
		cfg.MaxOrderAge = time.Duration(f.MaxOrderAgeSecs) * time.Second
	}

	return cfg
}

// FRAFileConfig is the YAML/env-shaped mirror of fra.Config.
type FRAFileConfig struct {
	Leverage                           int      `mapstructure:"leverage"`
	MinFundingRateProfitability        float64  `mapstructure:"min_funding_rate_profitability"`
	Connectors                         []string `mapstructure:"connectors"`
	Tokens                             []string `mapstructure:"tokens"`
	PositionSizeQuote                  float64  `mapstructure:"position_size_quote"`
	ProfitabilityToTakeProfit          float64  `mapstructure:"profitability_to_take_profit"`
	FundingRateDiffStopLoss            float64  `mapstructure:"funding_rate_diff_stop_loss"`
	TradeProfitabilityConditionToEnter bool     `mapstructure:"trade_profitability_condition_to_enter"`
}

// ToStrategyConfig converts the loaded file shape into fra.Config.
func (f FRAFileConfig) ToStrategyConfig() fra.Config {
	cfg := fra.DefaultConfig()
	if f.Leverage > 0 {
		cfg.Leverage = f.Leverage
	}
	if f.MinFundingRateProfitability != 0 {
		cfg.MinFundingRateProfitability = decimal.NewFromFloat(f.MinFundingRateProfitability)
	}
	cfg.Connectors = f.Connectors
	cfg.Tokens = f.Tokens
	if f.PositionSizeQuote > 0 {
		cfg.PositionSizeQuote = decimal.NewFromFloat(f.PositionSizeQuote)
	}
	if f.ProfitabilityToTakeProfit != 0 {
		cfg.ProfitabilityToTakeProfit = decimal.NewFromFloat(f.ProfitabilityToTakeProfit)
	}
	if f.FundingRateDiffStopLoss != 0 {
		cfg.FundingRateDiffStopLoss = decimal.NewFromFloat(f.FundingRateDiffStopLoss)
	}
	cfg.TradeProfitabilityConditionToEnter = f.TradeProfitabilityConditionToEnter
	return cfg
}

// LoadLM reads an LM engine config from path, applying LM_-prefixed env
// overrides, and returns the fully validated strategy config.
func LoadLM(path string) (lm.Config, error) {
	v := newViper(path, "LM")
	v.SetDefault("inventory_skew_enabled", true)

	if err := v.ReadInConfig(); err != nil {
		return lm.Config{}, fmt.Errorf("config: read lm config: %w", err)
	}

	var file LMFileConfig
	if err := v.Unmarshal(&file); err != nil {
		return lm.Config{}, fmt.Errorf("config: unmarshal lm config: %w", err)
	}

	cfg := file.ToStrategyConfig()
	if err := cfg.Validate(); err != nil {
		return lm.Config{}, fmt.Errorf("config: invalid lm config: %w", err)
	}
	return cfg, nil
}

// LoadFRA reads an FRA engine config from path, applying FRA_-prefixed env
// overrides, and returns the fully validated strategy config.
func LoadFRA(path string) (fra.Config, error) {
	v := newViper(path, "FRA")

	if err := v.ReadInConfig(); err != nil {
		return fra.Config{}, fmt.Errorf("config: read fra config: %w", err)
	}

	var file FRAFileConfig
	if err := v.Unmarshal(&file); err != nil {
		return fra.Config{}, fmt.Errorf("config: unmarshal fra config: %w", err)
	}

	cfg := file.ToStrategyConfig()
	if err := cfg.Validate(); err != nil {
		return fra.Config{}, fmt.Errorf("config: invalid fra config: %w", err)
	}
	return cfg, nil
}

func newViper(path, envPrefix string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}
