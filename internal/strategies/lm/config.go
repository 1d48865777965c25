package lm

import (
	"fmt"
	"strings"
	"time"

	"github.com/mExOms/tradecore/internal/strategies/engine"
	"github.com/shopspring/decimal"
)

// Config holds every LM strategy option from §6. Numeric fields that the
// external configuration documents as "percent" (spread,
// order_refresh_tolerance_pct, target_base_pct) are stored here already as
// fractions (0.01 = 1%) — the conversion happens once, in
// internal/config's LMFileConfig.ToStrategyConfig, so every downstream
// formula in this package works directly off fractions.
type Config struct {
	Exchange                     string
	Markets                      []engine.Market
	Token                        string
	OrderAmount                  decimal.Decimal
	Spread                       decimal.Decimal
	DynamicSpread                bool
	InventorySkewEnabled         bool
	TargetBasePct                decimal.Decimal
	OrderRefreshTime             time.Duration
	OrderRefreshTolerancePct     decimal.Decimal
	InventoryRangeMultiplier     decimal.Decimal
	VolatilityInterval           int
	AvgVolatilityPeriod          int
	VolatilityToSpreadMultiplier decimal.Decimal
	MaxSpread                    decimal.Decimal
	MaxOrderAge                  time.Duration
}

// DefaultConfig returns the §6 documented defaults for every option that
// has one. Exchange, Markets, Token, OrderAmount and Spread have no
// default and must be supplied by the caller.
func DefaultConfig() Config {
	return Config{
		DynamicSpread:                false,
		InventorySkewEnabled:         true,
		OrderRefreshTime:             10 * time.Second,
		OrderRefreshTolerancePct:     decimal.NewFromFloat(0.002),
		InventoryRangeMultiplier:     decimal.NewFromInt(1),
		VolatilityInterval:           300,
		AvgVolatilityPeriod:          10,
		VolatilityToSpreadMultiplier: decimal.NewFromInt(1),
		MaxSpread:                    decimal.NewFromInt(-1),
		MaxOrderAge:                  time.Hour,
	}
}

// Validate enforces the range and defaulting rules of §6, rejecting
// duplicate markets and a token absent from every market.
func (c Config) Validate() error {
	if c.Exchange == "" {
		return fmt.Errorf("lm: exchange is required")
	}
	if len(c.Markets) == 0 {
		return fmt.Errorf("lm: at least one market is required")
	}

	seen := make(map[engine.Market]struct{}, len(c.Markets))
	tokenFound := false
	for _, m := range c.Markets {
		if _, dup := seen[m]; dup {
			return fmt.Errorf("lm: duplicate market %q", m)
		}
		seen[m] = struct{}{}

		base, quote := m.Base(), m.Quote()
		if base == "" || quote == "" || strings.Contains(base, "-") {
			return fmt.Errorf("lm: malformed market %q, want BASE-QUOTE", m)
		}
		if c.Token == base || c.Token == quote {
			tokenFound = true
		}
	}
	if !tokenFound {
		return fmt.Errorf("lm: token %q does not appear in any configured market", c.Token)
	}

	if !c.OrderAmount.IsPositive() {
		return fmt.Errorf("lm: order_amount must be > 0")
	}
	if c.Spread.LessThanOrEqual(decimal.Zero) || c.Spread.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("lm: spread must be in (0,1) as a fraction")
	}
	if c.OrderRefreshTolerancePct.LessThan(decimal.NewFromFloat(-0.1)) || c.OrderRefreshTolerancePct.GreaterThan(decimal.NewFromFloat(0.1)) {
		return fmt.Errorf("lm: order_refresh_tolerance_pct must be in [-10,10] percent")
	}
	if c.InventoryRangeMultiplier.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("lm: inventory_range_multiplier must be > 0")
	}
	if c.VolatilityInterval <= 1 {
		return fmt.Errorf("lm: volatility_interval must be > 1")
	}
	if c.AvgVolatilityPeriod <= 1 {
		return fmt.Errorf("lm: avg_volatility_period must be > 1")
	}
	if c.VolatilityToSpreadMultiplier.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("lm: volatility_to_spread_multiplier must be > 0")
	}
	if c.MaxOrderAge <= 0 {
		return fmt.Errorf("lm: max_order_age must be > 0")
	}
	if c.InventorySkewEnabled {
		if c.TargetBasePct.LessThanOrEqual(decimal.Zero) || c.TargetBasePct.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return fmt.Errorf("lm: target_base_pct must be in (0,1) as a fraction")
		}
	}

	return nil
}
