package lm

import (
	"github.com/shopspring/decimal"
)

// StaticSpreadSource yields a configured (bid, ask) spread pair, widened by
// volatility and capped by MaxSpread (§4.5 Static).
type StaticSpreadSource struct {
	Spread                       decimal.Decimal
	MaxSpread                    decimal.Decimal // <= 0 disables the cap
	VolatilityToSpreadMultiplier decimal.Decimal
}

// Compute returns the effective (bid_spread, ask_spread) and whether
// volatility widened the configured spread beyond its static value.
func (s StaticSpreadSource) Compute(vol Volatility) (bid, ask decimal.Decimal, widened bool) {
	spread := s.Spread

	if vol.Defined {
		if adjusted := vol.Value.Mul(s.VolatilityToSpreadMultiplier); adjusted.GreaterThan(spread) {
			spread = adjusted
		}
	}

	if s.MaxSpread.IsPositive() && spread.GreaterThan(s.MaxSpread) {
		spread = s.MaxSpread
	}

	widened = spread.GreaterThan(s.Spread)
	return spread, spread, widened
}
