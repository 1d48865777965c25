package fra

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Config holds every FRA strategy option from §6. Percent-denominated
// fields are stored as fractions (0.01 = 1%), consistent with the LM
// package's convention.
type Config struct {
	Leverage                           int
	MinFundingRateProfitability        decimal.Decimal
	Connectors                         []string
	Tokens                             []string
	PositionSizeQuote                  decimal.Decimal
	ProfitabilityToTakeProfit          decimal.Decimal
	FundingRateDiffStopLoss            decimal.Decimal
	TradeProfitabilityConditionToEnter bool

	// FundingIntervalSecs maps a connector name to its funding-payment
	// interval in seconds (e.g. 28800 for an 8-hour venue). An entry here
	// overrides the interval the connector's gateway reports; connectors
	// absent from this map use the gateway's interval, or 8 hours when the
	// gateway reports none.
	FundingIntervalSecs map[string]int64

	// QuoteForConnector maps a connector name to the quote asset its
	// perpetual markets are denominated in (e.g. "USD" for Hyperliquid,
	// "USDT" for Binance). Connectors absent from this map default to
	// "USDT".
	QuoteForConnector map[string]string
}

// DefaultConfig returns the §6 documented defaults for every option that
// has one. Connectors and Tokens have no default and must be supplied.
func DefaultConfig() Config {
	return Config{
		Leverage:                    20,
		MinFundingRateProfitability: decimal.NewFromFloat(0.001),
		PositionSizeQuote:           decimal.NewFromInt(100),
		ProfitabilityToTakeProfit:   decimal.NewFromFloat(0.01),
		FundingRateDiffStopLoss:     decimal.NewFromFloat(-0.001),
		FundingIntervalSecs:         map[string]int64{},
		QuoteForConnector:           map[string]string{},
	}
}

// Validate enforces the range and defaulting rules of §6.
func (c Config) Validate() error {
	if c.Leverage <= 0 {
		return fmt.Errorf("fra: leverage must be > 0")
	}
	if len(c.Connectors) < 2 {
		return fmt.Errorf("fra: at least two connectors are required")
	}
	if len(c.Tokens) == 0 {
		return fmt.Errorf("fra: at least one token is required")
	}
	if !c.PositionSizeQuote.IsPositive() {
		return fmt.Errorf("fra: position_size_quote must be > 0")
	}
	if c.MinFundingRateProfitability.IsNegative() {
		return fmt.Errorf("fra: min_funding_rate_profitability must be >= 0")
	}
	if !c.ProfitabilityToTakeProfit.IsPositive() {
		return fmt.Errorf("fra: profitability_to_take_profit must be > 0")
	}

	seen := make(map[string]struct{}, len(c.Connectors))
	for _, conn := range c.Connectors {
		if _, dup := seen[conn]; dup {
			return fmt.Errorf("fra: duplicate connector %q", conn)
		}
		seen[conn] = struct{}{}
	}

	return nil
}

// TradingPair derives the market identifier for token on connector, using
// QuoteForConnector if present, else "USDT".
func (c Config) TradingPair(token, connector string) string {
	quote, ok := c.QuoteForConnector[connector]
	if !ok {
		quote = "USDT"
	}
	return token + "-" + quote
}

// IntervalFor returns connector's funding-payment interval, defaulting to
// 8 hours when unspecified.
func (c Config) IntervalFor(connector string) int64 {
	if v, ok := c.FundingIntervalSecs[connector]; ok {
		return v
	}
	return 60 * 60 * 8
}
