// Package engine defines the shared vocabulary consumed by the LM and FRA
// strategy cores: the market gateway contract, price/size primitives, and
// the proposal and live-order types that both strategies work with.
package engine

import (
	"time"

	"github.com/mExOms/tradecore/pkg/types"
	"github.com/shopspring/decimal"
)

// Market is a hyphenated BASE-QUOTE identifier, e.g. "ETH-USDT".
type Market string

// Base returns the left-hand token of the market identifier.
func (m Market) Base() string {
	base, _ := splitMarket(string(m))
	return base
}

// Quote returns the right-hand token of the market identifier.
func (m Market) Quote() string {
	_, quote := splitMarket(string(m))
	return quote
}

func splitMarket(m string) (base, quote string) {
	for i := 0; i < len(m); i++ {
		if m[i] == '-' {
			return m[:i], m[i+1:]
		}
	}
	return m, ""
}

// PriceSize is a (price, size) pair. A zero Size signals "do not place".
type PriceSize struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// IsZero reports whether the size is non-positive, meaning the leg carries
// no order to place.
func (p PriceSize) IsZero() bool {
	return !p.Size.IsPositive()
}

// Proposal is a candidate buy/sell pair for a single market, produced by
// the LM strategy core's tick and subsequently adjusted by inventory skew
// and the budget constraint before dispatch.
type Proposal struct {
	Market Market
	Buy    PriceSize
	Sell   PriceSize
}

// Base returns the proposal's base token.
func (p Proposal) Base() string { return p.Market.Base() }

// Quote returns the proposal's quote token.
func (p Proposal) Quote() string { return p.Market.Quote() }

// LiveOrder describes a resting order as reported by the gateway.
type LiveOrder struct {
	Market        Market
	ClientOrderID string
	Price         decimal.Decimal
	Quantity      decimal.Decimal
	IsBuy         bool
	CreationTime  time.Time
}

// Age reports how long the order has been resting, relative to now.
func (o LiveOrder) Age(now time.Time) time.Duration {
	return now.Sub(o.CreationTime)
}

// Fee describes the fee percent applicable to a hypothetical order.
type Fee struct {
	Percent decimal.Decimal
}

// FundingInfo is the current funding-rate snapshot for a (venue, market) pair.
type FundingInfo struct {
	Rate          decimal.Decimal
	NextFunding   time.Time
	IntervalSecs  int64
}

// OrderType mirrors the venue-neutral order types the core can request.
// Reuses the teacher's string-const enum convention from pkg/types rather
// than minting a parallel typed enum.
type OrderType = types.OrderType

const (
	OrderTypeMarket     = types.OrderTypeMarket
	OrderTypeLimit      = types.OrderTypeLimit
	OrderTypeLimitMaker = types.OrderTypeLimitMaker
)

// Side is BUY or SELL, reusing pkg/types' string-const convention.
type Side = types.OrderSide

const (
	SideBuy  = types.OrderSideBuy
	SideSell = types.OrderSideSell
)
