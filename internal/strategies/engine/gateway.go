package engine

import (
	"context"

	"github.com/shopspring/decimal"
)

// Gateway abstracts a spot or perpetual venue down to the operations the
// strategy cores consume (§4.1). Concrete venues (see internal/gateway)
// implement this; the core never depends on a specific SDK.
//
// Gateway is treated as thread-safe by contract: the core never shares any
// mutable structure across strategy instances, but a single Gateway value
// may be driven from a single tick goroutine without external locking.
type Gateway interface {
	// Ready reports whether the venue connection is healthy and all
	// restored orders from a previous session have been cancelled.
	Ready(ctx context.Context) (bool, error)

	// LiveOrders returns all currently resting orders across every market
	// this gateway instance trades.
	LiveOrders(ctx context.Context) ([]LiveOrder, error)

	// Price returns the best ask if isBuy, else the best bid. May return
	// decimal.Decimal{} with ok=false if the book has no valid top of book.
	Price(ctx context.Context, market Market, isBuy bool) (price decimal.Decimal, ok bool, err error)

	// MidPrice returns the arithmetic mean of best bid and best ask. ok is
	// false when the book is empty or has a NaN side.
	MidPrice(ctx context.Context, market Market) (mid decimal.Decimal, ok bool, err error)

	// AllBalances returns every known token's available balance.
	AllBalances(ctx context.Context) (map[string]decimal.Decimal, error)

	// AvailableBalance returns a single token's available balance.
	AvailableBalance(ctx context.Context, token string) (decimal.Decimal, error)

	// EstimateFee returns the fee percent for a hypothetical order of the
	// given side and order type on market.
	EstimateFee(ctx context.Context, market Market, side Side, orderType OrderType) (Fee, error)

	// QuantizePrice rounds price to the market's tick size.
	QuantizePrice(market Market, price decimal.Decimal) decimal.Decimal

	// QuantizeAmount rounds amount to the market's lot size.
	QuantizeAmount(market Market, amount decimal.Decimal) decimal.Decimal

	// MakerOrderType returns the order type this venue uses to express a
	// non-crossing maker order (LIMIT or LIMIT_MAKER).
	MakerOrderType() OrderType

	// Place submits an order and returns its client order id.
	Place(ctx context.Context, market Market, side Side, size, price decimal.Decimal, orderType OrderType) (clientOrderID string, err error)

	// Cancel cancels a resting order by client order id.
	Cancel(ctx context.Context, market Market, clientOrderID string) error
}

// PerpetualGateway extends Gateway with the operations only perpetual
// venues support. The FRA strategy core depends on this narrower surface
// in addition to Gateway.
type PerpetualGateway interface {
	Gateway

	// SetPositionMode configures hedge vs. one-way position mode.
	SetPositionMode(ctx context.Context, hedgeMode bool) error

	// SetLeverage sets the leverage used for new positions on a market.
	SetLeverage(ctx context.Context, market Market, leverage int) error

	// GetFundingInfo returns the current funding rate snapshot.
	GetFundingInfo(ctx context.Context, market Market) (FundingInfo, error)
}
