package binanceadapter

import (
	"github.com/shopspring/decimal"
)

// filters holds the tick/step sizes a market's order book and order sizing
// must be quantized to, as reported by the exchange's symbol filters.
type filters struct {
	tickSize decimal.Decimal
	stepSize decimal.Decimal
}

// quantizeDown rounds value down to the nearest multiple of step. A
// zero/undefined step leaves value untouched, since Binance symbols always
// carry a filter in practice but a freshly-seen symbol may not be cached
// yet.
func quantizeDown(value, step decimal.Decimal) decimal.Decimal {
	if !step.IsPositive() {
		return value
	}
	return value.Div(step).Floor().Mul(step)
}
