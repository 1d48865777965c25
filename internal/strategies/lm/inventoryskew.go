package lm

import (
	"github.com/shopspring/decimal"
)

// SkewRatios is the pair of bid/ask size multipliers the inventory-skew
// calculator returns, each clamped to [0, 2] (§4.3, §8 property 2).
type SkewRatios struct {
	BidRatio decimal.Decimal
	AskRatio decimal.Decimal
}

// CalculateInventorySkew maps current holdings and a target base fraction
// to a pair of size multipliers. Internal math is done in float64 per §9's
// explicit allowance for the skew calculator; inputs and the returned
// ratios are decimals.
//
// sellBudget is base units available to sell, buyBudget is quote units
// available to buy, mid is the market's mid price, targetBasePct is the
// target base fraction in (0,1), and rangeSize is the base-unit width of
// the full skew range (total_order_size * inventory_range_multiplier).
func CalculateInventorySkew(sellBudget, buyBudget, mid, targetBasePct, rangeSize decimal.Decimal) SkewRatios {
	baseValue, _ := sellBudget.Mul(mid).Float64()
	quoteValue, _ := buyBudget.Float64()
	target, _ := targetBasePct.Float64()
	rangeValue, _ := rangeSize.Mul(mid).Float64()

	total := baseValue + quoteValue
	if total <= 0 || rangeValue <= 0 {
		return SkewRatios{BidRatio: decimal.NewFromInt(1), AskRatio: decimal.NewFromInt(1)}
	}

	r := baseValue / total
	d := r - target

	var bid, ask float64
	if d >= 0 {
		// Too much base: skew down on bids, up on asks.
		delta := min1(d * total / rangeValue)
		bid = 1 - delta
		ask = 1 + delta
	} else {
		delta := min1(-d * total / rangeValue)
		bid = 1 + delta
		ask = 1 - delta
	}

	return SkewRatios{
		BidRatio: clampDecimal(bid),
		AskRatio: clampDecimal(ask),
	}
}

func min1(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < 0 {
		return 0
	}
	return x
}

func clampDecimal(x float64) decimal.Decimal {
	if x < 0 {
		x = 0
	}
	if x > 2 {
		x = 2
	}
	return decimal.NewFromFloat(x)
}
