package fra

import (
	"github.com/mExOms/tradecore/internal/strategies/engine"
	"github.com/shopspring/decimal"
)

// FundingProfitabilityIntervalSeconds is the horizon the funding-rate difference
// is projected over when comparing it against MinFundingRateProfitability
// and FundingRateDiffStopLoss, matching the original bounty script's fixed
// 24-hour profitability window.
const FundingProfitabilityIntervalSeconds = 60 * 60 * 24

// NormalizedRatePerSecond converts a connector's raw funding rate (paid
// once per its own funding interval) into a per-second rate, so rates from
// venues with different funding intervals (e.g. Binance's 8h vs.
// Hyperliquid's 1h) become directly comparable.
func NormalizedRatePerSecond(info engine.FundingInfo) decimal.Decimal {
	interval := info.IntervalSecs
	if interval <= 0 {
		interval = 60 * 60 * 8
	}
	return info.Rate.Div(decimal.NewFromInt(interval))
}

// Combination is the best venue pair found for a token: connector A goes
// long (side Buy) or short, connector B takes the opposite side, chosen to
// maximize the projected funding-rate profitability.
type Combination struct {
	ConnectorA            string
	ConnectorB             string
	Side                   engine.Side // side taken on ConnectorA
	ExpectedProfitability  decimal.Decimal
}

// BestCombination scans every ordered pair of connectors (in the order
// given by connectors, matching the original script's dict-iteration-order
// determinism rather than Go's randomized map order) and returns the pair
// with the largest projected funding-rate profitability over
// FundingProfitabilityIntervalSeconds, taking the lower-rate connector
// long and the higher-rate connector short. Returns ok=false if fewer
// than two connectors are given or if no pair has a positive difference.
func BestCombination(connectors []string, reports map[string]engine.FundingInfo) (Combination, bool) {
	var best Combination
	found := false
	highest := decimal.Zero

	for _, connectorA := range connectors {
		for _, connectorB := range connectors {
			if connectorA == connectorB {
				continue
			}
			rateA := NormalizedRatePerSecond(reports[connectorA])
			rateB := NormalizedRatePerSecond(reports[connectorB])
			diff := rateA.Sub(rateB).Abs().Mul(decimal.NewFromInt(FundingProfitabilityIntervalSeconds))

			if diff.GreaterThan(highest) {
				side := engine.SideBuy
				if !rateA.LessThan(rateB) {
					side = engine.SideSell
				}
				highest = diff
				best = Combination{ConnectorA: connectorA, ConnectorB: connectorB, Side: side, ExpectedProfitability: diff}
				found = true
			}
		}
	}

	return best, found
}

// CurrentProfitabilityAfterFees estimates the trade-entry profitability
// (excluding funding) of opening priceA/priceB at market on each leg,
// net of both legs' taker fees.
//
// Both fee estimates are requested for the BUY side unconditionally,
// mirroring the original script's get_fee(..., order_side=TradeType.BUY)
// call on both connectors regardless of which leg is actually the short
// leg (§9 Open Question #2) — preserved rather than "fixed", since a true
// per-side fee schedule was never observed to diverge in practice for the
// venues this strategy targets and the spec calls this out as intended
// behavior to keep.
func CurrentProfitabilityAfterFees(priceA, priceB, feeAPercent, feeBPercent decimal.Decimal, side engine.Side) decimal.Decimal {
	var tradePnLPct decimal.Decimal
	if side == engine.SideBuy {
		tradePnLPct = priceB.Sub(priceA).Div(priceA)
	} else {
		tradePnLPct = priceA.Sub(priceB).Div(priceB)
	}
	return tradePnLPct.Sub(feeAPercent).Sub(feeBPercent)
}
