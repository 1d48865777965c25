package lm

import (
	"testing"

	"github.com/mExOms/tradecore/internal/strategies/engine"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBudgetAllocator_EqualPartitionAcrossMarkets(t *testing.T) {
	a := BudgetAllocator{Token: "USDT"}
	markets := []engine.Market{"BTC-USDT", "ETH-USDT"}
	mids := map[engine.Market]decimal.Decimal{
		"BTC-USDT": decimal.NewFromInt(30000),
		"ETH-USDT": decimal.NewFromInt(2000),
	}
	balances := map[string]decimal.Decimal{
		"BTC":  decimal.NewFromFloat(0.1),
		"ETH":  decimal.NewFromInt(1),
		"USDT": decimal.NewFromInt(10000),
	}
	portfolio := a.TotalPortfolioValue(markets, mids, balances)

	buy, sell := a.Allocate(portfolio, markets, mids, balances)

	marketPortion := portfolio.Div(decimal.NewFromInt(2))
	for _, m := range markets {
		total := buy[m].Add(sell[m].Mul(mids[m]))
		assert.True(t, total.LessThanOrEqual(marketPortion.Mul(decimal.NewFromFloat(1.0001))),
			"market %s: buy+sell*mid=%s exceeds portion=%s", m, total, marketPortion)
		assert.True(t, buy[m].GreaterThanOrEqual(decimal.Zero))
		assert.True(t, sell[m].GreaterThanOrEqual(decimal.Zero))
	}

	sumPortions := marketPortion.Mul(decimal.NewFromInt(int64(len(markets))))
	assert.True(t, sumPortions.Equal(portfolio))
}

func TestBudgetAllocator_QuoteToken(t *testing.T) {
	a := BudgetAllocator{Token: "USDT"}
	markets := []engine.Market{"BTC-USDT"}
	mids := map[engine.Market]decimal.Decimal{"BTC-USDT": decimal.NewFromInt(30000)}
	balances := map[string]decimal.Decimal{
		"BTC":  decimal.NewFromInt(1),
		"USDT": decimal.NewFromInt(30000),
	}

	buy, sell := a.Allocate(decimal.NewFromInt(60000), markets, mids, balances)

	assert.True(t, sell["BTC-USDT"].Equal(decimal.NewFromInt(1)))
	assert.True(t, buy["BTC-USDT"].Equal(decimal.NewFromInt(30000)))
}

func TestBudgetAllocator_BuyBudgetFloorsAtZero(t *testing.T) {
	a := BudgetAllocator{Token: "USDT"}
	markets := []engine.Market{"BTC-USDT"}
	mids := map[engine.Market]decimal.Decimal{"BTC-USDT": decimal.NewFromInt(30000)}
	balances := map[string]decimal.Decimal{
		"BTC":  decimal.NewFromInt(1),
		"USDT": decimal.NewFromInt(30000),
	}

	// market_portion = 30000, base_value = 1*30000 = 30000 -> buy_budget = max(0, 0) = 0
	buy, sell := a.Allocate(decimal.NewFromInt(30000), markets, mids, balances)
	assert.True(t, buy["BTC-USDT"].Equal(decimal.Zero))
	assert.True(t, sell["BTC-USDT"].Equal(decimal.NewFromInt(1)))
}

func TestAdjustedAvailableBalances_AddsBackLiveOrderAmounts(t *testing.T) {
	raw := map[string]decimal.Decimal{
		"BTC":  decimal.NewFromInt(1),
		"USDT": decimal.NewFromInt(1000),
	}
	live := []engine.LiveOrder{
		{Market: "BTC-USDT", IsBuy: true, Quantity: decimal.NewFromFloat(0.1), Price: decimal.NewFromInt(30000)},
		{Market: "BTC-USDT", IsBuy: false, Quantity: decimal.NewFromFloat(0.2), Price: decimal.NewFromInt(31000)},
	}

	adjusted := AdjustedAvailableBalances(raw, live)

	assert.True(t, adjusted["USDT"].Equal(decimal.NewFromInt(1000).Add(decimal.NewFromFloat(0.1).Mul(decimal.NewFromInt(30000)))))
	assert.True(t, adjusted["BTC"].Equal(decimal.NewFromInt(1).Add(decimal.NewFromFloat(0.2))))
}
