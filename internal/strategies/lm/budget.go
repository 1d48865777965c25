package lm

import (
	"github.com/mExOms/tradecore/internal/strategies/engine"
	"github.com/shopspring/decimal"
)

// BudgetAllocator partitions total portfolio value equally across active
// markets and derives each market's buy/sell budget (§4.4).
type BudgetAllocator struct {
	// Token is the currency the portfolio value and order_amount are
	// denominated in.
	Token string
}

// Allocate computes buy_budgets (quote units available to buy) and
// sell_budgets (base units available to sell) for every market, given the
// total portfolio value already expressed in Token and each market's mid
// price and current balances.
func (a BudgetAllocator) Allocate(portfolioValue decimal.Decimal, markets []engine.Market, mids map[engine.Market]decimal.Decimal, balances map[string]decimal.Decimal) (buyBudgets, sellBudgets map[engine.Market]decimal.Decimal) {
	buyBudgets = make(map[engine.Market]decimal.Decimal, len(markets))
	sellBudgets = make(map[engine.Market]decimal.Decimal, len(markets))

	if len(markets) == 0 {
		return buyBudgets, sellBudgets
	}

	marketPortion := portfolioValue.Div(decimal.NewFromInt(int64(len(markets))))

	for _, m := range markets {
		base, quote := m.Base(), m.Quote()
		mid := mids[m]

		if a.Token == quote {
			baseBal := balances[base]
			sellBudgets[m] = baseBal
			remaining := marketPortion.Sub(baseBal.Mul(mid))
			buyBudgets[m] = decimal.Max(decimal.Zero, remaining)
		} else {
			quoteBal := balances[quote]
			buyBudgets[m] = quoteBal
			var remaining decimal.Decimal
			if mid.IsPositive() {
				remaining = marketPortion.Sub(quoteBal.Div(mid))
			} else {
				remaining = marketPortion
			}
			sellBudgets[m] = decimal.Max(decimal.Zero, remaining)
		}
	}

	return buyBudgets, sellBudgets
}

// TotalPortfolioValue sums the value of every token balance, converted to
// Token: the Token balance itself, plus for every market either
// base_balance*mid (if Token is the market's quote) or quote_balance/mid
// (if Token is the market's base).
func (a BudgetAllocator) TotalPortfolioValue(markets []engine.Market, mids map[engine.Market]decimal.Decimal, balances map[string]decimal.Decimal) decimal.Decimal {
	total := balances[a.Token]

	for _, m := range markets {
		base, quote := m.Base(), m.Quote()
		mid := mids[m]
		if a.Token == quote {
			total = total.Add(balances[base].Mul(mid))
		} else if a.Token == base && mid.IsPositive() {
			total = total.Add(balances[quote].Div(mid))
		}
	}

	return total
}

// IsTokenQuote reports whether Token is the quote token common to every
// market, which is required for the base/quote branch above to be
// well-defined across the whole portfolio.
func (a BudgetAllocator) IsTokenQuote(markets []engine.Market) bool {
	quotes := make(map[string]struct{})
	for _, m := range markets {
		quotes[m.Quote()] = struct{}{}
	}
	if len(quotes) != 1 {
		return false
	}
	_, ok := quotes[a.Token]
	return ok
}

// AdjustedAvailableBalances augments raw available balances with amounts
// already committed to live orders: BUY orders add quantity*price back to
// the quote balance, SELL orders add quantity back to the base balance.
// This presents the strategy a view of funds it could reclaim by
// cancelling its own resting orders.
func AdjustedAvailableBalances(raw map[string]decimal.Decimal, liveOrders []engine.LiveOrder) map[string]decimal.Decimal {
	adjusted := make(map[string]decimal.Decimal, len(raw))
	for token, bal := range raw {
		adjusted[token] = bal
	}

	for _, o := range liveOrders {
		base, quote := o.Market.Base(), o.Market.Quote()
		if o.IsBuy {
			adjusted[quote] = adjusted[quote].Add(o.Quantity.Mul(o.Price))
		} else {
			adjusted[base] = adjusted[base].Add(o.Quantity)
		}
	}

	return adjusted
}
