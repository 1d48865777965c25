package lm

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/mExOms/tradecore/internal/strategies/engine"
)

// StatusReport renders the strategy's current state as a human-readable
// multi-table report, matching the original bounty strategy's
// format_status layout (§4.8, §2c): a markets table (phase and volatility
// per market), a budgets table, and an active-orders table. Mid prices and
// spreads are not rendered.
func (s *Strategy) StatusReport() string {
	var b strings.Builder

	b.WriteString(s.marketsTable())
	b.WriteString("\n")
	b.WriteString(s.budgetsTable())
	b.WriteString("\n")
	b.WriteString(s.ordersTable())

	return b.String()
}

func (s *Strategy) marketsTable() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "Market\tPhase\tVolatility")
	for _, m := range s.cfg.Markets {
		vol := s.Volatility(m)
		volStr := "n/a"
		if vol.Defined {
			volStr = vol.Value.StringFixed(6)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", m, s.phase[m], volStr)
	}
	w.Flush()
	return b.String()
}

func (s *Strategy) budgetsTable() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "Market\tBuy budget\tSell budget")
	for _, m := range s.cfg.Markets {
		buy, sell := s.Budgets(m)
		fmt.Fprintf(w, "%s\t%s %s\t%s %s\n", m, buy.StringFixed(4), m.Quote(), sell.StringFixed(6), m.Base())
	}
	w.Flush()
	return b.String()
}

func (s *Strategy) ordersTable() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "Market\tSide\tPrice\tAmount")

	none := true
	for m, live := range s.liveByMarket() {
		for _, o := range live {
			none = false
			side := "sell"
			if o.IsBuy {
				side = "buy"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m, side, o.Price.StringFixed(8), o.Quantity.StringFixed(8))
		}
	}
	if none {
		fmt.Fprintln(w, "(no active orders)\t\t\t")
	}
	w.Flush()
	return b.String()
}

// liveByMarket is populated by reconcile each tick with the live orders
// listed at the start of the tick, plus the orders dispatch placed during
// it, so the status reporter needs no extra gateway round trip.
func (s *Strategy) liveByMarket() map[engine.Market][]engine.LiveOrder {
	return s.lastLiveByMarket
}
