package fra

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
)

// StatusReport renders two tables: one row per token (phase, long and
// short connector, funding collected) and the stopped-arbitrage history
// (close time, reason, connectors), after the original script's
// format_status layout (§2c, §4.8). Per-venue funding rates and the best
// venue pair are not rendered.
func (s *Strategy) StatusReport() string {
	var b strings.Builder
	b.WriteString(s.activeTable())
	b.WriteString("\n")
	b.WriteString(s.historyTable())
	return b.String()
}

func (s *Strategy) activeTable() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "Token\tPhase\tLong\tShort\tFunding Collected")
	for _, token := range s.cfg.Tokens {
		arb, ok := s.active[token]
		long, short, collected := "-", "-", "0"
		if ok {
			long, short = arb.ConnectorLong, arb.ConnectorShort
			sum := sumPayments(arb.FundingPayments)
			collected = sum.StringFixed(6)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", token, s.phase[token], long, short, collected)
	}
	w.Flush()
	return b.String()
}

func (s *Strategy) historyTable() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "Token\tClosed At\tReason\tLong\tShort")
	none := true
	for _, token := range s.cfg.Tokens {
		for _, h := range s.stopped[token] {
			none = false
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", token, h.ClosedAt.Format("15:04:05"), h.Reason, h.ConnectorLong, h.ConnectorShort)
		}
	}
	if none {
		fmt.Fprintln(w, "(no closed arbitrages)\t\t\t\t")
	}
	w.Flush()
	return b.String()
}

func sumPayments(payments []decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range payments {
		sum = sum.Add(p)
	}
	return sum
}
