package reporting

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"
)

// RenderTable renders the portfolio as an aligned plain-text table for the console.
func RenderTable(p Portfolio, now time.Time) string {
	var sb strings.Builder
	if len(p.Positions) == 0 {
		sb.WriteString("No open positions.\n")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("Positions @ %s\n", now.UTC().Format(time.RFC3339)))
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHAIN\tASSET\tVENUE\tQTY\tCOST\tPRICE\tVALUE\tPNL\tAGE")
	for _, pos := range p.Positions {
		price, value, pnl := "-", "-", "-"
		if pos.LastPrice != nil {
			price = pos.LastPrice.String()
			value = pos.CurrentValue.StringFixed(6)
			pnl = signed(pos.UnrealizedPnL.StringFixed(6))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			pos.Chain, shortAsset(pos.AssetID), pos.Venue,
			pos.QuantityReceived.String(), pos.CostBasis.StringFixed(6),
			price, value, pnl, now.Sub(pos.OpenedAt).Truncate(time.Second))
	}
	w.Flush()

	sb.WriteString("\n")
	w = tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHAIN\tOPEN\tPRICED\tCOST\tVALUE\tPNL")
	for _, t := range p.Chains {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s %s\t%s %s\t%s %s\n",
			t.Chain, t.Count, t.Priced,
			t.CostBasis.StringFixed(6), t.Symbol,
			t.CurrentValue.StringFixed(6), t.Symbol,
			signed(t.UnrealizedPnL.StringFixed(6)), t.Symbol)
	}
	w.Flush()
	return sb.String()
}

func signed(s string) string {
	if strings.HasPrefix(s, "-") {
		return s
	}
	return "+" + s
}

// shortAsset abbreviates long addresses as prefix...suffix.
func shortAsset(id string) string {
	if len(id) <= 14 {
		return id
	}
	return id[:6] + "..." + id[len(id)-4:]
}
