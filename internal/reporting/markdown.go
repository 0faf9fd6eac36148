package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Portfolio Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Totals
	sb.WriteString("## Totals\n\n")
	if len(r.Portfolio.Chains) > 0 {
		sb.WriteString("| Chain | Open | Priced | Cost Basis | Current Value | Unrealized PnL |\n")
		sb.WriteString("|-------|------|--------|------------|---------------|----------------|\n")
		for _, t := range r.Portfolio.Chains {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %s %s | %s %s | %s %s |\n",
				t.Chain, t.Count, t.Priced,
				t.CostBasis.StringFixed(6), t.Symbol,
				t.CurrentValue.StringFixed(6), t.Symbol,
				t.UnrealizedPnL.StringFixed(6), t.Symbol))
		}
	} else {
		sb.WriteString("No open positions.\n")
	}
	sb.WriteString("\n")

	// Positions
	sb.WriteString("## Positions\n\n")
	if len(r.Portfolio.Positions) > 0 {
		sb.WriteString("| ID | Chain | Asset | Venue | Quantity | Cost Basis | Last Price | Value | PnL | Opened |\n")
		sb.WriteString("|----|-------|-------|-------|----------|------------|------------|-------|-----|--------|\n")
		for _, p := range r.Portfolio.Positions {
			price := "-"
			if p.LastPrice != nil {
				price = p.LastPrice.String()
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | `%s` | %s | %s | %s | %s | %s | %s | %s |\n",
				p.ID, p.Chain, p.AssetID, p.Venue,
				p.QuantityReceived.String(), p.CostBasis.String(), price,
				p.CurrentValue.StringFixed(6), p.UnrealizedPnL.StringFixed(6),
				p.OpenedAt.UTC().Format(time.RFC3339)))
		}
	} else {
		sb.WriteString("No open positions.\n")
	}
	sb.WriteString("\n")

	// Trades
	sb.WriteString("## Recent Trades\n\n")
	if len(r.RecentTrades) > 0 {
		sb.WriteString("| Time | Chain | Direction | Asset | Venue | Status | In | Out | Ref |\n")
		sb.WriteString("|------|-------|-----------|-------|-------|--------|----|-----|-----|\n")
		for _, t := range r.RecentTrades {
			status := "FAIL"
			if t.Success {
				status = "OK"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | `%s` | %s | %s | %s | %s | %s |\n",
				t.CreatedAt.UTC().Format(time.RFC3339), t.Chain, t.Direction, t.AssetID,
				orDash(t.Venue), status, t.AmountIn.String(), t.AmountOut.String(), orDash(t.ExternalRef)))
		}
	} else {
		sb.WriteString("No trades recorded.\n")
	}

	return sb.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
