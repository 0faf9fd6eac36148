package reporting

import (
	"strings"
	"time"

	"post-sniper/internal/domain"
)

// RenderTradesCSV renders trade records as CSV string.
func RenderTradesCSV(trades []*domain.TradeRecord) string {
	var sb strings.Builder

	// Header
	sb.WriteString("trade_id,created_at,chain,direction,asset_id,venue,success,amount_in,amount_out,external_ref,error\n")

	// Rows
	for _, t := range trades {
		success := "false"
		if t.Success {
			success = "true"
		}
		fields := []string{
			t.TradeID,
			t.CreatedAt.UTC().Format(time.RFC3339Nano),
			string(t.Chain),
			string(t.Direction),
			t.AssetID,
			t.Venue,
			success,
			t.AmountIn.String(),
			t.AmountOut.String(),
			t.ExternalRef,
			csvEscape(t.Error),
		}
		sb.WriteString(strings.Join(fields, ","))
		sb.WriteString("\n")
	}

	return sb.String()
}

// csvEscape quotes a field containing separators or quotes.
func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
