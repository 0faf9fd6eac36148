package reporting

import (
	"sort"

	"post-sniper/internal/domain"
)

// BuildPortfolio sorts positions and computes per-chain totals.
// Unpriced positions count toward cost basis only.
func BuildPortfolio(positions []domain.Position) Portfolio {
	sorted := make([]domain.Position, len(positions))
	copy(sorted, positions)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Chain != sorted[j].Chain {
			return chainOrder(sorted[i].Chain) < chainOrder(sorted[j].Chain)
		}
		return sorted[i].OpenedAt.Before(sorted[j].OpenedAt)
	})

	byChain := make(map[domain.Chain]*ChainTotals)
	var order []domain.Chain
	for _, p := range sorted {
		t, ok := byChain[p.Chain]
		if !ok {
			t = &ChainTotals{Chain: p.Chain, Symbol: p.Chain.NativeSymbol()}
			byChain[p.Chain] = t
			order = append(order, p.Chain)
		}
		t.Count++
		t.CostBasis = t.CostBasis.Add(p.CostBasis)
		if p.LastPrice != nil {
			t.Priced++
			t.CurrentValue = t.CurrentValue.Add(p.CurrentValue)
			t.UnrealizedPnL = t.UnrealizedPnL.Add(p.UnrealizedPnL)
		}
	}

	out := Portfolio{Positions: sorted}
	for _, c := range order {
		out.Chains = append(out.Chains, *byChain[c])
	}
	return out
}

// Totals returns the totals row for chain, or a zero row.
func (p Portfolio) Totals(chain domain.Chain) ChainTotals {
	for _, t := range p.Chains {
		if t.Chain == chain {
			return t
		}
	}
	return ChainTotals{Chain: chain, Symbol: chain.NativeSymbol()}
}

func chainOrder(c domain.Chain) int {
	for i, known := range domain.Chains {
		if known == c {
			return i
		}
	}
	return len(domain.Chains)
}
