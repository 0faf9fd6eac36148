package venue

import (
	"fmt"

	"post-sniper/internal/domain"
)

type priorityKey struct {
	chain domain.Chain
	dir   domain.Direction
}

// Priority holds the ordered adapter list per (chain, direction).
type Priority struct {
	lists map[priorityKey][]Adapter
}

// NewPriority creates an empty Priority table.
func NewPriority() *Priority {
	return &Priority{lists: make(map[priorityKey][]Adapter)}
}

// Set replaces the list for (chain, dir).
func (p *Priority) Set(chain domain.Chain, dir domain.Direction, adapters ...Adapter) {
	p.lists[priorityKey{chain, dir}] = append([]Adapter(nil), adapters...)
}

// List returns the ordered adapters for (chain, dir). The slice is a copy.
func (p *Priority) List(chain domain.Chain, dir domain.Direction) []Adapter {
	return append([]Adapter(nil), p.lists[priorityKey{chain, dir}]...)
}

// Names returns the venue names for (chain, dir) in priority order.
func (p *Priority) Names(chain domain.Chain, dir domain.Direction) []string {
	list := p.lists[priorityKey{chain, dir}]
	names := make([]string, len(list))
	for i, a := range list {
		names[i] = a.Name()
	}
	return names
}

// BuildPriority resolves configured venue names against the available adapters.
// names maps chain and direction to the configured order.
func BuildPriority(adapters []Adapter, names map[domain.Chain]map[domain.Direction][]string) (*Priority, error) {
	byName := make(map[priorityKey]map[string]Adapter)
	for _, a := range adapters {
		for _, dir := range []domain.Direction{domain.DirectionBuy, domain.DirectionSell} {
			k := priorityKey{a.Chain(), dir}
			if byName[k] == nil {
				byName[k] = make(map[string]Adapter)
			}
			byName[k][a.Name()] = a
		}
	}

	p := NewPriority()
	for chain, dirs := range names {
		for dir, list := range dirs {
			resolved := make([]Adapter, 0, len(list))
			for _, n := range list {
				a, ok := byName[priorityKey{chain, dir}][n]
				if !ok {
					return nil, fmt.Errorf("no %s adapter named %q", chain, n)
				}
				resolved = append(resolved, a)
			}
			p.Set(chain, dir, resolved...)
		}
	}
	return p, nil
}
