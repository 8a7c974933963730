package setup

import (
	"errors"
	"sort"
	"unicode/utf8"

	"github.com/yolodolo42/clawroyale/internal/chain"
	"github.com/yolodolo42/clawroyale/internal/ui"
)

const DefaultChain = "base-sepolia"

// networkItems lists known chains, testnets first, with current marked.
func networkItems(current string) []ui.SelectorItem {
	chains := chain.DefaultChains()
	names := make([]string, 0, len(chains))
	for name := range chains {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := chains[names[i]], chains[names[j]]
		if a.IsTestnet != b.IsTestnet {
			return a.IsTestnet
		}
		return names[i] < names[j]
	})

	if current == "" {
		current = DefaultChain
	}
	items := make([]ui.SelectorItem, 0, len(names))
	for _, name := range names {
		cfg := chains[name]
		desc := "chain " + cfg.ChainID.String()
		if name == DefaultChain {
			desc += ", tournament contracts deployed"
		}
		items = append(items, ui.SelectorItem{
			ID:          name,
			Label:       cfg.Name,
			Description: desc,
			Current:     name == current,
		})
	}
	return items
}

func validateAgentName(s string) error {
	switch {
	case s == "":
		return errors.New("agent name is required")
	case utf8.RuneCountInString(s) > 64:
		return errors.New("agent name must be 64 characters or fewer")
	}
	return nil
}
