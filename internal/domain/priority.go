package domain

// SentinelPriority marks a chain that is not tracked. Balances on such chains are never displayed.
const SentinelPriority = -99

// Known chains.
const (
	ChainOsmosis  = "Osmosis"
	ChainEthereum = "Ethereum"
	ChainArbitrum = "Arbitrum"
	ChainZilliqa  = "Zilliqa"
	ChainNeo      = "Neo"
)

// PriorityTable maps a chain to its display priority, higher first.
type PriorityTable map[string]int

// DefaultPriorityTable returns the built-in chain priorities.
func DefaultPriorityTable() PriorityTable {
	return PriorityTable{
		ChainOsmosis:  100,
		ChainEthereum: 50,
		ChainArbitrum: 30,
		ChainZilliqa:  20,
		ChainNeo:      20,
	}
}

// Priority returns the priority of chain or SentinelPriority for chains missing from the table.
func (t PriorityTable) Priority(chain string) int {
	if p, ok := t[chain]; ok {
		return p
	}

	return SentinelPriority
}

// Tracked reports whether balances on chain can be displayed.
func (t PriorityTable) Tracked(chain string) bool {
	return t.Priority(chain) > SentinelPriority
}
