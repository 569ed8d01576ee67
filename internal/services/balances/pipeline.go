// Package balances turns raw wallet balances into an ordered, display-ready list.
package balances

import (
	"cmp"
	"slices"

	"github.com/vadiminshakov/walletview/internal/domain"
)

const formattedAmountPlaces = 2

// RankedBalance is a balance that passed filtering, together with its resolved chain priority.
type RankedBalance struct {
	Balance  domain.RawBalance
	Priority int
}

// Process filters, sorts and enriches balances.
//
// Balances on chains missing from priorities and balances with a non-positive amount are
// dropped. The rest are ordered by chain priority, highest first, keeping input order among
// equal priorities. Currencies missing from prices are valued at zero.
func Process(balances []domain.RawBalance, prices domain.PriceTable, priorities domain.PriorityTable) []domain.EnrichedBalance {
	return Enrich(Rank(balances, priorities), prices)
}

// Rank performs the filter and sort steps. The result depends only on balances and priorities.
func Rank(balances []domain.RawBalance, priorities domain.PriorityTable) []RankedBalance {
	ranked := make([]RankedBalance, 0, len(balances))
	for _, b := range balances {
		priority := priorities.Priority(b.Chain)
		if priority <= domain.SentinelPriority || !b.Amount.IsPositive() {
			continue
		}
		ranked = append(ranked, RankedBalance{Balance: b, Priority: priority})
	}

	slices.SortStableFunc(ranked, byPriorityDesc)

	return ranked
}

// Enrich attaches the formatted amount and USD value to every ranked balance, keeping order.
func Enrich(ranked []RankedBalance, prices domain.PriceTable) []domain.EnrichedBalance {
	out := make([]domain.EnrichedBalance, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, domain.EnrichedBalance{
			RawBalance:      r.Balance,
			FormattedAmount: FormatAmount(r.Balance),
			USDValue:        r.Balance.Amount.Mul(prices.Price(r.Balance.Currency)),
		})
	}

	return out
}

// FormatAmount renders the amount with two decimals, rounding half away from zero.
func FormatAmount(b domain.RawBalance) string {
	return b.Amount.StringFixed(formattedAmountPlaces)
}

// byPriorityDesc returns 0 for equal priorities so the stable sort keeps input order.
func byPriorityDesc(a, b RankedBalance) int {
	return cmp.Compare(b.Priority, a.Priority)
}
