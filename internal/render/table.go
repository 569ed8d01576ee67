// Package render draws wallet views for terminals.
package render

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/vadiminshakov/walletview/internal/domain"
)

const usdPlaces = 2

var (
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	warning   = lipgloss.AdaptiveColor{Light: "#D9822B", Dark: "#F5A623"}

	headerStyle = lipgloss.NewStyle().Foreground(highlight).Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	totalStyle  = lipgloss.NewStyle().Foreground(special).Bold(true)
	noticeStyle = lipgloss.NewStyle().Foreground(warning)
)

// Table renders the balances of view and its total.
func Table(view domain.WalletView) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(highlight)).
		Headers("CURRENCY", "CHAIN", "AMOUNT", "USD").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col >= 2:
				return numberStyle
			default:
				return cellStyle
			}
		})

	for _, b := range view.Balances {
		t.Row(b.Currency, b.Chain, b.FormattedAmount, b.USDValue.StringFixed(usdPlaces))
	}

	out := t.String() + "\n" + totalStyle.Render(fmt.Sprintf("Total: $%s", view.TotalUSD.StringFixed(usdPlaces)))
	switch {
	case view.PricesLoading:
		out += "\n" + noticeStyle.Render("prices are loading, USD values may be zero")
	case view.PricesError != "":
		out += "\n" + noticeStyle.Render("prices may be stale: "+view.PricesError)
	}

	return out
}
