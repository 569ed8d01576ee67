package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletView is a rendered wallet page.
type WalletView struct {
	ID            uuid.UUID         `json:"id"`
	Timestamp     time.Time         `json:"ts"`
	Balances      []EnrichedBalance `json:"balances"`
	TotalUSD      decimal.Decimal   `json:"total_usd"`
	PricesLoading bool              `json:"prices_loading"`
	PricesError   string            `json:"prices_error,omitempty"`
}

// NewWalletView creates a WalletView and sums the USD value of its balances.
func NewWalletView(timestamp time.Time, balances []EnrichedBalance, pricesLoading bool, pricesErr error) WalletView {
	total := decimal.Zero
	for _, b := range balances {
		total = total.Add(b.USDValue)
	}

	view := WalletView{
		ID:            uuid.New(),
		Timestamp:     timestamp,
		Balances:      balances,
		TotalUSD:      total,
		PricesLoading: pricesLoading,
	}
	if pricesErr != nil {
		view.PricesError = pricesErr.Error()
	}

	return view
}

// WalletViewRecord bundles a stored view with its WAL index.
type WalletViewRecord struct {
	Index uint64
	View  WalletView
}
