package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PriceTable maps a currency symbol to its unit price in USD. Tables built with NewPriceTable or
// Set hold lowercase keys; lookups try the exact symbol first and then its lowercase form.
type PriceTable map[string]decimal.Decimal

// NewPriceTable copies prices into a table with normalized keys.
func NewPriceTable(prices map[string]decimal.Decimal) PriceTable {
	t := make(PriceTable, len(prices))
	for currency, price := range prices {
		t.Set(currency, price)
	}

	return t
}

// Set stores the price for currency.
func (t PriceTable) Set(currency string, price decimal.Decimal) {
	t[normalizeCurrency(currency)] = price
}

// Price returns the unit price for currency. A missing entry is worth zero.
func (t PriceTable) Price(currency string) decimal.Decimal {
	p, _ := t.Lookup(currency)
	return p
}

// Lookup returns the price for currency and whether the table has it.
func (t PriceTable) Lookup(currency string) (decimal.Decimal, bool) {
	if p, ok := t[currency]; ok {
		return p, true
	}
	if p, ok := t[normalizeCurrency(currency)]; ok {
		return p, true
	}

	return decimal.Zero, false
}

// Clone returns a copy safe to hand out to readers.
func (t PriceTable) Clone() PriceTable {
	c := make(PriceTable, len(t))
	for k, v := range t {
		c[k] = v
	}

	return c
}

// TokenPrice is a single quote published by a remote price endpoint.
type TokenPrice struct {
	Currency string          `json:"currency"`
	Date     time.Time       `json:"date"`
	Price    decimal.Decimal `json:"price"`
}

func normalizeCurrency(currency string) string {
	return strings.ToLower(strings.TrimSpace(currency))
}
