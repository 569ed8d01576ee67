// Package domain defines core data structures used throughout the wallet view.
package domain

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidBalance is returned when a balance record read from a balance source is malformed.
var ErrInvalidBalance = errors.New("invalid balance record")

// RawBalance is a balance record as reported by a balance source.
type RawBalance struct {
	// Currency asset symbol, e.g. "OSMO".
	Currency string `json:"currency" yaml:"currency"`
	// Amount quantity held.
	Amount decimal.Decimal `json:"amount" yaml:"amount"`
	// Chain network the balance originates from, e.g. "Osmosis".
	Chain string `json:"chain" yaml:"chain"`
}

// Validate rejects records that must never reach the pipeline.
func (b RawBalance) Validate() error {
	if strings.TrimSpace(b.Currency) == "" {
		return errors.Wrap(ErrInvalidBalance, "currency is required")
	}
	if strings.TrimSpace(b.Chain) == "" {
		return errors.Wrapf(ErrInvalidBalance, "chain is required for %s", b.Currency)
	}
	if b.Amount.IsNegative() {
		return errors.Wrapf(ErrInvalidBalance, "negative amount %s for %s", b.Amount.String(), b.Currency)
	}

	return nil
}

// Key identifies a balance row for rendering.
func (b RawBalance) Key() string {
	return fmt.Sprintf("%s-%s", b.Currency, b.Chain)
}

// EnrichedBalance is a display-ready balance.
type EnrichedBalance struct {
	RawBalance
	FormattedAmount string          `json:"formatted_amount"`
	USDValue        decimal.Decimal `json:"usd_value"`
}
