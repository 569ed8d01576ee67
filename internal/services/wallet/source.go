// Package wallet provides balance sources for the wallet view.
package wallet

import (
	"context"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/walletview/internal/domain"
)

// Source returns the balances of a wallet. Returned records are validated.
type Source interface {
	Balances(ctx context.Context) ([]domain.RawBalance, error)
}

// MultiSource concatenates the balances of several sources in order.
type MultiSource []Source

func (m MultiSource) Balances(ctx context.Context) ([]domain.RawBalance, error) {
	var out []domain.RawBalance
	for i, src := range m {
		balances, err := src.Balances(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "balance source #%d", i)
		}
		out = append(out, balances...)
	}

	return out, nil
}

// StaticSource serves a fixed list of balances.
type StaticSource []domain.RawBalance

func (s StaticSource) Balances(context.Context) ([]domain.RawBalance, error) {
	for _, b := range s {
		if err := b.Validate(); err != nil {
			return nil, err
		}
	}

	return append([]domain.RawBalance(nil), s...), nil
}
