package wallet

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/walletview/internal/domain"
)

// balanceRecord is the on-disk form of a balance. Amount is kept as a string so that
// malformed numbers are reported instead of silently becoming zero.
type balanceRecord struct {
	Currency string `yaml:"currency"`
	Amount   string `yaml:"amount"`
	Chain    string `yaml:"chain"`
}

// FileSource reads balances from a YAML (or JSON) file on every call.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Balances(ctx context.Context) ([]domain.RawBalance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payload, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.Wrap(err, "read balances file")
	}

	return ParseBalances(payload)
}

// ParseBalances decodes and validates a list of balance records.
func ParseBalances(payload []byte) ([]domain.RawBalance, error) {
	var records []balanceRecord
	if err := yaml.Unmarshal(payload, &records); err != nil {
		return nil, errors.Wrap(err, "decode balances")
	}

	balances := make([]domain.RawBalance, 0, len(records))
	for i, r := range records {
		amount, err := decimal.NewFromString(r.Amount)
		if err != nil {
			return nil, errors.Wrap(domain.ErrInvalidBalance, fmt.Sprintf("record #%d: incorrect amount %q", i, r.Amount))
		}

		b := domain.RawBalance{Currency: r.Currency, Amount: amount, Chain: r.Chain}
		if err := b.Validate(); err != nil {
			return nil, errors.Wrapf(err, "record #%d", i)
		}
		balances = append(balances, b)
	}

	return balances, nil
}
