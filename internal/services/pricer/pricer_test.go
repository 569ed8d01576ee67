package pricer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/walletview/internal/domain"
	"github.com/vadiminshakov/walletview/pkg/retrier"
)

func errorsIs(err, target error) bool {
	return errors.Is(err, target)
}

type fakeSource struct {
	results []error
	calls   int
	table   domain.PriceTable
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Prices(ctx context.Context) (domain.PriceTable, error) {
	idx := f.calls
	f.calls++
	if idx < len(f.results) && f.results[idx] != nil {
		return nil, f.results[idx]
	}
	return f.table, nil
}

func TestRetryingSource(t *testing.T) {
	table := domain.NewPriceTable(map[string]decimal.Decimal{"eth": decimal.NewFromInt(1600)})

	t.Run("retries transient failures", func(t *testing.T) {
		src := &fakeSource{results: []error{errors.New("timeout"), errors.New("timeout")}, table: table}
		rs := NewRetryingSource(zap.NewNop(), src, retrier.WithInitialInterval(time.Millisecond))

		got, err := rs.Prices(context.Background())
		require.NoError(t, err)
		assert.Equal(t, table, got)
		assert.Equal(t, 3, src.calls)
		assert.Equal(t, "fake", rs.Name())
	})

	t.Run("does not retry permanent failures", func(t *testing.T) {
		src := &fakeSource{results: []error{ErrPermanent}, table: table}
		rs := NewRetryingSource(zap.NewNop(), src, retrier.WithInitialInterval(time.Millisecond))

		_, err := rs.Prices(context.Background())
		assert.ErrorIs(t, err, ErrPermanent)
		assert.Equal(t, 1, src.calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		fail := errors.New("down")
		src := &fakeSource{results: []error{fail, fail, fail, fail, fail}, table: table}
		rs := NewRetryingSource(zap.NewNop(), src, retrier.WithInitialInterval(time.Millisecond), retrier.WithMaxRetries(2))

		_, err := rs.Prices(context.Background())
		assert.ErrorIs(t, err, fail)
		assert.Equal(t, 3, src.calls)
	})
}

func TestTableFromSymbols(t *testing.T) {
	table := tableFromSymbols([]symbolQuote{
		{symbol: "BTCUSDT", price: "65000.10"},
		{symbol: "ETHUSDT", price: "3100"},
		{symbol: "ETHBTC", price: "0.05"},
		{symbol: "USDT", price: "1"},
		{symbol: "BADUSDT", price: "n/a"},
	}, "USDT")

	assert.Len(t, table, 3)
	assert.True(t, table.Price("btc").Equal(decimal.RequireFromString("65000.1")))
	assert.True(t, table.Price("ETH").Equal(decimal.NewFromInt(3100)))
	assert.True(t, table.Price("usdt").Equal(decimal.NewFromInt(1)))
	_, ok := table.Lookup("bad")
	assert.False(t, ok)

	assert.Empty(t, tableFromSymbols(nil, "USDT"))
}
