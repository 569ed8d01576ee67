package pricefeed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/walletview/internal/domain"
)

type stubSource struct {
	mu    sync.Mutex
	table domain.PriceTable
	err   error
	calls int
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Prices(ctx context.Context) (domain.PriceTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.table, nil
}

func (s *stubSource) set(table domain.PriceTable, err error) {
	s.mu.Lock()
	s.table, s.err = table, err
	s.mu.Unlock()
}

func TestFeed_Lifecycle(t *testing.T) {
	src := &stubSource{}
	var notified []Snapshot
	feed := New(zap.NewNop(), src, time.Minute, func(s Snapshot) { notified = append(notified, s) })

	initial := feed.Snapshot()
	assert.True(t, initial.Loading)
	assert.Empty(t, initial.Prices)
	assert.NoError(t, initial.Err)

	fail := errors.New("network down")
	src.set(nil, fail)
	require.ErrorIs(t, feed.Refresh(context.Background()), fail)
	snap := feed.Snapshot()
	assert.False(t, snap.Loading)
	assert.ErrorIs(t, snap.Err, fail)
	assert.Empty(t, snap.Prices)

	table := domain.NewPriceTable(map[string]decimal.Decimal{"osmo": decimal.NewFromFloat(1.5)})
	src.set(table, nil)
	require.NoError(t, feed.Refresh(context.Background()))
	snap = feed.Snapshot()
	assert.NoError(t, snap.Err)
	assert.True(t, snap.Prices.Price("OSMO").Equal(decimal.NewFromFloat(1.5)))
	assert.False(t, snap.UpdatedAt.IsZero())

	src.set(nil, fail)
	require.Error(t, feed.Refresh(context.Background()))
	stale := feed.Snapshot()
	assert.ErrorIs(t, stale.Err, fail)
	assert.True(t, stale.Prices.Price("osmo").Equal(decimal.NewFromFloat(1.5)), "stale table is kept")
	assert.Equal(t, snap.UpdatedAt, stale.UpdatedAt)

	assert.Len(t, notified, 3)
}

func TestFeed_SnapshotIsACopy(t *testing.T) {
	src := &stubSource{table: domain.NewPriceTable(map[string]decimal.Decimal{"eth": decimal.NewFromInt(1)})}
	feed := New(zap.NewNop(), src, time.Minute, nil)
	require.NoError(t, feed.Refresh(context.Background()))

	snap := feed.Snapshot()
	snap.Prices.Set("eth", decimal.NewFromInt(999))
	assert.True(t, feed.Snapshot().Prices.Price("eth").Equal(decimal.NewFromInt(1)))

	src.table.Set("eth", decimal.NewFromInt(5))
	assert.True(t, feed.Snapshot().Prices.Price("eth").Equal(decimal.NewFromInt(1)), "source table is copied on refresh")
}

func TestFeed_Run(t *testing.T) {
	src := &stubSource{table: domain.NewPriceTable(map[string]decimal.Decimal{"eth": decimal.NewFromInt(1)})}
	feed := New(zap.NewNop(), src, 5*time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := feed.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	src.mu.Lock()
	calls := src.calls
	src.mu.Unlock()
	assert.GreaterOrEqual(t, calls, 2)
	assert.False(t, feed.Snapshot().Loading)
}
