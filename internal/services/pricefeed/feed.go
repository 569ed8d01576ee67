// Package pricefeed keeps the latest price table of a price source in memory.
package pricefeed

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vadiminshakov/walletview/internal/domain"
)

type priceSource interface {
	Prices(ctx context.Context) (domain.PriceTable, error)
	Name() string
}

// Snapshot is the state of the feed at a point in time.
type Snapshot struct {
	Prices    domain.PriceTable
	Loading   bool
	Err       error
	UpdatedAt time.Time
}

// Feed polls a price source and serves the last good table without blocking.
//
// Before the first successful fetch the feed reports Loading with an empty table. A failed
// refresh keeps the previous table and records the error until the next success.
type Feed struct {
	source   priceSource
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu        sync.RWMutex
	prices    domain.PriceTable
	loading   bool
	lastErr   error
	updatedAt time.Time
	notify    func(Snapshot)
}

// New creates a Feed. notify, when not nil, is called after every refresh attempt.
func New(logger *zap.Logger, source priceSource, interval time.Duration, notify func(Snapshot)) *Feed {
	return &Feed{
		source:   source,
		interval: interval,
		logger:   logger.With(zap.String("source", source.Name())),
		now:      time.Now,
		prices:   domain.PriceTable{},
		loading:  true,
		notify:   notify,
	}
}

// Snapshot returns the current state. The returned table is a copy.
func (f *Feed) Snapshot() Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return Snapshot{
		Prices:    f.prices.Clone(),
		Loading:   f.loading,
		Err:       f.lastErr,
		UpdatedAt: f.updatedAt,
	}
}

// Prices returns a copy of the last good table, possibly empty or stale.
func (f *Feed) Prices() domain.PriceTable {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.prices.Clone()
}

// Refresh fetches prices once.
func (f *Feed) Refresh(ctx context.Context) error {
	table, err := f.source.Prices(ctx)

	f.mu.Lock()
	f.loading = false
	if err != nil {
		f.lastErr = err
	} else {
		f.prices = table.Clone()
		f.lastErr = nil
		f.updatedAt = f.now()
	}
	f.mu.Unlock()

	if err != nil {
		f.logger.Error("failed to refresh prices, keeping previous table", zap.Error(err))
	} else {
		f.logger.Debug("prices refreshed", zap.Int("currencies", len(table)))
	}

	if f.notify != nil {
		f.notify(f.Snapshot())
	}

	return err
}

// Run refreshes immediately and then every interval until ctx is done.
func (f *Feed) Run(ctx context.Context) error {
	_ = f.Refresh(ctx)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	f.logger.Info("Starting price feed", zap.Duration("poll_interval", f.interval))

	for {
		select {
		case <-ctx.Done():
			f.logger.Info("Context done, stopping price feed.")
			return ctx.Err()
		case <-ticker.C:
			_ = f.Refresh(ctx)
		}
	}
}
