package internal

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/walletview/internal/domain"
	"github.com/vadiminshakov/walletview/internal/metrics"
	"github.com/vadiminshakov/walletview/internal/services/balances"
	"github.com/vadiminshakov/walletview/internal/services/pricefeed"
	"github.com/vadiminshakov/walletview/internal/services/wallet"
)

type priceSnapshotter interface {
	Snapshot() pricefeed.Snapshot
}

type viewStore interface {
	Save(view domain.WalletView) (uint64, error)
}

type viewPublisher interface {
	Publish(view domain.WalletView)
}

// WalletPage renders the wallet: balances from a balance source, prices from a feed.
type WalletPage struct {
	balances   wallet.Source
	prices     priceSnapshotter
	priorities domain.PriorityTable
	memo       *balances.Memo
	store      viewStore
	publisher  viewPublisher
	interval   time.Duration
	logger     *zap.Logger
	now        func() time.Time

	mu     sync.RWMutex
	latest *domain.WalletView
	raw    []domain.RawBalance
	loaded bool
}

// NewWalletPage creates a WalletPage. store and publisher may be nil.
func NewWalletPage(
	logger *zap.Logger,
	source wallet.Source,
	prices priceSnapshotter,
	priorities domain.PriorityTable,
	store viewStore,
	publisher viewPublisher,
	interval time.Duration,
) *WalletPage {
	return &WalletPage{
		balances:   source,
		prices:     prices,
		priorities: priorities,
		memo:       balances.NewMemo(),
		store:      store,
		publisher:  publisher,
		interval:   interval,
		logger:     logger,
		now:        time.Now,
	}
}

// Refresh reads balances, takes whatever prices the feed has and renders a new view.
// It never waits for prices.
func (p *WalletPage) Refresh(ctx context.Context) (domain.WalletView, error) {
	raw, err := p.balances.Balances(ctx)
	if err != nil {
		return domain.WalletView{}, errors.Wrap(err, "failed to load balances")
	}

	p.mu.Lock()
	p.raw = raw
	p.loaded = true
	p.mu.Unlock()

	return p.render(raw, p.prices.Snapshot())
}

// Reprice renders a new view from the last loaded balances and snap. It is meant to be the
// price feed's notify hook: balances are not re-read and the cached ranking is reused.
// Before the first successful Refresh there is nothing to reprice.
func (p *WalletPage) Reprice(snap pricefeed.Snapshot) {
	p.mu.RLock()
	raw, loaded := p.raw, p.loaded
	p.mu.RUnlock()
	if !loaded {
		return
	}

	if _, err := p.render(raw, snap); err != nil {
		p.logger.Error("Wallet reprice failed", zap.Error(err))
	}
}

// Seed sets the view served by Latest until the first render, e.g. the last stored one.
func (p *WalletPage) Seed(view domain.WalletView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.latest == nil {
		p.latest = &view
	}
}

func (p *WalletPage) render(raw []domain.RawBalance, snap pricefeed.Snapshot) (domain.WalletView, error) {
	enriched := p.memo.Process(raw, snap.Prices, p.priorities)
	view := domain.NewWalletView(p.now(), enriched, snap.Loading, snap.Err)
	metrics.CollectDisplayedBalances(len(enriched))

	p.mu.Lock()
	p.latest = &view
	p.mu.Unlock()

	if p.store != nil {
		if _, err := p.store.Save(view); err != nil {
			return view, errors.Wrap(err, "failed to store wallet view")
		}
	}
	if p.publisher != nil {
		p.publisher.Publish(view)
	}

	return view, nil
}

// Latest returns the last rendered view.
func (p *WalletPage) Latest() (domain.WalletView, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.latest == nil {
		return domain.WalletView{}, false
	}
	return *p.latest, true
}

// Run refreshes the page immediately and then every interval until ctx is done.
func (p *WalletPage) Run(ctx context.Context) error {
	p.refreshAndLog(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("Starting wallet page loop", zap.Duration("refresh_interval", p.interval))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Context done, stopping wallet page loop.")
			return ctx.Err()
		case <-ticker.C:
			p.refreshAndLog(ctx)
		}
	}
}

func (p *WalletPage) refreshAndLog(ctx context.Context) {
	view, err := p.Refresh(ctx)
	if err != nil {
		p.logger.Error("Wallet refresh failed", zap.Error(err))
		return
	}

	p.logger.Debug("Wallet refreshed",
		zap.Int("balances", len(view.Balances)),
		zap.String("total_usd", view.TotalUSD.StringFixed(2)),
		zap.Bool("prices_loading", view.PricesLoading),
	)
}
