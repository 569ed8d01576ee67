// Command walletview shows wallet balances ordered by chain priority and valued in USD.
// Prices come from one of several price sources; balances from a file and/or Ethereum RPC.
//
// Usage:
//
//	walletview -config config.yaml
//	walletview -balances balances.yaml -source binance
//	walletview -setup (interactive wizard)
//	walletview -balances balances.yaml -once (print the wallet and exit)
//
// Environment variables:
//
//	ETHEREUM_RPC_URL: overrides ethereum_rpc
//	BINANCE_API_KEY, BINANCE_API_SECRET, BYBIT_API_KEY, BYBIT_API_SECRET: optional, public prices work without them
//	HYPERLIQUID_PRIVATE_KEY: required for the hyperliquid source
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/walletview/config"
	"github.com/vadiminshakov/walletview/internal"
	"github.com/vadiminshakov/walletview/internal/events"
	"github.com/vadiminshakov/walletview/internal/render"
	"github.com/vadiminshakov/walletview/internal/services/pricefeed"
	"github.com/vadiminshakov/walletview/internal/services/swap"
	"github.com/vadiminshakov/walletview/internal/setup"
	"github.com/vadiminshakov/walletview/internal/storage/walletsnapshots"
	"github.com/vadiminshakov/walletview/internal/web"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	conf, err := config.Get()
	if err != nil {
		logger.Fatal("failed to get configuration", zap.Error(err))
	}

	if conf.Setup {
		if err := setup.RunTUI(setup.DefaultConfigFile); err != nil {
			logger.Fatal("setup failed", zap.Error(err))
		}
		conf, err = config.Parse([]string{"-config", setup.DefaultConfigFile})
		if err != nil {
			logger.Fatal("failed to load generated configuration", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, conf); err != nil {
		logger.Fatal("walletview stopped", zap.Error(err))
	}
}

func run(ctx context.Context, logger *zap.Logger, conf config.Config) error {
	priceSource, err := internal.NewPriceSource(conf, logger)
	if err != nil {
		return err
	}
	balanceSource, err := internal.NewBalanceSource(ctx, conf)
	if err != nil {
		return err
	}

	if conf.Once {
		feed := pricefeed.New(logger, priceSource, conf.PollPriceInterval, nil)
		if err := feed.Refresh(ctx); err != nil {
			logger.Warn("prices unavailable, rendering without them", zap.Error(err))
		}
		page := internal.NewWalletPage(logger, balanceSource, feed, conf.Priorities, nil, nil, conf.RefreshInterval)
		view, err := page.Refresh(ctx)
		if err != nil {
			return err
		}
		fmt.Println(render.Table(view))
		return nil
	}

	store, err := walletsnapshots.NewWALStore(conf.WALDir)
	if err != nil {
		return err
	}
	defer store.Close()

	broadcaster := events.NewWalletBroadcaster(0)

	// every price update re-renders the wallet from the last loaded balances
	var page *internal.WalletPage
	feed := pricefeed.New(logger, priceSource, conf.PollPriceInterval, func(s pricefeed.Snapshot) { page.Reprice(s) })
	page = internal.NewWalletPage(logger, balanceSource, feed, conf.Priorities, store, broadcaster, conf.RefreshInterval)

	record, ok, err := store.Latest()
	if err != nil {
		logger.Warn("failed to read last wallet view", zap.Error(err))
	} else if ok {
		page.Seed(record.View)
		logger.Info("restored last wallet view", zap.Uint64("index", record.Index), zap.Uint64("wal_index", store.CurrentIndex()))
	}

	simulator := swap.NewSimulator(logger, feed, conf.SwapDelay, swap.WithDefaultSlippage(conf.Slippage))
	server := web.NewServer(logger, conf.WebAddr, store, page, feed, simulator)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return feed.Run(gctx) })
	g.Go(func() error { return page.Run(gctx) })
	g.Go(func() error {
		if len(conf.TLSDomains) > 0 {
			return server.StartWithAutoTLS(gctx, conf.TLSDomains, conf.TLSCacheDir)
		}
		return server.Start(gctx)
	})

	if conf.Print {
		views := broadcaster.Subscribe()
		g.Go(func() error {
			defer broadcaster.Unsubscribe(views)
			for {
				select {
				case <-gctx.Done():
					return nil
				case view := <-views:
					fmt.Println(render.Table(view))
				}
			}
		})
	}

	logger.Info("walletview started",
		zap.String("price_source", conf.PriceSource),
		zap.String("addr", conf.WebAddr),
		zap.Duration("poll_price_interval", conf.PollPriceInterval),
	)

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
