package internal

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/walletview/config"
	"github.com/vadiminshakov/walletview/internal/clients"
	"github.com/vadiminshakov/walletview/internal/services/pricer"
	"github.com/vadiminshakov/walletview/internal/services/wallet"
)

const (
	priceRequestTimeout   = 15 * time.Second
	hyperliquidKeyEnv     = "HYPERLIQUID_PRIVATE_KEY"
	hyperliquidBaseURLEnv = "HYPERLIQUID_API_URL"
)

// NewPriceSource creates the configured price source wrapped with retries.
func NewPriceSource(conf config.Config, logger *zap.Logger) (pricer.PriceSource, error) {
	var src pricer.PriceSource
	switch conf.PriceSource {
	case config.SourceSwitcheo:
		src = pricer.NewSwitcheoPricer(conf.PricesURL, &http.Client{Timeout: priceRequestTimeout})
	case config.SourceBinance:
		src = pricer.NewBinancePricer(clients.NewBinanceClient(os.Getenv("BINANCE_API_KEY"), os.Getenv("BINANCE_API_SECRET")))
	case config.SourceBybit:
		src = pricer.NewBybitPricer(clients.NewBybitClient(os.Getenv("BYBIT_API_KEY"), os.Getenv("BYBIT_API_SECRET")))
	case config.SourceHyperliquid:
		key := os.Getenv(hyperliquidKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("%s environment variable must be set", hyperliquidKeyEnv)
		}
		client, err := clients.NewHyperliquidClient(key, os.Getenv(hyperliquidBaseURLEnv))
		if err != nil {
			return nil, errors.Wrap(err, "failed to create hyperliquid client")
		}
		src = pricer.NewHyperliquidPricer(client.Info())
	default:
		return nil, fmt.Errorf("unsupported price source: %s", conf.PriceSource)
	}

	return pricer.NewRetryingSource(logger, src), nil
}

// NewBalanceSource combines the configured balance file and ethereum addresses.
func NewBalanceSource(ctx context.Context, conf config.Config) (wallet.Source, error) {
	var sources wallet.MultiSource
	if conf.BalancesFile != "" {
		sources = append(sources, wallet.NewFileSource(conf.BalancesFile))
	}
	if len(conf.EthereumAddresses) > 0 {
		eth, err := wallet.DialEthereumSource(ctx, conf.EthereumRPC, conf.EthereumAddresses)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create ethereum balance source")
		}
		sources = append(sources, eth)
	}
	if len(sources) == 0 {
		return nil, errors.New("no balance source configured, set 'balances_file' or 'ethereum_addresses'")
	}

	return sources, nil
}
