package pricer

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	hyperliquid "github.com/sonirico/go-hyperliquid"

	"github.com/vadiminshakov/walletview/internal/domain"
)

// HyperliquidPricer reads mid prices from the Hyperliquid public Info API.
type HyperliquidPricer struct {
	info *hyperliquid.Info
}

func NewHyperliquidPricer(info *hyperliquid.Info) *HyperliquidPricer {
	return &HyperliquidPricer{info: info}
}

func (p *HyperliquidPricer) Name() string {
	return "hyperliquid"
}

func (p *HyperliquidPricer) Prices(ctx context.Context) (domain.PriceTable, error) {
	if p.info == nil {
		return nil, fmt.Errorf("hyperliquid info client is nil")
	}

	mids, err := p.info.AllMids(ctx)
	if err != nil {
		return nil, err
	}

	// mids are keyed by base coin (e.g., "BTC") and quoted in USD
	table := make(domain.PriceTable, len(mids))
	for coin, mid := range mids {
		price, err := decimal.NewFromString(mid)
		if err != nil || price.IsNegative() {
			continue
		}
		table.Set(coin, price)
	}
	if len(table) == 0 {
		return nil, ErrNoPrices
	}

	return table, nil
}
