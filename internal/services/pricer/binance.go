package pricer

import (
	"context"

	"github.com/adshao/go-binance/v2"

	"github.com/vadiminshakov/walletview/internal/domain"
)

// BinancePricer reads spot prices of every symbol quoted in USDT from the Binance public API.
type BinancePricer struct {
	client *binance.Client
	quote  string
}

func NewBinancePricer(client *binance.Client) *BinancePricer {
	return &BinancePricer{client: client, quote: defaultQuoteCurrency}
}

func (p *BinancePricer) Name() string {
	return "binance"
}

func (p *BinancePricer) Prices(ctx context.Context) (domain.PriceTable, error) {
	prices, err := p.client.NewListPricesService().Do(ctx)
	if err != nil {
		return nil, err
	}

	quotes := make([]symbolQuote, 0, len(prices))
	for _, sp := range prices {
		if sp == nil {
			continue
		}
		quotes = append(quotes, symbolQuote{symbol: sp.Symbol, price: sp.Price})
	}

	table := tableFromSymbols(quotes, p.quote)
	if len(table) == 0 {
		return nil, ErrNoPrices
	}

	return table, nil
}
