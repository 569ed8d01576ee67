package pricer

import (
	"context"

	"github.com/hirokisan/bybit/v2"

	"github.com/vadiminshakov/walletview/internal/domain"
)

type BybitPricer struct {
	client *bybit.Client
	quote  string
}

func NewBybitPricer(client *bybit.Client) *BybitPricer {
	return &BybitPricer{client: client, quote: defaultQuoteCurrency}
}

func (p *BybitPricer) Name() string {
	return "bybit"
}

func (p *BybitPricer) Prices(ctx context.Context) (domain.PriceTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := p.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
		Category: "spot",
	})
	if err != nil {
		return nil, err
	}

	quotes := make([]symbolQuote, 0, len(result.Result.Spot.List))
	for _, ticker := range result.Result.Spot.List {
		quotes = append(quotes, symbolQuote{symbol: string(ticker.Symbol), price: ticker.LastPrice})
	}

	table := tableFromSymbols(quotes, p.quote)
	if len(table) == 0 {
		return nil, ErrNoPrices
	}

	return table, nil
}
