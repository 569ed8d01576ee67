// Package pricer fetches USD price tables from remote price sources.
package pricer

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/walletview/internal/domain"
	"github.com/vadiminshakov/walletview/internal/metrics"
	"github.com/vadiminshakov/walletview/pkg/retrier"
)

const defaultQuoteCurrency = "USDT"

var (
	// ErrNoPrices is returned when a source answers with an empty price list.
	ErrNoPrices = errors.New("price source returned no prices")
	// ErrPermanent marks failures that retrying will not fix.
	ErrPermanent = errors.New("permanent price source failure")
)

// PriceSource returns the latest price table known to a remote source.
type PriceSource interface {
	Prices(ctx context.Context) (domain.PriceTable, error)
	Name() string
}

// RetryingSource wraps a PriceSource with retries, metrics and logging.
type RetryingSource struct {
	source  PriceSource
	retrier *retrier.Retrier
	logger  *zap.Logger
}

// NewRetryingSource creates a RetryingSource. Errors wrapping ErrPermanent are not retried.
func NewRetryingSource(logger *zap.Logger, source PriceSource, opts ...retrier.Option) *RetryingSource {
	l := logger.With(zap.String("source", source.Name()))
	opts = append([]retrier.Option{
		retrier.WithMaxRetries(3),
		retrier.WithRetryIf(func(err error) bool { return !errors.Is(err, ErrPermanent) }),
		retrier.WithOnRetry(func(attempt int, err error) {
			l.Warn("retrying price fetch", zap.Int("attempt", attempt), zap.Error(err))
		}),
	}, opts...)

	return &RetryingSource{
		source:  source,
		retrier: retrier.New(opts...),
		logger:  l,
	}
}

func (s *RetryingSource) Name() string {
	return s.source.Name()
}

func (s *RetryingSource) Prices(ctx context.Context) (domain.PriceTable, error) {
	start := time.Now()
	table, err := retrier.DoWithData(s.retrier, ctx, s.source.Prices)
	metrics.CollectPriceFetch(s.source.Name(), err, len(table), start)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch prices from %s", s.source.Name())
	}

	s.logger.Debug("prices fetched", zap.Int("currencies", len(table)), zap.Duration("took", time.Since(start)))
	return table, nil
}

type symbolQuote struct {
	symbol string
	price  string
}

// tableFromSymbols builds a price table from exchange tickers quoted in quote currency,
// e.g. BTCUSDT becomes btc. Tickers in other quote currencies and unparsable prices are skipped.
func tableFromSymbols(quotes []symbolQuote, quote string) domain.PriceTable {
	table := make(domain.PriceTable)
	for _, q := range quotes {
		base, ok := strings.CutSuffix(q.symbol, quote)
		if !ok || base == "" {
			continue
		}
		price, err := decimal.NewFromString(q.price)
		if err != nil || price.IsNegative() {
			continue
		}
		table.Set(base, price)
	}
	// the quote currency itself is the unit of account
	if len(table) > 0 {
		if _, ok := table.Lookup(quote); !ok {
			table.Set(quote, decimal.NewFromInt(1))
		}
	}

	return table
}
