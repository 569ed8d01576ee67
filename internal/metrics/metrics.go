// Package metrics holds the prometheus collectors of the wallet view.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "walletview"

var (
	PriceFetchHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "price_fetch_duration_seconds",
			Help:      "Time taken to fetch a price table",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"source", "error"},
	)

	PriceTableSizeGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "price_table_size",
			Help:      "Number of currencies in the last fetched price table",
		}, []string{"source"},
	)

	MemoLookupCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "balance_rank_memo_lookups_total",
			Help:      "Ranked balance cache lookups",
		}, []string{"hit"},
	)

	DisplayedBalancesGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "displayed_balances",
			Help:      "Number of balances on the last rendered wallet view",
		},
	)
)

func CollectPriceFetch(source string, err error, size int, start time.Time) {
	PriceFetchHistogram.
		WithLabelValues(source, errLabelValue(err)).
		Observe(time.Since(start).Seconds())
	if err == nil {
		PriceTableSizeGauge.WithLabelValues(source).Set(float64(size))
	}
}

func CollectMemoLookup(hit bool) {
	label := "false"
	if hit {
		label = "true"
	}
	MemoLookupCounter.WithLabelValues(label).Inc()
}

func CollectDisplayedBalances(n int) {
	DisplayedBalancesGauge.Set(float64(n))
}

func errLabelValue(err error) string {
	if err != nil {
		return "true"
	}
	return "false"
}
