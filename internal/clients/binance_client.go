package clients

import (
	"github.com/adshao/go-binance/v2"
)

// NewBinanceClient creates a client for the public market data endpoints. Keys are optional.
func NewBinanceClient(apiKey, apiSecret string) *binance.Client {
	return binance.NewClient(apiKey, apiSecret)
}
