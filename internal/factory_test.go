package internal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/walletview/config"
)

func TestNewPriceSource(t *testing.T) {
	tests := []struct {
		name        string
		source      string
		expectError bool
		expectName  string
	}{
		{name: "switcheo", source: config.SourceSwitcheo, expectName: "switcheo"},
		{name: "binance", source: config.SourceBinance, expectName: "binance"},
		{name: "bybit", source: config.SourceBybit, expectName: "bybit"},
		{name: "hyperliquid without key", source: config.SourceHyperliquid, expectError: true},
		{name: "unsupported", source: "kraken", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(hyperliquidKeyEnv, "")

			src, err := NewPriceSource(config.Config{PriceSource: tt.source}, zap.NewNop())
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectName, src.Name())
		})
	}
}

func TestNewBalanceSource(t *testing.T) {
	_, err := NewBalanceSource(context.Background(), config.Config{})
	assert.Error(t, err)

	src, err := NewBalanceSource(context.Background(), config.Config{BalancesFile: "balances.yaml"})
	require.NoError(t, err)
	assert.NotNil(t, src)

	_, err = NewBalanceSource(context.Background(), config.Config{
		EthereumRPC:       "http://127.0.0.1:8545",
		EthereumAddresses: []string{"nope"},
	})
	assert.Error(t, err)
}
