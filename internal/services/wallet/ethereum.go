package wallet

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/walletview/internal/domain"
)

const weiDecimals = 18

type balanceReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// EthereumSource reads native ETH balances of a set of addresses over JSON-RPC.
type EthereumSource struct {
	client    balanceReader
	addresses []common.Address
}

// DialEthereumSource connects to rpcURL.
func DialEthereumSource(ctx context.Context, rpcURL string, addresses []string) (*EthereumSource, error) {
	parsed := make([]common.Address, 0, len(addresses))
	for _, a := range addresses {
		if !common.IsHexAddress(a) {
			return nil, errors.Errorf("invalid ethereum address %q", a)
		}
		parsed = append(parsed, common.HexToAddress(a))
	}

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, errors.Wrap(err, "dial ethereum rpc")
	}

	return &EthereumSource{client: client, addresses: parsed}, nil
}

func (s *EthereumSource) Balances(ctx context.Context) ([]domain.RawBalance, error) {
	balances := make([]domain.RawBalance, 0, len(s.addresses))
	for _, addr := range s.addresses {
		wei, err := s.client.BalanceAt(ctx, addr, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "balance of %s", addr.Hex())
		}
		balances = append(balances, domain.RawBalance{
			Currency: "ETH",
			Amount:   weiToEther(wei),
			Chain:    domain.ChainEthereum,
		})
	}

	return balances, nil
}

func weiToEther(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -weiDecimals)
}
