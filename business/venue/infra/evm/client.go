package evm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
)

// Client is the full RPC surface a venue adapter needs. *ethclient.Client
// satisfies it; tests substitute a hand-rolled fake.
type Client interface {
	NonceReader
	ReceiptReader
	GasReader
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	BlockNumber(ctx context.Context) (uint64, error)
}
