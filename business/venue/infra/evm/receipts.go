package evm

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/fd1az/crosschain-arb/internal/apperror"
)

// ReceiptReader is the subset of the RPC client needed to confirm
// transactions. *ethclient.Client satisfies it.
type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// WaitMined polls for a transaction receipt until the transaction mines,
// the timeout elapses, or the context is cancelled.
//
// The error taxonomy matters here: a mined-but-failed transaction is
// ONCHAIN_REVERTED (value definitively did not move), while a timeout or
// cancellation is AMBIGUOUS (the transaction may still mine later). Callers
// must not retry after an ambiguous result without reconciling first.
func WaitMined(ctx context.Context, client ReceiptReader, txHash common.Hash, poll, timeout time.Duration) (*types.Receipt, error) {
	deadline := time.Now().Add(timeout)

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		receipt, err := client.TransactionReceipt(ctx, txHash)
		if err == nil {
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, apperror.New(apperror.CodeTradeReverted,
					apperror.WithContext(txHash.Hex()))
			}
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			// RPC failure mid-wait: the transaction is in flight and we
			// cannot see it. That is ambiguous, not transient.
			return nil, apperror.New(apperror.CodeTradeAmbiguous,
				apperror.WithMessage("receipt lookup failed while transaction in flight"),
				apperror.WithCause(err),
				apperror.WithContext(txHash.Hex()))
		}

		if time.Now().After(deadline) {
			return nil, apperror.New(apperror.CodeReceiptTimeout,
				apperror.WithContext(txHash.Hex()))
		}

		select {
		case <-ctx.Done():
			return nil, apperror.New(apperror.CodeTradeAmbiguous,
				apperror.WithMessage("cancelled while waiting for receipt"),
				apperror.WithCause(ctx.Err()),
				apperror.WithContext(txHash.Hex()))
		case <-ticker.C:
		}
	}
}
