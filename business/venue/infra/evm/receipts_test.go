package evm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/fd1az/crosschain-arb/internal/apperror"
)

// fakeReceiptReader serves scripted receipt lookups.
type fakeReceiptReader struct {
	receipt   *types.Receipt
	err       error
	notFounds int // serve NotFound this many times first
}

func (f *fakeReceiptReader) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if f.notFounds > 0 {
		f.notFounds--
		return nil, ethereum.NotFound
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.receipt, nil
}

func TestWaitMined(t *testing.T) {
	tests := []struct {
		name     string
		reader   *fakeReceiptReader
		timeout  time.Duration
		wantCode apperror.Code
	}{
		{
			name:    "mined after a few polls",
			reader:  &fakeReceiptReader{receipt: &types.Receipt{Status: types.ReceiptStatusSuccessful}, notFounds: 2},
			timeout: time.Second,
		},
		{
			name:     "reverted transaction",
			reader:   &fakeReceiptReader{receipt: &types.Receipt{Status: types.ReceiptStatusFailed}},
			timeout:  time.Second,
			wantCode: apperror.CodeTradeReverted,
		},
		{
			name:     "rpc failure mid wait is ambiguous",
			reader:   &fakeReceiptReader{err: errors.New("connection reset")},
			timeout:  time.Second,
			wantCode: apperror.CodeTradeAmbiguous,
		},
		{
			name:     "timeout",
			reader:   &fakeReceiptReader{notFounds: 1 << 30},
			timeout:  10 * time.Millisecond,
			wantCode: apperror.CodeReceiptTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := WaitMined(context.Background(), tt.reader, common.HexToHash("0x1"), time.Millisecond, tt.timeout)

			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("WaitMined: %v", err)
				}
				return
			}
			if apperror.GetCode(err) != tt.wantCode {
				t.Fatalf("error code = %s, want %s", apperror.GetCode(err), tt.wantCode)
			}
		})
	}
}

func TestWaitMined_RevertIsNotRetryable(t *testing.T) {
	reader := &fakeReceiptReader{receipt: &types.Receipt{Status: types.ReceiptStatusFailed}}

	_, err := WaitMined(context.Background(), reader, common.HexToHash("0x1"), time.Millisecond, time.Second)

	if apperror.ClassOf(err) != apperror.ClassOnChainReverted {
		t.Errorf("class = %s, want %s", apperror.ClassOf(err), apperror.ClassOnChainReverted)
	}
	if apperror.IsRetryable(err) {
		t.Error("a reverted trade must never be retryable")
	}
}

func TestWaitMined_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := &fakeReceiptReader{notFounds: 1 << 30}
	_, err := WaitMined(ctx, reader, common.HexToHash("0x1"), time.Millisecond, time.Second)

	if apperror.GetCode(err) != apperror.CodeTradeAmbiguous {
		t.Fatalf("error code = %s, want %s", apperror.GetCode(err), apperror.CodeTradeAmbiguous)
	}
}
