package pancake

import (
	"context"
	"errors"
	"io"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/fd1az/crosschain-arb/business/venue/domain"
	"github.com/fd1az/crosschain-arb/business/venue/infra/evm"
	"github.com/fd1az/crosschain-arb/internal/apperror"
	"github.com/fd1az/crosschain-arb/internal/asset"
	"github.com/fd1az/crosschain-arb/internal/logger"
)

// Well-known anvil test key, never used on a real chain.
const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

func testPair() domain.Pair {
	return domain.NewPair(asset.BETH, asset.BUSD)
}

// fakeClient serves a scripted getAmountsOut response and, when mined is
// set, a successful receipt for submissions.
type fakeClient struct {
	amounts     []*big.Int
	callErr     error
	mined       bool
	receiptLogs []*types.Log
	sent        []*types.Transaction
}

func (f *fakeClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if f.callErr != nil {
		return nil, f.callErr
	}
	routerABI, err := abi.JSON(strings.NewReader(RouterABI))
	if err != nil {
		return nil, err
	}
	return routerABI.Methods["getAmountsOut"].Outputs.Pack(f.amounts)
}

func (f *fakeClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 0, nil
}

func (f *fakeClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if !f.mined {
		return nil, ethereum.NotFound
	}
	return &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		GasUsed:     160000,
		BlockNumber: big.NewInt(42),
		Logs:        f.receiptLogs,
	}, nil
}

func (f *fakeClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(3_000_000_000), nil
}

func (f *fakeClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return 200000, nil
}

func (f *fakeClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeClient) BlockNumber(ctx context.Context) (uint64, error) {
	return 1, nil
}

func wei(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad wei literal: " + s)
	}
	return n
}

func TestAdapter_GetPrice(t *testing.T) {
	// Probe 1 BETH, router answers 2030.5 BUSD (both 18 decimals).
	client := &fakeClient{amounts: []*big.Int{
		wei("1000000000000000000"),
		wei("2030500000000000000000"),
	}}

	adapter, err := NewAdapter(AdapterConfig{Pair: testPair()}, client, nil, testLogger())
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}

	size, err := asset.ParseString(asset.BETH, "1")
	if err != nil {
		t.Fatalf("parse size: %v", err)
	}

	quote, err := adapter.GetPrice(context.Background(), size)
	if err != nil {
		t.Fatalf("GetPrice: %v", err)
	}

	if quote.Venue != domain.VenuePancakeV2 {
		t.Errorf("Venue = %s, want %s", quote.Venue, domain.VenuePancakeV2)
	}
	if want := decimal.RequireFromString("2030.5"); !quote.Price.Rate().Equal(want) {
		t.Errorf("rate = %s, want %s", quote.Price.Rate(), want)
	}
	if want := decimal.RequireFromString("2030.5"); !quote.AmountOut.ToDecimal().Equal(want) {
		t.Errorf("AmountOut = %s, want %s", quote.AmountOut.ToDecimal(), want)
	}
}

func TestAdapter_GetPrice_CallFailure(t *testing.T) {
	client := &fakeClient{callErr: errors.New("connection refused")}

	adapter, err := NewAdapter(AdapterConfig{Pair: testPair()}, client, nil, testLogger())
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}

	size, _ := asset.ParseString(asset.BETH, "1")
	_, err = adapter.GetPrice(context.Background(), size)
	if apperror.GetCode(err) != apperror.CodeContractCallFailed {
		t.Fatalf("error code = %s, want %s", apperror.GetCode(err), apperror.CodeContractCallFailed)
	}
}

func TestAdapter_GetPrice_EmptyPath(t *testing.T) {
	// A single-element answer means the pair has no liquidity path.
	client := &fakeClient{amounts: []*big.Int{wei("1000000000000000000")}}

	adapter, err := NewAdapter(AdapterConfig{Pair: testPair()}, client, nil, testLogger())
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}

	size, _ := asset.ParseString(asset.BETH, "1")
	_, err = adapter.GetPrice(context.Background(), size)
	if apperror.GetCode(err) != apperror.CodePoolNotFound {
		t.Fatalf("error code = %s, want %s", apperror.GetCode(err), apperror.CodePoolNotFound)
	}
}

func TestAdapter_SubmitTrade(t *testing.T) {
	signer, err := evm.NewSigner(testKey, 56)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	// Selling 1 BETH; the pair pays out 2030.5 BUSD, above the floor.
	pool := common.HexToAddress("0x58F876857a02D6762E0101bb5C46A8c1ED44Dc16")
	fill := decimal.RequireFromString("2030.5").Shift(18).BigInt()
	client := &fakeClient{
		mined: true,
		receiptLogs: []*types.Log{{
			Address: asset.BUSD.Address(),
			Topics: []common.Hash{
				evm.TransferTopic,
				common.BytesToHash(common.LeftPadBytes(pool.Bytes(), 32)),
				common.BytesToHash(common.LeftPadBytes(signer.Address().Bytes(), 32)),
			},
			Data: common.LeftPadBytes(fill.Bytes(), 32),
		}},
	}

	adapter, err := NewAdapter(AdapterConfig{
		Pair:           testPair(),
		ReceiptPoll:    time.Millisecond,
		ReceiptTimeout: time.Second,
	}, client, signer, testLogger())
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	t.Cleanup(adapter.Close)

	size, _ := asset.ParseString(asset.BETH, "1")
	floor, _ := asset.ParseString(asset.BUSD, "2000")

	receipt, err := adapter.SubmitTrade(context.Background(), domain.TradeOrder{
		Venue:        domain.VenuePancakeV2,
		Side:         domain.SideSell,
		Pair:         testPair(),
		AmountIn:     size,
		MinAmountOut: floor,
		Deadline:     time.Now().Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("SubmitTrade: %v", err)
	}

	// The receipt must carry the realized fill from the transfer log,
	// not the slippage floor.
	if want, _ := asset.ParseString(asset.BUSD, "2030.5"); !receipt.AmountOut.Equals(want) {
		t.Errorf("AmountOut = %s, want %s", receipt.AmountOut, want)
	}
	if receipt.GasUsed != 160000 {
		t.Errorf("GasUsed = %d, want 160000", receipt.GasUsed)
	}
	if len(client.sent) != 1 {
		t.Fatalf("sent %d transactions, want 1", len(client.sent))
	}
}

func TestAdapter_SubmitTrade_RequiresSigner(t *testing.T) {
	adapter, err := NewAdapter(AdapterConfig{Pair: testPair()}, &fakeClient{}, nil, testLogger())
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}

	size, _ := asset.ParseString(asset.BETH, "1")
	floor, _ := asset.ParseString(asset.BUSD, "2000")

	_, err = adapter.SubmitTrade(context.Background(), domain.TradeOrder{
		Venue:        domain.VenuePancakeV2,
		Side:         domain.SideSell,
		Pair:         testPair(),
		AmountIn:     size,
		MinAmountOut: floor,
		Deadline:     time.Now().Add(time.Minute),
	})
	if apperror.GetCode(err) != apperror.CodeInvalidState {
		t.Fatalf("error code = %s, want %s", apperror.GetCode(err), apperror.CodeInvalidState)
	}
}
