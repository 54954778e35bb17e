package evm

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(common.LeftPadBytes(addr.Bytes(), 32))
}

func transferLog(token, from, to common.Address, amount *big.Int) *types.Log {
	return &types.Log{
		Address: token,
		Topics:  []common.Hash{TransferTopic, addressTopic(from), addressTopic(to)},
		Data:    common.LeftPadBytes(amount.Bytes(), 32),
	}
}

func TestTransferredTo(t *testing.T) {
	token := common.HexToAddress("0x1111111111111111111111111111111111111111")
	other := common.HexToAddress("0x2222222222222222222222222222222222222222")
	pool := common.HexToAddress("0x3333333333333333333333333333333333333333")
	recipient := common.HexToAddress("0x4444444444444444444444444444444444444444")

	tests := []struct {
		name      string
		logs      []*types.Log
		wantTotal *big.Int
		wantFound bool
	}{
		{
			name:      "single transfer to recipient",
			logs:      []*types.Log{transferLog(token, pool, recipient, big.NewInt(1500))},
			wantTotal: big.NewInt(1500),
			wantFound: true,
		},
		{
			name: "multi-hop transfers are summed",
			logs: []*types.Log{
				transferLog(token, pool, recipient, big.NewInt(1000)),
				transferLog(token, pool, recipient, big.NewInt(500)),
			},
			wantTotal: big.NewInt(1500),
			wantFound: true,
		},
		{
			name: "other token ignored",
			logs: []*types.Log{
				transferLog(other, pool, recipient, big.NewInt(999)),
				transferLog(token, pool, recipient, big.NewInt(1500)),
			},
			wantTotal: big.NewInt(1500),
			wantFound: true,
		},
		{
			name:      "transfer to someone else ignored",
			logs:      []*types.Log{transferLog(token, recipient, pool, big.NewInt(1500))},
			wantFound: false,
		},
		{
			name:      "no logs",
			logs:      nil,
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			receipt := &types.Receipt{Logs: tt.logs}

			total, found := TransferredTo(receipt, token, recipient)
			if found != tt.wantFound {
				t.Fatalf("found = %v, want %v", found, tt.wantFound)
			}
			if tt.wantFound && total.Cmp(tt.wantTotal) != 0 {
				t.Errorf("total = %s, want %s", total, tt.wantTotal)
			}
		})
	}
}
