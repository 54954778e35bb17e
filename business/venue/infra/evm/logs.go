package evm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// TransferTopic is the keccak hash of the ERC20 Transfer event signature.
var TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// TransferredTo sums the ERC20 Transfer amounts of token credited to
// recipient in a mined receipt. This is how the actual swap output is
// read back: the router enforces the order's floor, but only the logs
// carry the realized fill. It reports false when the receipt holds no
// such transfer, which happens with nonstandard tokens that skip the
// event.
func TransferredTo(receipt *types.Receipt, token, recipient common.Address) (*big.Int, bool) {
	total := new(big.Int)
	found := false

	for _, entry := range receipt.Logs {
		if entry == nil || entry.Address != token {
			continue
		}
		if len(entry.Topics) != 3 || entry.Topics[0] != TransferTopic {
			continue
		}
		if common.BytesToAddress(entry.Topics[2].Bytes()) != recipient {
			continue
		}
		total.Add(total, new(big.Int).SetBytes(entry.Data))
		found = true
	}

	return total, found
}
