// Package evm provides the chain-level plumbing shared by all venue
// adapters: transaction signing, nonce sequencing, receipt confirmation
// and gas pricing.
package evm

import (
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/fd1az/crosschain-arb/internal/apperror"
)

// Signer holds one chain's signing key. The same key may not be shared
// across Signers for the same chain: nonce tracking assumes this process
// is the only writer for the address.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
	signer  types.Signer
}

// NewSigner creates a signer from a hex-encoded private key.
func NewSigner(hexKey string, chainID uint64) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, apperror.New(apperror.CodeSigningFailed,
			apperror.WithMessage("invalid private key"),
			apperror.WithCause(err))
	}

	id := new(big.Int).SetUint64(chainID)

	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: id,
		signer:  types.LatestSignerForChainID(id),
	}, nil
}

// Address returns the signing address.
func (s *Signer) Address() common.Address {
	return s.address
}

// ChainID returns the chain this signer is bound to.
func (s *Signer) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

// SignTx signs a transaction for this signer's chain.
func (s *Signer) SignTx(tx *types.Transaction) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, s.signer, s.key)
	if err != nil {
		return nil, apperror.New(apperror.CodeSigningFailed,
			apperror.WithCause(err),
			apperror.WithContext(s.address.Hex()))
	}
	return signed, nil
}
