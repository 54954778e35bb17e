package asset

import "github.com/ethereum/go-ethereum/common"

// Chain IDs
const (
	ChainIDEthereum = 1
	ChainIDSepolia  = 11155111
	ChainIDBSC      = 56
	ChainIDBSCTest  = 97
	ChainIDFiat     = 0 // Off-chain / fiat
)

// Well-known token addresses on Ethereum Mainnet
var (
	AddrUSDCEthereum = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	AddrUSDTEthereum = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
	AddrWETHEthereum = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	AddrWBTCEthereum = common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599")
)

// Well-known token addresses on BNB Smart Chain
var (
	AddrWBNBBSC = common.HexToAddress("0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c")
	AddrBUSDBSC = common.HexToAddress("0xe9e7CEA3DedcA5984780Bafc599bD69ADd087D56")
	AddrUSDCBSC = common.HexToAddress("0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d")
	AddrCAKEBSC = common.HexToAddress("0x0E09FaBB73Bd3Ade0a17ECC321fD13a19e81cE82")
	AddrBETHBSC = common.HexToAddress("0x250632378E573c6Be1AC2f97Fcdf00515d0Aa91B")
)

// Well-known AssetIDs
var (
	// Ethereum Mainnet
	IDEthereumETH  = NewNativeAssetID(ChainIDEthereum)
	IDEthereumUSDC = NewTokenAssetID(ChainIDEthereum, AddrUSDCEthereum)
	IDEthereumUSDT = NewTokenAssetID(ChainIDEthereum, AddrUSDTEthereum)
	IDEthereumWETH = NewTokenAssetID(ChainIDEthereum, AddrWETHEthereum)
	IDEthereumWBTC = NewTokenAssetID(ChainIDEthereum, AddrWBTCEthereum)

	// BNB Smart Chain
	IDBSCBNB  = NewNativeAssetID(ChainIDBSC)
	IDBSCWBNB = NewTokenAssetID(ChainIDBSC, AddrWBNBBSC)
	IDBSCBUSD = NewTokenAssetID(ChainIDBSC, AddrBUSDBSC)
	IDBSCUSDC = NewTokenAssetID(ChainIDBSC, AddrUSDCBSC)
	IDBSCCAKE = NewTokenAssetID(ChainIDBSC, AddrCAKEBSC)
	IDBSCBETH = NewTokenAssetID(ChainIDBSC, AddrBETHBSC)

	// Fiat
	IDUSD = NewFiatAssetID("USD")
)

// Well-known Assets (pre-created instances)
var (
	// Ethereum Mainnet
	ETH  = NewAssetWithName(IDEthereumETH, "ETH", "Ethereum", 18)
	USDC = NewAssetWithName(IDEthereumUSDC, "USDC", "USD Coin", 6)
	USDT = NewAssetWithName(IDEthereumUSDT, "USDT", "Tether USD", 6)
	WETH = NewAssetWithName(IDEthereumWETH, "WETH", "Wrapped Ether", 18)
	WBTC = NewAssetWithName(IDEthereumWBTC, "WBTC", "Wrapped Bitcoin", 8)

	// BNB Smart Chain. Note: bridged tokens on BSC are 18 decimals even
	// when their Ethereum counterparts are not (USDC is 6 on mainnet).
	BNB     = NewAssetWithName(IDBSCBNB, "BNB", "BNB", 18)
	WBNB    = NewAssetWithName(IDBSCWBNB, "WBNB", "Wrapped BNB", 18)
	BUSD    = NewAssetWithName(IDBSCBUSD, "BUSD", "Binance USD", 18)
	USDCBSC = NewAssetWithName(IDBSCUSDC, "USDC", "USD Coin (BSC)", 18)
	CAKE    = NewAssetWithName(IDBSCCAKE, "CAKE", "PancakeSwap Token", 18)
	BETH    = NewAssetWithName(IDBSCBETH, "BETH", "Binance Beacon ETH", 18)

	// Fiat
	USD = NewAssetWithName(IDUSD, "USD", "US Dollar", 2)
)

// DefaultRegistry returns a registry pre-populated with well-known assets.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	// Ethereum Mainnet
	r.Register(ETH)
	r.Register(USDC)
	r.Register(USDT)
	r.Register(WETH)
	r.Register(WBTC)

	// BNB Smart Chain
	r.Register(BNB)
	r.Register(WBNB)
	r.Register(BUSD)
	r.Register(USDCBSC)
	r.Register(CAKE)
	r.Register(BETH)

	// Fiat
	r.Register(USD)

	return r
}

// MustNewToken creates a new ERC20/BEP20 token asset with the given parameters.
// This is a convenience function for registering custom tokens.
func MustNewToken(chainID uint64, address common.Address, symbol, name string, decimals uint8) *Asset {
	id := NewTokenAssetID(chainID, address)
	return NewAssetWithName(id, symbol, name, decimals)
}

// MustNewNative creates a new native coin asset.
func MustNewNative(chainID uint64, symbol, name string, decimals uint8) *Asset {
	id := NewNativeAssetID(chainID)
	return NewAssetWithName(id, symbol, name, decimals)
}
