// Package domain contains the core domain types for the venue context.
package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/crosschain-arb/internal/asset"
)

// VenueID identifies an on-chain exchange.
type VenueID string

const (
	VenueUniswapV3 VenueID = "uniswap_v3"
	VenuePancakeV2 VenueID = "pancakeswap_v2"
)

// Side represents the side of a trade relative to the base asset.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Pair is the traded pair as it exists on one venue. The same logical pair
// has different token contracts on each chain.
type Pair struct {
	Base  *asset.Asset // e.g., WETH on Ethereum, BETH on BSC
	Quote *asset.Asset // e.g., USDC on Ethereum, BUSD on BSC
}

// NewPair creates a new trading pair.
func NewPair(base, quote *asset.Asset) Pair {
	if base == nil || quote == nil {
		panic("venue: nil asset in pair")
	}
	return Pair{Base: base, Quote: quote}
}

// String returns the pair symbol (e.g., "WETH-USDC").
func (p Pair) String() string {
	return p.Base.Symbol() + "-" + p.Quote.Symbol()
}

// Quote is a venue's answer to "what does size base cost right now". It
// reflects actual executable depth, not a mid price: AmountOut is what the
// venue's router reports for swapping AmountIn.
type Quote struct {
	Venue     VenueID
	Pair      Pair
	Price     asset.Price  // quote token per base token
	AmountIn  asset.Amount // the probed trade size, in base
	AmountOut asset.Amount // expected proceeds, in quote
	FeeTier   int          // pool fee tier the quote came from; zero on venues without tiers
	SampledAt time.Time
}

// NewQuote derives the effective price from the probed amounts.
func NewQuote(venue VenueID, pair Pair, amountIn, amountOut asset.Amount) Quote {
	rate := decimalRate(amountIn, amountOut)
	return Quote{
		Venue:     venue,
		Pair:      pair,
		Price:     asset.NewPriceNow(pair.Base, pair.Quote, rate),
		AmountIn:  amountIn,
		AmountOut: amountOut,
		SampledAt: time.Now(),
	}
}

// IsStale reports whether the quote is older than maxAge.
func (q Quote) IsStale(maxAge time.Duration) bool {
	return time.Since(q.SampledAt) > maxAge
}

func decimalRate(amountIn, amountOut asset.Amount) decimal.Decimal {
	if amountIn.IsZero() {
		return decimal.Zero
	}
	return amountOut.ToDecimal().Div(amountIn.ToDecimal())
}

// TradeOrder is a request to swap on one venue. AmountIn is denominated in
// the asset being spent: quote for buys, base for sells.
type TradeOrder struct {
	Venue        VenueID
	Side         Side
	Pair         Pair
	AmountIn     asset.Amount
	MinAmountOut asset.Amount // slippage floor, enforced by the router
	FeeTier      int          // pool to execute on; must match the quoted tier
	Deadline     time.Time
}

// TradeReceipt is the confirmed on-chain outcome of a trade.
type TradeReceipt struct {
	Venue       VenueID
	Side        Side
	TxHash      common.Hash
	Nonce       uint64
	AmountIn    asset.Amount
	AmountOut   asset.Amount
	GasUsed     uint64
	BlockNumber uint64
	ConfirmedAt time.Time
}
