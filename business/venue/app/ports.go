// Package app contains port definitions for the venue context.
package app

import (
	"context"

	"github.com/fd1az/crosschain-arb/business/venue/domain"
	"github.com/fd1az/crosschain-arb/internal/asset"
)

// Adapter is the uniform surface over one on-chain exchange. The rest of
// the engine is venue-agnostic: the oracle and executor only ever see this
// interface.
type Adapter interface {
	// ID identifies the venue.
	ID() domain.VenueID

	// Pair returns the traded pair as configured on this venue.
	Pair() domain.Pair

	// GetPrice returns the executable quote for swapping size of base into
	// the quote token. Implementations must return fresh on-chain data,
	// not a cached mid price.
	GetPrice(ctx context.Context, size asset.Amount) (*domain.Quote, error)

	// SubmitTrade signs, submits and confirms a swap. It returns only
	// once the transaction is mined or the error is classified:
	// VENUE_REJECTED when the venue refused it, ONCHAIN_REVERTED when it
	// mined but failed, AMBIGUOUS when the on-chain state is unknown.
	SubmitTrade(ctx context.Context, order domain.TradeOrder) (*domain.TradeReceipt, error)

	// ReconcileNonce re-syncs the adapter's nonce tracking with the
	// chain. Called after ambiguous submission failures before the
	// adapter may be used again.
	ReconcileNonce(ctx context.Context) error

	// Healthy reports whether the venue's node is reachable.
	Healthy(ctx context.Context) (bool, string)

	// Close releases the adapter's local resources. It does not close
	// the shared chain client.
	Close()
}
