// Package domain contains the core domain types for the arbitrage context.
package domain

import (
	"time"

	"github.com/shopspring/decimal"

	venue "github.com/fd1az/crosschain-arb/business/venue/domain"
)

// Decision is the outcome of evaluating one sample against the spread
// threshold. It is produced for every complete evaluation, profitable or
// not, so the decision stream is auditable.
type Decision struct {
	BuyVenue    venue.VenueID
	SellVenue   venue.VenueID
	BuyQuote    venue.Quote
	SellQuote   venue.Quote
	SpreadPct   decimal.Decimal
	Threshold   decimal.Decimal
	Profitable  bool
	Reason      string // set when not profitable
	EvaluatedAt time.Time
}
