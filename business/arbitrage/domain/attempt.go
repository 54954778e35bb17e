package domain

import (
	"time"

	"github.com/shopspring/decimal"

	venue "github.com/fd1az/crosschain-arb/business/venue/domain"
	"github.com/fd1az/crosschain-arb/internal/apperror"
)

// Outcome is the terminal state of an attempt. The string values are
// stored verbatim in the ledger.
type Outcome string

const (
	// OutcomeSuccess means both legs confirmed on-chain.
	OutcomeSuccess Outcome = "success"

	// OutcomePartialFailure means the buy leg confirmed but the sell leg
	// did not, leaving an open base position.
	OutcomePartialFailure Outcome = "partial_failure"

	// OutcomeAborted means the attempt stopped before any value moved.
	OutcomeAborted Outcome = "aborted"
)

// LegState tracks one leg through its lifecycle.
type LegState string

const (
	LegPending   LegState = "pending"
	LegConfirmed LegState = "confirmed"
	LegFailed    LegState = "failed"
	LegSkipped   LegState = "skipped" // sell leg after the buy leg failed
)

// Leg is one side of an attempt: the order sent and what came back.
type Leg struct {
	Order   venue.TradeOrder
	Receipt *venue.TradeReceipt // nil unless confirmed
	State   LegState
	Err     error
}

// Attempt is one buy-then-sell execution, tracked from start to its
// terminal outcome.
type Attempt struct {
	ID           string
	Decision     Decision
	BuyLeg       Leg
	SellLeg      Leg
	Outcome      Outcome
	FailureClass apperror.Class // empty on success
	RealizedPnL  decimal.Decimal
	StartedAt    time.Time
	FinishedAt   time.Time
}
