// Package app contains the spread evaluator, trade executor and
// scheduler for the arbitrage context.
package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fd1az/crosschain-arb/business/arbitrage/domain"
	ledgerdomain "github.com/fd1az/crosschain-arb/business/ledger/domain"
	pricingdomain "github.com/fd1az/crosschain-arb/business/pricing/domain"
	"github.com/fd1az/crosschain-arb/internal/notify"
)

// Sampler is the slice of the price oracle the scheduler needs.
// *pricing/app.Oracle satisfies it.
type Sampler interface {
	Sample(ctx context.Context, amount decimal.Decimal) (*pricingdomain.Sample, error)
}

// TradeExecutor runs one full attempt for a profitable decision.
// *Executor satisfies it.
type TradeExecutor interface {
	Execute(ctx context.Context, decision domain.Decision) (*domain.Attempt, error)
}

// AttemptRecorder is the slice of the ledger the executor needs.
// *ledger/app.LedgerService satisfies it.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, attempt ledgerdomain.AttemptRecord) error
	RecordTrade(ctx context.Context, trade ledgerdomain.TradeRecord) error
}

// EventPublisher is the slice of the notification dispatcher this
// context needs. *notify.Dispatcher satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, ev notify.Event)
}
