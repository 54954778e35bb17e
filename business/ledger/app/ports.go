// Package app contains the ledger service and its storage port.
package app

import (
	"context"
	"time"

	"github.com/fd1az/crosschain-arb/business/ledger/domain"
)

// Store is the persistence port for the ledger context. Implemented by
// the postgres store in production and the memory store in tests and
// storage-less deployments.
type Store interface {
	SaveTrade(ctx context.Context, trade domain.TradeRecord) error
	SaveAttempt(ctx context.Context, attempt domain.AttemptRecord) error
	AttemptsSince(ctx context.Context, since time.Time) ([]domain.AttemptRecord, error)
	TradesByAttempt(ctx context.Context, attemptID string) ([]domain.TradeRecord, error)
	Ping(ctx context.Context) error
}
