// Package domain contains the persistence records for the ledger context.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord is one confirmed leg, as written to storage. Amounts are in
// human units, not raw chain units.
type TradeRecord struct {
	ID         string
	AttemptID  string
	Venue      string
	Side       string
	TxHash     string
	AmountIn   decimal.Decimal
	AmountOut  decimal.Decimal
	GasUsed    uint64
	ExecutedAt time.Time
}

// AttemptRecord is one full arbitrage attempt with its outcome.
type AttemptRecord struct {
	ID           string
	BuyVenue     string
	SellVenue    string
	SpreadPct    decimal.Decimal
	Size         decimal.Decimal
	Outcome      string
	FailureClass string
	RealizedPnL  decimal.Decimal
	StartedAt    time.Time
	FinishedAt   time.Time
}

// PnLEntry is one bucket of a profit rollup.
type PnLEntry struct {
	PeriodStart time.Time
	Attempts    int
	Succeeded   int
	RealizedPnL decimal.Decimal
}
