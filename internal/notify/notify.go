// Package notify defines the lifecycle events the engine emits and the
// sinks that deliver them. Event emission is fire-and-forget: a slow or
// broken sink never blocks the trading path.
package notify

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies the event type.
type Kind string

const (
	KindPriceSampled           Kind = "price_sampled"
	KindDecisionMade           Kind = "decision_made"
	KindAttemptStarted         Kind = "attempt_started"
	KindAttemptSucceeded       Kind = "attempt_succeeded"
	KindAttemptPartiallyFailed Kind = "attempt_partially_failed"
	KindAttemptAborted         Kind = "attempt_aborted"
)

// Event is a single engine lifecycle notification.
type Event struct {
	Kind      Kind      `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// NewEvent stamps a payload with its kind and the current time.
func NewEvent(kind Kind, payload any) Event {
	return Event{
		Kind:      kind,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// PriceSampled is emitted once per polling cycle per venue quote.
type PriceSampled struct {
	Venue     string          `json:"venue"`
	Pair      string          `json:"pair"`
	Price     decimal.Decimal `json:"price"`
	SampledAt time.Time       `json:"sampled_at"`
}

// DecisionMade is emitted after every spread evaluation.
type DecisionMade struct {
	BuyVenue   string          `json:"buy_venue"`
	SellVenue  string          `json:"sell_venue"`
	SpreadPct  decimal.Decimal `json:"spread_pct"`
	Profitable bool            `json:"profitable"`
	Reason     string          `json:"reason,omitempty"`
}

// AttemptStarted is emitted when an execution attempt begins.
type AttemptStarted struct {
	AttemptID string          `json:"attempt_id"`
	BuyVenue  string          `json:"buy_venue"`
	SellVenue string          `json:"sell_venue"`
	Size      decimal.Decimal `json:"size"`
	SpreadPct decimal.Decimal `json:"spread_pct"`
}

// AttemptSucceeded is emitted when both legs confirm.
type AttemptSucceeded struct {
	AttemptID   string          `json:"attempt_id"`
	BuyTxHash   string          `json:"buy_tx_hash"`
	SellTxHash  string          `json:"sell_tx_hash"`
	RealizedPnL decimal.Decimal `json:"realized_pnl"`
}

// AttemptPartiallyFailed is emitted when the buy leg confirmed but the
// sell leg did not, leaving an open position.
type AttemptPartiallyFailed struct {
	AttemptID string `json:"attempt_id"`
	BuyTxHash string `json:"buy_tx_hash"`
	FailedLeg string `json:"failed_leg"`
	Reason    string `json:"reason"`
}

// AttemptAborted is emitted when the attempt stopped before any value moved.
type AttemptAborted struct {
	AttemptID string `json:"attempt_id"`
	Reason    string `json:"reason"`
}

// Sink delivers events to one destination.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string
	// Notify delivers a single event. Implementations must respect ctx.
	Notify(ctx context.Context, ev Event) error
}
