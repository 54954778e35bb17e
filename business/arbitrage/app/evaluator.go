package app

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/crosschain-arb/business/arbitrage/domain"
	pricingdomain "github.com/fd1az/crosschain-arb/business/pricing/domain"
)

var hundred = decimal.NewFromInt(100)

// Evaluator turns a price sample into a trading decision. It is pure
// computation: no I/O, no side effects.
type Evaluator struct {
	threshold decimal.Decimal // minimum spread in percent
}

// NewEvaluator creates an evaluator with the given spread threshold.
func NewEvaluator(threshold decimal.Decimal) *Evaluator {
	return &Evaluator{threshold: threshold}
}

// Evaluate picks the cheapest venue to buy on and the dearest to sell on,
// and compares the spread against the threshold. The spread must strictly
// exceed the threshold: a spread exactly at the threshold does not trade,
// because fees and slippage eat the entire edge at the boundary.
//
// An incomplete sample never trades. A stale quote from the failed venue
// could hide the true spread in either direction, so the only safe
// decision is no decision.
func (e *Evaluator) Evaluate(sample *pricingdomain.Sample) domain.Decision {
	decision := domain.Decision{
		Threshold:   e.threshold,
		EvaluatedAt: time.Now().UTC(),
	}

	if !sample.Complete() {
		decision.Reason = "incomplete sample"
		return decision
	}
	if len(sample.Quotes) < 2 {
		decision.Reason = "need at least two venues"
		return decision
	}

	first := true
	for id, q := range sample.Quotes {
		rate := q.Price.Rate()
		if rate.IsZero() {
			decision.Reason = "zero price from " + string(id)
			return decision
		}
		if first || rate.LessThan(decision.BuyQuote.Price.Rate()) {
			decision.BuyVenue = id
			decision.BuyQuote = q
		}
		if first || rate.GreaterThan(decision.SellQuote.Price.Rate()) {
			decision.SellVenue = id
			decision.SellQuote = q
		}
		first = false
	}

	buy := decision.BuyQuote.Price.Rate()
	sell := decision.SellQuote.Price.Rate()
	decision.SpreadPct = sell.Sub(buy).Div(buy).Mul(hundred)

	if decision.BuyVenue == decision.SellVenue {
		decision.Reason = "no cross-venue spread"
		return decision
	}
	if !decision.SpreadPct.GreaterThan(e.threshold) {
		decision.Reason = "spread below threshold"
		return decision
	}

	decision.Profitable = true
	return decision
}
