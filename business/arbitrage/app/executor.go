package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/crosschain-arb/business/arbitrage/domain"
	ledgerdomain "github.com/fd1az/crosschain-arb/business/ledger/domain"
	venueapp "github.com/fd1az/crosschain-arb/business/venue/app"
	venuedomain "github.com/fd1az/crosschain-arb/business/venue/domain"
	"github.com/fd1az/crosschain-arb/internal/apperror"
	"github.com/fd1az/crosschain-arb/internal/asset"
	"github.com/fd1az/crosschain-arb/internal/logger"
	"github.com/fd1az/crosschain-arb/internal/notify"
)

const (
	tracerName = "arbitrage"
	meterName  = "arbitrage"
)

// ExecutorConfig holds execution parameters.
type ExecutorConfig struct {
	SlippagePct   decimal.Decimal // tolerance applied to each leg's floor
	OrderDeadline time.Duration   // router-side deadline per leg
}

// executorMetrics holds OTEL metric instruments.
type executorMetrics struct {
	attemptsTotal   metric.Int64Counter
	partialFailures metric.Int64Counter
	realizedPnL     metric.Float64Histogram
}

// Executor runs one attempt at a time: buy on the cheap venue, then sell
// on the dear one. The buy leg always settles before the sell leg starts,
// so a buy failure aborts cleanly with no value at risk.
type Executor struct {
	config   ExecutorConfig
	adapters map[venuedomain.VenueID]venueapp.Adapter
	recorder AttemptRecorder
	events   EventPublisher
	logger   logger.LoggerInterface

	inFlight atomic.Bool
	tracer   trace.Tracer
	metrics  *executorMetrics
}

var _ TradeExecutor = (*Executor)(nil)

// NewExecutor creates an executor over the given venue adapters.
func NewExecutor(cfg ExecutorConfig, adapters []venueapp.Adapter, recorder AttemptRecorder, events EventPublisher, log logger.LoggerInterface) (*Executor, error) {
	if cfg.OrderDeadline == 0 {
		cfg.OrderDeadline = 2 * time.Minute
	}
	if len(adapters) < 2 {
		return nil, apperror.New(apperror.CodeRequiredField,
			apperror.WithMessage("executor needs at least two venue adapters"))
	}

	byID := make(map[venuedomain.VenueID]venueapp.Adapter, len(adapters))
	for _, a := range adapters {
		byID[a.ID()] = a
	}

	e := &Executor{
		config:   cfg,
		adapters: byID,
		recorder: recorder,
		events:   events,
		logger:   log,
		tracer:   otel.Tracer(tracerName),
	}

	if err := e.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return e, nil
}

func (e *Executor) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	e.metrics = &executorMetrics{}

	e.metrics.attemptsTotal, err = meter.Int64Counter(
		"arbitrage_attempts_total",
		metric.WithDescription("Attempts by terminal outcome"),
	)
	if err != nil {
		return err
	}

	e.metrics.partialFailures, err = meter.Int64Counter(
		"arbitrage_partial_failures_total",
		metric.WithDescription("Attempts that left an open position"),
	)
	if err != nil {
		return err
	}

	e.metrics.realizedPnL, err = meter.Float64Histogram(
		"arbitrage_realized_pnl",
		metric.WithDescription("Realized PnL per successful attempt, in quote units"),
	)
	return err
}

// Execute runs one buy-then-sell attempt for a profitable decision. At
// most one attempt runs at a time; a second call while one is in flight
// fails fast with CodeAttemptInFlight rather than queueing, because a
// queued decision would execute against dead prices.
//
// The returned attempt carries the terminal outcome even when err is
// non-nil.
func (e *Executor) Execute(ctx context.Context, decision domain.Decision) (*domain.Attempt, error) {
	if !decision.Profitable {
		return nil, apperror.New(apperror.CodeInvalidState,
			apperror.WithMessage("refusing to execute an unprofitable decision"))
	}
	if !e.inFlight.CompareAndSwap(false, true) {
		return nil, apperror.New(apperror.CodeAttemptInFlight)
	}
	defer e.inFlight.Store(false)

	ctx, span := e.tracer.Start(ctx, "arbitrage.execute",
		trace.WithAttributes(
			attribute.String("buy_venue", string(decision.BuyVenue)),
			attribute.String("sell_venue", string(decision.SellVenue)),
			attribute.String("spread_pct", decision.SpreadPct.String()),
		),
	)
	defer span.End()

	attempt := &domain.Attempt{
		ID:          uuid.NewString(),
		Decision:    decision,
		RealizedPnL: decimal.Zero,
		StartedAt:   time.Now().UTC(),
	}
	span.SetAttributes(attribute.String("attempt_id", attempt.ID))

	size := decision.BuyQuote.AmountIn.ToDecimal()

	e.events.Publish(ctx, notify.NewEvent(notify.KindAttemptStarted, notify.AttemptStarted{
		AttemptID: attempt.ID,
		BuyVenue:  string(decision.BuyVenue),
		SellVenue: string(decision.SellVenue),
		Size:      size,
		SpreadPct: decision.SpreadPct,
	}))

	e.logger.Info(ctx, "attempt started",
		"attempt_id", attempt.ID,
		"buy_venue", decision.BuyVenue,
		"sell_venue", decision.SellVenue,
		"spread_pct", decision.SpreadPct)

	// Buy leg first. If it fails nothing has moved and the attempt
	// aborts with zero sell-side invocations.
	buyOrder, err := e.buyOrder(decision, size)
	if err != nil {
		return e.abort(ctx, span, attempt, err)
	}
	attempt.BuyLeg = domain.Leg{Order: buyOrder, State: domain.LegPending}
	attempt.SellLeg = domain.Leg{State: domain.LegSkipped}

	buyReceipt, err := e.adapters[decision.BuyVenue].SubmitTrade(ctx, buyOrder)
	if err != nil {
		attempt.BuyLeg.State = domain.LegFailed
		attempt.BuyLeg.Err = err
		return e.abort(ctx, span, attempt, err)
	}
	attempt.BuyLeg.Receipt = buyReceipt
	attempt.BuyLeg.State = domain.LegConfirmed

	e.logger.Info(ctx, "buy leg confirmed",
		"attempt_id", attempt.ID,
		"venue", decision.BuyVenue,
		"tx_hash", buyReceipt.TxHash.Hex())

	// Sell leg. From here on a failure leaves an open position: the
	// attempt is recorded as a partial failure, never unwound here.
	sellOrder, err := e.sellOrder(decision, size)
	if err != nil {
		return e.partialFailure(ctx, span, attempt, err)
	}
	attempt.SellLeg = domain.Leg{Order: sellOrder, State: domain.LegPending}

	sellReceipt, err := e.adapters[decision.SellVenue].SubmitTrade(ctx, sellOrder)
	if err != nil {
		attempt.SellLeg.State = domain.LegFailed
		attempt.SellLeg.Err = err
		return e.partialFailure(ctx, span, attempt, err)
	}
	attempt.SellLeg.Receipt = sellReceipt
	attempt.SellLeg.State = domain.LegConfirmed

	return e.success(ctx, span, attempt)
}

// buyOrder spends quote tokens on the cheap venue to acquire size base
// tokens, with the slippage tolerance applied to the base floor.
func (e *Executor) buyOrder(decision domain.Decision, size decimal.Decimal) (venuedomain.TradeOrder, error) {
	pair := decision.BuyQuote.Pair

	cost := size.Mul(decision.BuyQuote.Price.Rate())
	amountIn, err := asset.ParseDecimal(pair.Quote, cost)
	if err != nil {
		return venuedomain.TradeOrder{}, apperror.Wrap(err, apperror.CodeInvalidTradeSize, "buy amount in")
	}

	floor := size.Mul(decimal.NewFromInt(1).Sub(e.config.SlippagePct.Div(hundred)))
	minOut, err := asset.ParseDecimal(pair.Base, floor)
	if err != nil {
		return venuedomain.TradeOrder{}, apperror.Wrap(err, apperror.CodeInvalidTradeSize, "buy min out")
	}

	return venuedomain.TradeOrder{
		Venue:        decision.BuyVenue,
		Side:         venuedomain.SideBuy,
		Pair:         pair,
		AmountIn:     amountIn,
		MinAmountOut: minOut,
		FeeTier:      decision.BuyQuote.FeeTier, // execute on the pool that was quoted
		Deadline:     time.Now().Add(e.config.OrderDeadline),
	}, nil
}

// sellOrder sells size base tokens on the dear venue for quote tokens.
// Inventory on the sell chain is pre-positioned, so the sell size is the
// planned size rather than the buy leg's exact proceeds.
func (e *Executor) sellOrder(decision domain.Decision, size decimal.Decimal) (venuedomain.TradeOrder, error) {
	pair := decision.SellQuote.Pair

	amountIn, err := asset.ParseDecimal(pair.Base, size)
	if err != nil {
		return venuedomain.TradeOrder{}, apperror.Wrap(err, apperror.CodeInvalidTradeSize, "sell amount in")
	}

	floor := size.Mul(decision.SellQuote.Price.Rate()).
		Mul(decimal.NewFromInt(1).Sub(e.config.SlippagePct.Div(hundred)))
	minOut, err := asset.ParseDecimal(pair.Quote, floor)
	if err != nil {
		return venuedomain.TradeOrder{}, apperror.Wrap(err, apperror.CodeInvalidTradeSize, "sell min out")
	}

	return venuedomain.TradeOrder{
		Venue:        decision.SellVenue,
		Side:         venuedomain.SideSell,
		Pair:         pair,
		AmountIn:     amountIn,
		MinAmountOut: minOut,
		FeeTier:      decision.SellQuote.FeeTier,
		Deadline:     time.Now().Add(e.config.OrderDeadline),
	}, nil
}

func (e *Executor) success(ctx context.Context, span trace.Span, attempt *domain.Attempt) (*domain.Attempt, error) {
	attempt.Outcome = domain.OutcomeSuccess
	attempt.FinishedAt = time.Now().UTC()

	// PnL in quote units: sell proceeds minus buy cost. The two quote
	// tokens live on different chains but both track the same dollar.
	attempt.RealizedPnL = attempt.SellLeg.Receipt.AmountOut.ToDecimal().
		Sub(attempt.BuyLeg.Receipt.AmountIn.ToDecimal())

	e.metrics.attemptsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(domain.OutcomeSuccess))))
	pnl, _ := attempt.RealizedPnL.Float64()
	e.metrics.realizedPnL.Record(ctx, pnl)

	e.record(ctx, attempt)

	e.events.Publish(ctx, notify.NewEvent(notify.KindAttemptSucceeded, notify.AttemptSucceeded{
		AttemptID:   attempt.ID,
		BuyTxHash:   attempt.BuyLeg.Receipt.TxHash.Hex(),
		SellTxHash:  attempt.SellLeg.Receipt.TxHash.Hex(),
		RealizedPnL: attempt.RealizedPnL,
	}))

	e.logger.Info(ctx, "attempt succeeded",
		"attempt_id", attempt.ID,
		"realized_pnl", attempt.RealizedPnL)

	span.SetStatus(codes.Ok, "attempt succeeded")
	return attempt, nil
}

func (e *Executor) abort(ctx context.Context, span trace.Span, attempt *domain.Attempt, cause error) (*domain.Attempt, error) {
	attempt.Outcome = domain.OutcomeAborted
	attempt.FailureClass = apperror.ClassOf(cause)
	attempt.FinishedAt = time.Now().UTC()

	e.metrics.attemptsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(domain.OutcomeAborted))))

	e.reconcileIfAmbiguous(ctx, attempt.Decision.BuyVenue, cause)
	e.record(ctx, attempt)

	e.events.Publish(ctx, notify.NewEvent(notify.KindAttemptAborted, notify.AttemptAborted{
		AttemptID: attempt.ID,
		Reason:    cause.Error(),
	}))

	e.logger.Warn(ctx, "attempt aborted",
		"attempt_id", attempt.ID,
		"class", attempt.FailureClass,
		"error", cause)

	span.SetStatus(codes.Error, "attempt aborted")
	return attempt, cause
}

func (e *Executor) partialFailure(ctx context.Context, span trace.Span, attempt *domain.Attempt, cause error) (*domain.Attempt, error) {
	attempt.Outcome = domain.OutcomePartialFailure
	attempt.FailureClass = apperror.ClassOf(cause)
	attempt.FinishedAt = time.Now().UTC()

	e.metrics.attemptsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(domain.OutcomePartialFailure))))
	e.metrics.partialFailures.Add(ctx, 1)

	e.reconcileIfAmbiguous(ctx, attempt.Decision.SellVenue, cause)
	e.record(ctx, attempt)

	e.events.Publish(ctx, notify.NewEvent(notify.KindAttemptPartiallyFailed, notify.AttemptPartiallyFailed{
		AttemptID: attempt.ID,
		BuyTxHash: attempt.BuyLeg.Receipt.TxHash.Hex(),
		FailedLeg: string(venuedomain.SideSell),
		Reason:    cause.Error(),
	}))

	e.logger.Error(ctx, "attempt partially failed, position open",
		"attempt_id", attempt.ID,
		"buy_tx", attempt.BuyLeg.Receipt.TxHash.Hex(),
		"class", attempt.FailureClass,
		"error", cause)

	span.SetStatus(codes.Error, "partial failure")
	return attempt, cause
}

// reconcileIfAmbiguous re-syncs a venue's nonce after a failure whose
// on-chain state is unknown. Skipping this would strand the next trade
// behind a nonce the mempool may or may not have consumed.
func (e *Executor) reconcileIfAmbiguous(ctx context.Context, venueID venuedomain.VenueID, cause error) {
	if apperror.ClassOf(cause) != apperror.ClassAmbiguous {
		return
	}
	if err := e.adapters[venueID].ReconcileNonce(ctx); err != nil {
		e.logger.Warn(ctx, "nonce reconcile failed",
			"venue", venueID,
			"error", err)
	}
}

// record persists the attempt and its confirmed legs. Storage failures
// are logged by the ledger and never alter the attempt's outcome.
func (e *Executor) record(ctx context.Context, attempt *domain.Attempt) {
	_ = e.recorder.RecordAttempt(ctx, ledgerdomain.AttemptRecord{
		ID:           attempt.ID,
		BuyVenue:     string(attempt.Decision.BuyVenue),
		SellVenue:    string(attempt.Decision.SellVenue),
		SpreadPct:    attempt.Decision.SpreadPct,
		Size:         attempt.Decision.BuyQuote.AmountIn.ToDecimal(),
		Outcome:      string(attempt.Outcome),
		FailureClass: string(attempt.FailureClass),
		RealizedPnL:  attempt.RealizedPnL,
		StartedAt:    attempt.StartedAt,
		FinishedAt:   attempt.FinishedAt,
	})

	for _, leg := range []domain.Leg{attempt.BuyLeg, attempt.SellLeg} {
		if leg.Receipt == nil {
			continue
		}
		_ = e.recorder.RecordTrade(ctx, ledgerdomain.TradeRecord{
			ID:         uuid.NewString(),
			AttemptID:  attempt.ID,
			Venue:      string(leg.Receipt.Venue),
			Side:       string(leg.Receipt.Side),
			TxHash:     leg.Receipt.TxHash.Hex(),
			AmountIn:   leg.Receipt.AmountIn.ToDecimal(),
			AmountOut:  leg.Receipt.AmountOut.ToDecimal(),
			GasUsed:    leg.Receipt.GasUsed,
			ExecutedAt: leg.Receipt.ConfirmedAt,
		})
	}
}
