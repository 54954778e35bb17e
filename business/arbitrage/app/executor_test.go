package app

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/crosschain-arb/business/arbitrage/domain"
	ledgerdomain "github.com/fd1az/crosschain-arb/business/ledger/domain"
	venueapp "github.com/fd1az/crosschain-arb/business/venue/app"
	venuedomain "github.com/fd1az/crosschain-arb/business/venue/domain"
	"github.com/fd1az/crosschain-arb/internal/apperror"
	"github.com/fd1az/crosschain-arb/internal/asset"
	"github.com/fd1az/crosschain-arb/internal/logger"
	"github.com/fd1az/crosschain-arb/internal/notify"
)

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

// mockAdapter implements the venue adapter port with scripted behavior.
type mockAdapter struct {
	id   venuedomain.VenueID
	pair venuedomain.Pair

	mu             sync.Mutex
	submitErr      error
	fill           *asset.Amount // scripted realized fill; nil fills at the floor
	submitCalls    int
	reconcileCalls int
	orders         []venuedomain.TradeOrder
}

func (m *mockAdapter) ID() venuedomain.VenueID { return m.id }

func (m *mockAdapter) Pair() venuedomain.Pair { return m.pair }

func (m *mockAdapter) GetPrice(ctx context.Context, size asset.Amount) (*venuedomain.Quote, error) {
	panic("executor must not probe prices")
}

func (m *mockAdapter) SubmitTrade(ctx context.Context, order venuedomain.TradeOrder) (*venuedomain.TradeReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.submitCalls++
	m.orders = append(m.orders, order)
	if m.submitErr != nil {
		return nil, m.submitErr
	}

	amountOut := order.MinAmountOut
	if m.fill != nil {
		amountOut = *m.fill
	}
	return &venuedomain.TradeReceipt{
		Venue:       m.id,
		Side:        order.Side,
		TxHash:      common.HexToHash("0x1234"),
		AmountIn:    order.AmountIn,
		AmountOut:   amountOut,
		GasUsed:     21000,
		ConfirmedAt: time.Now(),
	}, nil
}

func (m *mockAdapter) ReconcileNonce(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconcileCalls++
	return nil
}

func (m *mockAdapter) Healthy(ctx context.Context) (bool, string) { return true, "ok" }

func (m *mockAdapter) Close() {}

func (m *mockAdapter) calls() (submit, reconcile int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitCalls, m.reconcileCalls
}

// mockRecorder captures ledger writes.
type mockRecorder struct {
	mu       sync.Mutex
	attempts []ledgerdomain.AttemptRecord
	trades   []ledgerdomain.TradeRecord
}

func (m *mockRecorder) RecordAttempt(ctx context.Context, attempt ledgerdomain.AttemptRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, attempt)
	return nil
}

func (m *mockRecorder) RecordTrade(ctx context.Context, trade ledgerdomain.TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, trade)
	return nil
}

// mockPublisher captures published events.
type mockPublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (m *mockPublisher) Publish(ctx context.Context, ev notify.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *mockPublisher) kinds() []notify.Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	kinds := make([]notify.Kind, len(m.events))
	for i, ev := range m.events {
		kinds[i] = ev.Kind
	}
	return kinds
}

func profitableDecision(t *testing.T) domain.Decision {
	t.Helper()

	buy := quoteAt(t, venuedomain.VenueUniswapV3, ethPair(), "1.000")
	sell := quoteAt(t, venuedomain.VenuePancakeV2, bscPair(), "1.015")

	return domain.Decision{
		BuyVenue:    venuedomain.VenueUniswapV3,
		SellVenue:   venuedomain.VenuePancakeV2,
		BuyQuote:    buy,
		SellQuote:   sell,
		SpreadPct:   decimal.RequireFromString("1.5"),
		Threshold:   decimal.RequireFromString("1.0"),
		Profitable:  true,
		EvaluatedAt: time.Now(),
	}
}

func newTestExecutor(t *testing.T, uniswap, pancake *mockAdapter) (*Executor, *mockRecorder, *mockPublisher) {
	t.Helper()

	recorder := &mockRecorder{}
	publisher := &mockPublisher{}

	executor, err := NewExecutor(ExecutorConfig{
		SlippagePct: decimal.RequireFromString("0.5"),
	}, []venueapp.Adapter{uniswap, pancake}, recorder, publisher, testLogger())
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	return executor, recorder, publisher
}

func TestExecutor_Success(t *testing.T) {
	uniswap := &mockAdapter{id: venuedomain.VenueUniswapV3, pair: ethPair()}
	pancake := &mockAdapter{id: venuedomain.VenuePancakeV2, pair: bscPair()}

	// The sell leg fills at the quoted 1.015, not at its floor.
	sellFill, err := asset.ParseString(asset.BUSD, "1.015")
	if err != nil {
		t.Fatalf("parse fill: %v", err)
	}
	pancake.fill = &sellFill

	executor, recorder, publisher := newTestExecutor(t, uniswap, pancake)

	attempt, err := executor.Execute(context.Background(), profitableDecision(t))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if attempt.Outcome != domain.OutcomeSuccess {
		t.Fatalf("Outcome = %s, want %s", attempt.Outcome, domain.OutcomeSuccess)
	}

	// Buy cost 1.000 quote, sell filled 1.015 quote: PnL uses the
	// realized fill, a 1.5% spread on the traded size.
	wantPnL := decimal.RequireFromString("0.015")
	if !attempt.RealizedPnL.Equal(wantPnL) {
		t.Errorf("RealizedPnL = %s, want %s", attempt.RealizedPnL, wantPnL)
	}

	if len(recorder.attempts) != 1 {
		t.Fatalf("recorded %d attempts, want 1", len(recorder.attempts))
	}
	if got := recorder.attempts[0].Outcome; got != "success" {
		t.Errorf("recorded outcome = %q, want %q", got, "success")
	}
	if len(recorder.trades) != 2 {
		t.Errorf("recorded %d trades, want 2", len(recorder.trades))
	}

	kinds := publisher.kinds()
	if len(kinds) != 2 || kinds[0] != notify.KindAttemptStarted || kinds[1] != notify.KindAttemptSucceeded {
		t.Errorf("events = %v, want [attempt_started attempt_succeeded]", kinds)
	}
}

func TestExecutor_CarriesQuotedFeeTier(t *testing.T) {
	uniswap := &mockAdapter{id: venuedomain.VenueUniswapV3, pair: ethPair()}
	pancake := &mockAdapter{id: venuedomain.VenuePancakeV2, pair: bscPair()}
	executor, _, _ := newTestExecutor(t, uniswap, pancake)

	decision := profitableDecision(t)
	decision.BuyQuote.FeeTier = 500 // the quote came from the 0.05% pool

	if _, err := executor.Execute(context.Background(), decision); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	uniswap.mu.Lock()
	defer uniswap.mu.Unlock()
	if len(uniswap.orders) != 1 {
		t.Fatalf("buy venue got %d orders, want 1", len(uniswap.orders))
	}
	// Executing on a different pool than the one quoted would make the
	// floor derived from the quote meaningless.
	if got := uniswap.orders[0].FeeTier; got != 500 {
		t.Errorf("buy order FeeTier = %d, want 500", got)
	}
}

func TestExecutor_BuyFailureAborts(t *testing.T) {
	uniswap := &mockAdapter{
		id:        venuedomain.VenueUniswapV3,
		pair:      ethPair(),
		submitErr: apperror.New(apperror.CodeTradeRejected),
	}
	pancake := &mockAdapter{id: venuedomain.VenuePancakeV2, pair: bscPair()}
	executor, recorder, publisher := newTestExecutor(t, uniswap, pancake)

	attempt, err := executor.Execute(context.Background(), profitableDecision(t))
	if err == nil {
		t.Fatal("Execute should fail when the buy leg fails")
	}

	if attempt.Outcome != domain.OutcomeAborted {
		t.Fatalf("Outcome = %s, want %s", attempt.Outcome, domain.OutcomeAborted)
	}
	if attempt.FailureClass != apperror.ClassVenueRejected {
		t.Errorf("FailureClass = %s, want %s", attempt.FailureClass, apperror.ClassVenueRejected)
	}

	// An aborted attempt must never touch the sell venue.
	if submits, _ := pancake.calls(); submits != 0 {
		t.Errorf("sell venue got %d submissions, want 0", submits)
	}

	if len(recorder.trades) != 0 {
		t.Errorf("recorded %d trades, want 0", len(recorder.trades))
	}
	if got := recorder.attempts[0].Outcome; got != "aborted" {
		t.Errorf("recorded outcome = %q, want %q", got, "aborted")
	}

	kinds := publisher.kinds()
	if len(kinds) != 2 || kinds[1] != notify.KindAttemptAborted {
		t.Errorf("events = %v, want aborted last", kinds)
	}
}

func TestExecutor_SellFailureIsPartial(t *testing.T) {
	uniswap := &mockAdapter{id: venuedomain.VenueUniswapV3, pair: ethPair()}
	pancake := &mockAdapter{
		id:        venuedomain.VenuePancakeV2,
		pair:      bscPair(),
		submitErr: apperror.New(apperror.CodeTradeReverted),
	}
	executor, recorder, publisher := newTestExecutor(t, uniswap, pancake)

	attempt, err := executor.Execute(context.Background(), profitableDecision(t))
	if err == nil {
		t.Fatal("Execute should fail when the sell leg fails")
	}

	if attempt.Outcome != domain.OutcomePartialFailure {
		t.Fatalf("Outcome = %s, want %s", attempt.Outcome, domain.OutcomePartialFailure)
	}
	if attempt.FailureClass != apperror.ClassOnChainReverted {
		t.Errorf("FailureClass = %s, want %s", attempt.FailureClass, apperror.ClassOnChainReverted)
	}
	if !attempt.RealizedPnL.IsZero() {
		t.Errorf("RealizedPnL = %s, want 0", attempt.RealizedPnL)
	}

	// The confirmed buy leg must still be recorded.
	if len(recorder.trades) != 1 {
		t.Fatalf("recorded %d trades, want 1", len(recorder.trades))
	}
	if got := recorder.trades[0].Side; got != "buy" {
		t.Errorf("recorded trade side = %q, want %q", got, "buy")
	}
	if got := recorder.attempts[0].Outcome; got != "partial_failure" {
		t.Errorf("recorded outcome = %q, want %q", got, "partial_failure")
	}

	// A revert consumed the nonce: no reconcile needed.
	if _, reconciles := pancake.calls(); reconciles != 0 {
		t.Errorf("reconcile called %d times after revert, want 0", reconciles)
	}

	kinds := publisher.kinds()
	if len(kinds) != 2 || kinds[1] != notify.KindAttemptPartiallyFailed {
		t.Errorf("events = %v, want partially_failed last", kinds)
	}
}

func TestExecutor_AmbiguousSellFailureReconciles(t *testing.T) {
	uniswap := &mockAdapter{id: venuedomain.VenueUniswapV3, pair: ethPair()}
	pancake := &mockAdapter{
		id:        venuedomain.VenuePancakeV2,
		pair:      bscPair(),
		submitErr: apperror.New(apperror.CodeTradeAmbiguous),
	}
	executor, _, _ := newTestExecutor(t, uniswap, pancake)

	attempt, _ := executor.Execute(context.Background(), profitableDecision(t))

	if attempt.Outcome != domain.OutcomePartialFailure {
		t.Fatalf("Outcome = %s, want %s", attempt.Outcome, domain.OutcomePartialFailure)
	}
	if _, reconciles := pancake.calls(); reconciles != 1 {
		t.Errorf("reconcile called %d times after ambiguous failure, want 1", reconciles)
	}
}

func TestExecutor_RejectsUnprofitableDecision(t *testing.T) {
	uniswap := &mockAdapter{id: venuedomain.VenueUniswapV3, pair: ethPair()}
	pancake := &mockAdapter{id: venuedomain.VenuePancakeV2, pair: bscPair()}
	executor, _, _ := newTestExecutor(t, uniswap, pancake)

	decision := profitableDecision(t)
	decision.Profitable = false

	if _, err := executor.Execute(context.Background(), decision); err == nil {
		t.Fatal("Execute should refuse an unprofitable decision")
	}
}

func TestExecutor_SingleAttemptInFlight(t *testing.T) {
	uniswap := &mockAdapter{id: venuedomain.VenueUniswapV3, pair: ethPair()}
	pancake := &mockAdapter{id: venuedomain.VenuePancakeV2, pair: bscPair()}
	executor, _, _ := newTestExecutor(t, uniswap, pancake)

	executor.inFlight.Store(true)

	_, err := executor.Execute(context.Background(), profitableDecision(t))
	if apperror.GetCode(err) != apperror.CodeAttemptInFlight {
		t.Fatalf("error code = %s, want %s", apperror.GetCode(err), apperror.CodeAttemptInFlight)
	}
}
