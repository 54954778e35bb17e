package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/crosschain-arb/business/arbitrage/domain"
	pricingdomain "github.com/fd1az/crosschain-arb/business/pricing/domain"
	venuedomain "github.com/fd1az/crosschain-arb/business/venue/domain"
	"github.com/fd1az/crosschain-arb/internal/apperror"
)

// mockSampler returns scripted samples, one per call.
type mockSampler struct {
	mu      sync.Mutex
	calls   int
	sample  *pricingdomain.Sample
	err     error
	errOnce bool // fail only the first call
}

func (m *mockSampler) Sample(ctx context.Context, amount decimal.Decimal) (*pricingdomain.Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil && (!m.errOnce || m.calls == 1) {
		return nil, m.err
	}
	return m.sample, nil
}

func (m *mockSampler) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockExecutor counts executions and can fail with a scripted error.
type mockExecutor struct {
	mu      sync.Mutex
	calls   int
	err     error
	outcome domain.Outcome
}

func (m *mockExecutor) Execute(ctx context.Context, decision domain.Decision) (*domain.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return &domain.Attempt{Outcome: m.outcome}, m.err
	}
	return &domain.Attempt{Outcome: domain.OutcomeSuccess}, nil
}

func (m *mockExecutor) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func testScheduler(cfg SchedulerConfig, sampler Sampler, executor TradeExecutor, publisher *mockPublisher) *Scheduler {
	evaluator := NewEvaluator(decimal.RequireFromString("1.0"))
	return NewScheduler(cfg, sampler, evaluator, executor, publisher, testLogger())
}

func profitableSample(t *testing.T) *pricingdomain.Sample {
	t.Helper()
	return sampleWith(
		quoteAt(t, venuedomain.VenueUniswapV3, ethPair(), "1.000"),
		quoteAt(t, venuedomain.VenuePancakeV2, bscPair(), "1.015"),
	)
}

func TestScheduler_ExecutesProfitableDecision(t *testing.T) {
	sampler := &mockSampler{sample: profitableSample(t)}
	executor := &mockExecutor{}
	publisher := &mockPublisher{}

	s := testScheduler(SchedulerConfig{
		PollInterval: time.Hour, // only the immediate first cycle runs
		TradeAmount:  decimal.NewFromInt(1),
	}, sampler, executor, publisher)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	waitFor(t, func() bool { return executor.callCount() == 1 })
	cancel()
	<-done

	var sawDecision bool
	for _, kind := range publisher.kinds() {
		if kind == "decision_made" {
			sawDecision = true
		}
	}
	if !sawDecision {
		t.Error("scheduler did not publish a decision event")
	}
}

func TestScheduler_DryRunSkipsExecution(t *testing.T) {
	sampler := &mockSampler{sample: profitableSample(t)}
	executor := &mockExecutor{}
	publisher := &mockPublisher{}

	s := testScheduler(SchedulerConfig{
		PollInterval: time.Hour,
		TradeAmount:  decimal.NewFromInt(1),
		DryRun:       true,
	}, sampler, executor, publisher)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	waitFor(t, func() bool { return sampler.callCount() == 1 })
	cancel()
	<-done

	if executor.callCount() != 0 {
		t.Errorf("executor called %d times in dry run, want 0", executor.callCount())
	}
}

func TestScheduler_UnprofitableDecisionDoesNotExecute(t *testing.T) {
	sample := sampleWith(
		quoteAt(t, venuedomain.VenueUniswapV3, ethPair(), "1.000"),
		quoteAt(t, venuedomain.VenuePancakeV2, bscPair(), "1.001"),
	)
	sampler := &mockSampler{sample: sample}
	executor := &mockExecutor{}
	publisher := &mockPublisher{}

	s := testScheduler(SchedulerConfig{
		PollInterval: time.Hour,
		TradeAmount:  decimal.NewFromInt(1),
	}, sampler, executor, publisher)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	waitFor(t, func() bool { return sampler.callCount() == 1 })
	cancel()
	<-done

	if executor.callCount() != 0 {
		t.Errorf("executor called %d times for unprofitable decision, want 0", executor.callCount())
	}
}

func TestScheduler_TransientFailureBacksOffAndRecovers(t *testing.T) {
	sampler := &mockSampler{
		sample:  profitableSample(t),
		err:     apperror.New(apperror.CodeSampleFailed),
		errOnce: true,
	}
	executor := &mockExecutor{}

	s := testScheduler(SchedulerConfig{
		PollInterval:   time.Hour,
		TradeAmount:    decimal.NewFromInt(1),
		BackoffInitial: time.Millisecond,
		BackoffMax:     5 * time.Millisecond,
	}, sampler, executor, &mockPublisher{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// The first cycle fails transiently; the backoff retry must run well
	// before the hour-long poll interval would.
	waitFor(t, func() bool { return executor.callCount() == 1 })
	cancel()
	<-done

	if sampler.callCount() < 2 {
		t.Errorf("sampler called %d times, want at least 2", sampler.callCount())
	}
}

func TestScheduler_NonRetryableErrorKeepsCadence(t *testing.T) {
	sampler := &mockSampler{err: errors.New("boom")}
	executor := &mockExecutor{}

	s := testScheduler(SchedulerConfig{
		PollInterval:   10 * time.Millisecond,
		TradeAmount:    decimal.NewFromInt(1),
		BackoffInitial: time.Hour, // a backoff here would stall the test
		BackoffMax:     time.Hour,
	}, sampler, executor, &mockPublisher{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	waitFor(t, func() bool { return sampler.callCount() >= 2 })
	cancel()
	<-done
}

func TestScheduler_AmbiguousAbortBacksOff(t *testing.T) {
	sampler := &mockSampler{sample: profitableSample(t)}
	executor := &mockExecutor{
		err:     apperror.New(apperror.CodeTradeAmbiguous),
		outcome: domain.OutcomeAborted,
	}

	s := testScheduler(SchedulerConfig{
		PollInterval:   5 * time.Millisecond,
		TradeAmount:    decimal.NewFromInt(1),
		BackoffInitial: time.Hour, // backing off parks the loop for the test
		BackoffMax:     time.Hour,
	}, sampler, executor, &mockPublisher{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	waitFor(t, func() bool { return executor.callCount() == 1 })
	// An ambiguous abort means an unknown transaction may still mine;
	// the normal 5ms cadence would re-trade into it immediately.
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	if got := executor.callCount(); got != 1 {
		t.Errorf("executor called %d times after ambiguous abort, want 1", got)
	}
}

func TestScheduler_NextBackoff(t *testing.T) {
	s := NewScheduler(SchedulerConfig{
		BackoffInitial: 2 * time.Second,
		BackoffMax:     10 * time.Second,
	}, nil, nil, nil, nil, testLogger())

	steps := []time.Duration{0, 2 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second, 10 * time.Second}
	for i := 0; i < len(steps)-1; i++ {
		if got := s.nextBackoff(steps[i]); got != steps[i+1] {
			t.Errorf("nextBackoff(%v) = %v, want %v", steps[i], got, steps[i+1])
		}
	}
}

// waitFor polls a condition until it holds or the test times out.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met within 2s")
}
