package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/crosschain-arb/internal/apperror"
	"github.com/fd1az/crosschain-arb/internal/logger"
	"github.com/fd1az/crosschain-arb/internal/notify"
)

// SchedulerConfig holds the polling loop parameters.
type SchedulerConfig struct {
	PollInterval   time.Duration
	TradeAmount    decimal.Decimal // base tokens probed and traded per cycle
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	DryRun         bool
}

// Scheduler drives the poll-evaluate-execute loop. One cycle runs at a
// time; cycles are never stacked, so a slow venue stretches the loop
// instead of piling up probes.
type Scheduler struct {
	config    SchedulerConfig
	sampler   Sampler
	evaluator *Evaluator
	executor  TradeExecutor
	events    EventPublisher
	logger    logger.LoggerInterface
}

// NewScheduler creates a scheduler over the given sampler, evaluator
// and executor.
func NewScheduler(cfg SchedulerConfig, sampler Sampler, evaluator *Evaluator, executor TradeExecutor, events EventPublisher, log logger.LoggerInterface) *Scheduler {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.BackoffInitial == 0 {
		cfg.BackoffInitial = 2 * time.Second
	}
	if cfg.BackoffMax == 0 {
		cfg.BackoffMax = time.Minute
	}

	return &Scheduler{
		config:    cfg,
		sampler:   sampler,
		evaluator: evaluator,
		executor:  executor,
		events:    events,
		logger:    log,
	}
}

// Run blocks until ctx is cancelled, running one cycle per poll
// interval. Transient and ambiguous failures back the loop off
// exponentially; everything else keeps the normal cadence, because a
// rejected trade or a reverted leg says nothing about whether the next
// sample will work.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info(ctx, "scheduler started",
		"poll_interval", s.config.PollInterval,
		"trade_amount", s.config.TradeAmount,
		"dry_run", s.config.DryRun)

	backoff := time.Duration(0)
	timer := time.NewTimer(0) // first cycle runs immediately
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "scheduler stopped")
			return ctx.Err()
		case <-timer.C:
		}

		err := s.cycle(ctx)
		switch {
		case err != nil && shouldBackOff(err):
			backoff = s.nextBackoff(backoff)
			s.logger.Warn(ctx, "backing off",
				"class", apperror.ClassOf(err),
				"backoff", backoff,
				"error", err)
			timer.Reset(backoff)
		default:
			backoff = 0
			timer.Reset(s.config.PollInterval)
		}
	}
}

// cycle runs one sample-evaluate-execute pass.
func (s *Scheduler) cycle(ctx context.Context) error {
	sample, err := s.sampler.Sample(ctx, s.config.TradeAmount)
	if err != nil {
		return err
	}

	decision := s.evaluator.Evaluate(sample)

	s.events.Publish(ctx, notify.NewEvent(notify.KindDecisionMade, notify.DecisionMade{
		BuyVenue:   string(decision.BuyVenue),
		SellVenue:  string(decision.SellVenue),
		SpreadPct:  decision.SpreadPct,
		Profitable: decision.Profitable,
		Reason:     decision.Reason,
	}))

	if !decision.Profitable {
		s.logger.Debug(ctx, "not trading",
			"spread_pct", decision.SpreadPct,
			"reason", decision.Reason)
		return nil
	}

	if s.config.DryRun {
		s.logger.Info(ctx, "dry run, skipping execution",
			"buy_venue", decision.BuyVenue,
			"sell_venue", decision.SellVenue,
			"spread_pct", decision.SpreadPct)
		return nil
	}

	// An attempt in flight survives shutdown: cancelling between legs
	// would manufacture partial failures, so the trade path is detached
	// from the loop's context and Run drains it before returning.
	if _, err := s.executor.Execute(context.WithoutCancel(ctx), decision); err != nil {
		// The executor has already recorded and notified the failure;
		// the error class alone decides whether the loop slows down.
		return err
	}
	return nil
}

// shouldBackOff reports whether a cycle failure warrants slowing the
// loop down. Transient failures back off to stop hammering a struggling
// node. Ambiguous failures back off too: the nonce was already
// reconciled, but the stuck transaction may still mine, and trading
// again immediately would race it.
func shouldBackOff(err error) bool {
	switch apperror.ClassOf(err) {
	case apperror.ClassNetworkTransient, apperror.ClassAmbiguous:
		return true
	}
	return false
}

// nextBackoff doubles the delay up to the configured cap.
func (s *Scheduler) nextBackoff(current time.Duration) time.Duration {
	if current == 0 {
		return s.config.BackoffInitial
	}
	next := current * 2
	if next > s.config.BackoffMax {
		return s.config.BackoffMax
	}
	return next
}
