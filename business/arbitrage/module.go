// Package arbitrage implements the arbitrage bounded context: spread
// evaluation, buy-then-sell execution and the polling loop that drives
// them.
package arbitrage

import (
	"context"

	"github.com/fd1az/crosschain-arb/business/arbitrage/app"
	arbDI "github.com/fd1az/crosschain-arb/business/arbitrage/di"
	ledgerDI "github.com/fd1az/crosschain-arb/business/ledger/di"
	pricingDI "github.com/fd1az/crosschain-arb/business/pricing/di"
	venueDI "github.com/fd1az/crosschain-arb/business/venue/di"
	"github.com/fd1az/crosschain-arb/internal/config"
	"github.com/fd1az/crosschain-arb/internal/di"
	"github.com/fd1az/crosschain-arb/internal/logger"
	"github.com/fd1az/crosschain-arb/internal/monolith"
	"github.com/fd1az/crosschain-arb/internal/notify"
)

// Module implements the arbitrage bounded context.
type Module struct{}

// RegisterServices registers all arbitrage services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register executor - private dependency
	di.RegisterToken(c, arbDI.Executor, func(sr di.ServiceRegistry) *app.Executor {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		notifier := sr.Get("notifier").(*notify.Dispatcher)

		executor, err := app.NewExecutor(app.ExecutorConfig{
			SlippagePct: cfg.Trading.SlippagePctDecimal(),
		}, venueDI.GetAdapters(sr), ledgerDI.GetService(sr), notifier, log)
		if err != nil {
			panic("failed to create executor: " + err.Error())
		}
		return executor
	})

	// Register scheduler (public - the binary runs it)
	di.RegisterToken(c, arbDI.Scheduler, func(sr di.ServiceRegistry) *app.Scheduler {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		notifier := sr.Get("notifier").(*notify.Dispatcher)

		evaluator := app.NewEvaluator(cfg.Trading.MinSpreadPctDecimal())

		return app.NewScheduler(app.SchedulerConfig{
			PollInterval:   cfg.Trading.PollInterval,
			TradeAmount:    cfg.Trading.TradeAmountDecimal(),
			BackoffInitial: cfg.Trading.BackoffInitial,
			BackoffMax:     cfg.Trading.BackoffMax,
			DryRun:         cfg.Trading.DryRun,
		}, pricingDI.GetOracle(sr), evaluator, arbDI.GetExecutor(sr), notifier, log)
	})

	return nil
}

// Startup initializes the arbitrage module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config()
	mono.Logger().Info(ctx, "arbitrage module started",
		"min_spread_pct", cfg.Trading.MinSpreadPct,
		"dry_run", cfg.Trading.DryRun)
	return nil
}
