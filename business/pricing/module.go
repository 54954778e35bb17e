// Package pricing implements the pricing bounded context: concurrent
// venue sampling with partial-failure semantics.
package pricing

import (
	"context"

	"github.com/fd1az/crosschain-arb/business/pricing/app"
	pricingDI "github.com/fd1az/crosschain-arb/business/pricing/di"
	venueDI "github.com/fd1az/crosschain-arb/business/venue/di"
	"github.com/fd1az/crosschain-arb/internal/config"
	"github.com/fd1az/crosschain-arb/internal/di"
	"github.com/fd1az/crosschain-arb/internal/logger"
	"github.com/fd1az/crosschain-arb/internal/monolith"
	"github.com/fd1az/crosschain-arb/internal/notify"
)

// Module implements the pricing bounded context.
type Module struct{}

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, pricingDI.Oracle, func(sr di.ServiceRegistry) *app.Oracle {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		notifier := sr.Get("notifier").(*notify.Dispatcher)
		adapters := venueDI.GetAdapters(sr)

		oracle, err := app.NewOracle(app.OracleConfig{
			SampleTimeout: cfg.Trading.SampleTimeout,
		}, adapters, notifier, log)
		if err != nil {
			panic("failed to create price oracle: " + err.Error())
		}
		return oracle
	})

	return nil
}

// Startup initializes the pricing module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	mono.Logger().Info(ctx, "pricing module started")
	return nil
}
