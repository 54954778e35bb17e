// Package ledger implements the ledger bounded context: durable records
// of attempts and trades, and PnL rollups over them.
package ledger

import (
	"context"
	"time"

	"github.com/fd1az/crosschain-arb/business/ledger/app"
	ledgerDI "github.com/fd1az/crosschain-arb/business/ledger/di"
	"github.com/fd1az/crosschain-arb/business/ledger/infra/memory"
	"github.com/fd1az/crosschain-arb/business/ledger/infra/postgres"
	"github.com/fd1az/crosschain-arb/internal/config"
	"github.com/fd1az/crosschain-arb/internal/di"
	"github.com/fd1az/crosschain-arb/internal/logger"
	"github.com/fd1az/crosschain-arb/internal/monolith"
)

const connectTimeout = 10 * time.Second

// Module implements the ledger bounded context.
type Module struct{}

// RegisterServices registers all ledger services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register store (public - health checks read it directly)
	di.RegisterToken(c, ledgerDI.Store, func(sr di.ServiceRegistry) app.Store {
		cfg := sr.Get("config").(*config.Config)

		switch cfg.Ledger.Driver {
		case "postgres":
			ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
			defer cancel()

			store, err := postgres.New(ctx, cfg.Ledger.PostgresDSN, cfg.Ledger.MaxConns)
			if err != nil {
				panic("failed to connect ledger store: " + err.Error())
			}
			return store
		default:
			return memory.New()
		}
	})

	// Register ledger service (public - exposed to other modules)
	di.RegisterToken(c, ledgerDI.Service, func(sr di.ServiceRegistry) *app.LedgerService {
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewLedgerService(ledgerDI.GetStore(sr), log)
	})

	return nil
}

// Startup verifies the store is reachable before trading begins.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config()
	log := mono.Logger()

	store := ledgerDI.GetStore(mono.Services())
	if err := store.Ping(ctx); err != nil {
		return err
	}

	log.Info(ctx, "ledger module started", "driver", cfg.Ledger.Driver)
	return nil
}
