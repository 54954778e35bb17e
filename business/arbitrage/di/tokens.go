// Package di contains dependency injection tokens for the arbitrage context.
package di

import (
	"github.com/fd1az/crosschain-arb/business/arbitrage/app"
	"github.com/fd1az/crosschain-arb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Scheduler = di.NewToken[*app.Scheduler]("arbitrage.Scheduler")
)

// Private dependency tokens - internal to arbitrage module
var (
	Executor = di.NewToken[*app.Executor]("arbitrage:executor")
)

// Helper functions for type-safe access
func GetScheduler(c di.ServiceRegistry) *app.Scheduler {
	return di.GetToken(c, Scheduler)
}

func GetExecutor(c di.ServiceRegistry) *app.Executor {
	return di.GetToken(c, Executor)
}
