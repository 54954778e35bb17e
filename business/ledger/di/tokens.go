// Package di contains dependency injection tokens for the ledger context.
package di

import (
	"github.com/fd1az/crosschain-arb/business/ledger/app"
	"github.com/fd1az/crosschain-arb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Service = di.NewToken[*app.LedgerService]("ledger.Service")
	Store   = di.NewToken[app.Store]("ledger.Store")
)

// Helper functions for type-safe access
func GetService(c di.ServiceRegistry) *app.LedgerService {
	return di.GetToken(c, Service)
}

func GetStore(c di.ServiceRegistry) app.Store {
	return di.GetToken(c, Store)
}
