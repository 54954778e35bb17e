// Package di contains dependency injection tokens for the pricing context.
package di

import (
	"github.com/fd1az/crosschain-arb/business/pricing/app"
	"github.com/fd1az/crosschain-arb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Oracle = di.NewToken[*app.Oracle]("pricing.Oracle")
)

// Helper functions for type-safe access
func GetOracle(c di.ServiceRegistry) *app.Oracle {
	return di.GetToken(c, Oracle)
}
