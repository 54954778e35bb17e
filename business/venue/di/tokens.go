// Package di contains dependency injection tokens for the venue context.
package di

import (
	"github.com/fd1az/crosschain-arb/business/venue/app"
	"github.com/fd1az/crosschain-arb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	// Adapters lists both venue adapters in a stable order: Uniswap
	// first, Pancake second.
	Adapters = di.NewToken[[]app.Adapter]("venue.Adapters")
)

// Private dependency tokens - internal to venue module
var (
	UniswapAdapter = di.NewToken[app.Adapter]("venue:uniswapAdapter")
	PancakeAdapter = di.NewToken[app.Adapter]("venue:pancakeAdapter")
)

// Helper functions for type-safe access
func GetAdapters(c di.ServiceRegistry) []app.Adapter {
	return di.GetToken(c, Adapters)
}

func GetUniswapAdapter(c di.ServiceRegistry) app.Adapter {
	return di.GetToken(c, UniswapAdapter)
}

func GetPancakeAdapter(c di.ServiceRegistry) app.Adapter {
	return di.GetToken(c, PancakeAdapter)
}
