package evm

import (
	"context"
	"math/big"
	"time"

	"github.com/fd1az/crosschain-arb/internal/apperror"
	"github.com/fd1az/crosschain-arb/internal/cache"
	"github.com/fd1az/crosschain-arb/internal/circuitbreaker"
)

// GasReader is the subset of the RPC client needed for gas pricing.
// *ethclient.Client satisfies it.
type GasReader interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// GasPricer caches the node's suggested gas price for roughly one block so
// the two calls per attempt (buy and sell leg) do not both hit the RPC.
type GasPricer struct {
	client GasReader
	ttl    time.Duration
	cache  *cache.Cache[string, *big.Int]
	cb     *circuitbreaker.CircuitBreaker[*big.Int]
	maxWei *big.Int
}

// NewGasPricer creates a gas pricer. maxWei caps the acceptable gas price;
// nil disables the cap.
func NewGasPricer(client GasReader, name string, ttl time.Duration, maxWei *big.Int) *GasPricer {
	return &GasPricer{
		client: client,
		ttl:    ttl,
		cache:  cache.New[string, *big.Int](time.Minute),
		cb:     circuitbreaker.New[*big.Int](circuitbreaker.DefaultConfig(name + "-gas")),
		maxWei: maxWei,
	}
}

// SuggestGasPrice returns the cached or freshly fetched gas price.
func (g *GasPricer) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if price, ok := g.cache.Get(ctx, "gas_price"); ok {
		return new(big.Int).Set(price), nil
	}

	price, err := g.cb.Execute(func() (*big.Int, error) {
		return g.client.SuggestGasPrice(ctx)
	})
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeVenueRPCError, "suggest gas price")
	}

	if g.maxWei != nil && price.Cmp(g.maxWei) > 0 {
		return nil, apperror.New(apperror.CodeGasEstimationFailed,
			apperror.WithMessage("gas price above configured maximum"),
			apperror.WithContext(price.String()+" > "+g.maxWei.String()))
	}

	g.cache.Set(ctx, "gas_price", new(big.Int).Set(price), g.ttl)
	return price, nil
}

// Close stops the cache janitor.
func (g *GasPricer) Close() {
	g.cache.Close()
}
