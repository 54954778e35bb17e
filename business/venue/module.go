// Package venue implements the venue bounded context: one adapter per
// on-chain exchange behind a single port.
package venue

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/crosschain-arb/business/venue/app"
	venueDI "github.com/fd1az/crosschain-arb/business/venue/di"
	"github.com/fd1az/crosschain-arb/business/venue/domain"
	"github.com/fd1az/crosschain-arb/business/venue/infra/evm"
	"github.com/fd1az/crosschain-arb/business/venue/infra/pancake"
	"github.com/fd1az/crosschain-arb/business/venue/infra/uniswap"
	"github.com/fd1az/crosschain-arb/internal/asset"
	"github.com/fd1az/crosschain-arb/internal/config"
	"github.com/fd1az/crosschain-arb/internal/di"
	"github.com/fd1az/crosschain-arb/internal/logger"
	"github.com/fd1az/crosschain-arb/internal/monolith"
)

// Module implements the venue bounded context.
type Module struct{}

// RegisterServices registers all venue services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Uniswap V3 adapter (Ethereum leg) - private dependency
	di.RegisterToken(c, venueDI.UniswapAdapter, func(sr di.ServiceRegistry) app.Adapter {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		client := sr.Get("ethClient").(*ethclient.Client)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		signer := mustSigner(cfg.Ethereum, cfg.Trading.DryRun)
		pair := ethereumPair(cfg, registry)

		adapter, err := uniswap.NewAdapter(uniswap.AdapterConfig{
			Quoter:         cfg.Uniswap.QuoterAddressHex(),
			Router:         cfg.Uniswap.RouterAddressHex(),
			DefaultFeeTier: cfg.Uniswap.DefaultFeeTier,
			Pair:           pair,
			ReceiptTimeout: cfg.Ethereum.ReceiptTimeout,
			ReceiptPoll:    cfg.Ethereum.ReceiptPoll,
		}, client, signer, log)
		if err != nil {
			panic("failed to create uniswap adapter: " + err.Error())
		}
		return adapter
	})

	// Register PancakeSwap V2 adapter (BSC leg) - private dependency
	di.RegisterToken(c, venueDI.PancakeAdapter, func(sr di.ServiceRegistry) app.Adapter {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		client := sr.Get("bscClient").(*ethclient.Client)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		signer := mustSigner(cfg.BSC, cfg.Trading.DryRun)
		pair := bscPair(cfg, registry)

		adapter, err := pancake.NewAdapter(pancake.AdapterConfig{
			Router:         cfg.Pancake.RouterAddressHex(),
			Pair:           pair,
			ReceiptTimeout: cfg.BSC.ReceiptTimeout,
			ReceiptPoll:    cfg.BSC.ReceiptPoll,
		}, client, signer, log)
		if err != nil {
			panic("failed to create pancake adapter: " + err.Error())
		}
		return adapter
	})

	// Register adapter list (public - exposed to other modules)
	di.RegisterToken(c, venueDI.Adapters, func(sr di.ServiceRegistry) []app.Adapter {
		return []app.Adapter{
			venueDI.GetUniswapAdapter(sr),
			venueDI.GetPancakeAdapter(sr),
		}
	})

	return nil
}

// Startup primes each adapter's nonce tracking so the first trade does not
// pay the sync round-trip.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	for _, adapter := range venueDI.GetAdapters(mono.Services()) {
		if err := adapter.ReconcileNonce(ctx); err != nil {
			log.Warn(ctx, "nonce prime failed, will retry on first trade",
				"venue", adapter.ID(),
				"error", err)
		}
	}

	log.Info(ctx, "venue module started")
	return nil
}

// mustSigner builds a chain signer, or nil in dry-run mode where no key is
// configured. Validate has already guaranteed keys exist outside dry-run.
func mustSigner(chain config.ChainConfig, dryRun bool) *evm.Signer {
	if chain.PrivateKey == "" && dryRun {
		return nil
	}
	signer, err := evm.NewSigner(chain.PrivateKey, chain.ChainID)
	if err != nil {
		panic("failed to create signer: " + err.Error())
	}
	return signer
}

// ethereumPair resolves the traded pair on Ethereum, defaulting to
// WETH/USDC when no explicit addresses are configured.
func ethereumPair(cfg *config.Config, registry *asset.Registry) domain.Pair {
	base := resolveToken(registry, asset.ChainIDEthereum, cfg.Pair.EthereumBase, asset.WETH, cfg.Pair.BaseDecimals)
	quote := resolveToken(registry, asset.ChainIDEthereum, cfg.Pair.EthereumQuote, asset.USDC, cfg.Pair.EthQuoteDecimals)
	return domain.NewPair(base, quote)
}

// bscPair resolves the traded pair on BSC, defaulting to BETH/BUSD.
func bscPair(cfg *config.Config, registry *asset.Registry) domain.Pair {
	base := resolveToken(registry, asset.ChainIDBSC, cfg.Pair.BSCBase, asset.BETH, cfg.Pair.BaseDecimals)
	quote := resolveToken(registry, asset.ChainIDBSC, cfg.Pair.BSCQuote, asset.BUSD, cfg.Pair.BSCQuoteDecimals)
	return domain.NewPair(base, quote)
}

// resolveToken looks a configured address up in the registry, building an
// ad-hoc asset for unknown tokens and falling back to the default when no
// address is configured.
func resolveToken(registry *asset.Registry, chainID uint64, addr string, fallback *asset.Asset, decimals uint8) *asset.Asset {
	if addr == "" {
		return fallback
	}

	address := common.HexToAddress(addr)
	if a, ok := registry.GetToken(chainID, address); ok {
		return a
	}

	if decimals == 0 {
		decimals = 18
	}
	return asset.NewAsset(asset.NewTokenAssetID(chainID, address), addr[:8], decimals)
}
