// Package monolith provides the application container and module interface.
package monolith

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/crosschain-arb/internal/asset"
	"github.com/fd1az/crosschain-arb/internal/config"
	"github.com/fd1az/crosschain-arb/internal/di"
	"github.com/fd1az/crosschain-arb/internal/logger"
	"github.com/fd1az/crosschain-arb/internal/notify"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	EthereumClient() *ethclient.Client
	BSCClient() *ethclient.Client
	AssetRegistry() *asset.Registry
	Notifier() *notify.Dispatcher
	Services() di.ServiceRegistry
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// app implements the Monolith interface.
type app struct {
	config        *config.Config
	logger        logger.LoggerInterface
	ethClient     *ethclient.Client
	bscClient     *ethclient.Client
	assetRegistry *asset.Registry
	notifier      *notify.Dispatcher
	container     di.Container
}

// New creates a new Monolith instance. It dials both chains up front: a
// node that cannot be reached at startup is a configuration problem, not
// something to discover mid-cycle.
func New(cfg *config.Config, log logger.LoggerInterface, notifier *notify.Dispatcher) (*app, error) {
	ethClient, err := ethclient.Dial(cfg.Ethereum.HTTPURL)
	if err != nil {
		return nil, fmt.Errorf("dial ethereum node: %w", err)
	}

	bscClient, err := ethclient.Dial(cfg.BSC.HTTPURL)
	if err != nil {
		ethClient.Close()
		return nil, fmt.Errorf("dial bsc node: %w", err)
	}

	// Use default asset registry (pre-populated with common assets)
	assetRegistry := asset.DefaultRegistry()

	container := di.NewContainer()

	// Register global services
	container.Register("config", cfg)
	container.Register("logger", log)
	container.Register("ethClient", ethClient)
	container.Register("bscClient", bscClient)
	container.Register("assetRegistry", assetRegistry)
	container.Register("notifier", notifier)

	return &app{
		config:        cfg,
		logger:        log,
		ethClient:     ethClient,
		bscClient:     bscClient,
		assetRegistry: assetRegistry,
		notifier:      notifier,
		container:     container,
	}, nil
}

func (a *app) Config() *config.Config {
	return a.config
}

func (a *app) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *app) EthereumClient() *ethclient.Client {
	return a.ethClient
}

func (a *app) BSCClient() *ethclient.Client {
	return a.bscClient
}

func (a *app) AssetRegistry() *asset.Registry {
	return a.assetRegistry
}

func (a *app) Notifier() *notify.Dispatcher {
	return a.notifier
}

func (a *app) Services() di.ServiceRegistry {
	return a.container
}

// Container returns the DI container for module registration.
func (a *app) Container() di.Container {
	return a.container
}

// RegisterModules registers all provided modules.
func (a *app) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	return nil
}

// StartModules starts all provided modules.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all resources.
func (a *app) Close() error {
	if a.ethClient != nil {
		a.ethClient.Close()
	}
	if a.bscClient != nil {
		a.bscClient.Close()
	}
	return nil
}
