// Package main is the entry point for the cross-chain arbitrage engine.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fd1az/crosschain-arb/business/arbitrage"
	arbDI "github.com/fd1az/crosschain-arb/business/arbitrage/di"
	"github.com/fd1az/crosschain-arb/business/ledger"
	ledgerDI "github.com/fd1az/crosschain-arb/business/ledger/di"
	"github.com/fd1az/crosschain-arb/business/pricing"
	"github.com/fd1az/crosschain-arb/business/venue"
	venueDI "github.com/fd1az/crosschain-arb/business/venue/di"
	"github.com/fd1az/crosschain-arb/internal/apm"
	"github.com/fd1az/crosschain-arb/internal/config"
	"github.com/fd1az/crosschain-arb/internal/health"
	"github.com/fd1az/crosschain-arb/internal/httpclient"
	"github.com/fd1az/crosschain-arb/internal/logger"
	"github.com/fd1az/crosschain-arb/internal/metrics"
	"github.com/fd1az/crosschain-arb/internal/monolith"
	"github.com/fd1az/crosschain-arb/internal/notify"
	"github.com/fd1az/crosschain-arb/internal/wsconn"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("crosschain-arb %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logLevel := logger.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		logLevel = logger.LevelDebug
	case "warn":
		logLevel = logger.LevelWarn
	case "error":
		logLevel = logger.LevelError
	}
	log := logger.New(os.Stderr, logLevel, cfg.App.Name, nil)

	log.Info(ctx, "starting cross-chain arbitrage engine",
		"version", version,
		"environment", cfg.App.Environment,
		"dry_run", cfg.Trading.DryRun,
	)

	// Initialize observability if enabled
	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.ServiceName != "" {
			os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
		}
		if cfg.Telemetry.OTLPEndpoint != "" {
			os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
		}

		traceProvider = apm.NewTraceProvider(log, apm.WithProvider(apm.ZipkinProvider, log))
		log.Info(ctx, "tracing initialized", "provider", "zipkin", "endpoint", cfg.Telemetry.OTLPEndpoint)

		metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.ProviderCfg{
				Provider: metrics.PrometheusProvider,
			}),
		)

		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(port)))
		log.Info(ctx, "prometheus metrics server started", "port", port)
	}
	defer func() {
		if traceProvider != nil {
			traceProvider.Stop()
		}
	}()

	// Build the notification pipeline before the monolith so every
	// module sees the same dispatcher.
	notifier, cleanupSinks, err := buildNotifier(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to build notifier: %w", err)
	}
	// LIFO: the dispatcher drains before its sinks are torn down.
	defer cleanupSinks()
	defer notifier.Close()

	mono, err := monolith.New(cfg, log, notifier)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	// Modules in dependency order
	modules := []monolith.Module{
		&venue.Module{},     // adapters, nonce managers
		&pricing.Module{},   // oracle over the adapters
		&ledger.Module{},    // attempt and trade storage
		&arbitrage.Module{}, // evaluator, executor, scheduler
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}
	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	// Health server with liveness wired to the venues and the store
	healthPort := cfg.Telemetry.HealthPort
	if healthPort == 0 {
		healthPort = 8081
	}
	healthServer := health.NewServer(healthPort, version)
	adapters := venueDI.GetAdapters(mono.Services())
	for _, adapter := range adapters {
		healthServer.RegisterCheck(string(adapter.ID()), adapter.Healthy)
	}
	defer func() {
		for _, adapter := range adapters {
			adapter.Close()
		}
	}()
	store := ledgerDI.GetStore(mono.Services())
	healthServer.RegisterCheck("ledger", func(ctx context.Context) (bool, string) {
		if err := store.Ping(ctx); err != nil {
			return false, err.Error()
		}
		return true, "ok"
	})
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", healthPort)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		healthServer.Stop(stopCtx)
	}()

	log.Info(ctx, "all modules started, beginning polling loop")

	scheduler := arbDI.GetScheduler(mono.Services())
	err = scheduler.Run(ctx)

	log.Info(ctx, "shutting down")
	return err
}

// buildNotifier assembles the dispatcher with every configured sink. The
// log sink is always on; WebSocket and Telegram join when configured.
func buildNotifier(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (*notify.Dispatcher, func(), error) {
	sinks := []notify.Sink{notify.NewLogSink(log)}
	cleanup := func() {}

	if cfg.Notify.WebSocketURL != "" {
		wsClient, err := wsconn.New(wsconn.DefaultConfig(cfg.Notify.WebSocketURL, "notify"))
		if err != nil {
			return nil, nil, fmt.Errorf("websocket sink: %w", err)
		}
		if err := wsClient.Connect(ctx); err != nil {
			// The client reconnects on its own once the first dial
			// succeeds; a dead endpoint at boot is fatal instead.
			return nil, nil, fmt.Errorf("websocket sink connect: %w", err)
		}
		sinks = append(sinks, notify.NewWebSocketSink(wsClient))
		cleanup = func() { wsClient.Close() }
		log.Info(ctx, "websocket sink enabled", "url", cfg.Notify.WebSocketURL)
	}

	if cfg.Notify.TelegramBotToken != "" && cfg.Notify.TelegramChatID != "" {
		httpClient, err := httpclient.NewInstrumentedClient(
			httpclient.WithProviderName("telegram"),
			httpclient.WithRequestTimeout(10*time.Second),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("telegram sink: %w", err)
		}
		tgSink, err := notify.NewTelegramSink(notify.TelegramConfig{
			BotToken:     cfg.Notify.TelegramBotToken,
			ChatID:       cfg.Notify.TelegramChatID,
			OutcomesOnly: true,
		}, httpClient)
		if err != nil {
			return nil, nil, fmt.Errorf("telegram sink: %w", err)
		}
		sinks = append(sinks, tgSink)
		log.Info(ctx, "telegram sink enabled")
	}

	dispatcher, err := notify.NewDispatcher(notify.DispatcherConfig{
		BufferSize: cfg.Notify.BufferSize,
	}, log, sinks...)
	if err != nil {
		return nil, nil, err
	}
	return dispatcher, cleanup, nil
}
