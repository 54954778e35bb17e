// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Ethereum  ChainConfig     `mapstructure:"ethereum"`
	BSC       ChainConfig     `mapstructure:"bsc"`
	Uniswap   UniswapConfig   `mapstructure:"uniswap"`
	Pancake   PancakeConfig   `mapstructure:"pancake"`
	Pair      PairConfig      `mapstructure:"pair"`
	Trading   TradingConfig   `mapstructure:"trading"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// ChainConfig holds per-chain node and signer configuration.
type ChainConfig struct {
	HTTPURL        string        `mapstructure:"http_url"`
	ChainID        uint64        `mapstructure:"chain_id"`
	PrivateKey     string        `mapstructure:"private_key"` // hex, no 0x prefix
	ReceiptTimeout time.Duration `mapstructure:"receipt_timeout"`
	ReceiptPoll    time.Duration `mapstructure:"receipt_poll"`
}

// UniswapConfig holds Uniswap V3 contract addresses on Ethereum.
type UniswapConfig struct {
	QuoterAddress  string `mapstructure:"quoter_address"`
	RouterAddress  string `mapstructure:"router_address"`
	DefaultFeeTier int    `mapstructure:"default_fee_tier"`
}

// QuoterAddressHex returns the quoter address as common.Address.
func (c *UniswapConfig) QuoterAddressHex() common.Address {
	return common.HexToAddress(c.QuoterAddress)
}

// RouterAddressHex returns the router address as common.Address.
func (c *UniswapConfig) RouterAddressHex() common.Address {
	return common.HexToAddress(c.RouterAddress)
}

// PancakeConfig holds PancakeSwap V2 contract addresses on BSC.
type PancakeConfig struct {
	RouterAddress string `mapstructure:"router_address"`
}

// RouterAddressHex returns the router address as common.Address.
func (c *PancakeConfig) RouterAddressHex() common.Address {
	return common.HexToAddress(c.RouterAddress)
}

// PairConfig identifies the traded pair on both chains. The base token is
// bought on the cheap venue and sold on the expensive one; quotes are
// denominated in the quote token.
type PairConfig struct {
	Symbol           string `mapstructure:"symbol"`
	EthereumBase     string `mapstructure:"ethereum_base"`
	EthereumQuote    string `mapstructure:"ethereum_quote"`
	BSCBase          string `mapstructure:"bsc_base"`
	BSCQuote         string `mapstructure:"bsc_quote"`
	BaseDecimals     uint8  `mapstructure:"base_decimals"`
	EthQuoteDecimals uint8  `mapstructure:"eth_quote_decimals"`
	BSCQuoteDecimals uint8  `mapstructure:"bsc_quote_decimals"`
}

// TradingConfig holds the engine's decision and execution parameters.
type TradingConfig struct {
	MinSpreadPct   float64       `mapstructure:"min_spread_pct"`
	TradeAmount    float64       `mapstructure:"trade_amount"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	SampleTimeout  time.Duration `mapstructure:"sample_timeout"`
	BackoffInitial time.Duration `mapstructure:"backoff_initial"`
	BackoffMax     time.Duration `mapstructure:"backoff_max"`
	SlippagePct    float64       `mapstructure:"slippage_pct"`
	DryRun         bool          `mapstructure:"dry_run"`
}

// MinSpreadPctDecimal returns the spread threshold as decimal.Decimal.
func (c *TradingConfig) MinSpreadPctDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinSpreadPct)
}

// TradeAmountDecimal returns the trade size as decimal.Decimal.
func (c *TradingConfig) TradeAmountDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.TradeAmount)
}

// SlippagePctDecimal returns the slippage tolerance as decimal.Decimal.
func (c *TradingConfig) SlippagePctDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.SlippagePct)
}

// LedgerConfig holds persistence configuration.
type LedgerConfig struct {
	Driver      string `mapstructure:"driver"` // "postgres" or "memory"
	PostgresDSN string `mapstructure:"postgres_dsn"`
	MaxConns    int32  `mapstructure:"max_conns"`
}

// NotifyConfig holds notification sink configuration.
type NotifyConfig struct {
	BufferSize       int    `mapstructure:"buffer_size"`
	WebSocketURL     string `mapstructure:"websocket_url"`
	TelegramBotToken string `mapstructure:"telegram_bot_token"`
	TelegramChatID   string `mapstructure:"telegram_chat_id"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
	HealthPort     int    `mapstructure:"health_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("ARB")
	v.AutomaticEnv()

	// Bind env vars to config keys
	bindEnvVars(v)

	// Set defaults
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "ARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ARB_LOG_LEVEL", "LOG_LEVEL")

	// Ethereum
	v.BindEnv("ethereum.http_url", "ARB_ETH_HTTP_URL", "ETH_HTTP_URL")
	v.BindEnv("ethereum.chain_id", "ARB_ETH_CHAIN_ID", "ETH_CHAIN_ID")
	v.BindEnv("ethereum.private_key", "ARB_ETH_PRIVATE_KEY", "ETH_PRIVATE_KEY")

	// BSC
	v.BindEnv("bsc.http_url", "ARB_BSC_HTTP_URL", "BSC_HTTP_URL")
	v.BindEnv("bsc.chain_id", "ARB_BSC_CHAIN_ID", "BSC_CHAIN_ID")
	v.BindEnv("bsc.private_key", "ARB_BSC_PRIVATE_KEY", "BSC_PRIVATE_KEY")

	// Venue contracts
	v.BindEnv("uniswap.quoter_address", "ARB_UNISWAP_QUOTER", "UNISWAP_QUOTER")
	v.BindEnv("uniswap.router_address", "ARB_UNISWAP_ROUTER", "UNISWAP_ROUTER")
	v.BindEnv("pancake.router_address", "ARB_PANCAKE_ROUTER", "PANCAKE_ROUTER")

	// Trading
	v.BindEnv("trading.min_spread_pct", "ARB_MIN_SPREAD_PCT")
	v.BindEnv("trading.trade_amount", "ARB_TRADE_AMOUNT")
	v.BindEnv("trading.poll_interval", "ARB_POLL_INTERVAL")
	v.BindEnv("trading.dry_run", "ARB_DRY_RUN")

	// Ledger
	v.BindEnv("ledger.driver", "ARB_LEDGER_DRIVER")
	v.BindEnv("ledger.postgres_dsn", "ARB_POSTGRES_DSN", "DATABASE_URL")

	// Notify
	v.BindEnv("notify.websocket_url", "ARB_NOTIFY_WS_URL")
	v.BindEnv("notify.telegram_bot_token", "ARB_TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_TOKEN")
	v.BindEnv("notify.telegram_chat_id", "ARB_TELEGRAM_CHAT_ID", "TELEGRAM_CHAT_ID")

	// Telemetry
	v.BindEnv("telemetry.enabled", "ARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "crosschain-arb")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Chain defaults
	v.SetDefault("ethereum.chain_id", 1)
	v.SetDefault("ethereum.receipt_timeout", "3m")
	v.SetDefault("ethereum.receipt_poll", "3s")
	v.SetDefault("bsc.chain_id", 56)
	v.SetDefault("bsc.receipt_timeout", "90s")
	v.SetDefault("bsc.receipt_poll", "2s")

	// Uniswap V3 Mainnet defaults
	v.SetDefault("uniswap.quoter_address", "0x61fFE014bA17989E743c5F6cB21bF9697530B21e")
	v.SetDefault("uniswap.router_address", "0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45")
	v.SetDefault("uniswap.default_fee_tier", 3000) // 0.3%

	// PancakeSwap V2 Mainnet defaults
	v.SetDefault("pancake.router_address", "0x10ED43C718714eb63d5aA57B78B54704E256024E")

	// Pair defaults: WETH/USDC on Ethereum, BETH/BUSD on BSC
	v.SetDefault("pair.symbol", "ETH-USD")
	v.SetDefault("pair.base_decimals", 18)
	v.SetDefault("pair.eth_quote_decimals", 6)
	v.SetDefault("pair.bsc_quote_decimals", 18)

	// Trading defaults
	v.SetDefault("trading.min_spread_pct", 1.0)
	v.SetDefault("trading.trade_amount", 0.1)
	v.SetDefault("trading.poll_interval", "10s")
	v.SetDefault("trading.sample_timeout", "8s")
	v.SetDefault("trading.backoff_initial", "10s")
	v.SetDefault("trading.backoff_max", "5m")
	v.SetDefault("trading.slippage_pct", 0.5)
	v.SetDefault("trading.dry_run", false)

	// Ledger defaults
	v.SetDefault("ledger.driver", "memory")
	v.SetDefault("ledger.max_conns", 4)

	// Notify defaults
	v.SetDefault("notify.buffer_size", 256)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "crosschain-arb")
	v.SetDefault("telemetry.prometheus_port", 9090)
	v.SetDefault("telemetry.health_port", 8081)
}

// Validate validates the configuration. A process with invalid config must
// not trade, so Load fails hard instead of falling back to defaults.
func (c *Config) Validate() error {
	if c.Ethereum.HTTPURL == "" {
		return fmt.Errorf("ethereum.http_url is required")
	}
	if c.BSC.HTTPURL == "" {
		return fmt.Errorf("bsc.http_url is required")
	}
	if !common.IsHexAddress(c.Uniswap.QuoterAddress) {
		return fmt.Errorf("invalid uniswap.quoter_address: %s", c.Uniswap.QuoterAddress)
	}
	if !common.IsHexAddress(c.Uniswap.RouterAddress) {
		return fmt.Errorf("invalid uniswap.router_address: %s", c.Uniswap.RouterAddress)
	}
	if !common.IsHexAddress(c.Pancake.RouterAddress) {
		return fmt.Errorf("invalid pancake.router_address: %s", c.Pancake.RouterAddress)
	}
	if c.Pair.EthereumBase != "" && !common.IsHexAddress(c.Pair.EthereumBase) {
		return fmt.Errorf("invalid pair.ethereum_base: %s", c.Pair.EthereumBase)
	}
	if c.Pair.BSCBase != "" && !common.IsHexAddress(c.Pair.BSCBase) {
		return fmt.Errorf("invalid pair.bsc_base: %s", c.Pair.BSCBase)
	}
	if c.Trading.MinSpreadPct < 0 {
		return fmt.Errorf("trading.min_spread_pct must not be negative")
	}
	if c.Trading.TradeAmount <= 0 {
		return fmt.Errorf("trading.trade_amount must be positive")
	}
	if c.Trading.PollInterval <= 0 {
		return fmt.Errorf("trading.poll_interval must be positive")
	}
	if !c.Trading.DryRun {
		if c.Ethereum.PrivateKey == "" {
			return fmt.Errorf("ethereum.private_key is required when not in dry-run mode")
		}
		if c.BSC.PrivateKey == "" {
			return fmt.Errorf("bsc.private_key is required when not in dry-run mode")
		}
	}
	if c.Ledger.Driver != "memory" && c.Ledger.Driver != "postgres" {
		return fmt.Errorf("ledger.driver must be \"memory\" or \"postgres\", got %q", c.Ledger.Driver)
	}
	if c.Ledger.Driver == "postgres" && c.Ledger.PostgresDSN == "" {
		return fmt.Errorf("ledger.postgres_dsn is required when ledger.driver is postgres")
	}
	return nil
}
