package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		App: AppConfig{Name: "crosschain-arb", Environment: "test", LogLevel: "info"},
		Ethereum: ChainConfig{
			HTTPURL:    "https://eth.example.org",
			ChainID:    1,
			PrivateKey: "aa",
		},
		BSC: ChainConfig{
			HTTPURL:    "https://bsc.example.org",
			ChainID:    56,
			PrivateKey: "bb",
		},
		Uniswap: UniswapConfig{
			QuoterAddress:  "0x61fFE014bA17989E743c5F6cB21bF9697530B21e",
			RouterAddress:  "0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45",
			DefaultFeeTier: 3000,
		},
		Pancake: PancakeConfig{
			RouterAddress: "0x10ED43C718714eb63d5aA57B78B54704E256024E",
		},
		Trading: TradingConfig{
			MinSpreadPct: 1.0,
			TradeAmount:  0.1,
			PollInterval: 10 * time.Second,
		},
		Ledger: LedgerConfig{Driver: "memory"},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing ethereum url",
			mutate:  func(c *Config) { c.Ethereum.HTTPURL = "" },
			wantErr: "ethereum.http_url",
		},
		{
			name:    "missing bsc url",
			mutate:  func(c *Config) { c.BSC.HTTPURL = "" },
			wantErr: "bsc.http_url",
		},
		{
			name:    "bad quoter address",
			mutate:  func(c *Config) { c.Uniswap.QuoterAddress = "not-an-address" },
			wantErr: "uniswap.quoter_address",
		},
		{
			name:    "bad pancake router",
			mutate:  func(c *Config) { c.Pancake.RouterAddress = "0x123" },
			wantErr: "pancake.router_address",
		},
		{
			name:    "negative spread threshold",
			mutate:  func(c *Config) { c.Trading.MinSpreadPct = -0.5 },
			wantErr: "min_spread_pct",
		},
		{
			name:    "zero trade amount",
			mutate:  func(c *Config) { c.Trading.TradeAmount = 0 },
			wantErr: "trade_amount",
		},
		{
			name:    "zero poll interval",
			mutate:  func(c *Config) { c.Trading.PollInterval = 0 },
			wantErr: "poll_interval",
		},
		{
			name:    "missing signing key outside dry run",
			mutate:  func(c *Config) { c.Ethereum.PrivateKey = "" },
			wantErr: "private_key",
		},
		{
			name: "dry run allows missing keys",
			mutate: func(c *Config) {
				c.Trading.DryRun = true
				c.Ethereum.PrivateKey = ""
				c.BSC.PrivateKey = ""
			},
		},
		{
			name:    "unknown ledger driver",
			mutate:  func(c *Config) { c.Ledger.Driver = "sqlite" },
			wantErr: "ledger.driver",
		},
		{
			name: "postgres driver requires dsn",
			mutate: func(c *Config) {
				c.Ledger.Driver = "postgres"
				c.Ledger.PostgresDSN = ""
			},
			wantErr: "postgres_dsn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid config, got error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("ARB_ETH_HTTP_URL", "https://eth.example.org")
	t.Setenv("ARB_BSC_HTTP_URL", "https://bsc.example.org")
	t.Setenv("ARB_DRY_RUN", "true")
	t.Setenv("ARB_MIN_SPREAD_PCT", "2.5")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Ethereum.HTTPURL != "https://eth.example.org" {
		t.Errorf("expected eth url from env, got %s", cfg.Ethereum.HTTPURL)
	}
	if cfg.Trading.MinSpreadPct != 2.5 {
		t.Errorf("expected min_spread_pct=2.5, got %v", cfg.Trading.MinSpreadPct)
	}
	if !cfg.Trading.DryRun {
		t.Error("expected dry_run=true from env")
	}
	if cfg.Trading.PollInterval != 10*time.Second {
		t.Errorf("expected default poll interval 10s, got %v", cfg.Trading.PollInterval)
	}
	if cfg.Pancake.RouterAddress != "0x10ED43C718714eb63d5aA57B78B54704E256024E" {
		t.Errorf("unexpected default pancake router: %s", cfg.Pancake.RouterAddress)
	}
}
