package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Chain: ChainConfig{
			RPCURL:  "https://polygon-rpc.com",
			ChainID: 137,
		},
		Venues: []VenueConfig{
			{Name: "quickswap", Router: "0xa5E0829CaCEd8fFDD4De3c43696c57F7D7A678ff", FeeBps: 30},
			{Name: "sushiswap", Router: "0x1b02dA8Cb0d097eB8D57A175b88c7D8b47997506", FeeBps: 30},
		},
		Scan: ScanConfig{
			Pairs:          []string{"WETH-USDC"},
			Routes:         []string{"WETH-USDC-WMATIC"},
			TradeAmounts:   []string{"1.0"},
			OpportunityTTL: 3 * time.Second,
			MaxInFlight:    8,
		},
		Guards: GuardsConfig{
			SafePairs:               []string{"WETH-USDC"},
			MaxDeviationStablePct:   1,
			MaxDeviationVolatilePct: 3,
			MaxImpactPct:            1,
			MaxSpreadPct:            5,
		},
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing rpc url",
			mutate:  func(c *Config) { c.Chain.RPCURL = "" },
			wantErr: "rpc_url",
		},
		{
			name:    "single venue",
			mutate:  func(c *Config) { c.Venues = c.Venues[:1] },
			wantErr: "at least 2 venues",
		},
		{
			name:    "duplicate venue",
			mutate:  func(c *Config) { c.Venues[1].Name = "quickswap" },
			wantErr: "duplicate venue",
		},
		{
			name:    "bad router address",
			mutate:  func(c *Config) { c.Venues[0].Router = "not-an-address" },
			wantErr: "invalid router address",
		},
		{
			name:    "fee out of range",
			mutate:  func(c *Config) { c.Venues[0].FeeBps = 10000 },
			wantErr: "invalid fee_bps",
		},
		{
			name:    "pool on unknown venue",
			mutate:  func(c *Config) { c.Pools = []PoolConfig{{Venue: "nope", TokenA: "WETH", TokenB: "USDC", Address: "0xa5E0829CaCEd8fFDD4De3c43696c57F7D7A678ff"}} },
			wantErr: "unknown venue",
		},
		{
			name:    "bad oracle feed address",
			mutate:  func(c *Config) { c.Oracle.Feeds = map[string]string{"WETH": "zzz"} },
			wantErr: "oracle feed",
		},
		{
			name:    "malformed pair",
			mutate:  func(c *Config) { c.Scan.Pairs = []string{"WETHUSDC"} },
			wantErr: "invalid pair",
		},
		{
			name:    "malformed route",
			mutate:  func(c *Config) { c.Scan.Routes = []string{"WETH-USDC"} },
			wantErr: "invalid route",
		},
		{
			name:    "zero trade amount",
			mutate:  func(c *Config) { c.Scan.TradeAmounts = []string{"0"} },
			wantErr: "must be positive",
		},
		{
			name:    "unparseable trade amount",
			mutate:  func(c *Config) { c.Scan.TradeAmounts = []string{"one"} },
			wantErr: "invalid trade amount",
		},
		{
			name:    "zero opportunity ttl",
			mutate:  func(c *Config) { c.Scan.OpportunityTTL = 0 },
			wantErr: "opportunity_ttl",
		},
		{
			name:    "negative profit floor",
			mutate:  func(c *Config) { c.Profit.MinProfitUSD = -1 },
			wantErr: "profit thresholds",
		},
		{
			name:    "bad default price",
			mutate:  func(c *Config) { c.Profit.DefaultPricesUSD = map[string]string{"WETH": "cheap"} },
			wantErr: "invalid default price",
		},
		{
			name:    "zero impact limit",
			mutate:  func(c *Config) { c.Guards.MaxImpactPct = 0 },
			wantErr: "max_impact_pct",
		},
		{
			name:    "zero deviation limit",
			mutate:  func(c *Config) { c.Guards.MaxDeviationStablePct = 0 },
			wantErr: "deviation limits",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ARB_RPC_URL", "https://polygon-rpc.com")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Chain.ChainID != 137 {
		t.Errorf("ChainID = %d, want 137", cfg.Chain.ChainID)
	}
	if len(cfg.Venues) < 2 {
		t.Errorf("venues = %d, want the default router set", len(cfg.Venues))
	}
	if cfg.Scan.Interval != 5*time.Second {
		t.Errorf("scan interval = %s, want 5s", cfg.Scan.Interval)
	}
	if !cfg.Profit.UseFlashLoan {
		t.Error("flash loans default on")
	}
	if cfg.Chain.GasToken != "WMATIC" {
		t.Errorf("gas token = %s, want WMATIC", cfg.Chain.GasToken)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ARB_RPC_URL", "https://polygon-rpc.com")
	t.Setenv("ARB_MIN_PROFIT_USD", "25")
	t.Setenv("ARB_USE_FLASH_LOAN", "false")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Profit.MinProfitUSD != 25 {
		t.Errorf("MinProfitUSD = %v, want 25", cfg.Profit.MinProfitUSD)
	}
	if cfg.Profit.UseFlashLoan {
		t.Error("ARB_USE_FLASH_LOAN=false must disable flash loans")
	}
}
