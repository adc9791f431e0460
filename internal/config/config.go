// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Chain     ChainConfig     `mapstructure:"chain"`
	Venues    []VenueConfig   `mapstructure:"venues"`
	Tokens    []TokenConfig   `mapstructure:"tokens"`
	Pools     []PoolConfig    `mapstructure:"pools"`
	Oracle    OracleConfig    `mapstructure:"oracle"`
	Scan      ScanConfig      `mapstructure:"scan"`
	Profit    ProfitConfig    `mapstructure:"profit"`
	Guards    GuardsConfig    `mapstructure:"guards"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	HealthPort  int    `mapstructure:"health_port"`
}

// ChainConfig holds EVM node configuration.
type ChainConfig struct {
	RPCURL            string  `mapstructure:"rpc_url"`
	ChainID           uint64  `mapstructure:"chain_id"`
	GasToken          string  `mapstructure:"gas_token"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	RequestBurst      int     `mapstructure:"request_burst"`
}

// VenueConfig describes one DEX router.
type VenueConfig struct {
	Name   string `mapstructure:"name"`
	Router string `mapstructure:"router"`
	FeeBps int64  `mapstructure:"fee_bps"`
}

// RouterHex returns the router address as common.Address.
func (c *VenueConfig) RouterHex() common.Address {
	return common.HexToAddress(c.Router)
}

// TokenConfig describes one ERC-20 token. When empty, the built-in
// Polygon token set is used.
type TokenConfig struct {
	Symbol   string `mapstructure:"symbol"`
	Name     string `mapstructure:"name"`
	Address  string `mapstructure:"address"`
	Decimals uint8  `mapstructure:"decimals"`
	Stable   bool   `mapstructure:"stable"`
}

// AddressHex returns the token address as common.Address.
func (c *TokenConfig) AddressHex() common.Address {
	return common.HexToAddress(c.Address)
}

// PoolConfig maps a venue token pair to its pair contract, used for
// reserve depth checks.
type PoolConfig struct {
	Venue   string `mapstructure:"venue"`
	TokenA  string `mapstructure:"token_a"`
	TokenB  string `mapstructure:"token_b"`
	Address string `mapstructure:"address"`
}

// AddressHex returns the pool address as common.Address.
func (c *PoolConfig) AddressHex() common.Address {
	return common.HexToAddress(c.Address)
}

// OracleConfig holds Chainlink feed configuration. Feeds maps token
// symbol to the USD aggregator address.
type OracleConfig struct {
	Feeds    map[string]string `mapstructure:"feeds"`
	MaxAge   time.Duration     `mapstructure:"max_age"`
	CacheTTL time.Duration     `mapstructure:"cache_ttl"`
}

// ScanConfig holds opportunity search configuration.
type ScanConfig struct {
	Pairs          []string      `mapstructure:"pairs"`
	Routes         []string      `mapstructure:"routes"`
	TradeAmounts   []string      `mapstructure:"trade_amounts"`
	Interval       time.Duration `mapstructure:"interval"`
	MinProfitBps   int64         `mapstructure:"min_profit_bps"`
	OpportunityTTL time.Duration `mapstructure:"opportunity_ttl"`
	QuoteTimeout   time.Duration `mapstructure:"quote_timeout"`
	MaxInFlight    int           `mapstructure:"max_in_flight"`
}

// ProfitConfig holds profitability model parameters.
type ProfitConfig struct {
	MinProfitUSD          float64           `mapstructure:"min_profit_usd"`
	MinProfitBps          float64           `mapstructure:"min_profit_bps"`
	SlippageBps           int64             `mapstructure:"slippage_bps"`
	SlippageBpsTriangular int64             `mapstructure:"slippage_bps_triangular"`
	FlashLoanFeeBps       int64             `mapstructure:"flash_loan_fee_bps"`
	UseFlashLoan          bool              `mapstructure:"use_flash_loan"`
	GasLimitSwap          uint64            `mapstructure:"gas_limit_swap"`
	GasLimitFlashLoan     uint64            `mapstructure:"gas_limit_flash_loan"`
	GasLimitTriangular    uint64            `mapstructure:"gas_limit_triangular"`
	MaxGasPriceGwei       int64             `mapstructure:"max_gas_price_gwei"`
	GasCacheTTL           time.Duration     `mapstructure:"gas_cache_ttl"`
	DefaultPricesUSD      map[string]string `mapstructure:"default_prices_usd"`
}

// MinProfitUSDDecimal returns min profit USD as decimal.Decimal.
func (c *ProfitConfig) MinProfitUSDDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinProfitUSD)
}

// MinProfitBpsDecimal returns min profit bps as decimal.Decimal.
func (c *ProfitConfig) MinProfitBpsDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinProfitBps)
}

// DefaultPricesDecimal parses the fallback USD prices. Invalid entries
// were already rejected by Validate.
func (c *ProfitConfig) DefaultPricesDecimal() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(c.DefaultPricesUSD))
	for sym, s := range c.DefaultPricesUSD {
		d, err := decimal.NewFromString(s)
		if err != nil {
			continue
		}
		out[strings.ToUpper(sym)] = d
	}
	return out
}

// GuardsConfig holds pre-trade safety check parameters.
type GuardsConfig struct {
	SafePairs               []string `mapstructure:"safe_pairs"`
	MaxDeviationStablePct   float64  `mapstructure:"max_deviation_stable_pct"`
	MaxDeviationVolatilePct float64  `mapstructure:"max_deviation_volatile_pct"`
	MaxImpactPct            float64  `mapstructure:"max_impact_pct"`
	MaxSpreadPct            float64  `mapstructure:"max_spread_pct"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	ServiceName    string  `mapstructure:"service_name"`
	TraceExporter  string  `mapstructure:"trace_exporter"`
	TraceEndpoint  string  `mapstructure:"trace_endpoint"`
	OTLPEndpoint   string  `mapstructure:"otlp_endpoint"`
	Insecure       bool    `mapstructure:"insecure"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
	PrometheusPort int     `mapstructure:"prometheus_port"`
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

	// Chain
	v.BindEnv("chain.rpc_url", "ARB_RPC_URL", "RPC_URL")
	v.BindEnv("chain.chain_id", "ARB_CHAIN_ID", "CHAIN_ID")
	v.BindEnv("chain.gas_token", "ARB_GAS_TOKEN")

	// Scan
	v.BindEnv("scan.pairs", "ARB_SCAN_PAIRS")
	v.BindEnv("scan.interval", "ARB_SCAN_INTERVAL")
	v.BindEnv("scan.min_profit_bps", "ARB_SCAN_MIN_PROFIT_BPS")

	// Profit
	v.BindEnv("profit.min_profit_usd", "ARB_MIN_PROFIT_USD")
	v.BindEnv("profit.min_profit_bps", "ARB_MIN_PROFIT_BPS")
	v.BindEnv("profit.use_flash_loan", "ARB_USE_FLASH_LOAN")
	v.BindEnv("profit.max_gas_price_gwei", "ARB_MAX_GAS_PRICE_GWEI")

	// Telemetry
	v.BindEnv("telemetry.enabled", "ARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "dexarb")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.health_port", 8081)

	// Polygon PoS defaults
	v.SetDefault("chain.chain_id", 137)
	v.SetDefault("chain.gas_token", "WMATIC")
	v.SetDefault("chain.requests_per_second", 20)
	v.SetDefault("chain.request_burst", 40)

	// Venue defaults: the three big Polygon V2-style routers
	v.SetDefault("venues", []map[string]any{
		{"name": "quickswap", "router": "0xa5E0829CaCEd8fFDD4De3c43696c57F7D7A678ff", "fee_bps": 30},
		{"name": "sushiswap", "router": "0x1b02dA8Cb0d097eB8D57A175b88c7D8b47997506", "fee_bps": 30},
		{"name": "apeswap", "router": "0xC0788A3aD43d79aa53B09c2EaCc313A787d1d607", "fee_bps": 20},
	})

	// Oracle defaults: Chainlink USD feeds on Polygon
	v.SetDefault("oracle.feeds", map[string]string{
		"WMATIC": "0xAB594600376Ec9fD91F8e885dADF0CE036862dE0",
		"WETH":   "0xF9680D99D6C9589e2a93a78A04A279e509205945",
		"WBTC":   "0xDE31F8bFBD8c84b5360CFACCa3539B938dd78ae6",
		"USDC":   "0xfE4A8cc5b5B2366C1B58Bea3858e81843581b2F7",
		"USDT":   "0x0A6513e40db6EB1b165753AD52E80663aeA50545",
		"DAI":    "0x4746DeC9e833A82EC7C2C1356372CcF2cfcD2F3D",
		"LINK":   "0xd9FFdb71EbE7496cC440152d43986Aae0AB76665",
	})
	v.SetDefault("oracle.max_age", "1h")
	v.SetDefault("oracle.cache_ttl", "30s")

	// Scan defaults
	v.SetDefault("scan.pairs", []string{"WETH-USDC", "WMATIC-USDC", "WBTC-WETH"})
	v.SetDefault("scan.routes", []string{"WETH-USDC-WMATIC", "WBTC-WETH-USDC"})
	v.SetDefault("scan.trade_amounts", []string{"1.0"})
	v.SetDefault("scan.interval", "5s")
	v.SetDefault("scan.min_profit_bps", 10)
	v.SetDefault("scan.opportunity_ttl", "3s")
	v.SetDefault("scan.quote_timeout", "2s")
	v.SetDefault("scan.max_in_flight", 8)

	// Profit defaults
	v.SetDefault("profit.min_profit_usd", 5)
	v.SetDefault("profit.min_profit_bps", 10)
	v.SetDefault("profit.slippage_bps", 50)
	v.SetDefault("profit.slippage_bps_triangular", 100)
	v.SetDefault("profit.flash_loan_fee_bps", 9)
	v.SetDefault("profit.use_flash_loan", true)
	v.SetDefault("profit.gas_limit_swap", 150000)
	v.SetDefault("profit.gas_limit_flash_loan", 300000)
	v.SetDefault("profit.gas_limit_triangular", 450000)
	v.SetDefault("profit.max_gas_price_gwei", 500)
	v.SetDefault("profit.gas_cache_ttl", "10s")
	v.SetDefault("profit.default_prices_usd", map[string]string{
		"WMATIC": "0.50",
		"WETH":   "3000",
		"WBTC":   "60000",
		"USDC":   "1",
		"USDT":   "1",
		"DAI":    "1",
	})

	// Guard defaults
	v.SetDefault("guards.safe_pairs", []string{
		"WETH-USDC", "WETH-USDT", "WETH-DAI",
		"WMATIC-USDC", "WMATIC-USDT",
		"WBTC-WETH", "WBTC-USDC",
		"USDC-USDT", "USDC-DAI",
	})
	v.SetDefault("guards.max_deviation_stable_pct", 1)
	v.SetDefault("guards.max_deviation_volatile_pct", 3)
	v.SetDefault("guards.max_impact_pct", 1)
	v.SetDefault("guards.max_spread_pct", 5)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "dexarb")
	v.SetDefault("telemetry.trace_exporter", "console")
	v.SetDefault("telemetry.sample_ratio", 1)
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration. Any failure here is fatal; the
// process refuses to start rather than scan with a broken setup.
func (c *Config) Validate() error {
	if c.Chain.RPCURL == "" {
		return fmt.Errorf("chain.rpc_url is required")
	}
	if len(c.Venues) < 2 {
		return fmt.Errorf("at least 2 venues are required, got %d", len(c.Venues))
	}
	venueNames := make(map[string]bool, len(c.Venues))
	for _, venue := range c.Venues {
		if venue.Name == "" {
			return fmt.Errorf("venue name cannot be empty")
		}
		if venueNames[venue.Name] {
			return fmt.Errorf("duplicate venue: %s", venue.Name)
		}
		venueNames[venue.Name] = true
		if !common.IsHexAddress(venue.Router) {
			return fmt.Errorf("invalid router address for venue %s: %s", venue.Name, venue.Router)
		}
		if venue.FeeBps < 0 || venue.FeeBps >= 10000 {
			return fmt.Errorf("invalid fee_bps for venue %s: %d", venue.Name, venue.FeeBps)
		}
	}
	for _, token := range c.Tokens {
		if token.Symbol == "" {
			return fmt.Errorf("token symbol cannot be empty")
		}
		if !common.IsHexAddress(token.Address) {
			return fmt.Errorf("invalid address for token %s: %s", token.Symbol, token.Address)
		}
	}
	for _, pool := range c.Pools {
		if !venueNames[pool.Venue] {
			return fmt.Errorf("pool %s-%s references unknown venue %s", pool.TokenA, pool.TokenB, pool.Venue)
		}
		if !common.IsHexAddress(pool.Address) {
			return fmt.Errorf("invalid pool address for %s %s-%s: %s", pool.Venue, pool.TokenA, pool.TokenB, pool.Address)
		}
	}
	for sym, addr := range c.Oracle.Feeds {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("invalid oracle feed address for %s: %s", sym, addr)
		}
	}
	for _, pair := range c.Scan.Pairs {
		if len(strings.Split(pair, "-")) != 2 {
			return fmt.Errorf("invalid pair %q, expected TOKENA-TOKENB", pair)
		}
	}
	for _, route := range c.Scan.Routes {
		if len(strings.Split(route, "-")) != 3 {
			return fmt.Errorf("invalid route %q, expected TOKENA-TOKENB-TOKENC", route)
		}
	}
	for _, amt := range c.Scan.TradeAmounts {
		d, err := decimal.NewFromString(amt)
		if err != nil {
			return fmt.Errorf("invalid trade amount %q: %w", amt, err)
		}
		if !d.IsPositive() {
			return fmt.Errorf("trade amount must be positive, got %s", amt)
		}
	}
	if c.Scan.MinProfitBps < 0 {
		return fmt.Errorf("scan.min_profit_bps cannot be negative")
	}
	if c.Scan.OpportunityTTL <= 0 {
		return fmt.Errorf("scan.opportunity_ttl must be positive")
	}
	if c.Scan.MaxInFlight <= 0 {
		return fmt.Errorf("scan.max_in_flight must be positive")
	}
	if c.Profit.MinProfitUSD < 0 || c.Profit.MinProfitBps < 0 {
		return fmt.Errorf("profit thresholds cannot be negative")
	}
	if c.Profit.SlippageBps < 0 || c.Profit.FlashLoanFeeBps < 0 {
		return fmt.Errorf("profit fee parameters cannot be negative")
	}
	for sym, price := range c.Profit.DefaultPricesUSD {
		d, err := decimal.NewFromString(price)
		if err != nil {
			return fmt.Errorf("invalid default price for %s: %q", sym, price)
		}
		if !d.IsPositive() {
			return fmt.Errorf("default price for %s must be positive", sym)
		}
	}
	for _, pair := range c.Guards.SafePairs {
		if len(strings.Split(pair, "-")) != 2 {
			return fmt.Errorf("invalid safe pair %q, expected TOKENA-TOKENB", pair)
		}
	}
	if c.Guards.MaxImpactPct <= 0 {
		return fmt.Errorf("guards.max_impact_pct must be positive")
	}
	if c.Guards.MaxSpreadPct <= 0 {
		return fmt.Errorf("guards.max_spread_pct must be positive")
	}
	if c.Guards.MaxDeviationStablePct <= 0 || c.Guards.MaxDeviationVolatilePct <= 0 {
		return fmt.Errorf("guard deviation limits must be positive")
	}
	return nil
}
