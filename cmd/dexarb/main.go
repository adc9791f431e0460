// Package main is the entry point for the DEX arbitrage detector.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"

	arbitrageApp "github.com/avelez-dev/dexarb/business/arbitrage/app"
	arbitrageInfra "github.com/avelez-dev/dexarb/business/arbitrage/infra"
	marketApp "github.com/avelez-dev/dexarb/business/market/app"
	marketDomain "github.com/avelez-dev/dexarb/business/market/domain"
	"github.com/avelez-dev/dexarb/business/market/infra/evm"
	scannerApp "github.com/avelez-dev/dexarb/business/scanner/app"
	"github.com/avelez-dev/dexarb/internal/apm"
	"github.com/avelez-dev/dexarb/internal/apperror"
	"github.com/avelez-dev/dexarb/internal/asset"
	"github.com/avelez-dev/dexarb/internal/config"
	"github.com/avelez-dev/dexarb/internal/health"
	"github.com/avelez-dev/dexarb/internal/logger"
	"github.com/avelez-dev/dexarb/internal/metrics"
	"github.com/avelez-dev/dexarb/internal/ratelimit"
	"github.com/shopspring/decimal"
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
		fmt.Printf("dexarb %s (commit: %s, built: %s)\n", version, commit, buildDate)
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

	if err := run(ctx, *configPath); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(os.Stderr, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name)
	log.Info(ctx, "starting dex arbitrage detector",
		"version", version,
		"environment", cfg.App.Environment,
		"chain_id", cfg.Chain.ChainID,
	)

	if cfg.Telemetry.Enabled {
		tp, err := apm.NewProvider(ctx, apm.Config{
			ServiceName: cfg.Telemetry.ServiceName,
			Exporter:    cfg.Telemetry.TraceExporter,
			Endpoint:    cfg.Telemetry.TraceEndpoint,
			Insecure:    cfg.Telemetry.Insecure,
			SampleRatio: cfg.Telemetry.SampleRatio,
		})
		if err != nil {
			return fmt.Errorf("failed to init tracing: %w", err)
		}
		defer tp.Shutdown(context.Background())

		mp, err := metrics.NewProvider(ctx, metrics.Config{
			ServiceName:  cfg.Telemetry.ServiceName,
			Prometheus:   true,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			OTLPInsecure: cfg.Telemetry.Insecure,
		})
		if err != nil {
			return fmt.Errorf("failed to init metrics: %w", err)
		}
		defer mp.Shutdown(context.Background())

		go func() {
			if err := metrics.ServePrometheus(cfg.Telemetry.PrometheusPort); err != nil {
				log.Warn(ctx, "prometheus server stopped", "error", err)
			}
		}()
		log.Info(ctx, "telemetry initialized",
			"trace_exporter", cfg.Telemetry.TraceExporter,
			"prometheus_port", cfg.Telemetry.PrometheusPort,
		)
	}

	healthServer := health.NewServer(cfg.App.HealthPort)
	go func() {
		if err := healthServer.ListenAndServe(); err != nil {
			log.Warn(ctx, "health server stopped", "error", err)
		}
	}()
	defer healthServer.Shutdown(context.Background())

	client, err := ethclient.DialContext(ctx, cfg.Chain.RPCURL)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeRPCConnectionFailed, cfg.Chain.RPCURL)
	}
	defer client.Close()
	healthServer.Register("rpc", func(ctx context.Context) error {
		_, err := client.ChainID(ctx)
		return err
	})

	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	limiter := ratelimit.New(cfg.Chain.RequestsPerSecond, cfg.Chain.RequestBurst)

	sources := make([]marketApp.VenueSource, 0, len(cfg.Venues))
	clients := make(map[string]*evm.VenueClient, len(cfg.Venues))
	for _, vc := range cfg.Venues {
		venue := marketDomain.NewVenue(vc.Name, vc.RouterHex(), vc.FeeBps)
		venueClient, err := evm.NewVenueClient(venue, client, limiter, log)
		if err != nil {
			return fmt.Errorf("failed to create venue %s: %w", vc.Name, err)
		}
		sources = append(sources, venueClient)
		clients[vc.Name] = venueClient
	}
	for _, pool := range cfg.Pools {
		tokenA, ok := registry.GetBySymbol(pool.TokenA)
		if !ok {
			return apperror.New(apperror.CodeUnknownToken, apperror.WithContext(pool.TokenA))
		}
		tokenB, ok := registry.GetBySymbol(pool.TokenB)
		if !ok {
			return apperror.New(apperror.CodeUnknownToken, apperror.WithContext(pool.TokenB))
		}
		clients[pool.Venue].RegisterPool(tokenA, tokenB, pool.AddressHex())
	}

	aggregator, err := marketApp.NewAggregator(sources, marketApp.AggregatorConfig{
		QuoteTimeout: cfg.Scan.QuoteTimeout,
		MaxInFlight:  cfg.Scan.MaxInFlight,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to create aggregator: %w", err)
	}

	feeds := make(map[string]common.Address, len(cfg.Oracle.Feeds))
	for sym, addr := range cfg.Oracle.Feeds {
		feeds[strings.ToUpper(sym)] = common.HexToAddress(addr)
	}
	oracle, err := evm.NewChainlinkOracle(evm.ChainlinkOracleConfig{
		Feeds:    feeds,
		MaxAge:   cfg.Oracle.MaxAge,
		CacheTTL: cfg.Oracle.CacheTTL,
	}, client, limiter, log)
	if err != nil {
		return fmt.Errorf("failed to create oracle: %w", err)
	}
	defer oracle.Close()

	maxGasWei := new(big.Int).Mul(big.NewInt(cfg.Profit.MaxGasPriceGwei), big.NewInt(1e9))
	gasFeed, err := evm.NewGasFeed(evm.GasFeedConfig{
		CacheTTL:    cfg.Profit.GasCacheTTL,
		MaxGasPrice: maxGasWei,
	}, client, log)
	if err != nil {
		return fmt.Errorf("failed to create gas feed: %w", err)
	}
	defer gasFeed.Close()

	pairs, routes, err := resolveUniverse(cfg, registry)
	if err != nil {
		return err
	}

	tradeAmounts := make([]decimal.Decimal, 0, len(cfg.Scan.TradeAmounts))
	for _, s := range cfg.Scan.TradeAmounts {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return apperror.Wrap(err, apperror.CodeConfigurationError, s)
		}
		tradeAmounts = append(tradeAmounts, d)
	}

	scanner, err := scannerApp.NewScanner(aggregator, scannerApp.ScanConfig{
		Pairs:          pairs,
		Routes:         routes,
		TradeAmounts:   tradeAmounts,
		MinProfitBps:   cfg.Scan.MinProfitBps,
		OpportunityTTL: cfg.Scan.OpportunityTTL,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to create scanner: %w", err)
	}

	calculator := arbitrageApp.NewCalculator(oracle, gasFeed, arbitrageApp.CalculatorConfig{
		MinProfitUSD:          cfg.Profit.MinProfitUSDDecimal(),
		MinProfitBps:          cfg.Profit.MinProfitBpsDecimal(),
		SlippageBps:           cfg.Profit.SlippageBps,
		SlippageBpsTriangular: cfg.Profit.SlippageBpsTriangular,
		FlashLoanFeeBps:       cfg.Profit.FlashLoanFeeBps,
		UseFlashLoan:          cfg.Profit.UseFlashLoan,
		GasLimitSwap:          cfg.Profit.GasLimitSwap,
		GasLimitFlashLoan:     cfg.Profit.GasLimitFlashLoan,
		GasLimitTriangular:    cfg.Profit.GasLimitTriangular,
		GasTokenSymbol:        cfg.Chain.GasToken,
		DefaultPricesUSD:      cfg.Profit.DefaultPricesDecimal(),
	}, log)

	chain, err := arbitrageApp.NewDefaultChain(
		arbitrageApp.NewWhitelistGuard(cfg.Guards.SafePairs),
		arbitrageApp.NewOracleDeviationGuard(oracle,
			decimal.NewFromFloat(cfg.Guards.MaxDeviationStablePct),
			decimal.NewFromFloat(cfg.Guards.MaxDeviationVolatilePct)),
		arbitrageApp.NewLiquidityDepthGuard(decimal.NewFromFloat(cfg.Guards.MaxImpactPct)),
		arbitrageApp.NewConsistencyGuard(decimal.NewFromFloat(cfg.Guards.MaxSpreadPct)),
		arbitrageApp.NewProfitGuard(calculator),
		log,
	)
	if err != nil {
		return fmt.Errorf("failed to create guard chain: %w", err)
	}

	detector := arbitrageApp.NewDetector(
		scanner,
		aggregator,
		aggregator,
		chain,
		arbitrageInfra.NewConsoleReporter(),
		arbitrageApp.DetectorConfig{ScanInterval: cfg.Scan.Interval},
		log,
	)

	log.Info(ctx, "pipeline wired",
		"venues", len(sources),
		"pairs", len(pairs),
		"routes", len(routes),
	)
	return detector.Run(ctx)
}

// buildRegistry loads the token registry from config, falling back to
// the built-in Polygon set when no tokens are configured.
func buildRegistry(cfg *config.Config) (*asset.Registry, error) {
	if len(cfg.Tokens) == 0 {
		return asset.DefaultRegistry(), nil
	}

	registry := asset.NewRegistry()
	for _, t := range cfg.Tokens {
		id := asset.NewID(cfg.Chain.ChainID, t.AddressHex())
		var a *asset.Asset
		if t.Stable {
			a = asset.NewStablecoin(id, t.Symbol, t.Name, t.Decimals)
		} else {
			a = asset.NewAsset(id, t.Symbol, t.Name, t.Decimals)
		}
		registry.Register(a)
	}
	return registry, nil
}

// resolveUniverse turns the configured pair/route symbols into typed
// assets. Unknown symbols are fatal.
func resolveUniverse(cfg *config.Config, registry *asset.Registry) ([]marketDomain.Pair, []scannerApp.TriRoute, error) {
	lookup := func(symbol string) (*asset.Asset, error) {
		a, ok := registry.GetBySymbol(symbol)
		if !ok {
			return nil, apperror.New(apperror.CodeUnknownToken, apperror.WithContext(symbol))
		}
		return a, nil
	}

	pairs := make([]marketDomain.Pair, 0, len(cfg.Scan.Pairs))
	for _, p := range cfg.Scan.Pairs {
		parts := strings.Split(p, "-")
		base, err := lookup(parts[0])
		if err != nil {
			return nil, nil, err
		}
		quote, err := lookup(parts[1])
		if err != nil {
			return nil, nil, err
		}
		pairs = append(pairs, marketDomain.NewPair(base, quote))
	}

	routes := make([]scannerApp.TriRoute, 0, len(cfg.Scan.Routes))
	for _, r := range cfg.Scan.Routes {
		parts := strings.Split(r, "-")
		a, err := lookup(parts[0])
		if err != nil {
			return nil, nil, err
		}
		b, err := lookup(parts[1])
		if err != nil {
			return nil, nil, err
		}
		c, err := lookup(parts[2])
		if err != nil {
			return nil, nil, err
		}
		routes = append(routes, scannerApp.TriRoute{A: a, B: b, C: c})
	}

	return pairs, routes, nil
}
