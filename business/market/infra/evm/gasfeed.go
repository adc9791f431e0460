package evm

import (
	"context"
	"math/big"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/avelez-dev/dexarb/internal/apperror"
	"github.com/avelez-dev/dexarb/internal/cache"
	"github.com/avelez-dev/dexarb/internal/circuitbreaker"
	"github.com/avelez-dev/dexarb/internal/logger"
)

// GasBackend is the slice of the eth client the gas feed needs.
// *ethclient.Client satisfies it.
type GasBackend interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// GasFeedConfig holds configuration for the gas price feed.
type GasFeedConfig struct {
	CacheTTL    time.Duration
	MaxGasPrice *big.Int // clamp, not reject; zero or nil disables
}

// DefaultGasFeedConfig returns sensible defaults for Polygon.
func DefaultGasFeedConfig() GasFeedConfig {
	maxGas := new(big.Int)
	maxGas.SetString("500000000000", 10) // 500 gwei
	return GasFeedConfig{
		CacheTTL:    10 * time.Second,
		MaxGasPrice: maxGas,
	}
}

// gasFeedMetrics holds OTEL metric instruments.
type gasFeedMetrics struct {
	fetches      metric.Int64Counter
	gasPriceGwei metric.Float64Gauge
	cacheHits    metric.Int64Counter
}

// GasFeed reads the node's suggested gas price with caching and a
// safety clamp.
type GasFeed struct {
	config GasFeedConfig
	client GasBackend
	logger logger.LoggerInterface

	priceCache *cache.Cache[string, *big.Int]
	cb         *circuitbreaker.CircuitBreaker[*big.Int]

	tracer  trace.Tracer
	metrics *gasFeedMetrics
}

// NewGasFeed creates a gas price feed.
func NewGasFeed(cfg GasFeedConfig, client GasBackend, log logger.LoggerInterface) (*GasFeed, error) {
	g := &GasFeed{
		config:     cfg,
		client:     client,
		logger:     log,
		priceCache: cache.New[string, *big.Int](time.Minute),
		tracer:     otel.Tracer(tracerName),
	}

	cbCfg := circuitbreaker.DefaultConfig("gas-feed")
	g.cb = circuitbreaker.New[*big.Int](cbCfg)

	if err := g.initMetrics(); err != nil {
		return nil, err
	}

	return g, nil
}

func (g *GasFeed) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &gasFeedMetrics{}

	g.metrics.fetches, err = meter.Int64Counter(
		"gas_price_fetches_total",
		metric.WithDescription("Total gas price fetch attempts"),
	)
	if err != nil {
		return err
	}

	g.metrics.gasPriceGwei, err = meter.Float64Gauge(
		"gas_price_gwei",
		metric.WithDescription("Current gas price in gwei"),
		metric.WithUnit("gwei"),
	)
	if err != nil {
		return err
	}

	g.metrics.cacheHits, err = meter.Int64Counter(
		"gas_cache_hits_total",
		metric.WithDescription("Gas price cache hits"),
	)
	return err
}

// GasPriceWei returns the current gas price in wei, clamped to
// MaxGasPrice when the node suggestion exceeds it.
func (g *GasFeed) GasPriceWei(ctx context.Context) (*big.Int, error) {
	ctx, span := g.tracer.Start(ctx, "gas.price")
	defer span.End()

	if wei, found := g.priceCache.Get(ctx, "current"); found {
		g.metrics.cacheHits.Add(ctx, 1)
		span.AddEvent("cache_hit")
		return new(big.Int).Set(wei), nil
	}

	g.metrics.fetches.Add(ctx, 1)

	wei, err := g.cb.Execute(func() (*big.Int, error) {
		return g.client.SuggestGasPrice(ctx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, apperror.New(apperror.CodeGasPriceUnavailable,
			apperror.WithCause(err),
			apperror.WithContext("failed to get gas price"))
	}

	if g.config.MaxGasPrice != nil && g.config.MaxGasPrice.Sign() > 0 && wei.Cmp(g.config.MaxGasPrice) > 0 {
		g.logger.Warn(ctx, "gas price exceeds max, clamping", "wei", wei.String())
		span.AddEvent("gas_price_clamped",
			trace.WithAttributes(attribute.String("wei", wei.String())))
		wei = new(big.Int).Set(g.config.MaxGasPrice)
	}

	g.priceCache.Set(ctx, "current", new(big.Int).Set(wei), g.config.CacheTTL)

	gwei, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e9)).Float64()
	g.metrics.gasPriceGwei.Record(ctx, gwei)

	span.SetAttributes(attribute.Float64("gwei", gwei))
	span.SetStatus(codes.Ok, "fetched")

	return wei, nil
}

// Close releases the feed's cache resources.
func (g *GasFeed) Close() error {
	g.priceCache.Close()
	return nil
}
