package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/avelez-dev/dexarb/internal/apperror"
	"github.com/avelez-dev/dexarb/internal/cache"
	"github.com/avelez-dev/dexarb/internal/circuitbreaker"
	"github.com/avelez-dev/dexarb/internal/logger"
	"github.com/avelez-dev/dexarb/internal/ratelimit"
)

// ChainlinkOracleConfig holds configuration for the Chainlink oracle.
type ChainlinkOracleConfig struct {
	Feeds    map[string]common.Address // token symbol -> USD aggregator
	MaxAge   time.Duration             // reject rounds older than this
	CacheTTL time.Duration
}

// DefaultChainlinkOracleConfig returns sensible defaults.
func DefaultChainlinkOracleConfig(feeds map[string]common.Address) ChainlinkOracleConfig {
	return ChainlinkOracleConfig{
		Feeds:    feeds,
		MaxAge:   time.Hour,
		CacheTTL: 30 * time.Second,
	}
}

// oracleMetrics holds OTEL metric instruments.
type oracleMetrics struct {
	fetches     metric.Int64Counter
	staleRounds metric.Int64Counter
	cacheHits   metric.Int64Counter
}

// ChainlinkOracle reads USD reference prices from AggregatorV3 feeds.
type ChainlinkOracle struct {
	config ChainlinkOracleConfig
	client Backend
	abi    abi.ABI

	priceCache *cache.Cache[string, decimal.Decimal]

	// Feed decimals never change; memoized after first read.
	decimalsMu sync.Mutex
	decimals   map[string]uint8

	limiter *ratelimit.Limiter
	cb      *circuitbreaker.CircuitBreaker[[]byte]
	logger  logger.LoggerInterface

	tracer  trace.Tracer
	metrics *oracleMetrics
}

// NewChainlinkOracle creates a Chainlink price oracle.
func NewChainlinkOracle(cfg ChainlinkOracleConfig, client Backend, limiter *ratelimit.Limiter, log logger.LoggerInterface) (*ChainlinkOracle, error) {
	parsedABI, err := abi.JSON(strings.NewReader(AggregatorV3ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse aggregator ABI: %w", err)
	}

	o := &ChainlinkOracle{
		config:     cfg,
		client:     client,
		abi:        parsedABI,
		priceCache: cache.New[string, decimal.Decimal](5 * time.Minute),
		decimals:   make(map[string]uint8),
		limiter:    limiter,
		logger:     log,
		tracer:     otel.Tracer(tracerName),
	}

	cbCfg := circuitbreaker.DefaultConfig("chainlink-oracle")
	o.cb = circuitbreaker.New[[]byte](cbCfg)

	if err := o.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return o, nil
}

func (o *ChainlinkOracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	o.metrics = &oracleMetrics{}

	o.metrics.fetches, err = meter.Int64Counter(
		"oracle_fetches_total",
		metric.WithDescription("Total oracle round fetches"),
	)
	if err != nil {
		return err
	}

	o.metrics.staleRounds, err = meter.Int64Counter(
		"oracle_stale_rounds_total",
		metric.WithDescription("Oracle rounds rejected as stale"),
	)
	if err != nil {
		return err
	}

	o.metrics.cacheHits, err = meter.Int64Counter(
		"oracle_cache_hits_total",
		metric.WithDescription("Oracle price cache hits"),
	)
	return err
}

// HasFeed reports whether a USD feed is configured for the symbol.
func (o *ChainlinkOracle) HasFeed(symbol string) bool {
	_, ok := o.config.Feeds[strings.ToUpper(symbol)]
	return ok
}

// PriceUSD returns the feed's latest USD price for the token symbol.
// Rounds older than MaxAge are rejected with CodeOracleStale; a symbol
// with no configured feed returns CodeNoOracleFeed.
func (o *ChainlinkOracle) PriceUSD(ctx context.Context, symbol string) (decimal.Decimal, error) {
	symbol = strings.ToUpper(symbol)

	ctx, span := o.tracer.Start(ctx, "oracle.price_usd",
		trace.WithAttributes(attribute.String("symbol", symbol)),
	)
	defer span.End()

	feed, ok := o.config.Feeds[symbol]
	if !ok {
		return decimal.Zero, apperror.New(apperror.CodeNoOracleFeed, apperror.WithContext(symbol))
	}

	if price, found := o.priceCache.Get(ctx, symbol); found {
		o.metrics.cacheHits.Add(ctx, 1)
		span.AddEvent("cache_hit")
		return price, nil
	}

	o.metrics.fetches.Add(ctx, 1)

	round, err := o.latestRoundData(ctx, feed)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return decimal.Zero, err
	}

	if round.Answer.Sign() <= 0 {
		return decimal.Zero, apperror.New(apperror.CodeOracleUnavailable,
			apperror.WithContext(fmt.Sprintf("non-positive answer for %s", symbol)))
	}

	updatedAt := time.Unix(round.UpdatedAt.Int64(), 0)
	if o.config.MaxAge > 0 && time.Since(updatedAt) > o.config.MaxAge {
		o.metrics.staleRounds.Add(ctx, 1)
		span.SetStatus(codes.Error, "stale round")
		return decimal.Zero, apperror.New(apperror.CodeOracleStale,
			apperror.WithContext(fmt.Sprintf("%s updated %s ago", symbol, time.Since(updatedAt).Round(time.Second))))
	}

	dec, err := o.feedDecimals(ctx, symbol, feed)
	if err != nil {
		return decimal.Zero, err
	}

	price := decimal.NewFromBigInt(round.Answer, -int32(dec))
	o.priceCache.Set(ctx, symbol, price, o.config.CacheTTL)

	span.SetAttributes(attribute.String("price_usd", price.String()))
	span.SetStatus(codes.Ok, "fetched")

	o.logger.Debug(ctx, "oracle price", "symbol", symbol, "usd", price.String())
	return price, nil
}

func (o *ChainlinkOracle) latestRoundData(ctx context.Context, feed common.Address) (*RoundData, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, apperror.New(apperror.CodeRateLimitExceeded, apperror.WithCause(err))
	}

	callData, err := o.abi.Pack("latestRoundData")
	if err != nil {
		return nil, fmt.Errorf("failed to encode call: %w", err)
	}

	result, err := o.cb.Execute(func() ([]byte, error) {
		return o.client.CallContract(ctx, ethereum.CallMsg{
			To:   &feed,
			Data: callData,
		}, nil)
	})
	if err != nil {
		return nil, apperror.New(apperror.CodeOracleUnavailable,
			apperror.WithCause(err),
			apperror.WithContext("latestRoundData call failed"))
	}

	outputs, err := o.abi.Unpack("latestRoundData", result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	if len(outputs) < 5 {
		return nil, fmt.Errorf("unexpected output length: %d", len(outputs))
	}

	return &RoundData{
		RoundID:         outputs[0].(*big.Int),
		Answer:          outputs[1].(*big.Int),
		StartedAt:       outputs[2].(*big.Int),
		UpdatedAt:       outputs[3].(*big.Int),
		AnsweredInRound: outputs[4].(*big.Int),
	}, nil
}

func (o *ChainlinkOracle) feedDecimals(ctx context.Context, symbol string, feed common.Address) (uint8, error) {
	o.decimalsMu.Lock()
	if d, ok := o.decimals[symbol]; ok {
		o.decimalsMu.Unlock()
		return d, nil
	}
	o.decimalsMu.Unlock()

	callData, err := o.abi.Pack("decimals")
	if err != nil {
		return 0, fmt.Errorf("failed to encode call: %w", err)
	}

	result, err := o.cb.Execute(func() ([]byte, error) {
		return o.client.CallContract(ctx, ethereum.CallMsg{
			To:   &feed,
			Data: callData,
		}, nil)
	})
	if err != nil {
		return 0, apperror.New(apperror.CodeOracleUnavailable,
			apperror.WithCause(err),
			apperror.WithContext("decimals call failed"))
	}

	outputs, err := o.abi.Unpack("decimals", result)
	if err != nil {
		return 0, fmt.Errorf("failed to decode result: %w", err)
	}
	d := outputs[0].(uint8)

	o.decimalsMu.Lock()
	o.decimals[symbol] = d
	o.decimalsMu.Unlock()

	return d, nil
}

// Close releases the oracle's cache resources.
func (o *ChainlinkOracle) Close() error {
	o.priceCache.Close()
	return nil
}
