package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/avelez-dev/dexarb/business/market/app"
	"github.com/avelez-dev/dexarb/business/market/domain"
	"github.com/avelez-dev/dexarb/internal/apperror"
	"github.com/avelez-dev/dexarb/internal/asset"
	"github.com/avelez-dev/dexarb/internal/circuitbreaker"
	"github.com/avelez-dev/dexarb/internal/logger"
	"github.com/avelez-dev/dexarb/internal/ratelimit"
)

const (
	tracerName = "evm"
	meterName  = "evm"
)

// Backend is the slice of the eth client the venue client needs.
// *ethclient.Client satisfies it.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Ensure VenueClient implements VenueSource.
var _ app.VenueSource = (*VenueClient)(nil)

// venueMetrics holds OTEL metric instruments.
type venueMetrics struct {
	quotesTotal  metric.Int64Counter
	quoteErrors  metric.Int64Counter
	quoteLatency metric.Float64Histogram
}

// VenueClient quotes swaps against one V2-style router.
type VenueClient struct {
	venue     domain.Venue
	client    Backend
	routerABI abi.ABI
	pairABI   abi.ABI
	pools     map[string]common.Address // keyed by unordered pair, see poolKey

	limiter *ratelimit.Limiter
	cb      *circuitbreaker.CircuitBreaker[[]byte]
	logger  logger.LoggerInterface

	tracer  trace.Tracer
	metrics *venueMetrics
}

// NewVenueClient creates a venue client for one router. The limiter is
// shared across venue clients so the node sees one request budget.
func NewVenueClient(venue domain.Venue, client Backend, limiter *ratelimit.Limiter, log logger.LoggerInterface) (*VenueClient, error) {
	routerABI, err := abi.JSON(strings.NewReader(RouterV2ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %w", err)
	}
	pairABI, err := abi.JSON(strings.NewReader(PairV2ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pair ABI: %w", err)
	}

	c := &VenueClient{
		venue:     venue,
		client:    client,
		routerABI: routerABI,
		pairABI:   pairABI,
		pools:     make(map[string]common.Address),
		limiter:   limiter,
		logger:    log,
		tracer:    otel.Tracer(tracerName),
	}

	cbCfg := circuitbreaker.DefaultConfig("venue-" + venue.Name)
	c.cb = circuitbreaker.New[[]byte](cbCfg)

	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return c, nil
}

func (c *VenueClient) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &venueMetrics{}

	c.metrics.quotesTotal, err = meter.Int64Counter(
		"venue_quotes_total",
		metric.WithDescription("Total venue quote requests"),
	)
	if err != nil {
		return err
	}

	c.metrics.quoteErrors, err = meter.Int64Counter(
		"venue_quote_errors_total",
		metric.WithDescription("Total venue quote errors"),
	)
	if err != nil {
		return err
	}

	c.metrics.quoteLatency, err = meter.Float64Histogram(
		"venue_quote_latency_ms",
		metric.WithDescription("Venue quote latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	return err
}

// Venue identifies this client's venue.
func (c *VenueClient) Venue() domain.Venue {
	return c.venue
}

// RegisterPool maps a token pair to its pair contract on this venue.
func (c *VenueClient) RegisterPool(tokenA, tokenB *asset.Asset, pool common.Address) {
	c.pools[poolKey(tokenA.Address(), tokenB.Address())] = pool
}

// Quote calls getAmountsOut on the router for a single-hop path.
func (c *VenueClient) Quote(ctx context.Context, amountIn asset.Amount, tokenOut *asset.Asset) (domain.Quote, error) {
	ctx, span := c.tracer.Start(ctx, "evm.quote",
		trace.WithAttributes(
			attribute.String("venue", c.venue.Name),
			attribute.String("token_in", amountIn.Asset().Symbol()),
			attribute.String("token_out", tokenOut.Symbol()),
			attribute.String("amount_in", amountIn.String()),
		),
	)
	defer span.End()

	start := time.Now()
	c.metrics.quotesTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("venue", c.venue.Name)))

	if err := c.limiter.Wait(ctx); err != nil {
		return domain.Quote{}, apperror.New(apperror.CodeRateLimitExceeded, apperror.WithCause(err))
	}

	path := []common.Address{amountIn.Asset().Address(), tokenOut.Address()}
	callData, err := c.routerABI.Pack("getAmountsOut", amountIn.Raw(), path)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("failed to encode call: %w", err)
	}

	result, err := c.cb.Execute(func() ([]byte, error) {
		return c.client.CallContract(ctx, ethereum.CallMsg{
			To:   &c.venue.Router,
			Data: callData,
		}, nil)
	})
	if err != nil {
		c.metrics.quoteErrors.Add(ctx, 1,
			metric.WithAttributes(attribute.String("venue", c.venue.Name)))
		span.RecordError(err)
		span.SetStatus(codes.Error, "router call failed")
		return domain.Quote{}, apperror.New(apperror.CodeQuoteFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("%s getAmountsOut", c.venue.Name)))
	}

	outputs, err := c.routerABI.Unpack("getAmountsOut", result)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("failed to decode result: %w", err)
	}
	amounts, ok := outputs[0].([]*big.Int)
	if !ok || len(amounts) < 2 {
		return domain.Quote{}, apperror.New(apperror.CodeInvalidQuote,
			apperror.WithContext(fmt.Sprintf("unexpected getAmountsOut shape from %s", c.venue.Name)))
	}

	amountOut := asset.NewAmount(tokenOut, amounts[len(amounts)-1])
	quote := domain.NewQuote(c.venue, amountIn, amountOut)

	c.metrics.quoteLatency.Record(ctx, float64(time.Since(start).Milliseconds()),
		metric.WithAttributes(attribute.String("venue", c.venue.Name)))
	span.SetAttributes(attribute.String("amount_out", amountOut.String()))
	span.SetStatus(codes.Ok, "quote received")

	c.logger.Debug(ctx, "venue quote",
		"venue", c.venue.Name,
		"pair", quote.PairString(),
		"amount_in", amountIn.String(),
		"amount_out", amountOut.String(),
	)

	return quote, nil
}

// Reserves calls getReserves on the registered pair contract and
// orients the reserves to the pair's token order. Token0 is the lower
// address by V2 convention.
func (c *VenueClient) Reserves(ctx context.Context, tokenA, tokenB *asset.Asset) (domain.PoolReserves, error) {
	ctx, span := c.tracer.Start(ctx, "evm.reserves",
		trace.WithAttributes(
			attribute.String("venue", c.venue.Name),
			attribute.String("pair", tokenA.Symbol()+"-"+tokenB.Symbol()),
		),
	)
	defer span.End()

	pool, ok := c.pools[poolKey(tokenA.Address(), tokenB.Address())]
	if !ok {
		return domain.PoolReserves{}, apperror.New(apperror.CodePoolNotFound,
			apperror.WithContext(fmt.Sprintf("%s %s-%s", c.venue.Name, tokenA.Symbol(), tokenB.Symbol())))
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return domain.PoolReserves{}, apperror.New(apperror.CodeRateLimitExceeded, apperror.WithCause(err))
	}

	callData, err := c.pairABI.Pack("getReserves")
	if err != nil {
		return domain.PoolReserves{}, fmt.Errorf("failed to encode call: %w", err)
	}

	result, err := c.cb.Execute(func() ([]byte, error) {
		return c.client.CallContract(ctx, ethereum.CallMsg{
			To:   &pool,
			Data: callData,
		}, nil)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pair call failed")
		return domain.PoolReserves{}, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("%s getReserves", c.venue.Name)))
	}

	outputs, err := c.pairABI.Unpack("getReserves", result)
	if err != nil {
		return domain.PoolReserves{}, fmt.Errorf("failed to decode result: %w", err)
	}
	if len(outputs) < 2 {
		return domain.PoolReserves{}, fmt.Errorf("unexpected output length: %d", len(outputs))
	}

	reserve0 := outputs[0].(*big.Int)
	reserve1 := outputs[1].(*big.Int)

	token0, token1 := tokenA, tokenB
	if strings.ToLower(tokenB.Address().Hex()) < strings.ToLower(tokenA.Address().Hex()) {
		token0, token1 = tokenB, tokenA
	}

	reserves := domain.PoolReserves{
		Venue:     c.venue.Name,
		Pool:      pool,
		Token0:    token0,
		Token1:    token1,
		Reserve0:  asset.NewAmount(token0, reserve0),
		Reserve1:  asset.NewAmount(token1, reserve1),
		UpdatedAt: time.Now(),
	}

	span.SetStatus(codes.Ok, "reserves fetched")
	return reserves, nil
}

// poolKey builds an order-independent map key for a token pair.
func poolKey(a, b common.Address) string {
	x, y := strings.ToLower(a.Hex()), strings.ToLower(b.Hex())
	if y < x {
		x, y = y, x
	}
	return x + ":" + y
}
