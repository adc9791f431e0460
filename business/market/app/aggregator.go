package app

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/avelez-dev/dexarb/business/market/domain"
	"github.com/avelez-dev/dexarb/internal/apperror"
	"github.com/avelez-dev/dexarb/internal/asset"
	"github.com/avelez-dev/dexarb/internal/logger"
)

const (
	tracerName = "market.aggregator"
	meterName  = "market.aggregator"
)

// AggregatorConfig bounds one aggregation round.
type AggregatorConfig struct {
	QuoteTimeout time.Duration // per-venue deadline
	MaxInFlight  int           // concurrent venue requests
}

// aggregatorMetrics holds OTEL metric instruments.
type aggregatorMetrics struct {
	roundsTotal   metric.Int64Counter
	venueFailures metric.Int64Counter
	roundLatency  metric.Float64Histogram
}

// Aggregator fans one quote request out to every venue and merges the
// results. A venue failure never aborts the round; it is recorded as an
// invalid quote and the round continues with the rest.
type Aggregator struct {
	sources []VenueSource
	cfg     AggregatorConfig
	logger  logger.LoggerInterface

	tracer  trace.Tracer
	metrics *aggregatorMetrics
}

// NewAggregator creates an Aggregator over the given venue sources.
func NewAggregator(sources []VenueSource, cfg AggregatorConfig, log logger.LoggerInterface) (*Aggregator, error) {
	if cfg.QuoteTimeout <= 0 {
		cfg.QuoteTimeout = 2 * time.Second
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = len(sources)
	}

	a := &Aggregator{
		sources: sources,
		cfg:     cfg,
		logger:  log,
		tracer:  otel.Tracer(tracerName),
	}
	if err := a.initMetrics(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Aggregator) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	a.metrics = &aggregatorMetrics{}

	a.metrics.roundsTotal, err = meter.Int64Counter(
		"market_aggregation_rounds_total",
		metric.WithDescription("Total aggregation rounds"),
	)
	if err != nil {
		return err
	}

	a.metrics.venueFailures, err = meter.Int64Counter(
		"market_venue_failures_total",
		metric.WithDescription("Total per-venue quote failures"),
	)
	if err != nil {
		return err
	}

	a.metrics.roundLatency, err = meter.Float64Histogram(
		"market_aggregation_latency_ms",
		metric.WithDescription("Aggregation round latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	return err
}

// Venues returns the configured venues in source order.
func (a *Aggregator) Venues() []domain.Venue {
	out := make([]domain.Venue, len(a.sources))
	for i, s := range a.sources {
		out[i] = s.Venue()
	}
	return out
}

// Aggregate requests the same fixed-input swap from every venue with
// bounded concurrency and returns the merged round. The error is
// non-nil only when fewer than two venues produced a valid quote.
func (a *Aggregator) Aggregate(ctx context.Context, amountIn asset.Amount, tokenOut *asset.Asset) (*domain.QuoteSet, error) {
	ctx, span := a.tracer.Start(ctx, "market.aggregate",
		trace.WithAttributes(
			attribute.String("token_in", amountIn.Asset().Symbol()),
			attribute.String("token_out", tokenOut.Symbol()),
			attribute.String("amount_in", amountIn.String()),
		),
	)
	defer span.End()

	start := time.Now()
	a.metrics.roundsTotal.Add(ctx, 1)

	quotes := make([]domain.Quote, len(a.sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.MaxInFlight)
	for i, src := range a.sources {
		g.Go(func() error {
			quotes[i] = a.quoteOne(gctx, src, amountIn, tokenOut)
			return nil
		})
	}
	// Workers never return errors; failures become invalid quotes.
	_ = g.Wait()

	set := domain.NewQuoteSet(amountIn, tokenOut)
	for _, q := range quotes {
		set.Add(q)
	}

	a.metrics.roundLatency.Record(ctx, float64(time.Since(start).Milliseconds()))
	span.SetAttributes(
		attribute.Int("venues", len(a.sources)),
		attribute.Int("valid_quotes", set.ValidCount()),
	)

	if !set.HasArbitrageData() {
		span.SetStatus(codes.Error, "insufficient quotes")
		return set, apperror.New(apperror.CodeInsufficientQuotes,
			apperror.WithContext(set.TokenIn.Symbol()+"-"+tokenOut.Symbol()))
	}

	span.SetStatus(codes.Ok, "round complete")
	return set, nil
}

// SingleQuote requests the swap from one venue by name.
func (a *Aggregator) SingleQuote(ctx context.Context, venueName string, amountIn asset.Amount, tokenOut *asset.Asset) (domain.Quote, error) {
	for _, src := range a.sources {
		if src.Venue().Name != venueName {
			continue
		}
		q := a.quoteOne(ctx, src, amountIn, tokenOut)
		if !q.Valid {
			return q, q.Err
		}
		return q, nil
	}
	return domain.Quote{}, apperror.New(apperror.CodeUnknownVenue, apperror.WithContext(venueName))
}

// Reserves fetches the pool reserves for the pair on one venue.
func (a *Aggregator) Reserves(ctx context.Context, venueName string, tokenA, tokenB *asset.Asset) (domain.PoolReserves, error) {
	for _, src := range a.sources {
		if src.Venue().Name == venueName {
			return src.Reserves(ctx, tokenA, tokenB)
		}
	}
	return domain.PoolReserves{}, apperror.New(apperror.CodeUnknownVenue, apperror.WithContext(venueName))
}

func (a *Aggregator) quoteOne(ctx context.Context, src VenueSource, amountIn asset.Amount, tokenOut *asset.Asset) domain.Quote {
	venue := src.Venue()

	qctx, cancel := context.WithTimeout(ctx, a.cfg.QuoteTimeout)
	defer cancel()

	q, err := src.Quote(qctx, amountIn, tokenOut)
	if err != nil {
		a.metrics.venueFailures.Add(ctx, 1,
			metric.WithAttributes(attribute.String("venue", venue.Name)))
		a.logger.Warn(ctx, "venue quote failed",
			"venue", venue.Name,
			"pair", amountIn.Asset().Symbol()+"-"+tokenOut.Symbol(),
			"error", err,
		)
		return domain.NewInvalidQuote(venue, amountIn.Asset(), tokenOut, err)
	}

	if !q.AmountOut.IsPositive() {
		err := apperror.New(apperror.CodeInvalidQuote,
			apperror.WithContext("zero output from "+venue.Name))
		a.metrics.venueFailures.Add(ctx, 1,
			metric.WithAttributes(attribute.String("venue", venue.Name)))
		return domain.NewInvalidQuote(venue, amountIn.Asset(), tokenOut, err)
	}

	return q
}
