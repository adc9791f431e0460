package app

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/avelez-dev/dexarb/business/arbitrage/domain"
	"github.com/avelez-dev/dexarb/internal/logger"
)

const (
	chainTracer = "arbitrage.chain"
	chainMeter  = "arbitrage.chain"
)

// chainMetrics holds OTEL metric instruments.
type chainMetrics struct {
	evaluations metric.Int64Counter
	rejections  metric.Int64Counter
}

// Chain evaluates guards in order and short-circuits on the first
// failure. The chain holds no state between evaluations.
type Chain struct {
	guards []Guard
	logger logger.LoggerInterface

	tracer  trace.Tracer
	metrics *chainMetrics
}

// NewChain creates a guard chain. Order matters; guards run exactly as
// given.
func NewChain(guards []Guard, log logger.LoggerInterface) (*Chain, error) {
	c := &Chain{
		guards: guards,
		logger: log,
		tracer: otel.Tracer(chainTracer),
	}
	if err := c.initMetrics(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewDefaultChain wires the five standard guards in their canonical
// order: whitelist, oracle deviation, liquidity depth, cross-venue
// consistency, profit after cost.
func NewDefaultChain(
	whitelist *WhitelistGuard,
	oracle *OracleDeviationGuard,
	liquidity *LiquidityDepthGuard,
	consistency *ConsistencyGuard,
	profit *ProfitGuard,
	log logger.LoggerInterface,
) (*Chain, error) {
	return NewChain([]Guard{whitelist, oracle, liquidity, consistency, profit}, log)
}

func (c *Chain) initMetrics() error {
	meter := otel.Meter(chainMeter)
	var err error

	c.metrics = &chainMetrics{}

	c.metrics.evaluations, err = meter.Int64Counter(
		"guard_evaluations_total",
		metric.WithDescription("Total candidates evaluated by the guard chain"),
	)
	if err != nil {
		return err
	}

	c.metrics.rejections, err = meter.Int64Counter(
		"guard_rejections_total",
		metric.WithDescription("Candidates rejected, by guard"),
	)
	return err
}

// Evaluate runs the candidate through every guard in order. The first
// failing guard rejects the candidate and later guards are not run.
func (c *Chain) Evaluate(ctx context.Context, cand *domain.Candidate) domain.Decision {
	ctx, span := c.tracer.Start(ctx, "chain.evaluate",
		trace.WithAttributes(
			attribute.String("opportunity_id", cand.Opportunity.OpportunityID()),
			attribute.String("pair", cand.Opportunity.PairLabel()),
		),
	)
	defer span.End()

	c.metrics.evaluations.Add(ctx, 1)

	results := make([]domain.GuardResult, 0, len(c.guards))
	for _, guard := range c.guards {
		result := guard.Check(ctx, cand)
		results = append(results, result)

		if !result.Passed {
			c.metrics.rejections.Add(ctx, 1,
				metric.WithAttributes(attribute.String("guard", guard.Name())))
			span.SetAttributes(attribute.String("rejected_by", guard.Name()))
			span.SetStatus(codes.Ok, "rejected")

			c.logger.Info(ctx, "candidate rejected",
				"opportunity_id", cand.Opportunity.OpportunityID(),
				"pair", cand.Opportunity.PairLabel(),
				"guard", guard.Name(),
				"reason", result.Reason,
			)
			return domain.Reject(guard.Name(), result.Reason, results, cand.Breakdown)
		}
	}

	span.SetStatus(codes.Ok, "approved")
	c.logger.Info(ctx, "candidate approved",
		"opportunity_id", cand.Opportunity.OpportunityID(),
		"pair", cand.Opportunity.PairLabel(),
	)
	return domain.Allow(results, cand.Breakdown)
}
