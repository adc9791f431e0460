package app

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/avelez-dev/dexarb/business/arbitrage/domain"
	marketDomain "github.com/avelez-dev/dexarb/business/market/domain"
	scannerApp "github.com/avelez-dev/dexarb/business/scanner/app"
	scannerDomain "github.com/avelez-dev/dexarb/business/scanner/domain"
	"github.com/avelez-dev/dexarb/internal/asset"
	"github.com/avelez-dev/dexarb/internal/logger"
)

const detectorTracer = "arbitrage.detector"

// DetectorConfig holds the scan loop configuration.
type DetectorConfig struct {
	ScanInterval time.Duration
}

// Detector drives the pipeline: it runs full scans on a fixed
// interval, drops expired finds, enriches survivors with live quotes
// and reserves, and hands each one to the guard chain.
type Detector struct {
	scanner  *scannerApp.Scanner
	quotes   scannerApp.QuoteProvider
	reserves ReserveSource
	chain    *Chain
	reporter Reporter
	cfg      DetectorConfig
	logger   logger.LoggerInterface
	tracer   trace.Tracer
}

// NewDetector creates the pipeline orchestrator.
func NewDetector(
	scanner *scannerApp.Scanner,
	quotes scannerApp.QuoteProvider,
	reserves ReserveSource,
	chain *Chain,
	reporter Reporter,
	cfg DetectorConfig,
	log logger.LoggerInterface,
) *Detector {
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = 5 * time.Second
	}
	return &Detector{
		scanner:  scanner,
		quotes:   quotes,
		reserves: reserves,
		chain:    chain,
		reporter: reporter,
		cfg:      cfg,
		logger:   log,
		tracer:   otel.Tracer(detectorTracer),
	}
}

// Run executes scan rounds until the context is canceled.
func (d *Detector) Run(ctx context.Context) error {
	d.logger.Info(ctx, "detector starting", "interval", d.cfg.ScanInterval.String())

	ticker := time.NewTicker(d.cfg.ScanInterval)
	defer ticker.Stop()

	// First round immediately, then on the interval.
	d.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info(ctx, "detector stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			d.runOnce(ctx)
		}
	}
}

// runOnce executes one scan round end to end.
func (d *Detector) runOnce(ctx context.Context) {
	ctx, span := d.tracer.Start(ctx, "detector.round")
	defer span.End()

	result := d.scanner.FullScan(ctx)
	d.reporter.ReportScan(result)

	for _, err := range result.Errors {
		d.logger.Warn(ctx, "scan error", "error", err)
	}

	evaluated := 0
	for _, opp := range result.Opportunities {
		if opp.IsExpiredAt(time.Now()) {
			d.logger.Debug(ctx, "opportunity expired before evaluation",
				"opportunity_id", opp.OpportunityID(),
				"pair", opp.PairLabel(),
			)
			continue
		}

		decision := d.Evaluate(ctx, opp)
		d.reporter.ReportDecision(opp, decision)
		evaluated++
	}

	span.SetAttributes(
		attribute.Int("opportunities", len(result.Opportunities)),
		attribute.Int("evaluated", evaluated),
	)
	span.SetStatus(codes.Ok, "round complete")
}

// Evaluate enriches one opportunity with live market data and runs the
// guard chain. Expired opportunities are rejected without touching the
// guards.
func (d *Detector) Evaluate(ctx context.Context, opp scannerDomain.Opportunity) domain.Decision {
	ctx, span := d.tracer.Start(ctx, "detector.evaluate",
		trace.WithAttributes(attribute.String("opportunity_id", opp.OpportunityID())),
	)
	defer span.End()

	if opp.IsExpiredAt(time.Now()) {
		return domain.Reject("expired", "opportunity TTL elapsed", nil, nil)
	}

	cand := &domain.Candidate{Opportunity: opp}

	route := opp.Route()
	if len(route) > 0 {
		entry := route[0]

		// Fresh quote round for the entry pair; the chain judges live
		// prices, not the ones captured at detection time.
		set, err := d.quotes.Aggregate(ctx, entry.AmountIn, entry.TokenOut)
		if err == nil {
			cand.Quotes = set
		} else {
			d.logger.Warn(ctx, "candidate quote refresh failed",
				"opportunity_id", opp.OpportunityID(), "error", err)
		}

		cand.Reserves = d.shallowestReserves(ctx, opp)
	}

	return d.chain.Evaluate(ctx, cand)
}

// shallowestReserves returns the pool with the smallest principal-token
// reserve among the venues the opportunity touches with the principal.
func (d *Detector) shallowestReserves(ctx context.Context, opp scannerDomain.Opportunity) *marketDomain.PoolReserves {
	principal := opp.Principal().Asset()

	var shallowest *marketDomain.PoolReserves
	var shallowestReserve asset.Amount

	for _, leg := range opp.Route() {
		if !leg.TokenIn.Equals(principal) && !leg.TokenOut.Equals(principal) {
			continue
		}

		reserves, err := d.reserves.Reserves(ctx, leg.Venue.Name, leg.TokenIn, leg.TokenOut)
		if err != nil {
			d.logger.Debug(ctx, "reserve fetch failed",
				"venue", leg.Venue.Name,
				"pair", leg.TokenIn.Symbol()+"-"+leg.TokenOut.Symbol(),
				"error", err,
			)
			continue
		}

		r, ok := reserves.ReserveFor(principal)
		if !ok {
			continue
		}
		if shallowest == nil || r.Raw().Cmp(shallowestReserve.Raw()) < 0 {
			snapshot := reserves
			shallowest = &snapshot
			shallowestReserve = r
		}
	}

	return shallowest
}
