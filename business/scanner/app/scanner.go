package app

import (
	"context"
	"math/big"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	marketDomain "github.com/avelez-dev/dexarb/business/market/domain"
	"github.com/avelez-dev/dexarb/business/scanner/domain"
	"github.com/avelez-dev/dexarb/internal/apperror"
	"github.com/avelez-dev/dexarb/internal/asset"
	"github.com/avelez-dev/dexarb/internal/logger"
)

const (
	tracerName = "scanner"
	meterName  = "scanner"

	bpsDenominator = 10000
)

// TriRoute is a triangular cycle resolved to concrete assets.
type TriRoute struct {
	A, B, C *asset.Asset
}

// Label returns the route label (e.g. "WETH-USDC-WMATIC").
func (r TriRoute) Label() string {
	return r.A.Symbol() + "-" + r.B.Symbol() + "-" + r.C.Symbol()
}

// ScanConfig holds search parameters.
type ScanConfig struct {
	Pairs          []marketDomain.Pair
	Routes         []TriRoute
	TradeAmounts   []decimal.Decimal // in base token units, applied per pair
	MinProfitBps   int64             // gross profit floor
	OpportunityTTL time.Duration
}

// scannerMetrics holds OTEL metric instruments.
type scannerMetrics struct {
	scansTotal  metric.Int64Counter
	foundTotal  metric.Int64Counter
	scanLatency metric.Float64Histogram
}

// Scanner searches venue quotes for direct and triangular cycles whose
// gross profit clears the configured floor.
type Scanner struct {
	quotes QuoteProvider
	cfg    ScanConfig
	newID  IDGenerator
	logger logger.LoggerInterface

	tracer  trace.Tracer
	metrics *scannerMetrics
}

// NewScanner creates a Scanner over the given quote provider.
func NewScanner(quotes QuoteProvider, cfg ScanConfig, log logger.LoggerInterface) (*Scanner, error) {
	s := &Scanner{
		quotes: quotes,
		cfg:    cfg,
		newID:  NewUUID,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}
	if err := s.initMetrics(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scanner) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &scannerMetrics{}

	s.metrics.scansTotal, err = meter.Int64Counter(
		"scanner_scans_total",
		metric.WithDescription("Total scan rounds"),
	)
	if err != nil {
		return err
	}

	s.metrics.foundTotal, err = meter.Int64Counter(
		"scanner_opportunities_total",
		metric.WithDescription("Opportunities found above the profit floor"),
	)
	if err != nil {
		return err
	}

	s.metrics.scanLatency, err = meter.Float64Histogram(
		"scanner_scan_latency_ms",
		metric.WithDescription("Full scan latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	return err
}

// SetIDGenerator overrides the opportunity ID source.
func (s *Scanner) SetIDGenerator(gen IDGenerator) {
	if gen != nil {
		s.newID = gen
	}
}

// ScanDirect searches one pair for the best two-leg cycle: buy base
// with amountIn on one venue, sell the proceeds back on another. The
// forward hop is one aggregation round; each buy/sell venue pairing
// then gets one reverse quote. Returns nil when no cycle clears the
// profit floor.
func (s *Scanner) ScanDirect(ctx context.Context, pair marketDomain.Pair, amountIn asset.Amount) (*domain.DirectOpportunity, error) {
	ctx, span := s.tracer.Start(ctx, "scanner.direct",
		trace.WithAttributes(
			attribute.String("pair", pair.String()),
			attribute.String("amount_in", amountIn.String()),
		),
	)
	defer span.End()

	forward, err := s.quotes.Aggregate(ctx, amountIn, pair.Quote)
	if err != nil {
		span.SetStatus(codes.Error, "forward aggregation failed")
		return nil, err
	}

	now := time.Now()
	var best *domain.DirectOpportunity

	for _, buy := range forward.Valid() {
		for _, sellVenue := range s.quotes.Venues() {
			if sellVenue.Name == buy.Venue.Name {
				continue
			}

			sell, err := s.quotes.SingleQuote(ctx, sellVenue.Name, buy.AmountOut, pair.Base)
			if err != nil || !sell.Valid || !sell.AmountOut.IsPositive() {
				continue
			}

			profit := new(big.Int).Sub(sell.AmountOut.Raw(), amountIn.Raw())
			if profit.Sign() <= 0 {
				continue
			}
			bps := profitBps(profit, amountIn.Raw())
			if bps < s.cfg.MinProfitBps {
				continue
			}

			if best == nil || betterFind(bps, profit, best.GrossProfitBps, best.GrossProfit.Raw()) {
				best = &domain.DirectOpportunity{
					ID:             s.newID(),
					TokenA:         pair.Base,
					TokenB:         pair.Quote,
					AmountIn:       amountIn,
					Buy:            domain.NewLeg(buy),
					Sell:           domain.NewLeg(sell),
					GrossProfit:    asset.NewAmount(pair.Base, profit),
					GrossProfitBps: bps,
					DetectedAt:     now,
					ExpiresAt:      now.Add(s.cfg.OpportunityTTL),
				}
			}
		}
	}

	if best != nil {
		s.metrics.foundTotal.Add(ctx, 1,
			metric.WithAttributes(attribute.String("kind", string(domain.KindDirect))))
		span.SetAttributes(
			attribute.Int64("profit_bps", best.GrossProfitBps),
			attribute.String("buy_venue", best.Buy.Venue.Name),
			attribute.String("sell_venue", best.Sell.Venue.Name),
		)
		s.logger.Info(ctx, "direct opportunity",
			"pair", pair.String(),
			"buy", best.Buy.Venue.Name,
			"sell", best.Sell.Venue.Name,
			"profit", best.GrossProfit.String(),
			"profit_bps", best.GrossProfitBps,
		)
	}

	span.SetStatus(codes.Ok, "scanned")
	return best, nil
}

// ScanTriangular searches one route for the best three-leg cycle
// A -> B -> C -> A. Dead branches are pruned as soon as a hop fails or
// returns nothing. Returns nil when no cycle clears the profit floor.
func (s *Scanner) ScanTriangular(ctx context.Context, route TriRoute, amountIn asset.Amount) (*domain.TriangularOpportunity, error) {
	ctx, span := s.tracer.Start(ctx, "scanner.triangular",
		trace.WithAttributes(
			attribute.String("route", route.Label()),
			attribute.String("amount_in", amountIn.String()),
		),
	)
	defer span.End()

	venues := s.quotes.Venues()
	now := time.Now()
	var best *domain.TriangularOpportunity

	for _, v1 := range venues {
		q1, err := s.quotes.SingleQuote(ctx, v1.Name, amountIn, route.B)
		if err != nil || !q1.Valid || !q1.AmountOut.IsPositive() {
			continue
		}

		for _, v2 := range venues {
			q2, err := s.quotes.SingleQuote(ctx, v2.Name, q1.AmountOut, route.C)
			if err != nil || !q2.Valid || !q2.AmountOut.IsPositive() {
				continue
			}

			for _, v3 := range venues {
				q3, err := s.quotes.SingleQuote(ctx, v3.Name, q2.AmountOut, route.A)
				if err != nil || !q3.Valid || !q3.AmountOut.IsPositive() {
					continue
				}

				profit := new(big.Int).Sub(q3.AmountOut.Raw(), amountIn.Raw())
				if profit.Sign() <= 0 {
					continue
				}
				bps := profitBps(profit, amountIn.Raw())
				if bps < s.cfg.MinProfitBps {
					continue
				}

				if best == nil || betterFind(bps, profit, best.GrossProfitBps, best.GrossProfit.Raw()) {
					best = &domain.TriangularOpportunity{
						ID:             s.newID(),
						TokenA:         route.A,
						TokenB:         route.B,
						TokenC:         route.C,
						AmountIn:       amountIn,
						Legs:           [3]domain.Leg{domain.NewLeg(q1), domain.NewLeg(q2), domain.NewLeg(q3)},
						FinalAmount:    q3.AmountOut,
						GrossProfit:    asset.NewAmount(route.A, profit),
						GrossProfitBps: bps,
						DetectedAt:     now,
						ExpiresAt:      now.Add(s.cfg.OpportunityTTL),
					}
				}
			}
		}
	}

	if best != nil {
		s.metrics.foundTotal.Add(ctx, 1,
			metric.WithAttributes(attribute.String("kind", string(domain.KindTriangular))))
		span.SetAttributes(attribute.Int64("profit_bps", best.GrossProfitBps))
		s.logger.Info(ctx, "triangular opportunity",
			"route", route.Label(),
			"venues", []string{best.Legs[0].Venue.Name, best.Legs[1].Venue.Name, best.Legs[2].Venue.Name},
			"profit", best.GrossProfit.String(),
			"profit_bps", best.GrossProfitBps,
		)
	}

	span.SetStatus(codes.Ok, "scanned")
	return best, nil
}

// FullScan runs every configured pair and route at every trade amount
// and returns the round sorted best first. Per-pair failures are
// collected, not fatal.
func (s *Scanner) FullScan(ctx context.Context) *domain.ScanResult {
	ctx, span := s.tracer.Start(ctx, "scanner.full_scan")
	defer span.End()

	start := time.Now()
	s.metrics.scansTotal.Add(ctx, 1)

	result := &domain.ScanResult{StartedAt: start}

	for _, pair := range s.cfg.Pairs {
		for _, size := range s.cfg.TradeAmounts {
			amountIn, err := asset.ParseDecimal(pair.Base, size)
			if err != nil {
				result.Errors = append(result.Errors, apperror.Wrap(err, apperror.CodeInvalidInput, pair.String()))
				continue
			}

			opp, err := s.ScanDirect(ctx, pair, amountIn)
			if err != nil {
				result.Errors = append(result.Errors, err)
				continue
			}
			if opp != nil {
				result.Opportunities = append(result.Opportunities, opp)
			}
		}
		result.PairsScanned++
	}

	for _, route := range s.cfg.Routes {
		for _, size := range s.cfg.TradeAmounts {
			amountIn, err := asset.ParseDecimal(route.A, size)
			if err != nil {
				result.Errors = append(result.Errors, apperror.Wrap(err, apperror.CodeInvalidInput, route.Label()))
				continue
			}

			opp, err := s.ScanTriangular(ctx, route, amountIn)
			if err != nil {
				result.Errors = append(result.Errors, err)
				continue
			}
			if opp != nil {
				result.Opportunities = append(result.Opportunities, opp)
			}
		}
		result.RoutesScanned++
	}

	sort.SliceStable(result.Opportunities, func(i, j int) bool {
		return result.Opportunities[i].ProfitBps() > result.Opportunities[j].ProfitBps()
	})

	result.Duration = time.Since(start)
	s.metrics.scanLatency.Record(ctx, float64(result.Duration.Milliseconds()))

	span.SetAttributes(
		attribute.Int("opportunities", len(result.Opportunities)),
		attribute.Int("errors", len(result.Errors)),
	)
	span.SetStatus(codes.Ok, "scan complete")

	return result
}

// profitBps converts a raw profit to basis points of the principal.
func profitBps(profit, principal *big.Int) int64 {
	if principal.Sign() <= 0 {
		return 0
	}
	bps := new(big.Int).Mul(profit, big.NewInt(bpsDenominator))
	return bps.Div(bps, principal).Int64()
}

// betterFind ranks finds by bps first, raw profit as tiebreak.
func betterFind(bps int64, profit *big.Int, bestBps int64, bestProfit *big.Int) bool {
	if bps != bestBps {
		return bps > bestBps
	}
	return profit.Cmp(bestProfit) > 0
}
