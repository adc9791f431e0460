package app

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/avelez-dev/dexarb/business/arbitrage/domain"
	scannerDomain "github.com/avelez-dev/dexarb/business/scanner/domain"
	"github.com/avelez-dev/dexarb/internal/logger"
)

const calculatorTracer = "arbitrage.calculator"

var (
	bpsScale = decimal.NewFromInt(10000)
	one      = decimal.NewFromInt(1)
)

// CalculatorConfig holds the profitability model parameters.
type CalculatorConfig struct {
	MinProfitUSD decimal.Decimal
	MinProfitBps decimal.Decimal

	SlippageBps           int64
	SlippageBpsTriangular int64
	FlashLoanFeeBps       int64
	UseFlashLoan          bool

	GasLimitSwap       uint64
	GasLimitFlashLoan  uint64
	GasLimitTriangular uint64
	GasTokenSymbol     string

	// DefaultPricesUSD backs USD conversions when the oracle fails.
	DefaultPricesUSD map[string]decimal.Decimal
}

// Calculator prices an opportunity: it charges flash-loan premium, gas
// and a slippage reserve against the gross profit and applies the USD
// and bps floors, USD first.
type Calculator struct {
	oracle OracleSource
	gas    GasSource
	cfg    CalculatorConfig
	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewCalculator creates a profit calculator.
func NewCalculator(oracle OracleSource, gas GasSource, cfg CalculatorConfig, log logger.LoggerInterface) *Calculator {
	return &Calculator{
		oracle: oracle,
		gas:    gas,
		cfg:    cfg,
		logger: log,
		tracer: otel.Tracer(calculatorTracer),
	}
}

// Price produces the full cost breakdown for an opportunity. It never
// fails on oracle trouble; USD conversions fall back to configured
// defaults so a candidate is judged pessimistically instead of dropped.
func (c *Calculator) Price(ctx context.Context, opp scannerDomain.Opportunity) (*domain.CostBreakdown, error) {
	ctx, span := c.tracer.Start(ctx, "calculator.price",
		trace.WithAttributes(
			attribute.String("opportunity_id", opp.OpportunityID()),
			attribute.String("kind", string(opp.Kind())),
		),
	)
	defer span.End()

	principal := opp.Principal()
	token := principal.Asset()
	amount := principal.ToDecimal()
	grossProfit := opp.Profit().ToDecimal()

	tokenPrice := c.priceUSD(ctx, token.Symbol())
	gasTokenPrice := c.priceUSD(ctx, c.cfg.GasTokenSymbol)

	gasPriceWei, err := c.gas.GasPriceWei(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "gas price unavailable")
		return nil, err
	}

	gasUnits, slippageBps := c.shapeParams(opp.Kind())
	gas := domain.NewGasCost(gasUnits, gasPriceWei, gasTokenPrice)

	gasInToken := decimal.Zero
	if tokenPrice.IsPositive() {
		gasInToken = gas.CostUSD.Div(tokenPrice)
	}

	feeBpsTotal := int64(0)
	for _, leg := range opp.Route() {
		feeBpsTotal += leg.Venue.FeeBps
	}
	venueFees := amount.Mul(decimal.NewFromInt(feeBpsTotal)).Div(bpsScale)

	flashFee := decimal.Zero
	if c.cfg.UseFlashLoan {
		flashFee = amount.Mul(decimal.NewFromInt(c.cfg.FlashLoanFeeBps)).Div(bpsScale)
	}

	slippage := amount.Mul(decimal.NewFromInt(slippageBps)).Div(bpsScale)

	totalCost := flashFee.Add(gasInToken).Add(slippage)
	netProfit := grossProfit.Sub(totalCost)
	netProfitUSD := netProfit.Mul(tokenPrice)

	netProfitBps := decimal.Zero
	grossProfitBps := decimal.Zero
	if amount.IsPositive() {
		netProfitBps = netProfit.Div(amount).Mul(bpsScale)
		grossProfitBps = grossProfit.Div(amount).Mul(bpsScale)
	}

	b := &domain.CostBreakdown{
		TradeAmount:    amount,
		TradeAmountUSD: amount.Mul(tokenPrice),
		PrincipalPrice: tokenPrice,
		GrossReturn:    amount.Add(grossProfit),
		GrossProfit:    grossProfit,
		GrossProfitBps: grossProfitBps,
		VenueFees:      venueFees,
		FlashLoanFee:   flashFee,
		Gas:            gas,
		GasCost:        gasInToken,
		Slippage:       slippage,
		TotalCost:      totalCost,
		TotalCostUSD:   totalCost.Mul(tokenPrice),
		NetProfit:      netProfit,
		NetProfitUSD:   netProfitUSD,
		NetProfitBps:   netProfitBps,
		CalculatedAt:   time.Now(),
	}

	switch {
	case netProfitUSD.LessThan(c.cfg.MinProfitUSD):
		b.Reason = domain.ReasonBelowUSDFloor
	case netProfitBps.LessThan(c.cfg.MinProfitBps):
		b.Reason = domain.ReasonBelowBpsFloor
	default:
		b.IsProfitable = true
		b.Reason = domain.ReasonProfitable
	}

	span.SetAttributes(
		attribute.String("net_profit", netProfit.String()),
		attribute.String("net_profit_usd", netProfitUSD.String()),
		attribute.Bool("profitable", b.IsProfitable),
	)
	span.SetStatus(codes.Ok, "priced")

	return b, nil
}

// shapeParams returns the gas budget and slippage reserve for the
// opportunity shape.
func (c *Calculator) shapeParams(kind scannerDomain.Kind) (uint64, int64) {
	if kind == scannerDomain.KindTriangular {
		return c.cfg.GasLimitTriangular, c.cfg.SlippageBpsTriangular
	}
	if c.cfg.UseFlashLoan {
		return c.cfg.GasLimitFlashLoan, c.cfg.SlippageBps
	}
	return c.cfg.GasLimitSwap, c.cfg.SlippageBps
}

// priceUSD resolves a token's USD price, falling back to the configured
// default when the oracle cannot answer.
func (c *Calculator) priceUSD(ctx context.Context, symbol string) decimal.Decimal {
	symbol = strings.ToUpper(symbol)

	price, err := c.oracle.PriceUSD(ctx, symbol)
	if err == nil && price.IsPositive() {
		return price
	}

	fallback, ok := c.cfg.DefaultPricesUSD[symbol]
	if !ok || !fallback.IsPositive() {
		fallback = one
	}
	c.logger.Warn(ctx, "oracle price unavailable, using fallback",
		"symbol", symbol,
		"fallback_usd", fallback.String(),
		"error", err,
	)
	return fallback
}
