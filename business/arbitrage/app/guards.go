package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/avelez-dev/dexarb/business/arbitrage/domain"
	"github.com/avelez-dev/dexarb/internal/asset"
)

// Guard is one independent safety predicate. Guards are stateless
// between invocations; each Check re-evaluates against live inputs.
type Guard interface {
	Name() string
	Check(ctx context.Context, cand *domain.Candidate) domain.GuardResult
}

// WhitelistGuard admits only configured pairs. Membership is
// order-independent: WETH-USDC and USDC-WETH are the same pair. A
// triangular candidate must have every consecutive pair whitelisted.
type WhitelistGuard struct {
	safe map[string]bool
}

// NewWhitelistGuard builds the guard from "TOKENA-TOKENB" pair labels.
func NewWhitelistGuard(pairs []string) *WhitelistGuard {
	safe := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		parts := strings.Split(strings.ToUpper(p), "-")
		if len(parts) == 2 {
			safe[pairKey(parts[0], parts[1])] = true
		}
	}
	return &WhitelistGuard{safe: safe}
}

func (g *WhitelistGuard) Name() string { return domain.GuardWhitelist }

func (g *WhitelistGuard) Check(_ context.Context, cand *domain.Candidate) domain.GuardResult {
	for _, leg := range cand.Opportunity.Route() {
		key := pairKey(leg.TokenIn.Symbol(), leg.TokenOut.Symbol())
		if !g.safe[key] {
			return domain.GuardResult{
				Guard:  g.Name(),
				Metric: key,
				Reason: fmt.Sprintf("pair %s not whitelisted", key),
			}
		}
	}
	return domain.GuardResult{
		Guard:  g.Name(),
		Passed: true,
		Metric: cand.Opportunity.PairLabel(),
	}
}

func pairKey(a, b string) string {
	a, b = strings.ToUpper(a), strings.ToUpper(b)
	if b < a {
		a, b = b, a
	}
	return a + "-" + b
}

// OracleDeviationGuard compares the median DEX price against the
// oracle's cross rate. Missing oracle coverage for either token passes
// vacuously: an unverifiable price is not evidence of a bad one.
type OracleDeviationGuard struct {
	oracle         OracleSource
	maxStablePct   decimal.Decimal
	maxVolatilePct decimal.Decimal
}

// NewOracleDeviationGuard creates the deviation guard. Limits are in
// percent; the stable limit applies when both tokens are stablecoins.
func NewOracleDeviationGuard(oracle OracleSource, maxStablePct, maxVolatilePct decimal.Decimal) *OracleDeviationGuard {
	return &OracleDeviationGuard{
		oracle:         oracle,
		maxStablePct:   maxStablePct,
		maxVolatilePct: maxVolatilePct,
	}
}

func (g *OracleDeviationGuard) Name() string { return domain.GuardOracle }

func (g *OracleDeviationGuard) Check(ctx context.Context, cand *domain.Candidate) domain.GuardResult {
	if cand.Quotes == nil || cand.Quotes.ValidCount() == 0 {
		return domain.GuardResult{
			Guard:  g.Name(),
			Passed: true,
			Metric: "no quote data",
		}
	}

	base, quote := cand.Quotes.TokenIn, cand.Quotes.TokenOut
	if !g.oracle.HasFeed(base.Symbol()) || !g.oracle.HasFeed(quote.Symbol()) {
		return domain.GuardResult{
			Guard:  g.Name(),
			Passed: true,
			Metric: "oracle feed unavailable",
		}
	}

	basePrice, errB := g.oracle.PriceUSD(ctx, base.Symbol())
	quotePrice, errQ := g.oracle.PriceUSD(ctx, quote.Symbol())
	if errB != nil || errQ != nil || !quotePrice.IsPositive() {
		return domain.GuardResult{
			Guard:  g.Name(),
			Passed: true,
			Metric: "oracle price unavailable",
		}
	}

	oraclePrice := basePrice.Div(quotePrice)
	if !oraclePrice.IsPositive() {
		return domain.GuardResult{
			Guard:  g.Name(),
			Passed: true,
			Metric: "oracle price unavailable",
		}
	}

	quoted := cand.Quotes.MedianPrice()
	deviation := quoted.Sub(oraclePrice).Abs().Div(oraclePrice).Mul(decimal.NewFromInt(100))

	limit := g.maxVolatilePct
	if isStablePair(base, quote) {
		limit = g.maxStablePct
	}

	metric := fmt.Sprintf("deviation %s%% (limit %s%%)", deviation.StringFixed(4), limit.String())
	if deviation.GreaterThan(limit) {
		return domain.GuardResult{
			Guard:  g.Name(),
			Metric: metric,
			Reason: fmt.Sprintf("price deviates %s%% from oracle, max %s%%", deviation.StringFixed(4), limit.String()),
		}
	}
	return domain.GuardResult{Guard: g.Name(), Passed: true, Metric: metric}
}

func isStablePair(a, b *asset.Asset) bool {
	return a.IsStable() && b.IsStable()
}

// LiquidityDepthGuard rejects trades too large for the entry pool.
// A missing or empty reserve is an automatic fail.
type LiquidityDepthGuard struct {
	maxImpactPct decimal.Decimal
}

// NewLiquidityDepthGuard creates the depth guard with a max price
// impact in percent.
func NewLiquidityDepthGuard(maxImpactPct decimal.Decimal) *LiquidityDepthGuard {
	return &LiquidityDepthGuard{maxImpactPct: maxImpactPct}
}

func (g *LiquidityDepthGuard) Name() string { return domain.GuardLiquidity }

func (g *LiquidityDepthGuard) Check(_ context.Context, cand *domain.Candidate) domain.GuardResult {
	if cand.Reserves == nil {
		return domain.GuardResult{
			Guard:  g.Name(),
			Metric: "no reserve data",
			Reason: "pool reserves unknown",
		}
	}

	impact, ok := cand.Reserves.ImpactPct(cand.Opportunity.Principal())
	if !ok {
		return domain.GuardResult{
			Guard:  g.Name(),
			Metric: "no reserve data",
			Reason: "pool reserve empty or token not in pool",
		}
	}

	metric := fmt.Sprintf("impact %s%% (limit %s%%)", impact.StringFixed(4), g.maxImpactPct.String())
	if impact.GreaterThan(g.maxImpactPct) {
		return domain.GuardResult{
			Guard:  g.Name(),
			Metric: metric,
			Reason: fmt.Sprintf("trade would move pool %s%%, max %s%%", impact.StringFixed(4), g.maxImpactPct.String()),
		}
	}
	return domain.GuardResult{Guard: g.Name(), Passed: true, Metric: metric}
}

// ConsistencyGuard rejects rounds whose cross-venue spread is too wide
// to trust. A huge spread before execution suggests stale or
// manipulated data rather than edge.
type ConsistencyGuard struct {
	maxSpreadPct decimal.Decimal
}

// NewConsistencyGuard creates the consistency guard with a max spread
// in percent.
func NewConsistencyGuard(maxSpreadPct decimal.Decimal) *ConsistencyGuard {
	return &ConsistencyGuard{maxSpreadPct: maxSpreadPct}
}

func (g *ConsistencyGuard) Name() string { return domain.GuardConsistency }

func (g *ConsistencyGuard) Check(_ context.Context, cand *domain.Candidate) domain.GuardResult {
	if cand.Quotes == nil || !cand.Quotes.HasArbitrageData() {
		return domain.GuardResult{
			Guard:  g.Name(),
			Metric: "no quote data",
			Reason: "fewer than two venue prices to compare",
		}
	}

	spread := cand.Quotes.SpreadPct()
	metric := fmt.Sprintf("spread %s%% (limit %s%%)", spread.StringFixed(4), g.maxSpreadPct.String())
	if spread.GreaterThan(g.maxSpreadPct) {
		return domain.GuardResult{
			Guard:  g.Name(),
			Metric: metric,
			Reason: fmt.Sprintf("cross-venue spread %s%% exceeds max %s%%", spread.StringFixed(4), g.maxSpreadPct.String()),
		}
	}
	return domain.GuardResult{Guard: g.Name(), Passed: true, Metric: metric}
}

// ProfitGuard prices the candidate and passes only profitable ones.
// The breakdown is attached to the candidate for the final decision.
type ProfitGuard struct {
	calc *Calculator
}

// NewProfitGuard creates the profit guard over the calculator.
func NewProfitGuard(calc *Calculator) *ProfitGuard {
	return &ProfitGuard{calc: calc}
}

func (g *ProfitGuard) Name() string { return domain.GuardProfit }

func (g *ProfitGuard) Check(ctx context.Context, cand *domain.Candidate) domain.GuardResult {
	breakdown, err := g.calc.Price(ctx, cand.Opportunity)
	if err != nil {
		return domain.GuardResult{
			Guard:  g.Name(),
			Metric: "pricing failed",
			Reason: err.Error(),
		}
	}
	cand.Breakdown = breakdown

	metric := fmt.Sprintf("net %s (%s bps, $%s)",
		breakdown.NetProfit.StringFixed(8),
		breakdown.NetProfitBps.StringFixed(2),
		breakdown.NetProfitUSD.StringFixed(2),
	)
	if !breakdown.IsProfitable {
		return domain.GuardResult{
			Guard:  g.Name(),
			Metric: metric,
			Reason: breakdown.Reason,
		}
	}
	return domain.GuardResult{Guard: g.Name(), Passed: true, Metric: metric}
}
