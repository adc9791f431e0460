package domain

import (
	"time"

	marketDomain "github.com/avelez-dev/dexarb/business/market/domain"
	scannerDomain "github.com/avelez-dev/dexarb/business/scanner/domain"
)

// Guard names, in evaluation order.
const (
	GuardWhitelist   = "whitelist"
	GuardOracle      = "oracle_deviation"
	GuardLiquidity   = "liquidity_depth"
	GuardConsistency = "venue_consistency"
	GuardProfit      = "profit_after_cost"
)

// Candidate bundles everything the guard chain needs to judge one
// opportunity: the find itself, the quote round that produced it, and
// the reserves behind the entry pool.
type Candidate struct {
	Opportunity scannerDomain.Opportunity
	Quotes      *marketDomain.QuoteSet
	Reserves    *marketDomain.PoolReserves // nil when unavailable
	Breakdown   *CostBreakdown             // filled by the profit guard
}

// GuardResult is one guard's verdict.
type GuardResult struct {
	Guard  string
	Passed bool
	Metric string // the measured value the verdict is based on
	Reason string // empty on pass
}

// Decision is the chain's final verdict for a candidate. Results holds
// one entry per guard that actually ran; a short-circuited chain stops
// at the first failure.
type Decision struct {
	Allowed     bool
	Stage       string // failing guard, empty when allowed
	Reason      string
	Results     []GuardResult
	Breakdown   *CostBreakdown
	EvaluatedAt time.Time
}

// Reject builds a rejection at the given stage.
func Reject(stage, reason string, results []GuardResult, breakdown *CostBreakdown) Decision {
	return Decision{
		Stage:       stage,
		Reason:      reason,
		Results:     results,
		Breakdown:   breakdown,
		EvaluatedAt: time.Now(),
	}
}

// Allow builds an approval.
func Allow(results []GuardResult, breakdown *CostBreakdown) Decision {
	return Decision{
		Allowed:     true,
		Results:     results,
		Breakdown:   breakdown,
		EvaluatedAt: time.Now(),
	}
}
