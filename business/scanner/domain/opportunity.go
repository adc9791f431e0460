// Package domain contains the core domain types for the scanner context.
package domain

import (
	"time"

	"github.com/shopspring/decimal"

	marketDomain "github.com/avelez-dev/dexarb/business/market/domain"
	"github.com/avelez-dev/dexarb/internal/asset"
)

// Kind discriminates opportunity shapes.
type Kind string

const (
	KindDirect     Kind = "direct"
	KindTriangular Kind = "triangular"
)

// Leg is one executed swap inside an opportunity.
type Leg struct {
	Venue     marketDomain.Venue
	TokenIn   *asset.Asset
	TokenOut  *asset.Asset
	AmountIn  asset.Amount
	AmountOut asset.Amount
	Price     decimal.Decimal
}

// NewLeg builds a leg from a venue quote.
func NewLeg(q marketDomain.Quote) Leg {
	return Leg{
		Venue:     q.Venue,
		TokenIn:   q.TokenIn,
		TokenOut:  q.TokenOut,
		AmountIn:  q.AmountIn,
		AmountOut: q.AmountOut,
		Price:     q.Price,
	}
}

// Opportunity is the common surface over direct and triangular finds.
type Opportunity interface {
	// Kind reports the opportunity shape.
	Kind() Kind
	// OpportunityID is the unique identifier assigned at detection.
	OpportunityID() string
	// Principal is the input amount the cycle starts with.
	Principal() asset.Amount
	// Profit is the gross profit in the principal token.
	Profit() asset.Amount
	// ProfitBps is the gross profit in basis points of the principal.
	ProfitBps() int64
	// Route lists the legs in execution order.
	Route() []Leg
	// PairLabel names the tokens involved (e.g. "WETH-USDC").
	PairLabel() string
	// IsExpiredAt reports whether the opportunity's TTL has elapsed.
	IsExpiredAt(t time.Time) bool
}

// DirectOpportunity is a two-leg cycle: buy on one venue, sell the
// proceeds back on another.
type DirectOpportunity struct {
	ID             string
	TokenA         *asset.Asset
	TokenB         *asset.Asset
	AmountIn       asset.Amount
	Buy            Leg
	Sell           Leg
	GrossProfit    asset.Amount
	GrossProfitBps int64
	DetectedAt     time.Time
	ExpiresAt      time.Time
}

func (o *DirectOpportunity) Kind() Kind              { return KindDirect }
func (o *DirectOpportunity) OpportunityID() string   { return o.ID }
func (o *DirectOpportunity) Principal() asset.Amount { return o.AmountIn }
func (o *DirectOpportunity) Profit() asset.Amount    { return o.GrossProfit }
func (o *DirectOpportunity) ProfitBps() int64        { return o.GrossProfitBps }
func (o *DirectOpportunity) Route() []Leg            { return []Leg{o.Buy, o.Sell} }

// PairLabel names the traded pair (e.g. "WETH-USDC").
func (o *DirectOpportunity) PairLabel() string {
	return o.TokenA.Symbol() + "-" + o.TokenB.Symbol()
}

// IsExpiredAt reports whether the opportunity expired at time t.
func (o *DirectOpportunity) IsExpiredAt(t time.Time) bool {
	return !t.Before(o.ExpiresAt)
}

// IsExpired reports whether the opportunity has expired now.
func (o *DirectOpportunity) IsExpired() bool {
	return o.IsExpiredAt(time.Now())
}

// TriangularOpportunity is a three-leg cycle A -> B -> C -> A across up
// to three venues.
type TriangularOpportunity struct {
	ID             string
	TokenA         *asset.Asset
	TokenB         *asset.Asset
	TokenC         *asset.Asset
	AmountIn       asset.Amount
	Legs           [3]Leg
	FinalAmount    asset.Amount
	GrossProfit    asset.Amount
	GrossProfitBps int64
	DetectedAt     time.Time
	ExpiresAt      time.Time
}

func (o *TriangularOpportunity) Kind() Kind              { return KindTriangular }
func (o *TriangularOpportunity) OpportunityID() string   { return o.ID }
func (o *TriangularOpportunity) Principal() asset.Amount { return o.AmountIn }
func (o *TriangularOpportunity) Profit() asset.Amount    { return o.GrossProfit }
func (o *TriangularOpportunity) ProfitBps() int64        { return o.GrossProfitBps }
func (o *TriangularOpportunity) Route() []Leg            { return o.Legs[:] }

// PairLabel names the cycle (e.g. "WETH-USDC-WMATIC").
func (o *TriangularOpportunity) PairLabel() string {
	return o.TokenA.Symbol() + "-" + o.TokenB.Symbol() + "-" + o.TokenC.Symbol()
}

// IsExpiredAt reports whether the opportunity expired at time t.
func (o *TriangularOpportunity) IsExpiredAt(t time.Time) bool {
	return !t.Before(o.ExpiresAt)
}

// IsExpired reports whether the opportunity has expired now.
func (o *TriangularOpportunity) IsExpired() bool {
	return o.IsExpiredAt(time.Now())
}
