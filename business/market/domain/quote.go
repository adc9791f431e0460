package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/avelez-dev/dexarb/internal/asset"
)

// Quote represents one venue's answer for a fixed-input swap. An
// invalid quote records the venue failure without aborting the round.
type Quote struct {
	Venue     Venue
	TokenIn   *asset.Asset
	TokenOut  *asset.Asset
	AmountIn  asset.Amount
	AmountOut asset.Amount
	Price     decimal.Decimal // effective price, AmountOut/AmountIn
	FeeBps    int64
	Timestamp time.Time
	Valid     bool
	Err       error
}

// NewQuote creates a valid quote and derives the effective price.
func NewQuote(venue Venue, amountIn, amountOut asset.Amount) Quote {
	price := decimal.Zero
	if !amountIn.IsZero() {
		price = amountOut.ToDecimal().Div(amountIn.ToDecimal())
	}
	return Quote{
		Venue:     venue,
		TokenIn:   amountIn.Asset(),
		TokenOut:  amountOut.Asset(),
		AmountIn:  amountIn,
		AmountOut: amountOut,
		Price:     price,
		FeeBps:    venue.FeeBps,
		Timestamp: time.Now(),
		Valid:     true,
	}
}

// NewInvalidQuote records a venue failure for the given swap.
func NewInvalidQuote(venue Venue, tokenIn, tokenOut *asset.Asset, err error) Quote {
	return Quote{
		Venue:     venue,
		TokenIn:   tokenIn,
		TokenOut:  tokenOut,
		Timestamp: time.Now(),
		Valid:     false,
		Err:       err,
	}
}

// PairString returns the quoted pair symbol (e.g., "WETH-USDC").
func (q Quote) PairString() string {
	return q.TokenIn.Symbol() + "-" + q.TokenOut.Symbol()
}
