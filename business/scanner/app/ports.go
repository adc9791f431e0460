// Package app contains application services and port definitions for the scanner context.
package app

import (
	"context"

	marketDomain "github.com/avelez-dev/dexarb/business/market/domain"
	"github.com/avelez-dev/dexarb/internal/asset"
)

// QuoteProvider supplies venue quotes for the search. The market
// aggregator implements it.
type QuoteProvider interface {
	// Venues lists the venues available to the search.
	Venues() []marketDomain.Venue

	// Aggregate fans a fixed-input swap out to every venue.
	Aggregate(ctx context.Context, amountIn asset.Amount, tokenOut *asset.Asset) (*marketDomain.QuoteSet, error)

	// SingleQuote requests the swap from one venue by name.
	SingleQuote(ctx context.Context, venueName string, amountIn asset.Amount, tokenOut *asset.Asset) (marketDomain.Quote, error)
}
