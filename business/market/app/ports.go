// Package app contains application services and port definitions for the market context.
package app

import (
	"context"

	"github.com/avelez-dev/dexarb/business/market/domain"
	"github.com/avelez-dev/dexarb/internal/asset"
)

// VenueSource quotes swaps against one DEX. Implementations live in
// infra and talk to the chain.
type VenueSource interface {
	// Venue identifies the source.
	Venue() domain.Venue

	// Quote returns the output amount for a fixed-input swap.
	Quote(ctx context.Context, amountIn asset.Amount, tokenOut *asset.Asset) (domain.Quote, error)

	// Reserves returns the pool reserves backing the pair, used for
	// liquidity depth checks. Returns apperror.CodePoolNotFound when
	// the venue has no pool for the pair.
	Reserves(ctx context.Context, tokenA, tokenB *asset.Asset) (domain.PoolReserves, error)
}
