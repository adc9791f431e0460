package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/avelez-dev/dexarb/internal/asset"
)

// PoolReserves is a snapshot of a V2-style pair's reserves, already
// oriented to a token order chosen by the caller.
type PoolReserves struct {
	Venue     string
	Pool      common.Address
	Token0    *asset.Asset
	Token1    *asset.Asset
	Reserve0  asset.Amount
	Reserve1  asset.Amount
	UpdatedAt time.Time
}

// ReserveFor returns the reserve of the given token. The second return
// is false when the token is not in the pool.
func (r PoolReserves) ReserveFor(a *asset.Asset) (asset.Amount, bool) {
	switch {
	case a == nil:
		return asset.Amount{}, false
	case r.Token0 != nil && r.Token0.ID().Equals(a.ID()):
		return r.Reserve0, true
	case r.Token1 != nil && r.Token1.ID().Equals(a.ID()):
		return r.Reserve1, true
	default:
		return asset.Amount{}, false
	}
}

// ImpactPct returns the price impact of trading amountIn against the
// pool, as a percentage of the matching reserve: amount/reserve*100.
// The second return is false when the token is not in the pool or the
// reserve is empty.
func (r PoolReserves) ImpactPct(amountIn asset.Amount) (decimal.Decimal, bool) {
	reserve, ok := r.ReserveFor(amountIn.Asset())
	if !ok || reserve.IsZero() {
		return decimal.Zero, false
	}
	return amountIn.ToDecimal().Div(reserve.ToDecimal()).Mul(decimal.NewFromInt(100)), true
}
