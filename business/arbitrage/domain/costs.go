// Package domain contains the core domain types for the arbitrage context.
package domain

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// GasCost represents the gas cost of executing one opportunity.
type GasCost struct {
	GasUnits      uint64
	GasPriceWei   *big.Int
	TotalWei      *big.Int        // gasUnits * gasPriceWei
	CostNative    decimal.Decimal // in the chain's gas token
	CostUSD       decimal.Decimal
	GasTokenPrice decimal.Decimal // USD price used for the conversion
}

// NewGasCost converts gas parameters to native and USD cost. The gas
// token is assumed to have 18 decimals.
func NewGasCost(gasUnits uint64, gasPriceWei *big.Int, gasTokenPriceUSD decimal.Decimal) *GasCost {
	totalWei := new(big.Int).Mul(gasPriceWei, new(big.Int).SetUint64(gasUnits))
	native := decimal.NewFromBigInt(totalWei, -18)

	return &GasCost{
		GasUnits:      gasUnits,
		GasPriceWei:   new(big.Int).Set(gasPriceWei),
		TotalWei:      totalWei,
		CostNative:    native,
		CostUSD:       native.Mul(gasTokenPriceUSD),
		GasTokenPrice: gasTokenPriceUSD,
	}
}

// Rejection reasons recorded on a CostBreakdown. The USD floor is
// checked before the bps floor.
const (
	ReasonProfitable    = "profitable"
	ReasonBelowUSDFloor = "net profit below USD floor"
	ReasonBelowBpsFloor = "net profit below bps floor"
)

// CostBreakdown itemizes every cost charged against an opportunity's
// gross profit. All money fields are decimal in the principal token
// unless suffixed USD.
type CostBreakdown struct {
	TradeAmount    decimal.Decimal
	TradeAmountUSD decimal.Decimal
	PrincipalPrice decimal.Decimal // USD price of the principal token

	GrossReturn    decimal.Decimal
	GrossProfit    decimal.Decimal
	GrossProfitBps decimal.Decimal

	VenueFees    decimal.Decimal // sum across legs
	FlashLoanFee decimal.Decimal // zero when self-funded
	Gas          *GasCost
	GasCost      decimal.Decimal // gas converted to the principal token
	Slippage     decimal.Decimal // haircut applied to gross profit

	TotalCost    decimal.Decimal
	TotalCostUSD decimal.Decimal

	NetProfit    decimal.Decimal
	NetProfitUSD decimal.Decimal
	NetProfitBps decimal.Decimal

	IsProfitable bool
	Reason       string
	CalculatedAt time.Time
}
