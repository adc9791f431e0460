// Package app contains application services and port definitions for the arbitrage context.
package app

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/avelez-dev/dexarb/business/arbitrage/domain"
	marketDomain "github.com/avelez-dev/dexarb/business/market/domain"
	scannerDomain "github.com/avelez-dev/dexarb/business/scanner/domain"
	"github.com/avelez-dev/dexarb/internal/asset"
)

// OracleSource supplies USD reference prices. The Chainlink client
// implements it.
type OracleSource interface {
	// HasFeed reports whether a USD feed exists for the symbol.
	HasFeed(symbol string) bool

	// PriceUSD returns the latest USD price for the symbol.
	PriceUSD(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// GasSource supplies the current gas price, already clamped to the
// configured ceiling.
type GasSource interface {
	GasPriceWei(ctx context.Context) (*big.Int, error)
}

// ReserveSource fetches pool reserves for a venue pair. The market
// aggregator implements it.
type ReserveSource interface {
	Reserves(ctx context.Context, venueName string, tokenA, tokenB *asset.Asset) (marketDomain.PoolReserves, error)
}

// Reporter receives scan outcomes for display or logging.
type Reporter interface {
	// ReportScan is called once per completed scan round.
	ReportScan(result *scannerDomain.ScanResult)

	// ReportDecision is called for every candidate the guard chain judged.
	ReportDecision(opp scannerDomain.Opportunity, decision domain.Decision)
}
