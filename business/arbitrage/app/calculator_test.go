package app

import (
	"context"
	"errors"
	"io"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/avelez-dev/dexarb/business/arbitrage/domain"
	marketDomain "github.com/avelez-dev/dexarb/business/market/domain"
	scannerDomain "github.com/avelez-dev/dexarb/business/scanner/domain"
	"github.com/avelez-dev/dexarb/internal/asset"
	"github.com/avelez-dev/dexarb/internal/logger"
)

func testAsset(symbol string, decimals uint8) *asset.Asset {
	addr := common.BytesToAddress([]byte(symbol))
	return asset.NewAsset(asset.NewID(137, addr), symbol, symbol, decimals)
}

func testLogger() *logger.Logger {
	return logger.New(io.Discard, logger.LevelError, "test")
}

// stubOracle answers from a fixed price map; a nil map fails every call.
type stubOracle struct {
	prices map[string]string
}

func (s *stubOracle) HasFeed(symbol string) bool {
	_, ok := s.prices[symbol]
	return ok
}

func (s *stubOracle) PriceUSD(_ context.Context, symbol string) (decimal.Decimal, error) {
	p, ok := s.prices[symbol]
	if !ok {
		return decimal.Zero, errors.New("no feed: " + symbol)
	}
	return decimal.RequireFromString(p), nil
}

type stubGas struct {
	wei *big.Int
	err error
}

func (s *stubGas) GasPriceWei(context.Context) (*big.Int, error) {
	if s.err != nil {
		return nil, s.err
	}
	return new(big.Int).Set(s.wei), nil
}

func gwei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e9))
}

func directOpp(token *asset.Asset, amountIn, profit string, feeBps int64) *scannerDomain.DirectOpportunity {
	venue := func(name string) marketDomain.Venue {
		return marketDomain.NewVenue(name, common.BytesToAddress([]byte(name)), feeBps)
	}
	now := time.Now()
	return &scannerDomain.DirectOpportunity{
		ID:          "opp-direct",
		TokenA:      token,
		AmountIn:    asset.MustParse(token, amountIn),
		Buy:         scannerDomain.Leg{Venue: venue("quickswap")},
		Sell:        scannerDomain.Leg{Venue: venue("sushiswap")},
		GrossProfit: asset.MustParse(token, profit),
		DetectedAt:  now,
		ExpiresAt:   now.Add(3 * time.Second),
	}
}

func triOpp(token *asset.Asset, amountIn, profit string, feeBps int64) *scannerDomain.TriangularOpportunity {
	venue := marketDomain.NewVenue("quickswap", common.BytesToAddress([]byte("quickswap")), feeBps)
	now := time.Now()
	return &scannerDomain.TriangularOpportunity{
		ID:       "opp-tri",
		TokenA:   token,
		AmountIn: asset.MustParse(token, amountIn),
		Legs: [3]scannerDomain.Leg{
			{Venue: venue}, {Venue: venue}, {Venue: venue},
		},
		GrossProfit: asset.MustParse(token, profit),
		DetectedAt:  now,
		ExpiresAt:   now.Add(3 * time.Second),
	}
}

func baseConfig() CalculatorConfig {
	return CalculatorConfig{
		MinProfitUSD:          decimal.NewFromInt(10),
		MinProfitBps:          decimal.NewFromInt(30),
		SlippageBps:           50,
		SlippageBpsTriangular: 80,
		FlashLoanFeeBps:       9,
		GasLimitSwap:          150_000,
		GasLimitFlashLoan:     300_000,
		GasLimitTriangular:    450_000,
		GasTokenSymbol:        "WMATIC",
	}
}

func TestPriceProfitableDirect(t *testing.T) {
	weth := testAsset("WETH", 18)
	oracle := &stubOracle{prices: map[string]string{"WETH": "3000", "WMATIC": "1"}}
	gas := &stubGas{wei: gwei(50)}

	calc := NewCalculator(oracle, gas, baseConfig(), testLogger())

	// 1 WETH principal, 100 bps gross on a $3000 token.
	b, err := calc.Price(context.Background(), directOpp(weth, "1", "0.01", 30))
	if err != nil {
		t.Fatalf("Price: %v", err)
	}

	if !b.IsProfitable {
		t.Errorf("not profitable: %s (net %s USD, %s bps)", b.Reason, b.NetProfitUSD, b.NetProfitBps)
	}
	if b.Reason != domain.ReasonProfitable {
		t.Errorf("Reason = %q", b.Reason)
	}
	// 150k units at 50 gwei is 0.0075 gas token = $0.0075.
	if !b.Gas.CostUSD.Equal(decimal.RequireFromString("0.0075")) {
		t.Errorf("gas CostUSD = %s, want 0.0075", b.Gas.CostUSD)
	}
	// Venue fees are reported but never charged.
	if !b.VenueFees.Equal(decimal.RequireFromString("0.006")) {
		t.Errorf("VenueFees = %s, want 0.006", b.VenueFees)
	}
	if !b.TotalCost.Equal(b.FlashLoanFee.Add(b.GasCost).Add(b.Slippage)) {
		t.Errorf("TotalCost %s must be flash + gas + slippage", b.TotalCost)
	}
	if !b.NetProfit.Equal(b.GrossProfit.Sub(b.TotalCost)) {
		t.Errorf("NetProfit = %s, want gross - cost", b.NetProfit)
	}
	if !b.TradeAmountUSD.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("TradeAmountUSD = %s, want 3000", b.TradeAmountUSD)
	}
}

func TestPriceUSDFloorCheckedFirst(t *testing.T) {
	weth := testAsset("WETH", 18)
	oracle := &stubOracle{prices: map[string]string{"WETH": "3000", "WMATIC": "1"}}
	gas := &stubGas{wei: gwei(50)}

	cfg := baseConfig()
	cfg.MinProfitUSD = decimal.NewFromInt(1_000_000)
	cfg.MinProfitBps = decimal.NewFromInt(1_000_000)

	calc := NewCalculator(oracle, gas, cfg, testLogger())

	b, err := calc.Price(context.Background(), directOpp(weth, "1", "0.01", 30))
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if b.IsProfitable {
		t.Error("must not be profitable")
	}
	// Both floors fail; the USD floor is reported.
	if b.Reason != domain.ReasonBelowUSDFloor {
		t.Errorf("Reason = %q, want %q", b.Reason, domain.ReasonBelowUSDFloor)
	}
}

func TestPriceBpsFloor(t *testing.T) {
	weth := testAsset("WETH", 18)
	oracle := &stubOracle{prices: map[string]string{"WETH": "3000", "WMATIC": "1"}}
	gas := &stubGas{wei: gwei(1)}

	cfg := baseConfig()
	cfg.SlippageBps = 0

	calc := NewCalculator(oracle, gas, cfg, testLogger())

	// 100 WETH principal, 0.05 WETH profit: $150 net clears the USD
	// floor but 5 bps misses the 30 bps floor.
	b, err := calc.Price(context.Background(), directOpp(weth, "100", "0.05", 30))
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if b.IsProfitable {
		t.Error("must not be profitable")
	}
	if b.Reason != domain.ReasonBelowBpsFloor {
		t.Errorf("Reason = %q, want %q", b.Reason, domain.ReasonBelowBpsFloor)
	}
	if !b.NetProfitUSD.GreaterThanOrEqual(cfg.MinProfitUSD) {
		t.Errorf("NetProfitUSD = %s, expected above the USD floor", b.NetProfitUSD)
	}
}

func TestPriceFlashLoanPremium(t *testing.T) {
	weth := testAsset("WETH", 18)
	oracle := &stubOracle{prices: map[string]string{"WETH": "3000", "WMATIC": "1"}}
	gas := &stubGas{wei: gwei(50)}

	off := baseConfig()
	on := baseConfig()
	on.UseFlashLoan = true

	opp := directOpp(weth, "1", "0.01", 30)

	bOff, err := NewCalculator(oracle, gas, off, testLogger()).Price(context.Background(), opp)
	if err != nil {
		t.Fatal(err)
	}
	bOn, err := NewCalculator(oracle, gas, on, testLogger()).Price(context.Background(), opp)
	if err != nil {
		t.Fatal(err)
	}

	if !bOff.FlashLoanFee.IsZero() {
		t.Errorf("FlashLoanFee = %s with flash loans off, want 0", bOff.FlashLoanFee)
	}
	// 9 bps of 1 WETH.
	if !bOn.FlashLoanFee.Equal(decimal.RequireFromString("0.0009")) {
		t.Errorf("FlashLoanFee = %s, want 0.0009", bOn.FlashLoanFee)
	}
	if bOff.Gas.GasUnits != off.GasLimitSwap {
		t.Errorf("GasUnits = %d, want swap budget %d", bOff.Gas.GasUnits, off.GasLimitSwap)
	}
	if bOn.Gas.GasUnits != on.GasLimitFlashLoan {
		t.Errorf("GasUnits = %d, want flash loan budget %d", bOn.Gas.GasUnits, on.GasLimitFlashLoan)
	}
	if !bOn.NetProfit.LessThan(bOff.NetProfit) {
		t.Error("flash loan premium must reduce net profit")
	}
}

func TestPriceTriangularShape(t *testing.T) {
	weth := testAsset("WETH", 18)
	oracle := &stubOracle{prices: map[string]string{"WETH": "3000", "WMATIC": "1"}}
	gas := &stubGas{wei: gwei(50)}

	cfg := baseConfig()
	calc := NewCalculator(oracle, gas, cfg, testLogger())

	b, err := calc.Price(context.Background(), triOpp(weth, "1", "0.02", 30))
	if err != nil {
		t.Fatalf("Price: %v", err)
	}

	if b.Gas.GasUnits != cfg.GasLimitTriangular {
		t.Errorf("GasUnits = %d, want triangular budget %d", b.Gas.GasUnits, cfg.GasLimitTriangular)
	}
	// 80 bps of 1 WETH.
	if !b.Slippage.Equal(decimal.RequireFromString("0.008")) {
		t.Errorf("Slippage = %s, want 0.008", b.Slippage)
	}
	// Three venue legs at 30 bps each, informational only.
	if !b.VenueFees.Equal(decimal.RequireFromString("0.009")) {
		t.Errorf("VenueFees = %s, want 0.009", b.VenueFees)
	}
}

func TestPriceOracleFailureFallsBack(t *testing.T) {
	weth := testAsset("WETH", 18)
	oracle := &stubOracle{} // every lookup fails
	gas := &stubGas{wei: gwei(50)}

	cfg := baseConfig()
	cfg.DefaultPricesUSD = map[string]decimal.Decimal{
		"WETH": decimal.NewFromInt(2500),
	}

	calc := NewCalculator(oracle, gas, cfg, testLogger())

	b, err := calc.Price(context.Background(), directOpp(weth, "1", "0.01", 30))
	if err != nil {
		t.Fatalf("oracle failure must not fail pricing: %v", err)
	}
	if !b.PrincipalPrice.Equal(decimal.NewFromInt(2500)) {
		t.Errorf("PrincipalPrice = %s, want the 2500 fallback", b.PrincipalPrice)
	}
	// WMATIC has no configured default; the conservative 1 applies.
	if !b.Gas.GasTokenPrice.Equal(decimal.NewFromInt(1)) {
		t.Errorf("GasTokenPrice = %s, want 1", b.Gas.GasTokenPrice)
	}
}

func TestPriceGasErrorPropagates(t *testing.T) {
	weth := testAsset("WETH", 18)
	oracle := &stubOracle{prices: map[string]string{"WETH": "3000", "WMATIC": "1"}}
	gas := &stubGas{err: errors.New("rpc down")}

	calc := NewCalculator(oracle, gas, baseConfig(), testLogger())

	if _, err := calc.Price(context.Background(), directOpp(weth, "1", "0.01", 30)); err == nil {
		t.Fatal("expected error when the gas price is unavailable")
	}
}

func TestPriceHigherGasLowersNet(t *testing.T) {
	weth := testAsset("WETH", 18)
	oracle := &stubOracle{prices: map[string]string{"WETH": "3000", "WMATIC": "1"}}

	cfg := baseConfig()
	opp := directOpp(weth, "1", "0.01", 30)

	cheap, err := NewCalculator(oracle, &stubGas{wei: gwei(30)}, cfg, testLogger()).Price(context.Background(), opp)
	if err != nil {
		t.Fatal(err)
	}
	dear, err := NewCalculator(oracle, &stubGas{wei: gwei(300)}, cfg, testLogger()).Price(context.Background(), opp)
	if err != nil {
		t.Fatal(err)
	}

	if !dear.NetProfit.LessThan(cheap.NetProfit) {
		t.Errorf("net at 300 gwei (%s) must be below net at 30 gwei (%s)", dear.NetProfit, cheap.NetProfit)
	}
}
