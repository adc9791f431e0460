package domain

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/avelez-dev/dexarb/internal/asset"
)

func testAsset(symbol string, decimals uint8) *asset.Asset {
	addr := common.BytesToAddress([]byte(symbol))
	return asset.NewAsset(asset.NewID(137, addr), symbol, symbol, decimals)
}

func testVenue(name string) Venue {
	return NewVenue(name, common.BytesToAddress([]byte(name)), 30)
}

// buildSet aggregates quotes for 1 WETH -> USDC at the given per-venue
// output amounts.
func buildSet(t *testing.T, outs map[string]string) (*QuoteSet, *asset.Asset, *asset.Asset) {
	t.Helper()
	weth := testAsset("WETH", 18)
	usdc := testAsset("USDC", 6)
	amountIn := asset.MustParse(weth, "1")

	set := NewQuoteSet(amountIn, usdc)
	for venue, out := range outs {
		set.Add(NewQuote(testVenue(venue), amountIn, asset.MustParse(usdc, out)))
	}
	return set, weth, usdc
}

func TestQuotePriceIsOutOverIn(t *testing.T) {
	weth := testAsset("WETH", 18)
	usdc := testAsset("USDC", 6)

	tests := []struct {
		amountIn  string
		amountOut string
		wantPrice string
	}{
		{"1", "3000", "3000"},
		{"2", "6100", "3050"},
		{"0.5", "1490.25", "2980.5"},
	}

	for _, tt := range tests {
		q := NewQuote(testVenue("quickswap"), asset.MustParse(weth, tt.amountIn), asset.MustParse(usdc, tt.amountOut))
		want := decimal.RequireFromString(tt.wantPrice)
		if !q.Price.Equal(want) {
			t.Errorf("price for %s -> %s = %s, want %s", tt.amountIn, tt.amountOut, q.Price, tt.wantPrice)
		}
	}
}

func TestQuoteSetBestWorst(t *testing.T) {
	set, _, _ := buildSet(t, map[string]string{
		"quickswap": "3000",
		"sushiswap": "3030",
		"apeswap":   "2990",
	})

	best, ok := set.Best()
	if !ok || best.Venue.Name != "sushiswap" {
		t.Errorf("Best = %v (%v), want sushiswap", best.Venue.Name, ok)
	}

	worst, ok := set.Worst()
	if !ok || worst.Venue.Name != "apeswap" {
		t.Errorf("Worst = %v (%v), want apeswap", worst.Venue.Name, ok)
	}
}

func TestQuoteSetInvalidQuotesExcluded(t *testing.T) {
	set, weth, usdc := buildSet(t, map[string]string{"quickswap": "3000"})
	set.Add(NewInvalidQuote(testVenue("sushiswap"), weth, usdc, assertedErr))

	if got := set.ValidCount(); got != 1 {
		t.Errorf("ValidCount = %d, want 1", got)
	}
	if set.HasArbitrageData() {
		t.Error("one valid quote must not count as arbitrage data")
	}
	if best, ok := set.Best(); !ok || best.Venue.Name != "quickswap" {
		t.Errorf("Best = %v (%v), want quickswap", best.Venue.Name, ok)
	}
}

var assertedErr = errForTest("venue down")

type errForTest string

func (e errForTest) Error() string { return string(e) }

func TestSpreadBpsNonNegativeAndSymmetric(t *testing.T) {
	set, _, _ := buildSet(t, map[string]string{
		"quickswap": "3000",
		"sushiswap": "3030",
	})

	spread := set.SpreadBps()
	if spread.IsNegative() {
		t.Fatalf("SpreadBps = %s, must be non-negative", spread)
	}

	// (3030-3000)/3015*10000 ≈ 99.50
	want := decimal.RequireFromString("99.5")
	if spread.Sub(want).Abs().GreaterThan(decimal.RequireFromString("0.01")) {
		t.Errorf("SpreadBps = %s, want ≈ %s", spread, want)
	}

	// Same magnitude regardless of which venue is ahead.
	flipped, _, _ := buildSet(t, map[string]string{
		"quickswap": "3030",
		"sushiswap": "3000",
	})
	if !flipped.SpreadBps().Equal(spread) {
		t.Errorf("SpreadBps not symmetric: %s vs %s", spread, flipped.SpreadBps())
	}
}

func TestSpreadBpsInsufficientQuotes(t *testing.T) {
	set, _, _ := buildSet(t, map[string]string{"quickswap": "3000"})
	if !set.SpreadBps().IsZero() {
		t.Errorf("SpreadBps with one venue = %s, want 0", set.SpreadBps())
	}
}

func TestSpreadPct(t *testing.T) {
	set, _, _ := buildSet(t, map[string]string{
		"quickswap": "3000",
		"sushiswap": "3030",
		"apeswap":   "2970",
	})

	// (3030-2970)/3000*100 = 2
	want := decimal.NewFromInt(2)
	if !set.SpreadPct().Equal(want) {
		t.Errorf("SpreadPct = %s, want %s", set.SpreadPct(), want)
	}
}

func TestMedianPrice(t *testing.T) {
	odd, _, _ := buildSet(t, map[string]string{
		"quickswap": "3000",
		"sushiswap": "3030",
		"apeswap":   "2970",
	})
	if !odd.MedianPrice().Equal(decimal.NewFromInt(3000)) {
		t.Errorf("odd median = %s, want 3000", odd.MedianPrice())
	}

	even, _, _ := buildSet(t, map[string]string{
		"quickswap": "3000",
		"sushiswap": "3030",
	})
	if !even.MedianPrice().Equal(decimal.NewFromInt(3015)) {
		t.Errorf("even median = %s, want 3015", even.MedianPrice())
	}
}
