package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/avelez-dev/dexarb/business/market/domain"
	"github.com/avelez-dev/dexarb/internal/apperror"
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

// fakeSource scripts one venue's behavior.
type fakeSource struct {
	venue domain.Venue
	out   string // amountOut for any quote; empty means fail
	err   error
	delay time.Duration

	mu    sync.Mutex
	calls int
}

func (f *fakeSource) Venue() domain.Venue { return f.venue }

func (f *fakeSource) Quote(ctx context.Context, amountIn asset.Amount, tokenOut *asset.Asset) (domain.Quote, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return domain.Quote{}, ctx.Err()
		}
	}
	if f.err != nil {
		return domain.Quote{}, f.err
	}
	return domain.NewQuote(f.venue, amountIn, asset.MustParse(tokenOut, f.out)), nil
}

func (f *fakeSource) Reserves(_ context.Context, tokenA, tokenB *asset.Asset) (domain.PoolReserves, error) {
	return domain.PoolReserves{}, apperror.New(apperror.CodePoolNotFound)
}

func newFake(name, out string) *fakeSource {
	return &fakeSource{
		venue: domain.NewVenue(name, common.BytesToAddress([]byte(name)), 30),
		out:   out,
	}
}

func TestAggregatePartialFailure(t *testing.T) {
	weth := testAsset("WETH", 18)
	usdc := testAsset("USDC", 6)

	down := newFake("sushiswap", "")
	down.err = errors.New("connection refused")

	agg, err := NewAggregator([]VenueSource{
		newFake("quickswap", "3000"),
		down,
		newFake("apeswap", "2990"),
	}, AggregatorConfig{QuoteTimeout: time.Second, MaxInFlight: 3}, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	set, err := agg.Aggregate(context.Background(), asset.MustParse(weth, "1"), usdc)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	if got := set.ValidCount(); got != 2 {
		t.Errorf("ValidCount = %d, want 2", got)
	}
	if len(set.Quotes) != 3 {
		t.Errorf("all venues must be recorded, got %d", len(set.Quotes))
	}
	if q := set.Quotes["sushiswap"]; q.Valid || q.Err == nil {
		t.Error("failed venue must be recorded as invalid with its error")
	}
}

func TestAggregateInsufficientQuotes(t *testing.T) {
	weth := testAsset("WETH", 18)
	usdc := testAsset("USDC", 6)

	downA := newFake("sushiswap", "")
	downA.err = errors.New("timeout")
	downB := newFake("apeswap", "")
	downB.err = errors.New("revert")

	agg, err := NewAggregator([]VenueSource{
		newFake("quickswap", "3000"),
		downA,
		downB,
	}, AggregatorConfig{QuoteTimeout: time.Second, MaxInFlight: 3}, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	set, err := agg.Aggregate(context.Background(), asset.MustParse(weth, "1"), usdc)
	if !apperror.IsCode(err, apperror.CodeInsufficientQuotes) {
		t.Fatalf("error = %v, want CodeInsufficientQuotes", err)
	}
	// One venue succeeded: the set is still returned, just unusable
	// for arbitrage.
	if set == nil || set.ValidCount() != 1 {
		t.Errorf("set must still carry the surviving quote")
	}
}

func TestAggregateVenueTimeout(t *testing.T) {
	weth := testAsset("WETH", 18)
	usdc := testAsset("USDC", 6)

	slow := newFake("sushiswap", "3010")
	slow.delay = 200 * time.Millisecond

	agg, err := NewAggregator([]VenueSource{
		newFake("quickswap", "3000"),
		slow,
		newFake("apeswap", "2990"),
	}, AggregatorConfig{QuoteTimeout: 20 * time.Millisecond, MaxInFlight: 3}, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	set, err := agg.Aggregate(context.Background(), asset.MustParse(weth, "1"), usdc)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if q := set.Quotes["sushiswap"]; q.Valid {
		t.Error("venue exceeding the quote timeout must be excluded")
	}
	if got := set.ValidCount(); got != 2 {
		t.Errorf("ValidCount = %d, want 2", got)
	}
}

func TestAggregateZeroOutputIsInvalid(t *testing.T) {
	weth := testAsset("WETH", 18)
	usdc := testAsset("USDC", 6)

	agg, err := NewAggregator([]VenueSource{
		newFake("quickswap", "3000"),
		newFake("sushiswap", "0"),
	}, AggregatorConfig{QuoteTimeout: time.Second, MaxInFlight: 2}, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	set, err := agg.Aggregate(context.Background(), asset.MustParse(weth, "1"), usdc)
	if !apperror.IsCode(err, apperror.CodeInsufficientQuotes) {
		t.Fatalf("error = %v, want CodeInsufficientQuotes", err)
	}
	if q := set.Quotes["sushiswap"]; q.Valid {
		t.Error("zero-output quote must be invalid")
	}
}

func TestSingleQuote(t *testing.T) {
	weth := testAsset("WETH", 18)
	usdc := testAsset("USDC", 6)

	agg, err := NewAggregator([]VenueSource{
		newFake("quickswap", "3000"),
	}, AggregatorConfig{QuoteTimeout: time.Second, MaxInFlight: 1}, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	q, err := agg.SingleQuote(context.Background(), "quickswap", asset.MustParse(weth, "1"), usdc)
	if err != nil {
		t.Fatalf("SingleQuote: %v", err)
	}
	if q.Venue.Name != "quickswap" || !q.Valid {
		t.Errorf("unexpected quote: %+v", q)
	}

	_, err = agg.SingleQuote(context.Background(), "nosuch", asset.MustParse(weth, "1"), usdc)
	if !apperror.IsCode(err, apperror.CodeUnknownVenue) {
		t.Errorf("error = %v, want CodeUnknownVenue", err)
	}
}
