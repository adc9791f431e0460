package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avelez-dev/dexarb/business/arbitrage/domain"
	marketDomain "github.com/avelez-dev/dexarb/business/market/domain"
	"github.com/avelez-dev/dexarb/internal/asset"
)

// stubQuotes serves a canned quote round.
type stubQuotes struct {
	set *marketDomain.QuoteSet
	err error
}

func (s *stubQuotes) Venues() []marketDomain.Venue {
	return []marketDomain.Venue{testVenue("quickswap"), testVenue("sushiswap")}
}

func (s *stubQuotes) Aggregate(context.Context, asset.Amount, *asset.Asset) (*marketDomain.QuoteSet, error) {
	return s.set, s.err
}

func (s *stubQuotes) SingleQuote(context.Context, string, asset.Amount, *asset.Asset) (marketDomain.Quote, error) {
	return marketDomain.Quote{}, errors.New("not scripted")
}

// stubReserves answers per venue name.
type stubReserves struct {
	pools map[string]*marketDomain.PoolReserves
}

func (s *stubReserves) Reserves(_ context.Context, venueName string, _, _ *asset.Asset) (marketDomain.PoolReserves, error) {
	p, ok := s.pools[venueName]
	if !ok {
		return marketDomain.PoolReserves{}, errors.New("no pool on " + venueName)
	}
	return *p, nil
}

// captureGuard records the candidate it judged.
type captureGuard struct {
	seen *domain.Candidate
}

func (g *captureGuard) Name() string { return "capture" }

func (g *captureGuard) Check(_ context.Context, cand *domain.Candidate) domain.GuardResult {
	g.seen = cand
	return domain.GuardResult{Guard: g.Name(), Passed: true}
}

func newEvalDetector(t *testing.T, quotes *stubQuotes, reserves *stubReserves, guard Guard) *Detector {
	t.Helper()
	chain, err := NewChain([]Guard{guard}, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	return NewDetector(nil, quotes, reserves, chain, nil, DetectorConfig{}, testLogger())
}

func TestEvaluateRejectsExpiredBeforeGuards(t *testing.T) {
	usdc := stableAsset("USDC", 6)
	usdt := stableAsset("USDT", 6)

	opp := fullDirectOpp(usdc, usdt, "100", "100", "101")
	opp.ExpiresAt = time.Now().Add(-time.Second)

	guard := &countingGuard{name: "never", pass: true}
	d := newEvalDetector(t, &stubQuotes{err: errors.New("unused")}, &stubReserves{}, guard)

	decision := d.Evaluate(context.Background(), opp)

	if decision.Allowed {
		t.Fatal("expired opportunity must be rejected")
	}
	if decision.Stage != "expired" {
		t.Errorf("Stage = %s, want expired", decision.Stage)
	}
	if guard.calls != 0 {
		t.Errorf("guards ran %d times for an expired opportunity", guard.calls)
	}
}

func TestEvaluateEnrichesCandidate(t *testing.T) {
	usdc := stableAsset("USDC", 6)
	usdt := stableAsset("USDT", 6)

	opp := fullDirectOpp(usdc, usdt, "100", "100", "101")
	set := quoteRound(usdc, usdt, "100", map[string]string{"quickswap": "1.000", "sushiswap": "1.010"})

	// The sell venue's pool is shallower on the principal side.
	reserves := &stubReserves{pools: map[string]*marketDomain.PoolReserves{
		"quickswap": poolReserves("quickswap", usdc, usdt, "1000000", "1000000"),
		"sushiswap": poolReserves("sushiswap", usdc, usdt, "50000", "50000"),
	}}

	guard := &captureGuard{}
	d := newEvalDetector(t, &stubQuotes{set: set}, reserves, guard)

	decision := d.Evaluate(context.Background(), opp)

	if !decision.Allowed {
		t.Fatalf("rejected: %s", decision.Reason)
	}
	if guard.seen == nil {
		t.Fatal("guard never ran")
	}
	if guard.seen.Quotes != set {
		t.Error("candidate must carry the fresh quote round")
	}
	if guard.seen.Reserves == nil {
		t.Fatal("candidate must carry reserves")
	}
	if guard.seen.Reserves.Venue != "sushiswap" {
		t.Errorf("reserves from %s, want the shallowest pool (sushiswap)", guard.seen.Reserves.Venue)
	}
}

func TestEvaluateSurvivesQuoteRefreshFailure(t *testing.T) {
	usdc := stableAsset("USDC", 6)
	usdt := stableAsset("USDT", 6)

	opp := fullDirectOpp(usdc, usdt, "100", "100", "101")

	guard := &captureGuard{}
	d := newEvalDetector(t, &stubQuotes{err: errors.New("rpc down")}, &stubReserves{}, guard)

	decision := d.Evaluate(context.Background(), opp)

	if !decision.Allowed {
		t.Fatalf("rejected: %s", decision.Reason)
	}
	if guard.seen == nil {
		t.Fatal("guard never ran")
	}
	// Enrichment failures leave the fields nil; the guards decide what
	// that means.
	if guard.seen.Quotes != nil || guard.seen.Reserves != nil {
		t.Error("failed enrichment must leave quotes and reserves nil")
	}
}
