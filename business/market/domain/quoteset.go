package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avelez-dev/dexarb/internal/asset"
)

// QuoteSet is one aggregation round for a single pair and trade size.
// It keeps every venue's quote, valid or not, so callers can reason
// about partial failure.
type QuoteSet struct {
	TokenIn   *asset.Asset
	TokenOut  *asset.Asset
	AmountIn  asset.Amount
	Quotes    map[string]Quote // keyed by venue name
	Timestamp time.Time
}

// NewQuoteSet creates an empty quote set for the given swap.
func NewQuoteSet(amountIn asset.Amount, tokenOut *asset.Asset) *QuoteSet {
	return &QuoteSet{
		TokenIn:   amountIn.Asset(),
		TokenOut:  tokenOut,
		AmountIn:  amountIn,
		Quotes:    make(map[string]Quote),
		Timestamp: time.Now(),
	}
}

// Add records a venue's quote. Last write per venue wins.
func (s *QuoteSet) Add(q Quote) {
	s.Quotes[q.Venue.Name] = q
}

// Valid returns the valid quotes sorted by venue name for deterministic
// iteration.
func (s *QuoteSet) Valid() []Quote {
	out := make([]Quote, 0, len(s.Quotes))
	for _, q := range s.Quotes {
		if q.Valid {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Venue.Name < out[j].Venue.Name })
	return out
}

// ValidCount returns the number of valid quotes.
func (s *QuoteSet) ValidCount() int {
	n := 0
	for _, q := range s.Quotes {
		if q.Valid {
			n++
		}
	}
	return n
}

// HasArbitrageData reports whether the round produced enough valid
// quotes to compare venues.
func (s *QuoteSet) HasArbitrageData() bool {
	return s.ValidCount() >= 2
}

// Best returns the valid quote with the highest AmountOut. Ties break
// by venue name so repeated rounds pick the same venue.
func (s *QuoteSet) Best() (Quote, bool) {
	var best Quote
	found := false
	for _, q := range s.Valid() {
		if !found || q.AmountOut.Raw().Cmp(best.AmountOut.Raw()) > 0 {
			best = q
			found = true
		}
	}
	return best, found
}

// Worst returns the valid quote with the lowest AmountOut.
func (s *QuoteSet) Worst() (Quote, bool) {
	var worst Quote
	found := false
	for _, q := range s.Valid() {
		if !found || q.AmountOut.Raw().Cmp(worst.AmountOut.Raw()) < 0 {
			worst = q
			found = true
		}
	}
	return worst, found
}

// Prices returns the effective price per venue for the valid quotes.
func (s *QuoteSet) Prices() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(s.Quotes))
	for name, q := range s.Quotes {
		if q.Valid {
			out[name] = q.Price
		}
	}
	return out
}

// SpreadBps returns the best/worst price gap in basis points of the
// mid-price: (best-worst)/mid*10000. Non-negative and symmetric under
// best/worst exchange. Zero when fewer than two valid quotes exist.
func (s *QuoteSet) SpreadBps() decimal.Decimal {
	best, okB := s.Best()
	worst, okW := s.Worst()
	if !okB || !okW || best.Venue.Name == worst.Venue.Name {
		return decimal.Zero
	}

	hi, lo := best.Price, worst.Price
	if hi.LessThan(lo) {
		hi, lo = lo, hi
	}
	mid := hi.Add(lo).Div(decimal.NewFromInt(2))
	if mid.IsZero() {
		return decimal.Zero
	}
	return hi.Sub(lo).Div(mid).Mul(decimal.NewFromInt(10000))
}

// SpreadPct returns the cross-venue price dispersion as a percentage of
// the mean price: (max-min)/mean*100. Returns zero when fewer than two
// valid quotes exist.
func (s *QuoteSet) SpreadPct() decimal.Decimal {
	valid := s.Valid()
	if len(valid) < 2 {
		return decimal.Zero
	}

	minP, maxP := valid[0].Price, valid[0].Price
	sum := decimal.Zero
	for _, q := range valid {
		if q.Price.LessThan(minP) {
			minP = q.Price
		}
		if q.Price.GreaterThan(maxP) {
			maxP = q.Price
		}
		sum = sum.Add(q.Price)
	}

	mean := sum.Div(decimal.NewFromInt(int64(len(valid))))
	if mean.IsZero() {
		return decimal.Zero
	}
	return maxP.Sub(minP).Div(mean).Mul(decimal.NewFromInt(100))
}

// MedianPrice returns the median effective price across valid quotes.
func (s *QuoteSet) MedianPrice() decimal.Decimal {
	valid := s.Valid()
	if len(valid) == 0 {
		return decimal.Zero
	}
	prices := make([]decimal.Decimal, len(valid))
	for i, q := range valid {
		prices[i] = q.Price
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i].LessThan(prices[j]) })

	mid := len(prices) / 2
	if len(prices)%2 == 1 {
		return prices[mid]
	}
	return prices[mid-1].Add(prices[mid]).Div(decimal.NewFromInt(2))
}
