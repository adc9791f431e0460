package domain

import (
	"time"
)

// Route is a triangular cycle to scan, by token symbol.
type Route struct {
	A, B, C string
}

// String returns the route label (e.g. "WETH-USDC-WMATIC").
func (r Route) String() string {
	return r.A + "-" + r.B + "-" + r.C
}

// ScanResult is the outcome of one scan round. Opportunities are
// sorted by gross profit bps, best first. Errors carries per-pair
// failures that did not abort the round.
type ScanResult struct {
	Opportunities []Opportunity
	PairsScanned  int
	RoutesScanned int
	Errors        []error
	StartedAt     time.Time
	Duration      time.Duration
}

// Best returns the most profitable opportunity of the round.
func (r *ScanResult) Best() (Opportunity, bool) {
	if len(r.Opportunities) == 0 {
		return nil, false
	}
	return r.Opportunities[0], true
}
