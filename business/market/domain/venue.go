// Package domain contains the core domain types for the market context.
package domain

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/avelez-dev/dexarb/internal/asset"
)

// Venue represents one DEX router the aggregator quotes against.
type Venue struct {
	Name   string
	Router common.Address
	FeeBps int64 // swap fee charged by the venue, in basis points
}

// NewVenue creates a new Venue.
func NewVenue(name string, router common.Address, feeBps int64) Venue {
	if name == "" {
		panic("market: empty venue name")
	}
	return Venue{Name: name, Router: router, FeeBps: feeBps}
}

// String returns the venue name.
func (v Venue) String() string {
	return v.Name
}

// Pair represents a trading pair using typed assets.
type Pair struct {
	Base  *asset.Asset // e.g., WETH
	Quote *asset.Asset // e.g., USDC
}

// NewPair creates a new trading pair.
func NewPair(base, quote *asset.Asset) Pair {
	if base == nil || quote == nil {
		panic("market: nil asset in pair")
	}
	return Pair{Base: base, Quote: quote}
}

// String returns the pair symbol (e.g., "WETH-USDC").
func (p Pair) String() string {
	return p.Base.Symbol() + "-" + p.Quote.Symbol()
}

// Invert returns the inverted pair (e.g., WETH-USDC -> USDC-WETH).
func (p Pair) Invert() Pair {
	return Pair{Base: p.Quote, Quote: p.Base}
}
