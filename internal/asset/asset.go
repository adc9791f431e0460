// Package asset provides a type-safe model for on-chain tokens.
// Amounts are carried as big.Int values in the token's smallest unit;
// decimal.Decimal appears only at boundaries (pricing, display, parsing).
package asset

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ID uniquely identifies a token by chain and contract address.
// The symbol is display metadata, not identity: Polygon carries two
// distinct USDC deployments with the same ticker.
type ID struct {
	chainID uint64
	address common.Address
}

// NewID creates an ID for an ERC20 token.
func NewID(chainID uint64, addr common.Address) ID {
	return ID{chainID: chainID, address: addr}
}

// ChainID returns the chain the token lives on.
func (id ID) ChainID() uint64 { return id.chainID }

// Address returns the token contract address.
func (id ID) Address() common.Address { return id.address }

// Equals compares two IDs.
func (id ID) Equals(other ID) bool {
	return id.chainID == other.chainID && id.address == other.address
}

func (id ID) String() string {
	return fmt.Sprintf("chain:%d/%s", id.chainID, id.address.Hex())
}

// Asset is the immutable metadata record for a token.
type Asset struct {
	id       ID
	symbol   string
	name     string
	decimals uint8
	stable   bool
}

// NewAsset creates an Asset.
func NewAsset(id ID, symbol, name string, decimals uint8) *Asset {
	if symbol == "" {
		panic("asset: empty symbol")
	}
	if decimals > 30 {
		panic(fmt.Sprintf("asset: suspicious decimals %d for %s", decimals, symbol))
	}
	return &Asset{
		id:       id,
		symbol:   symbol,
		name:     name,
		decimals: decimals,
	}
}

// NewStablecoin creates an Asset flagged as a USD-pegged stablecoin.
// The deviation guard applies its tighter bound to pairs of stablecoins.
func NewStablecoin(id ID, symbol, name string, decimals uint8) *Asset {
	a := NewAsset(id, symbol, name, decimals)
	a.stable = true
	return a
}

// ID returns the unique identifier.
func (a *Asset) ID() ID { return a.id }

// Symbol returns the ticker symbol (e.g. "WMATIC").
func (a *Asset) Symbol() string { return a.symbol }

// Name returns the human-readable name, falling back to the symbol.
func (a *Asset) Name() string {
	if a.name == "" {
		return a.symbol
	}
	return a.name
}

// Decimals returns the number of decimal places of the smallest unit.
func (a *Asset) Decimals() uint8 { return a.decimals }

// Address returns the token contract address.
func (a *Asset) Address() common.Address { return a.id.address }

// IsStable reports whether the token is a USD-pegged stablecoin.
func (a *Asset) IsStable() bool { return a.stable }

// Equals compares two Assets by identity.
func (a *Asset) Equals(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.id.Equals(other.id)
}

func (a *Asset) String() string { return a.symbol }
