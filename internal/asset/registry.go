package asset

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Registry is a thread-safe set of known assets. It is populated once
// at startup from configuration and read-only afterwards.
type Registry struct {
	mu       sync.RWMutex
	byID     map[ID]*Asset
	bySymbol map[string]*Asset
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:     make(map[ID]*Asset),
		bySymbol: make(map[string]*Asset),
	}
}

// Register adds an asset. Panics on duplicate ID or symbol; token
// registration errors are fatal configuration errors.
func (r *Registry) Register(a *Asset) {
	if a == nil {
		panic("asset: cannot register nil asset")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[a.ID()]; exists {
		panic(fmt.Sprintf("asset: %s already registered", a.ID()))
	}
	if _, exists := r.bySymbol[a.Symbol()]; exists {
		panic(fmt.Sprintf("asset: symbol %s already registered", a.Symbol()))
	}
	r.byID[a.ID()] = a
	r.bySymbol[a.Symbol()] = a
}

// Get retrieves an asset by ID.
func (r *Registry) Get(id ID) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	return a, ok
}

// GetBySymbol retrieves an asset by its ticker symbol.
func (r *Registry) GetBySymbol(symbol string) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.bySymbol[symbol]
	return a, ok
}

// MustGetBySymbol retrieves an asset by symbol, panicking if unknown.
func (r *Registry) MustGetBySymbol(symbol string) *Asset {
	a, ok := r.GetBySymbol(symbol)
	if !ok {
		panic(fmt.Sprintf("asset: symbol %s not found in registry", symbol))
	}
	return a
}

// GetByAddress retrieves an asset by chain and contract address.
func (r *Registry) GetByAddress(chainID uint64, addr common.Address) (*Asset, bool) {
	return r.Get(NewID(chainID, addr))
}

// All returns all registered assets.
func (r *Registry) All() []*Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Asset, 0, len(r.byID))
	for _, a := range r.byID {
		out = append(out, a)
	}
	return out
}

// Count returns the number of registered assets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
