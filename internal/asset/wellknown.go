package asset

import "github.com/ethereum/go-ethereum/common"

// Chain IDs
const (
	ChainIDEthereum = 1
	ChainIDPolygon  = 137
	ChainIDArbitrum = 42161
	ChainIDBase     = 8453
)

// Well-known token addresses on Polygon PoS.
var (
	AddrWMATICPolygon     = common.HexToAddress("0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270")
	AddrWETHPolygon       = common.HexToAddress("0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619")
	AddrWBTCPolygon       = common.HexToAddress("0x1BFD67037B42Cf73acF2047067bd4F2C47D9BfD6")
	AddrUSDCPolygon       = common.HexToAddress("0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359")
	AddrUSDCLegacyPolygon = common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174")
	AddrUSDTPolygon       = common.HexToAddress("0xC2132D05D31c914a87C6611C10748AEb04B58e8F")
	AddrDAIPolygon        = common.HexToAddress("0x8f3Cf7ad23Cd3CaDbD9735AFf958023239c6A063")
	AddrLINKPolygon       = common.HexToAddress("0x53E0bca35eC356BD5ddDFebbD1Fc0fD03FaBad39")
)

// Pre-created instances for the Polygon tokens the scanner trades.
var (
	WMATIC = NewAsset(NewID(ChainIDPolygon, AddrWMATICPolygon), "WMATIC", "Wrapped Matic", 18)
	WETH   = NewAsset(NewID(ChainIDPolygon, AddrWETHPolygon), "WETH", "Wrapped Ether", 18)
	WBTC   = NewAsset(NewID(ChainIDPolygon, AddrWBTCPolygon), "WBTC", "Wrapped Bitcoin", 8)
	USDC   = NewStablecoin(NewID(ChainIDPolygon, AddrUSDCPolygon), "USDC", "USD Coin", 6)
	USDCe  = NewStablecoin(NewID(ChainIDPolygon, AddrUSDCLegacyPolygon), "USDC.e", "Bridged USD Coin", 6)
	USDT   = NewStablecoin(NewID(ChainIDPolygon, AddrUSDTPolygon), "USDT", "Tether USD", 6)
	DAI    = NewStablecoin(NewID(ChainIDPolygon, AddrDAIPolygon), "DAI", "Dai Stablecoin", 18)
	LINK   = NewAsset(NewID(ChainIDPolygon, AddrLINKPolygon), "LINK", "ChainLink Token", 18)
)

// DefaultRegistry returns a registry pre-populated with the well-known
// Polygon tokens.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(WMATIC)
	r.Register(WETH)
	r.Register(WBTC)
	r.Register(USDC)
	r.Register(USDCe)
	r.Register(USDT)
	r.Register(DAI)
	r.Register(LINK)
	return r
}
