package chain

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
)

// Operation keys the fixed gas limit table.
type Operation string

const (
	OpNativeTransfer Operation = "native-transfer"
	OpTokenTransfer  Operation = "token-transfer"
	OpApprove        Operation = "approve"
	OpSwap           Operation = "swap"
	OpWrap           Operation = "wrap"
)

// ABIKind names one ABI document file.
type ABIKind string

const (
	ABIWrappedNative ABIKind = "wrapped_native"
	ABIToken         ABIKind = "erc20"
	ABIFactory       ABIKind = "factory"
	ABIRouter        ABIKind = "router"
)

// NativeAddress is the sentinel contract address of the native pseudo-token.
var NativeAddress = common.Address{}

// TokenSpec is a static registry row before its ABI has been loaded.
type TokenSpec struct {
	Symbol  string
	Address common.Address
	ABI     ABIKind
}

// Profile is the immutable per-network configuration selected at startup.
type Profile struct {
	Name                string
	ChainID             *big.Int
	PinChainID          bool
	NativeSymbol        string
	WrappedNativeSymbol string
	FactoryAddress      common.Address
	RouterAddress       common.Address
	GasPriceWei         *big.Int
	GasLimits           map[Operation]uint64
	SwapDeadline        time.Duration

	// WrapNativeDirect sends native -> wrapped-native swaps to deposit().
	WrapNativeDirect bool
	// NativeRouterSwaps allows swapExactETHForTokens from the native token.
	NativeRouterSwaps bool

	PriceSymbols  map[string]string
	Tokens        []TokenSpec
	ExplorerTxURL string
}

var profiles = map[string]Profile{
	"mainnet": {
		Name:                "mainnet",
		ChainID:             big.NewInt(1),
		PinChainID:          false,
		NativeSymbol:        "ETH",
		WrappedNativeSymbol: "WETH",
		FactoryAddress:      common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"),
		RouterAddress:       common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"),
		GasPriceWei:         gwei(5),
		GasLimits: map[Operation]uint64{
			OpNativeTransfer: 70000,
			OpTokenTransfer:  70000,
			OpApprove:        70000,
			OpSwap:           3000000,
			OpWrap:           70000,
		},
		SwapDeadline:      60 * time.Second,
		NativeRouterSwaps: true,
		PriceSymbols:      map[string]string{"WETH": "ETHUSDT"},
		Tokens: []TokenSpec{
			{Symbol: "ETH", Address: NativeAddress},
			{Symbol: "WETH", Address: common.HexToAddress("0xB4FBF271143F4FBf7B91A5ded31805e42b2208d6"), ABI: ABIWrappedNative},
			{Symbol: "UNI", Address: common.HexToAddress("0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984"), ABI: ABIToken},
		},
		ExplorerTxURL: "https://etherscan.io/tx/",
	},
	"polygon-testnet": {
		Name:                "polygon-testnet",
		ChainID:             big.NewInt(80001),
		PinChainID:          true,
		NativeSymbol:        "MATIC",
		WrappedNativeSymbol: "WMATIC",
		FactoryAddress:      common.HexToAddress("0x5757371414417b8C6CAad45bAeF941aBc7d3Ab32"),
		RouterAddress:       common.HexToAddress("0x8954AfA98594b838bda56FE4C12a09D7739D179b"),
		GasPriceWei:         gwei(20),
		GasLimits: map[Operation]uint64{
			OpNativeTransfer: 300000,
			OpTokenTransfer:  300000,
			OpApprove:        300000,
			OpSwap:           3000000,
			OpWrap:           300000,
		},
		SwapDeadline:     60 * time.Second,
		WrapNativeDirect: true,
		PriceSymbols:     map[string]string{"WMATIC": "MATICUSDT"},
		Tokens: []TokenSpec{
			{Symbol: "MATIC", Address: NativeAddress},
			{Symbol: "WMATIC", Address: common.HexToAddress("0x9c3C9283D3e44854697Cd22D3Faa240Cfb032889"), ABI: ABIWrappedNative},
		},
		ExplorerTxURL: "https://mumbai.polygonscan.com/tx/",
	},
}

// Lookup returns a copy of the named profile.
func Lookup(name string) (*Profile, error) {
	p, ok := profiles[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown chain profile %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return p.clone(), nil
}

// Names lists the supported profile names.
func Names() []string {
	out := make([]string, 0, len(profiles))
	for n := range profiles {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// WithPriceSymbols returns a copy whose price symbol table is extended by overrides.
func (p *Profile) WithPriceSymbols(overrides map[string]string) *Profile {
	c := p.clone()
	for k, v := range overrides {
		c.PriceSymbols[strings.ToUpper(k)] = strings.ToUpper(v)
	}
	return c
}

// WithPinnedChainID returns a copy with the chain ID pin forced on or off.
func (p *Profile) WithPinnedChainID(pin bool) *Profile {
	c := p.clone()
	c.PinChainID = pin
	return c
}

// GasLimit returns the fixed gas limit for op.
func (p *Profile) GasLimit(op Operation) uint64 {
	return p.GasLimits[op]
}

// TickerSymbol maps a token symbol to its price ticker. Wrapped-native tokens
// map to the underlying native asset's ticker.
func (p *Profile) TickerSymbol(symbol string) string {
	symbol = strings.ToUpper(symbol)
	if t, ok := p.PriceSymbols[symbol]; ok {
		return t
	}
	return symbol + "USDT"
}

func (p *Profile) ExplorerURL(txHash string) string {
	return p.ExplorerTxURL + txHash
}

func (p Profile) clone() *Profile {
	c := p
	c.ChainID = new(big.Int).Set(p.ChainID)
	c.GasPriceWei = new(big.Int).Set(p.GasPriceWei)
	c.GasLimits = make(map[Operation]uint64, len(p.GasLimits))
	for k, v := range p.GasLimits {
		c.GasLimits[k] = v
	}
	c.PriceSymbols = make(map[string]string, len(p.PriceSymbols))
	for k, v := range p.PriceSymbols {
		c.PriceSymbols[k] = v
	}
	c.Tokens = append([]TokenSpec(nil), p.Tokens...)
	return &c
}

func gwei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(params.GWei))
}
