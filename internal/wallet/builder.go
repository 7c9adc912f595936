package wallet

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/kjannette/trahn-wallet/internal/chain"
	"github.com/rs/zerolog/log"
)

// ChainState is the live chain data the builder reads.
type ChainState interface {
	WalletAddress() common.Address
	Nonce(ctx context.Context) (uint64, error)
	LatestBlockTime(ctx context.Context) (uint64, error)
	GetPair(ctx context.Context, factory common.Address, factoryABI abi.ABI, tokenA, tokenB common.Address) (common.Address, error)
}

// UnsignedTransaction is a fully parameterized transaction. It is signed
// once; its nonce is never reused.
type UnsignedTransaction struct {
	Kind     chain.Operation
	To       common.Address
	Value    *big.Int
	Data     []byte
	Gas      uint64
	GasPrice *big.Int
	Nonce    uint64
	ChainID  *big.Int // nil unless the profile pins it
}

func (u *UnsignedTransaction) LegacyTx() *types.LegacyTx {
	to := u.To
	return &types.LegacyTx{
		Nonce:    u.Nonce,
		To:       &to,
		Value:    new(big.Int).Set(u.Value),
		Gas:      u.Gas,
		GasPrice: new(big.Int).Set(u.GasPrice),
		Data:     append([]byte(nil), u.Data...),
	}
}

// SwapRoute says how a swap is executed on the active profile.
type SwapRoute string

const (
	RouteWrap         SwapRoute = "wrap"
	RouteNativeRouter SwapRoute = "router-native"
	RouteTokenRouter  SwapRoute = "router-token"
)

// SwapPlan is a validated swap with its liquidity pair resolved.
type SwapPlan struct {
	Route  SwapRoute
	From   chain.Token
	To     chain.Token
	Path   []common.Address
	Pair   common.Address
	Amount *big.Int
}

// NeedsApproval reports whether the router must be approved to pull the
// source token first.
func (p *SwapPlan) NeedsApproval() bool {
	return p.Route == RouteTokenRouter
}

// Builder turns intents and live chain state into UnsignedTransactions with
// the profile's fixed gas and fee parameters.
type Builder struct {
	profile  *chain.Profile
	registry *chain.Registry
	state    ChainState
}

func NewBuilder(profile *chain.Profile, registry *chain.Registry, state ChainState) *Builder {
	return &Builder{profile: profile, registry: registry, state: state}
}

// Transfer builds a native or ERC-20 transfer.
func (b *Builder) Transfer(ctx context.Context, t Transfer) (*UnsignedTransaction, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	token, ok := b.registry.Token(t.Token)
	if !ok {
		return nil, &UnknownTokenError{Symbol: t.Token}
	}
	if token.Native {
		return b.NativeTransfer(ctx, t.To, t.Amount)
	}
	data, err := token.ABI.Pack("transfer", t.To, t.Amount)
	if err != nil {
		return nil, fmt.Errorf("pack transfer: %w", err)
	}
	return b.build(ctx, chain.OpTokenTransfer, token.Address, big.NewInt(0), data)
}

// NativeTransfer builds a plain value transfer. Insufficient balance is not
// checked here; it surfaces at broadcast.
func (b *Builder) NativeTransfer(ctx context.Context, to common.Address, amount *big.Int) (*UnsignedTransaction, error) {
	if to == (common.Address{}) {
		return nil, ErrInvalidRecipient
	}
	if err := validAmount(amount); err != nil {
		return nil, err
	}
	return b.build(ctx, chain.OpNativeTransfer, to, amount, nil)
}

// Approval builds approve(spender, amount) on token.
func (b *Builder) Approval(ctx context.Context, token chain.Token, spender common.Address, amount *big.Int) (*UnsignedTransaction, error) {
	if token.Native {
		return nil, &UnboundTransactionError{Profile: b.profile.Name, From: token.Symbol, To: token.Symbol, Reason: "native token has no allowance"}
	}
	data, err := token.ABI.Pack("approve", spender, amount)
	if err != nil {
		return nil, fmt.Errorf("pack approve: %w", err)
	}
	return b.build(ctx, chain.OpApprove, token.Address, big.NewInt(0), data)
}

// PlanSwap validates a swap, picks its route and, for router routes,
// resolves the liquidity pair. No transaction is built here.
func (b *Builder) PlanSwap(ctx context.Context, s Swap) (*SwapPlan, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	from, ok := b.registry.Token(s.From)
	if !ok {
		return nil, &UnknownTokenError{Symbol: s.From}
	}
	to, ok := b.registry.Token(s.To)
	if !ok {
		return nil, &UnknownTokenError{Symbol: s.To}
	}

	unbound := func(reason string) error {
		return &UnboundTransactionError{Profile: b.profile.Name, From: from.Symbol, To: to.Symbol, Reason: reason}
	}
	wrapped := b.registry.WrappedNative()

	plan := &SwapPlan{From: from, To: to, Amount: new(big.Int).Set(s.Amount)}
	switch {
	case from.Symbol == to.Symbol:
		return nil, unbound("source and target are the same token")
	case to.Native:
		return nil, unbound("swapping into the native token is not supported")
	case from.Native && to.Symbol == wrapped.Symbol && b.profile.WrapNativeDirect:
		plan.Route = RouteWrap
		return plan, nil
	case from.Native && !b.profile.NativeRouterSwaps:
		return nil, unbound("native swaps only wrap on this profile")
	case from.Native:
		if to.Symbol == wrapped.Symbol {
			return nil, unbound("router path would start and end at " + wrapped.Symbol)
		}
		plan.Route = RouteNativeRouter
		plan.Path = []common.Address{wrapped.Address, to.Address}
	default:
		plan.Route = RouteTokenRouter
		plan.Path = []common.Address{from.Address, to.Address}
	}

	pair, err := b.state.GetPair(ctx, b.profile.FactoryAddress, b.registry.FactoryABI(), plan.Path[0], plan.Path[1])
	if err != nil {
		return nil, err
	}
	if pair == (common.Address{}) {
		return nil, &PairNotFoundError{From: from.Symbol, To: to.Symbol, TokenA: plan.Path[0], TokenB: plan.Path[1]}
	}
	plan.Pair = pair
	log.Debug().Str("pair", pair.Hex()).Str("from", from.Symbol).Str("to", to.Symbol).Msg("Liquidity pair resolved")
	return plan, nil
}

// SwapCall builds the swap transaction itself. For router routes the
// deadline is the latest block timestamp plus the profile's swap deadline,
// and the minimum output is zero.
func (b *Builder) SwapCall(ctx context.Context, plan *SwapPlan) (*UnsignedTransaction, error) {
	if plan.Route == RouteWrap {
		data, err := plan.To.ABI.Pack("deposit")
		if err != nil {
			return nil, fmt.Errorf("pack deposit: %w", err)
		}
		return b.build(ctx, chain.OpWrap, plan.To.Address, plan.Amount, data)
	}

	ts, err := b.state.LatestBlockTime(ctx)
	if err != nil {
		return nil, err
	}
	deadline := new(big.Int).SetUint64(ts + uint64(b.profile.SwapDeadline.Seconds()))
	recipient := b.state.WalletAddress()
	router := b.registry.RouterABI()

	var (
		data  []byte
		value = big.NewInt(0)
	)
	switch plan.Route {
	case RouteNativeRouter:
		data, err = router.Pack("swapExactETHForTokens", big.NewInt(0), plan.Path, recipient, deadline)
		value = plan.Amount
	case RouteTokenRouter:
		data, err = router.Pack("swapExactTokensForTokens", plan.Amount, big.NewInt(0), plan.Path, recipient, deadline)
	default:
		return nil, &UnboundTransactionError{Profile: b.profile.Name, From: plan.From.Symbol, To: plan.To.Symbol, Reason: "unknown route " + string(plan.Route)}
	}
	if err != nil {
		return nil, fmt.Errorf("pack swap: %w", err)
	}
	return b.build(ctx, chain.OpSwap, b.profile.RouterAddress, value, data)
}

// build fetches the nonce immediately before assembling the transaction.
func (b *Builder) build(ctx context.Context, op chain.Operation, to common.Address, value *big.Int, data []byte) (*UnsignedTransaction, error) {
	nonce, err := b.state.Nonce(ctx)
	if err != nil {
		return nil, err
	}
	u := &UnsignedTransaction{
		Kind:     op,
		To:       to,
		Value:    new(big.Int).Set(value),
		Data:     data,
		Gas:      b.profile.GasLimit(op),
		GasPrice: new(big.Int).Set(b.profile.GasPriceWei),
		Nonce:    nonce,
	}
	if b.profile.PinChainID {
		u.ChainID = new(big.Int).Set(b.profile.ChainID)
	}
	log.Debug().Str("kind", string(op)).Uint64("nonce", nonce).Str("to", to.Hex()).Msg("Transaction built")
	return u, nil
}
