package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Call packs method against contractABI, runs it with eth_call and returns
// the unpacked outputs.
func (c *Client) Call(ctx context.Context, contract common.Address, contractABI abi.ABI, method string, args ...any) ([]any, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	raw, err := c.CallContract(ctx, contract, data)
	if err != nil {
		return nil, err
	}
	out, err := contractABI.Unpack(method, raw)
	if err != nil {
		return nil, &RPCError{Op: method, Err: fmt.Errorf("unpack result: %w", err)}
	}
	return out, nil
}

// TokenBalance returns balanceOf(owner) in the token's smallest unit.
func (c *Client) TokenBalance(ctx context.Context, token common.Address, tokenABI abi.ABI, owner common.Address) (*big.Int, error) {
	out, err := c.Call(ctx, token, tokenABI, "balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("balanceOf %s: %w", token.Hex(), err)
	}
	bal, ok := firstOutput[*big.Int](out)
	if !ok {
		return nil, &RPCError{Op: "balanceOf", Err: fmt.Errorf("unexpected result %v", out)}
	}
	return bal, nil
}

func firstOutput[T any](out []any) (T, bool) {
	var zero T
	if len(out) == 0 {
		return zero, false
	}
	v, ok := out[0].(T)
	return v, ok
}
