package ethereum

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// GetPair asks a Uniswap V2 style factory for the liquidity pair of tokenA
// and tokenB. The zero address means no pair exists.
func (c *Client) GetPair(ctx context.Context, factory common.Address, factoryABI abi.ABI, tokenA, tokenB common.Address) (common.Address, error) {
	out, err := c.Call(ctx, factory, factoryABI, "getPair", tokenA, tokenB)
	if err != nil {
		return common.Address{}, fmt.Errorf("getPair: %w", err)
	}
	pair, ok := firstOutput[common.Address](out)
	if !ok {
		return common.Address{}, &RPCError{Op: "getPair", Err: fmt.Errorf("unexpected result %v", out)}
	}
	return pair, nil
}
