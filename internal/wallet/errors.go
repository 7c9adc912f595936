package wallet

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInvalidAmount    = errors.New("amount must be a positive integer")
	ErrInvalidRecipient = errors.New("recipient must be a non-zero address")
	ErrReverted         = errors.New("transaction reverted")
)

// UnknownTokenError means an intent references a token absent from the registry.
type UnknownTokenError struct {
	Symbol string
}

func (e *UnknownTokenError) Error() string {
	return fmt.Sprintf("unknown token %q", e.Symbol)
}

// PairNotFoundError means the factory has no liquidity pair for the swap.
type PairNotFoundError struct {
	From, To       string
	TokenA, TokenB common.Address
}

func (e *PairNotFoundError) Error() string {
	return fmt.Sprintf("pair %s/%s does not exist (getPair(%s, %s) returned the zero address)",
		e.From, e.To, e.TokenA.Hex(), e.TokenB.Hex())
}

// UnboundTransactionError means the intent and chain profile combination has
// no defined build path.
type UnboundTransactionError struct {
	Profile  string
	From, To string
	Reason   string
}

func (e *UnboundTransactionError) Error() string {
	return fmt.Sprintf("no transaction path for %s -> %s on %s: %s", e.From, e.To, e.Profile, e.Reason)
}
