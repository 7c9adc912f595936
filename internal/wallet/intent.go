package wallet

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Intent is what the caller wants done: a Transfer or a Swap.
type Intent interface {
	Validate() error
	intent()
}

// Transfer moves Amount (smallest unit) of Token to To. The native
// pseudo-token symbol selects a plain value transfer.
type Transfer struct {
	Token  string
	To     common.Address
	Amount *big.Int
}

func (t Transfer) intent() {}

func (t Transfer) Validate() error {
	if t.To == (common.Address{}) {
		return ErrInvalidRecipient
	}
	if strings.TrimSpace(t.Token) == "" {
		return &UnknownTokenError{Symbol: t.Token}
	}
	return validAmount(t.Amount)
}

// Swap exchanges Amount (smallest unit) of From for To. The proceeds go to
// the sender.
type Swap struct {
	From   string
	To     string
	Amount *big.Int
}

func (s Swap) intent() {}

func (s Swap) Validate() error {
	if strings.TrimSpace(s.From) == "" {
		return &UnknownTokenError{Symbol: s.From}
	}
	if strings.TrimSpace(s.To) == "" {
		return &UnknownTokenError{Symbol: s.To}
	}
	return validAmount(s.Amount)
}

func validAmount(a *big.Int) error {
	if a == nil || a.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
