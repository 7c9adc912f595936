package testutil

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// CallFunc answers an eth_call against one contract.
type CallFunc func(data []byte) ([]byte, error)

// FakeBackend is an in-memory JSON-RPC backend. Sent transactions bump the
// sender's nonce and get a receipt after ReceiptPolls not-found polls.
type FakeBackend struct {
	mu sync.Mutex

	Nonces    map[common.Address]uint64
	Balances  map[common.Address]*big.Int
	BlockTime uint64
	Contracts map[common.Address]CallFunc

	ReceiptPolls int
	RevertSends  map[int]bool // index into Sent -> receipt status 0

	NonceErr   error
	BalanceErr error
	SendErr    error

	Sent     []*types.Transaction
	receipts map[common.Hash]*types.Receipt
	polls    map[common.Hash]int
	calls    map[string]int
}

func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		Nonces:      map[common.Address]uint64{},
		Balances:    map[common.Address]*big.Int{},
		Contracts:   map[common.Address]CallFunc{},
		RevertSends: map[int]bool{},
		BlockTime:   1_700_000_000,
		receipts:    map[common.Hash]*types.Receipt{},
		polls:       map[common.Hash]int{},
		calls:       map[string]int{},
	}
}

// Calls returns how many times method was invoked.
func (f *FakeBackend) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// TotalCalls returns the number of RPC calls of any kind.
func (f *FakeBackend) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *FakeBackend) BalanceAt(_ context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["BalanceAt"]++
	if f.BalanceErr != nil {
		return nil, f.BalanceErr
	}
	if b, ok := f.Balances[account]; ok {
		return new(big.Int).Set(b), nil
	}
	return big.NewInt(0), nil
}

func (f *FakeBackend) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["PendingNonceAt"]++
	if f.NonceErr != nil {
		return 0, f.NonceErr
	}
	return f.Nonces[account], nil
}

func (f *FakeBackend) HeaderByNumber(_ context.Context, _ *big.Int) (*types.Header, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["HeaderByNumber"]++
	return &types.Header{Number: big.NewInt(int64(len(f.Sent) + 1)), Time: f.BlockTime}, nil
}

func (f *FakeBackend) CallContract(_ context.Context, call geth.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	f.calls["CallContract"]++
	var fn CallFunc
	if call.To != nil {
		fn = f.Contracts[*call.To]
	}
	f.mu.Unlock()

	if fn == nil {
		return nil, errors.New("execution reverted")
	}
	return fn(call.Data)
}

func (f *FakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["SendTransaction"]++
	if f.SendErr != nil {
		return f.SendErr
	}

	var signer types.Signer = types.HomesteadSigner{}
	if tx.Protected() {
		signer = types.NewEIP155Signer(tx.ChainId())
	}
	from, err := types.Sender(signer, tx)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if tx.Nonce() != f.Nonces[from] {
		return fmt.Errorf("nonce too low: have %d, want %d", tx.Nonce(), f.Nonces[from])
	}
	f.Nonces[from]++

	status := types.ReceiptStatusSuccessful
	if f.RevertSends[len(f.Sent)] {
		status = types.ReceiptStatusFailed
	}
	f.Sent = append(f.Sent, tx)
	f.receipts[tx.Hash()] = &types.Receipt{
		Status:      status,
		TxHash:      tx.Hash(),
		GasUsed:     tx.Gas(),
		BlockNumber: big.NewInt(int64(len(f.Sent))),
	}
	return nil
}

func (f *FakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["TransactionReceipt"]++
	r, ok := f.receipts[hash]
	if !ok || f.polls[hash] < f.ReceiptPolls {
		f.polls[hash]++
		return nil, geth.NotFound
	}
	return r, nil
}
