package wallet

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kjannette/trahn-wallet/internal/chain"
	"github.com/kjannette/trahn-wallet/internal/ethereum"
	"github.com/kjannette/trahn-wallet/internal/models"
	"github.com/kjannette/trahn-wallet/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

var (
	recipient = common.HexToAddress("0x8ba1f109551bD432803012645Ac136ddd64DBA72")
	pairAddr  = common.HexToAddress("0xd3d2E2692501A5c9Ca623199D38826e513033a17")
	testERC20 = common.HexToAddress("0x326C977E6efc84E512bB9C30f76E30c160eD06FB")
	oneUnit   = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

type harness struct {
	svc      *Service
	client   *ethereum.Client
	fake     *testutil.FakeBackend
	registry *chain.Registry
	profile  *chain.Profile
	journal  *memJournal
	notes    *memNotifier
	pairArgs [][]common.Address
}

type memJournal struct {
	mu   sync.Mutex
	subs []*models.Submission
}

func (j *memJournal) RecordSubmission(_ context.Context, s *models.Submission) (*models.Submission, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.subs = append(j.subs, s)
	return s, nil
}

type memNotifier struct{ msgs []string }

func (n *memNotifier) Send(msg string) { n.msgs = append(n.msgs, msg) }

func newHarness(t *testing.T, profile *chain.Profile, pair common.Address) *harness {
	t.Helper()
	reg, err := chain.LoadRegistry(profile, "../../abi")
	require.NoError(t, err)

	fake := testutil.NewFakeBackend()
	client, err := ethereum.NewClient(fake, testKeyHex, time.Millisecond)
	require.NoError(t, err)

	h := &harness{client: client, fake: fake, registry: reg, profile: profile, journal: &memJournal{}, notes: &memNotifier{}}
	getPair := reg.FactoryABI().Methods["getPair"]
	fake.Contracts[profile.FactoryAddress] = func(data []byte) ([]byte, error) {
		args, err := getPair.Inputs.Unpack(data[4:])
		if err != nil {
			return nil, err
		}
		h.pairArgs = append(h.pairArgs, []common.Address{args[0].(common.Address), args[1].(common.Address)})
		return getPair.Outputs.Pack(pair)
	}

	h.svc = NewService(profile, reg, client, Options{ReceiptTimeout: time.Second, Journal: h.journal, Notifier: h.notes})
	return h
}

func mustProfile(t *testing.T, name string) *chain.Profile {
	t.Helper()
	p, err := chain.Lookup(name)
	require.NoError(t, err)
	return p
}

func decodeCall(t *testing.T, h *harness, method string, data []byte) []any {
	t.Helper()
	m, ok := h.registry.RouterABI().Methods[method]
	if !ok {
		weth, _ := h.registry.Token(h.profile.WrappedNativeSymbol)
		m, ok = weth.ABI.Methods[method]
	}
	require.True(t, ok, "method %s", method)
	require.Equal(t, m.ID, data[:4], "selector for %s", method)
	args, err := m.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	return args
}

// --- builder ---

func TestNativeTransfer_Build(t *testing.T) {
	h := newHarness(t, mustProfile(t, "mainnet"), pairAddr)
	h.fake.Nonces[h.client.WalletAddress()] = 5

	tx, err := h.svc.Builder().Transfer(context.Background(), Transfer{Token: "ETH", To: recipient, Amount: oneUnit})
	require.NoError(t, err)

	assert.Equal(t, oneUnit, tx.Value)
	assert.Equal(t, uint64(5), tx.Nonce)
	assert.Empty(t, tx.Data)
	assert.Equal(t, recipient, tx.To)
	assert.Equal(t, uint64(70000), tx.Gas)
	assert.Equal(t, big.NewInt(5_000_000_000), tx.GasPrice)
	assert.Nil(t, tx.ChainID, "mainnet profile does not pin the chain ID")
	assert.Equal(t, 1, h.fake.Calls("PendingNonceAt"))

	legacy := tx.LegacyTx()
	assert.Equal(t, oneUnit, legacy.Value)
	assert.Equal(t, uint64(5), legacy.Nonce)
}

func TestNativeTransfer_TestnetPinsChainID(t *testing.T) {
	h := newHarness(t, mustProfile(t, "polygon-testnet"), pairAddr)

	tx, err := h.svc.Builder().Transfer(context.Background(), Transfer{Token: "matic", To: recipient, Amount: big.NewInt(1)})
	require.NoError(t, err)
	require.NotNil(t, tx.ChainID)
	assert.Equal(t, int64(80001), tx.ChainID.Int64())
	assert.Equal(t, uint64(300000), tx.Gas)
	assert.Equal(t, big.NewInt(20_000_000_000), tx.GasPrice)
}

func TestTokenTransfer_UnknownToken(t *testing.T) {
	h := newHarness(t, mustProfile(t, "mainnet"), pairAddr)

	_, err := h.svc.Builder().Transfer(context.Background(), Transfer{Token: "DOGE", To: recipient, Amount: big.NewInt(1)})
	var unknown *UnknownTokenError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "DOGE", unknown.Symbol)
	assert.Zero(t, h.fake.TotalCalls())
}

func TestTokenTransfer_EncodesTransfer(t *testing.T) {
	h := newHarness(t, mustProfile(t, "mainnet"), pairAddr)
	h.fake.Nonces[h.client.WalletAddress()] = 2

	tx, err := h.svc.Builder().Transfer(context.Background(), Transfer{Token: "UNI", To: recipient, Amount: big.NewInt(1)})
	require.NoError(t, err)

	uni, _ := h.registry.Token("UNI")
	assert.Equal(t, uni.Address, tx.To)
	assert.Equal(t, 0, tx.Value.Sign())
	assert.Equal(t, uint64(2), tx.Nonce)

	args, err := uni.ABI.Methods["transfer"].Inputs.Unpack(tx.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, recipient, args[0])
	assert.Equal(t, big.NewInt(1), args[1])
}

func TestTransfer_InvalidIntent(t *testing.T) {
	h := newHarness(t, mustProfile(t, "mainnet"), pairAddr)

	_, err := h.svc.Builder().Transfer(context.Background(), Transfer{Token: "ETH", To: recipient, Amount: big.NewInt(0)})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = h.svc.Builder().Transfer(context.Background(), Transfer{Token: "ETH", Amount: big.NewInt(1)})
	assert.ErrorIs(t, err, ErrInvalidRecipient)

	assert.Zero(t, h.fake.TotalCalls())
}

func TestPlanSwap_PairNotFound(t *testing.T) {
	h := newHarness(t, mustProfile(t, "mainnet"), common.Address{})

	_, err := h.svc.Swap(context.Background(), Swap{From: "UNI", To: "WETH", Amount: big.NewInt(10)})
	var notFound *PairNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Zero(t, h.fake.Calls("PendingNonceAt"), "no transaction may be built")
	assert.Zero(t, h.fake.Calls("SendTransaction"))
}

func TestPlanSwap_Unbound(t *testing.T) {
	main := newHarness(t, mustProfile(t, "mainnet"), pairAddr)
	var unbound *UnboundTransactionError

	_, err := main.svc.Builder().PlanSwap(context.Background(), Swap{From: "WETH", To: "ETH", Amount: big.NewInt(1)})
	require.True(t, errors.As(err, &unbound))

	_, err = main.svc.Builder().PlanSwap(context.Background(), Swap{From: "ETH", To: "WETH", Amount: big.NewInt(1)})
	require.True(t, errors.As(err, &unbound))

	_, err = main.svc.Builder().PlanSwap(context.Background(), Swap{From: "UNI", To: "uni", Amount: big.NewInt(1)})
	require.True(t, errors.As(err, &unbound))

	assert.Zero(t, main.fake.TotalCalls())
}

// --- service ---

func TestTransfer_SequentialNonces(t *testing.T) {
	h := newHarness(t, mustProfile(t, "mainnet"), pairAddr)
	h.fake.Nonces[h.client.WalletAddress()] = 5

	first, err := h.svc.Transfer(context.Background(), Transfer{Token: "ETH", To: recipient, Amount: oneUnit})
	require.NoError(t, err)
	second, err := h.svc.Transfer(context.Background(), Transfer{Token: "ETH", To: recipient, Amount: oneUnit})
	require.NoError(t, err)

	assert.Equal(t, uint64(5), first.Tx.Nonce)
	assert.Equal(t, uint64(6), second.Tx.Nonce)
	assert.True(t, first.Mined)
	assert.Equal(t, StageMined, second.Stage)
	assert.NotEqual(t, first.TxHash, second.TxHash)

	require.Len(t, h.fake.Sent, 2)
	assert.Equal(t, first.TxHash, h.fake.Sent[0].Hash())
	assert.Equal(t, oneUnit, h.fake.Sent[0].Value())
	assert.Empty(t, h.fake.Sent[0].Data())

	require.Len(t, h.journal.subs, 2)
	assert.Equal(t, models.StatusMined, h.journal.subs[0].Status)
	assert.Equal(t, "1000000000000000000", h.journal.subs[0].Value)
	assert.Len(t, h.notes.msgs, 2)
}

func TestSwap_TokenToToken(t *testing.T) {
	h := newHarness(t, mustProfile(t, "mainnet"), pairAddr)
	h.fake.BlockTime = 1_700_000_000
	amount := big.NewInt(1_000)

	res, err := h.svc.Swap(context.Background(), Swap{From: "UNI", To: "WETH", Amount: amount})
	require.NoError(t, err)
	require.NotNil(t, res.Approval)
	require.NotNil(t, res.Swap)

	uni, _ := h.registry.Token("UNI")
	weth, _ := h.registry.Token("WETH")
	assert.Equal(t, [][]common.Address{{uni.Address, weth.Address}}, h.pairArgs)
	assert.Equal(t, pairAddr, res.Plan.Pair)

	// approval and swap are distinct transactions with consecutive nonces
	require.Len(t, h.fake.Sent, 2)
	assert.NotEqual(t, res.Approval.TxHash, res.Swap.TxHash)
	assert.Equal(t, uint64(0), res.Approval.Tx.Nonce)
	assert.Equal(t, uint64(1), res.Swap.Tx.Nonce)

	assert.Equal(t, uni.Address, res.Approval.Tx.To)
	approveArgs, err := uni.ABI.Methods["approve"].Inputs.Unpack(res.Approval.Tx.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, h.profile.RouterAddress, approveArgs[0])
	assert.Equal(t, amount, approveArgs[1])
	assert.Equal(t, uint64(70000), res.Approval.Tx.Gas)

	assert.Equal(t, h.profile.RouterAddress, res.Swap.Tx.To)
	assert.Equal(t, uint64(3000000), res.Swap.Tx.Gas)
	args := decodeCall(t, h, "swapExactTokensForTokens", res.Swap.Tx.Data)
	assert.Equal(t, amount, args[0])
	assert.Equal(t, 0, args[1].(*big.Int).Sign(), "minimum out is zero")
	assert.Equal(t, []common.Address{uni.Address, weth.Address}, args[2])
	assert.Equal(t, h.client.WalletAddress(), args[3])
	assert.Equal(t, big.NewInt(1_700_000_060), args[4])
}

func TestSwap_NativeThroughRouter(t *testing.T) {
	h := newHarness(t, mustProfile(t, "mainnet"), pairAddr)
	amount := big.NewInt(5_000)

	results, err := h.svc.Execute(context.Background(), Swap{From: "ETH", To: "UNI", Amount: amount})
	require.NoError(t, err)
	require.Len(t, results, 1, "native source needs no approval")

	weth, _ := h.registry.Token("WETH")
	uni, _ := h.registry.Token("UNI")
	swap := results[0].Tx
	assert.Equal(t, amount, swap.Value)
	args := decodeCall(t, h, "swapExactETHForTokens", swap.Data)
	assert.Equal(t, 0, args[0].(*big.Int).Sign())
	assert.Equal(t, []common.Address{weth.Address, uni.Address}, args[1])
}

func TestSwap_TestnetWrap(t *testing.T) {
	h := newHarness(t, mustProfile(t, "polygon-testnet"), pairAddr)
	amount := big.NewInt(42)

	res, err := h.svc.Swap(context.Background(), Swap{From: "MATIC", To: "WMATIC", Amount: amount})
	require.NoError(t, err)
	assert.Nil(t, res.Approval)
	assert.Equal(t, RouteWrap, res.Plan.Route)
	assert.Empty(t, h.pairArgs, "wrapping needs no pair")

	wmatic, _ := h.registry.Token("WMATIC")
	assert.Equal(t, wmatic.Address, res.Swap.Tx.To)
	assert.Equal(t, amount, res.Swap.Tx.Value)
	assert.Equal(t, wmatic.ABI.Methods["deposit"].ID, res.Swap.Tx.Data)
	require.NotNil(t, res.Swap.Tx.ChainID)
	assert.True(t, h.fake.Sent[0].Protected())
}

func TestSwap_TestnetRestrictions(t *testing.T) {
	p := mustProfile(t, "polygon-testnet")
	p.Tokens = append(p.Tokens, chain.TokenSpec{Symbol: "DERC20", Address: testERC20, ABI: chain.ABIToken})
	h := newHarness(t, p, pairAddr)

	_, err := h.svc.Swap(context.Background(), Swap{From: "MATIC", To: "DERC20", Amount: big.NewInt(1)})
	var unbound *UnboundTransactionError
	require.True(t, errors.As(err, &unbound))
	assert.Zero(t, h.fake.TotalCalls())

	res, err := h.svc.Swap(context.Background(), Swap{From: "DERC20", To: "WMATIC", Amount: big.NewInt(1)})
	require.NoError(t, err)
	assert.Equal(t, RouteTokenRouter, res.Plan.Route)
	require.NotNil(t, res.Approval)
	decodeCall(t, h, "swapExactTokensForTokens", res.Swap.Tx.Data)
}

func TestSwap_RevertedApprovalAborts(t *testing.T) {
	h := newHarness(t, mustProfile(t, "mainnet"), pairAddr)
	h.fake.RevertSends[0] = true

	res, err := h.svc.Swap(context.Background(), Swap{From: "UNI", To: "WETH", Amount: big.NewInt(1)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReverted)
	var rpcErr *ethereum.RPCError
	assert.True(t, errors.As(err, &rpcErr))

	assert.Len(t, h.fake.Sent, 1)
	assert.Nil(t, res.Swap)
	require.Len(t, h.journal.subs, 1)
	assert.Equal(t, models.StatusReverted, h.journal.subs[0].Status)
	assert.Empty(t, h.notes.msgs)
}

func TestSubmit_ReceiptTimeout(t *testing.T) {
	h := newHarness(t, mustProfile(t, "mainnet"), pairAddr)
	h.fake.ReceiptPolls = 1 << 30
	h.svc.opts.ReceiptTimeout = 20 * time.Millisecond

	res, err := h.svc.Transfer(context.Background(), Transfer{Token: "ETH", To: recipient, Amount: big.NewInt(1)})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StagePendingReceipt, res.Stage)
	assert.False(t, res.Mined)

	require.Len(t, h.journal.subs, 1)
	assert.Equal(t, models.StatusFailed, h.journal.subs[0].Status)
	require.NotNil(t, h.journal.subs[0].Error)
}

func TestSubmit_BroadcastFailure(t *testing.T) {
	h := newHarness(t, mustProfile(t, "mainnet"), pairAddr)
	h.fake.SendErr = errors.New("replacement transaction underpriced")

	res, err := h.svc.Transfer(context.Background(), Transfer{Token: "ETH", To: recipient, Amount: big.NewInt(1)})
	var rpcErr *ethereum.RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, StageSigned, res.Stage)
	assert.Empty(t, h.journal.subs, "nothing reached the network")
}
