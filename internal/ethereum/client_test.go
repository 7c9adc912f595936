package ethereum

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/kjannette/trahn-wallet/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyHex = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

const testABI = `[
	{"name":"balanceOf","type":"function","stateMutability":"view",
	 "inputs":[{"name":"_owner","type":"address"}],"outputs":[{"name":"balance","type":"uint256"}]},
	{"name":"getPair","type":"function","stateMutability":"view",
	 "inputs":[{"name":"a","type":"address"},{"name":"b","type":"address"}],"outputs":[{"name":"pair","type":"address"}]}
]`

func newTestClient(t *testing.T) (*Client, *testutil.FakeBackend) {
	t.Helper()
	fake := testutil.NewFakeBackend()
	c, err := NewClient(fake, testKeyHex, 5*time.Millisecond)
	require.NoError(t, err)
	return c, fake
}

func parseTestABI(t *testing.T) abi.ABI {
	t.Helper()
	a, err := abi.JSON(strings.NewReader(testABI))
	require.NoError(t, err)
	return a
}

func TestNewClient_BadKey(t *testing.T) {
	_, err := NewClient(testutil.NewFakeBackend(), "0xnothex", time.Second)
	require.Error(t, err)
}

func TestNonce(t *testing.T) {
	c, fake := newTestClient(t)
	fake.Nonces[c.WalletAddress()] = 7

	n, err := c.Nonce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(7), n)
	assert.Equal(t, 1, fake.Calls("PendingNonceAt"), "nonce must include pending transactions")

	fake.NonceErr = errors.New("connection refused")
	_, err = c.Nonce(context.Background())
	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, "get nonce", rpcErr.Op)
}

func TestSignLegacy(t *testing.T) {
	c, _ := newTestClient(t)
	to := common.HexToAddress("0x000000000000000000000000000000000000dEaD")
	legacy := func() *types.LegacyTx {
		return &types.LegacyTx{Nonce: 1, To: &to, Value: big.NewInt(1), Gas: 21000, GasPrice: big.NewInt(5)}
	}

	unprotected, err := c.SignLegacy(legacy(), nil)
	require.NoError(t, err)
	assert.False(t, unprotected.Protected())
	from, err := types.Sender(types.HomesteadSigner{}, unprotected)
	require.NoError(t, err)
	assert.Equal(t, c.WalletAddress(), from)

	protected, err := c.SignLegacy(legacy(), big.NewInt(80001))
	require.NoError(t, err)
	assert.True(t, protected.Protected())
	assert.Equal(t, int64(80001), protected.ChainId().Int64())
	from, err = types.Sender(types.NewEIP155Signer(big.NewInt(80001)), protected)
	require.NoError(t, err)
	assert.Equal(t, c.WalletAddress(), from)
}

func TestBroadcastAndWaitMined(t *testing.T) {
	c, fake := newTestClient(t)
	fake.ReceiptPolls = 2
	to := common.HexToAddress("0x000000000000000000000000000000000000dEaD")

	signed, err := c.SignLegacy(&types.LegacyTx{Nonce: 0, To: &to, Value: big.NewInt(1), Gas: 21000, GasPrice: big.NewInt(1)}, nil)
	require.NoError(t, err)
	require.NoError(t, c.Broadcast(context.Background(), signed))

	receipt, err := c.WaitMined(context.Background(), signed.Hash())
	require.NoError(t, err)
	assert.Equal(t, signed.Hash(), receipt.TxHash)
	assert.Equal(t, 3, fake.Calls("TransactionReceipt"))
}

func TestWaitMined_ContextTimeout(t *testing.T) {
	c, _ := newTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := c.WaitMined(ctx, common.HexToHash("0x01"))
	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestBroadcast_Error(t *testing.T) {
	c, fake := newTestClient(t)
	fake.SendErr = errors.New("insufficient funds for gas * price + value")
	to := common.HexToAddress("0x000000000000000000000000000000000000dEaD")

	signed, err := c.SignLegacy(&types.LegacyTx{To: &to, Value: big.NewInt(1), Gas: 21000, GasPrice: big.NewInt(1)}, nil)
	require.NoError(t, err)

	err = c.Broadcast(context.Background(), signed)
	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Contains(t, err.Error(), "insufficient funds")
}

func TestTokenBalanceAndGetPair(t *testing.T) {
	c, fake := newTestClient(t)
	a := parseTestABI(t)
	token := common.HexToAddress("0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984")
	factory := common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")
	pair := common.HexToAddress("0xd3d2E2692501A5c9Ca623199D38826e513033a17")

	fake.Contracts[token] = func(data []byte) ([]byte, error) {
		return a.Methods["balanceOf"].Outputs.Pack(big.NewInt(42))
	}
	fake.Contracts[factory] = func(data []byte) ([]byte, error) {
		return a.Methods["getPair"].Outputs.Pack(pair)
	}

	bal, err := c.TokenBalance(context.Background(), token, a, c.WalletAddress())
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(42), bal)

	got, err := c.GetPair(context.Background(), factory, a, token, common.Address{})
	require.NoError(t, err)
	assert.Equal(t, pair, got)
}

func TestCall_Reverted(t *testing.T) {
	c, _ := newTestClient(t)
	a := parseTestABI(t)

	_, err := c.TokenBalance(context.Background(), common.HexToAddress("0x01"), a, c.WalletAddress())
	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	t.Logf("Reverted call: %v", err)
}

func TestLatestBlockTime(t *testing.T) {
	c, fake := newTestClient(t)
	fake.BlockTime = 1234

	ts, err := c.LatestBlockTime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1234), ts)
}
