package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"
)

const defaultPollInterval = time.Second

// Backend is the slice of the JSON-RPC surface the wallet uses.
// *ethclient.Client satisfies it.
type Backend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	CallContract(ctx context.Context, call geth.CallMsg, blockNumber *big.Int) ([]byte, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

type Client struct {
	backend      Backend
	closer       func()
	privateKey   *ecdsa.PrivateKey
	wallet       common.Address
	pollInterval time.Duration
}

// Dial connects to an HTTP(S) JSON-RPC provider.
func Dial(rpcURL, privateKeyHex string, pollInterval time.Duration) (*Client, error) {
	rpc, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, &RPCError{Op: "dial", Err: err}
	}
	c, err := NewClient(rpc, privateKeyHex, pollInterval)
	if err != nil {
		rpc.Close()
		return nil, err
	}
	c.closer = rpc.Close
	return c, nil
}

// NewClient wraps an existing backend with the signing key.
func NewClient(backend Backend, privateKeyHex string, pollInterval time.Duration) (*Client, error) {
	pk, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Client{
		backend:      backend,
		privateKey:   pk,
		wallet:       crypto.PubkeyToAddress(pk.PublicKey),
		pollInterval: pollInterval,
	}, nil
}

func (c *Client) WalletAddress() common.Address { return c.wallet }

func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

// Nonce returns the sender's transaction count, pending included. The
// latest-block count would hand out a nonce already used by a transaction
// still in the mempool, and the replacement would be rejected as underpriced.
func (c *Client) Nonce(ctx context.Context) (uint64, error) {
	n, err := c.backend.PendingNonceAt(ctx, c.wallet)
	if err != nil {
		return 0, &RPCError{Op: "get nonce", Err: err}
	}
	return n, nil
}

// LatestBlockTime returns the timestamp of the latest block in unix seconds.
func (c *Client) LatestBlockTime(ctx context.Context) (uint64, error) {
	h, err := c.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, &RPCError{Op: "get latest block", Err: err}
	}
	return h.Time, nil
}

// NativeBalance returns the native balance of account in wei.
func (c *Client) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	bal, err := c.backend.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, &RPCError{Op: "get balance", Err: err}
	}
	return bal, nil
}

// CallContract performs a read-only eth_call from the wallet address.
func (c *Client) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	out, err := c.backend.CallContract(ctx, geth.CallMsg{From: c.wallet, To: &to, Data: data}, nil)
	if err != nil {
		return nil, &RPCError{Op: "eth_call", Err: err}
	}
	return out, nil
}

// SignLegacy signs a legacy transaction. A nil chainID produces an
// unprotected (pre-EIP-155) signature.
func (c *Client) SignLegacy(tx *types.LegacyTx, chainID *big.Int) (*types.Transaction, error) {
	var signer types.Signer = types.HomesteadSigner{}
	if chainID != nil {
		signer = types.NewEIP155Signer(chainID)
	}
	signed, err := types.SignTx(types.NewTx(tx), signer, c.privateKey)
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}
	return signed, nil
}

// Broadcast sends a signed transaction to the provider.
func (c *Client) Broadcast(ctx context.Context, tx *types.Transaction) error {
	if err := c.backend.SendTransaction(ctx, tx); err != nil {
		return &RPCError{Op: "send transaction", Err: err}
	}
	return nil
}

// WaitMined polls for the receipt of hash until it is found or ctx ends.
// Callers bound the wait through ctx.
func (c *Client) WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, geth.NotFound) {
			return nil, &RPCError{Op: "get receipt", Err: err}
		}
		log.Debug().Str("tx", hash.Hex()).Msg("Receipt not yet available")

		select {
		case <-ctx.Done():
			return nil, &RPCError{Op: "wait for receipt", Err: ctx.Err()}
		case <-ticker.C:
		}
	}
}
