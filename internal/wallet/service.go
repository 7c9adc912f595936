package wallet

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/kjannette/trahn-wallet/internal/chain"
	"github.com/kjannette/trahn-wallet/internal/ethereum"
	"github.com/kjannette/trahn-wallet/internal/models"
	"github.com/rs/zerolog/log"
)

// Stage is a submission's position in Built -> Signed -> Broadcast ->
// PendingReceipt -> Mined. There is no recovery state.
type Stage string

const (
	StageBuilt          Stage = "built"
	StageSigned         Stage = "signed"
	StageBroadcast      Stage = "broadcast"
	StagePendingReceipt Stage = "pending-receipt"
	StageMined          Stage = "mined"
)

// Chain is everything the service needs from the chain client.
// *ethereum.Client satisfies it.
type Chain interface {
	ChainState
	SignLegacy(tx *types.LegacyTx, chainID *big.Int) (*types.Transaction, error)
	Broadcast(ctx context.Context, tx *types.Transaction) error
	WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// Journal records submissions that reached the network.
type Journal interface {
	RecordSubmission(ctx context.Context, s *models.Submission) (*models.Submission, error)
}

// Notifier announces mined transactions.
type Notifier interface {
	Send(msg string)
}

// Result is the terminal artifact of one submission.
type Result struct {
	Label   string
	Stage   Stage
	Tx      *UnsignedTransaction
	TxHash  common.Hash
	Mined   bool
	Receipt *types.Receipt
}

// SwapResult holds the optional approval and the swap itself.
type SwapResult struct {
	Plan     *SwapPlan
	Approval *Result
	Swap     *Result
}

type Options struct {
	// ReceiptTimeout bounds each receipt wait. Zero waits indefinitely.
	ReceiptTimeout time.Duration
	Journal        Journal
	Notifier       Notifier
}

// Service executes intents one at a time: build, sign, broadcast and block
// until the receipt is mined. Concurrent use from the same key races on the
// nonce and is not supported.
type Service struct {
	profile *chain.Profile
	builder *Builder
	chain   Chain
	opts    Options
}

func NewService(profile *chain.Profile, registry *chain.Registry, c Chain, opts Options) *Service {
	return &Service{
		profile: profile,
		builder: NewBuilder(profile, registry, c),
		chain:   c,
		opts:    opts,
	}
}

func (s *Service) Builder() *Builder { return s.builder }

// Execute dispatches an intent and returns its submissions in order.
func (s *Service) Execute(ctx context.Context, in Intent) ([]*Result, error) {
	switch v := in.(type) {
	case Transfer:
		r, err := s.Transfer(ctx, v)
		if err != nil {
			return nil, err
		}
		return []*Result{r}, nil
	case Swap:
		sr, err := s.Swap(ctx, v)
		if err != nil {
			return nil, err
		}
		out := make([]*Result, 0, 2)
		if sr.Approval != nil {
			out = append(out, sr.Approval)
		}
		return append(out, sr.Swap), nil
	default:
		return nil, fmt.Errorf("unsupported intent %T", in)
	}
}

// Transfer sends native value or ERC-20 tokens.
func (s *Service) Transfer(ctx context.Context, t Transfer) (*Result, error) {
	tx, err := s.builder.Transfer(ctx, t)
	if err != nil {
		return nil, err
	}
	label := fmt.Sprintf("transfer %s %s to %s", t.Amount, t.Token, t.To.Hex())
	return s.submit(ctx, label, tx)
}

// Swap resolves the pair, approves the router when the source is an ERC-20
// token and waits for that receipt, then builds, signs and sends a separate
// swap transaction.
func (s *Service) Swap(ctx context.Context, sw Swap) (*SwapResult, error) {
	plan, err := s.builder.PlanSwap(ctx, sw)
	if err != nil {
		return nil, err
	}
	out := &SwapResult{Plan: plan}

	if plan.NeedsApproval() {
		approveTx, err := s.builder.Approval(ctx, plan.From, s.profile.RouterAddress, plan.Amount)
		if err != nil {
			return out, err
		}
		out.Approval, err = s.submit(ctx, fmt.Sprintf("approve router for %s %s", plan.Amount, plan.From.Symbol), approveTx)
		if err != nil {
			return out, fmt.Errorf("approval: %w", err)
		}
	}

	swapTx, err := s.builder.SwapCall(ctx, plan)
	if err != nil {
		return out, err
	}
	out.Swap, err = s.submit(ctx, fmt.Sprintf("swap %s %s for %s via %s", plan.Amount, plan.From.Symbol, plan.To.Symbol, plan.Route), swapTx)
	if err != nil {
		return out, fmt.Errorf("swap: %w", err)
	}
	return out, nil
}

func (s *Service) submit(ctx context.Context, label string, tx *UnsignedTransaction) (*Result, error) {
	res := &Result{Label: label, Stage: StageBuilt, Tx: tx}
	logger := log.With().Str("op", label).Uint64("nonce", tx.Nonce).Logger()

	signed, err := s.chain.SignLegacy(tx.LegacyTx(), tx.ChainID)
	if err != nil {
		return res, err
	}
	res.Stage = StageSigned
	res.TxHash = signed.Hash()
	logger = logger.With().Str("tx", res.TxHash.Hex()).Logger()

	if err := s.chain.Broadcast(ctx, signed); err != nil {
		return res, err
	}
	res.Stage = StageBroadcast
	logger.Info().Str("explorer", s.profile.ExplorerURL(res.TxHash.Hex())).Msg("Transaction broadcast")

	waitCtx := ctx
	if s.opts.ReceiptTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.opts.ReceiptTimeout)
		defer cancel()
	}
	res.Stage = StagePendingReceipt
	receipt, err := s.chain.WaitMined(waitCtx, res.TxHash)
	if err != nil {
		s.record(ctx, res, models.StatusFailed, err)
		return res, err
	}
	res.Stage = StageMined
	res.Mined = true
	res.Receipt = receipt

	if receipt.Status == types.ReceiptStatusFailed {
		err := &ethereum.RPCError{Op: "receipt", Err: ErrReverted}
		logger.Error().Uint64("block", receipt.BlockNumber.Uint64()).Msg("Transaction reverted")
		s.record(ctx, res, models.StatusReverted, err)
		return res, err
	}

	logger.Info().Uint64("block", receipt.BlockNumber.Uint64()).Uint64("gasUsed", receipt.GasUsed).Msg("Transaction mined")
	s.record(ctx, res, models.StatusMined, nil)
	if s.opts.Notifier != nil {
		s.opts.Notifier.Send(fmt.Sprintf("%s mined in block %d: %s", label, receipt.BlockNumber.Uint64(), s.profile.ExplorerURL(res.TxHash.Hex())))
	}
	return res, nil
}

// record writes to the journal. Journal failures never fail the submission.
func (s *Service) record(ctx context.Context, res *Result, status string, cause error) {
	if s.opts.Journal == nil {
		return
	}
	sub := &models.Submission{
		Timestamp:   time.Now(),
		Chain:       s.profile.Name,
		Kind:        string(res.Tx.Kind),
		Label:       res.Label,
		TxHash:      res.TxHash.Hex(),
		FromAddress: s.chain.WalletAddress().Hex(),
		ToAddress:   res.Tx.To.Hex(),
		Value:       res.Tx.Value.String(),
		Nonce:       res.Tx.Nonce,
		Gas:         res.Tx.Gas,
		GasPrice:    res.Tx.GasPrice.String(),
		Status:      status,
	}
	if res.Receipt != nil && res.Receipt.BlockNumber != nil {
		n := res.Receipt.BlockNumber.Int64()
		sub.BlockNumber = &n
	}
	if cause != nil {
		msg := cause.Error()
		sub.Error = &msg
	}

	// The caller's context may already be done after a receipt timeout.
	jctx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		jctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	if _, err := s.opts.Journal.RecordSubmission(jctx, sub); err != nil {
		log.Warn().Err(err).Str("tx", sub.TxHash).Msg("Failed to journal submission")
	}
}
