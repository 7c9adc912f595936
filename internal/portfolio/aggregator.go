package portfolio

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/kjannette/trahn-wallet/internal/chain"
	"github.com/kjannette/trahn-wallet/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// All tokens are scaled by 18 decimals. Tokens with other decimals misreport.
const tokenDecimals = 18

// BalanceReader reads on-chain balances. *ethereum.Client satisfies it.
type BalanceReader interface {
	NativeBalance(ctx context.Context, account common.Address) (*big.Int, error)
	TokenBalance(ctx context.Context, token common.Address, tokenABI abi.ABI, owner common.Address) (*big.Int, error)
}

// PriceOracle quotes a USD rate for a ticker. *external.TickerClient satisfies it.
type PriceOracle interface {
	Price(ctx context.Context, ticker string) (decimal.Decimal, error)
}

// QuoteRecorder journals the quotes a report was built from.
type QuoteRecorder interface {
	Record(ctx context.Context, q *models.PriceQuote) (*models.PriceQuote, error)
}

type Valuation struct {
	Symbol   string
	Ticker   string
	Wei      *big.Int
	Balance  decimal.Decimal
	Rate     decimal.Decimal
	USDValue decimal.Decimal
}

// BalanceReport has one entry per registry token, in registry order.
type BalanceReport struct {
	Address common.Address
	Entries []Valuation
}

func (r *BalanceReport) Entry(symbol string) (Valuation, bool) {
	for _, e := range r.Entries {
		if e.Symbol == symbol {
			return e, true
		}
	}
	return Valuation{}, false
}

func (r *BalanceReport) TotalUSD() decimal.Decimal {
	total := decimal.Zero
	for _, e := range r.Entries {
		total = total.Add(e.USDValue)
	}
	return total
}

// Quote is one token's USD rate.
type Quote struct {
	Symbol string
	Ticker string
	Price  decimal.Decimal
}

type Aggregator struct {
	profile  *chain.Profile
	registry *chain.Registry
	balances BalanceReader
	oracle   PriceOracle
	recorder QuoteRecorder
}

func NewAggregator(profile *chain.Profile, registry *chain.Registry, balances BalanceReader, oracle PriceOracle) *Aggregator {
	return &Aggregator{profile: profile, registry: registry, balances: balances, oracle: oracle}
}

// WithRecorder journals every quote the aggregator obtains.
func (a *Aggregator) WithRecorder(r QuoteRecorder) *Aggregator {
	a.recorder = r
	return a
}

// Report reads every token balance for address, then prices each token. Any
// failure aborts the whole report; there is no partial result and no
// fallback rate.
func (a *Aggregator) Report(ctx context.Context, address common.Address) (*BalanceReport, error) {
	tokens := a.registry.Tokens()
	report := &BalanceReport{Address: address, Entries: make([]Valuation, 0, len(tokens))}

	for _, t := range tokens {
		wei, err := a.balanceOf(ctx, t, address)
		if err != nil {
			return nil, fmt.Errorf("balance of %s: %w", t.Symbol, err)
		}
		report.Entries = append(report.Entries, Valuation{
			Symbol:  t.Symbol,
			Ticker:  a.profile.TickerSymbol(t.Symbol),
			Wei:     wei,
			Balance: decimal.NewFromBigInt(wei, -tokenDecimals),
		})
	}

	for i := range report.Entries {
		e := &report.Entries[i]
		rate, err := a.quote(ctx, e.Symbol, e.Ticker)
		if err != nil {
			return nil, err
		}
		e.Rate = rate
		e.USDValue = e.Balance.Mul(rate)
	}

	log.Debug().Str("address", address.Hex()).Int("tokens", len(report.Entries)).Msg("Balance report built")
	return report, nil
}

// Rates quotes every registry token without reading balances.
func (a *Aggregator) Rates(ctx context.Context) ([]Quote, error) {
	tokens := a.registry.Tokens()
	out := make([]Quote, 0, len(tokens))
	for _, t := range tokens {
		ticker := a.profile.TickerSymbol(t.Symbol)
		rate, err := a.quote(ctx, t.Symbol, ticker)
		if err != nil {
			return nil, err
		}
		out = append(out, Quote{Symbol: t.Symbol, Ticker: ticker, Price: rate})
	}
	return out, nil
}

func (a *Aggregator) balanceOf(ctx context.Context, t chain.Token, owner common.Address) (*big.Int, error) {
	if t.Native {
		return a.balances.NativeBalance(ctx, owner)
	}
	return a.balances.TokenBalance(ctx, t.Address, t.ABI, owner)
}

func (a *Aggregator) quote(ctx context.Context, symbol, ticker string) (decimal.Decimal, error) {
	rate, err := a.oracle.Price(ctx, ticker)
	if err != nil {
		return decimal.Zero, err
	}
	if a.recorder != nil {
		q := &models.PriceQuote{
			Timestamp: time.Now(),
			Symbol:    symbol,
			Ticker:    ticker,
			Price:     rate.String(),
			Source:    "ticker",
		}
		if _, err := a.recorder.Record(ctx, q); err != nil {
			log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to journal quote")
		}
	}
	return rate, nil
}
