package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kjannette/trahn-wallet/internal/chain"
	"github.com/kjannette/trahn-wallet/internal/config"
	"github.com/kjannette/trahn-wallet/internal/db"
	"github.com/kjannette/trahn-wallet/internal/ethereum"
	"github.com/kjannette/trahn-wallet/internal/external"
	"github.com/kjannette/trahn-wallet/internal/notifications"
	"github.com/kjannette/trahn-wallet/internal/portfolio"
	"github.com/kjannette/trahn-wallet/internal/repository"
	"github.com/kjannette/trahn-wallet/internal/wallet"
	"github.com/rs/zerolog/log"
)

// app holds everything a chain command needs. It is built once per command.
type app struct {
	cfg      *config.Config
	profile  *chain.Profile
	registry *chain.Registry
	client   *ethereum.Client
	pool     *pgxpool.Pool
}

// loadChain resolves the profile and reads the ABI documents. Both failures
// are fatal configuration errors.
func loadChain(cfg *config.Config) (*chain.Profile, *chain.Registry, error) {
	profile, err := chain.Lookup(cfg.ChainProfile)
	if err != nil {
		return nil, nil, config.Errorf(err, "CHAIN_PROFILE")
	}
	profile = profile.WithPriceSymbols(cfg.PriceSymbols)
	if cfg.PinChainID != nil {
		profile = profile.WithPinnedChainID(*cfg.PinChainID)
	}

	registry, err := chain.LoadRegistry(profile, cfg.ABIDir)
	if err != nil {
		return nil, nil, err
	}
	return profile, registry, nil
}

// openApp validates key material, loads the registry, dials the provider and,
// when configured, opens the journal.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	profile, registry, err := loadChain(cfg)
	if err != nil {
		return nil, err
	}

	client, err := ethereum.Dial(cfg.Provider, cfg.PrivateKey, cfg.ReceiptPollInterval)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("profile", profile.Name).Str("wallet", client.WalletAddress().Hex()).Msg("Connected to provider")

	a := &app{cfg: cfg, profile: profile, registry: registry, client: client}
	a.pool = openJournal(ctx, cfg)
	return a, nil
}

// openJournal returns nil when no database is configured or reachable. The
// journal never blocks a wallet operation.
func openJournal(ctx context.Context, cfg *config.Config) *pgxpool.Pool {
	if !cfg.JournalEnabled() {
		return nil
	}
	pool, err := db.Connect(ctx, cfg.DSN())
	if err != nil {
		log.Warn().Err(err).Msg("Journal database unavailable, continuing without it")
		return nil
	}
	if err := db.TestConnection(ctx, pool); err != nil {
		log.Warn().Err(err).Msg("Journal database query failed, continuing without it")
		pool.Close()
		return nil
	}
	if err := db.EnsureSchema(ctx, pool); err != nil {
		log.Warn().Err(err).Msg("Journal schema unavailable, continuing without it")
		pool.Close()
		return nil
	}
	return pool
}

func (a *app) Close() {
	a.client.Close()
	if a.pool != nil {
		a.pool.Close()
	}
}

func (a *app) walletService() *wallet.Service {
	opts := wallet.Options{ReceiptTimeout: a.cfg.ReceiptTimeout}
	if a.pool != nil {
		opts.Journal = repository.NewTxRepo(a.pool)
	}
	if a.cfg.WebhookURL != "" {
		opts.Notifier = notifications.NewSender(a.cfg.WebhookURL, a.cfg.BotName)
	}
	return wallet.NewService(a.profile, a.registry, a.client, opts)
}

func (a *app) aggregator() *portfolio.Aggregator {
	agg := portfolio.NewAggregator(a.profile, a.registry, a.client, external.NewTickerClient(a.cfg.TickerBaseURL))
	if a.pool != nil {
		agg.WithRecorder(repository.NewQuoteRepo(a.pool))
	}
	return agg
}
