package main

import (
	"github.com/kjannette/trahn-wallet/internal/config"
	"github.com/kjannette/trahn-wallet/internal/logging"
	"github.com/spf13/cobra"
)

type cli struct {
	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "wallet",
		Short: "EVM wallet: balances, transfers and Uniswap-V2 swaps",
		Long: `Single-key EVM wallet for mainnet and the Polygon test network.

Key material and provider come from PUBLIC_KEY, PRIVATE_KEY and PROVIDER
(environment or .env). CHAIN_PROFILE selects mainnet or polygon-testnet.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := logging.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
				return err
			}
			c.cfg = cfg
			return nil
		},
	}

	root.AddCommand(
		c.newAccountCmd(),
		c.newConfigCmd(),
		c.newBalanceCmd(),
		c.newPricesCmd(),
		c.newSendCmd(),
		c.newSwapCmd(),
	)
	return root
}

func (c *cli) newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Validate the environment and print a summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.cfg.Validate(); err != nil {
				return err
			}
			c.cfg.Print()
			return nil
		},
	}
}
