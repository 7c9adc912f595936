package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/kjannette/trahn-wallet/internal/chain"
	"github.com/kjannette/trahn-wallet/internal/external"
	"github.com/kjannette/trahn-wallet/internal/portfolio"
	"github.com/spf13/cobra"
)

func (c *cli) newBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance [address]",
		Short: "Show token balances and their USD value",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			addr := a.client.WalletAddress()
			if len(args) == 1 {
				addr, err = chain.ParseAddress(args[0])
				if err != nil {
					return err
				}
			}

			report, err := a.aggregator().Report(cmd.Context(), addr)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Address: %s (%s)\n", report.Address.Hex(), a.profile.Name)
			fmt.Fprintln(w, "TOKEN\tBALANCE\tRATE\tUSD")
			for _, e := range report.Entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Symbol, e.Balance.String(), e.Rate.String(), e.USDValue.StringFixed(2))
			}
			fmt.Fprintf(w, "TOTAL\t\t\t%s\n", report.TotalUSD().StringFixed(2))
			return w.Flush()
		},
	}
}

func (c *cli) newPricesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prices",
		Short: "Show the USD rate of every token on the active profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			profile, registry, err := loadChain(c.cfg)
			if err != nil {
				return err
			}
			agg := portfolio.NewAggregator(profile, registry, nil, external.NewTickerClient(c.cfg.TickerBaseURL))
			quotes, err := agg.Rates(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TOKEN\tTICKER\tUSD")
			for _, q := range quotes {
				fmt.Fprintf(w, "%s\t%s\t%s\n", q.Symbol, q.Ticker, q.Price.String())
			}
			return w.Flush()
		},
	}
}
