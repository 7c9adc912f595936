package main

import (
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kjannette/trahn-wallet/internal/chain"
	"github.com/kjannette/trahn-wallet/internal/wallet"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

const unitDecimals = 18

func (c *cli) newSendCmd() *cobra.Command {
	var units bool
	cmd := &cobra.Command{
		Use:   "send <token> <to> <amount>",
		Short: "Transfer the native token or an ERC-20 token",
		Long: `Transfer the native token or an ERC-20 token and wait for the receipt.
The amount is in the smallest unit unless --units is given.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := chain.ParseAddress(args[1])
			if err != nil {
				return fmt.Errorf("invalid recipient: %w", err)
			}
			amount, err := parseAmount(args[2], units)
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.walletService().Transfer(cmd.Context(), wallet.Transfer{
				Token:  args[0],
				To:     to,
				Amount: amount,
			})
			printResult(cmd.OutOrStdout(), a.profile, res)
			return err
		},
	}
	cmd.Flags().BoolVar(&units, "units", false, "amount is a decimal number of whole tokens (18 decimals)")
	return cmd
}

func (c *cli) newSwapCmd() *cobra.Command {
	var units bool
	cmd := &cobra.Command{
		Use:   "swap <from> <to> <amount>",
		Short: "Swap tokens through the profile's Uniswap-V2 router",
		Long: `Swap an exact input amount. ERC-20 sources are approved for the router
first; the approval receipt is awaited before the swap is sent. On the
Polygon test network the native token can only be wrapped.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[2], units)
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			sr, err := a.walletService().Swap(cmd.Context(), wallet.Swap{From: args[0], To: args[1], Amount: amount})
			if sr != nil {
				printResult(cmd.OutOrStdout(), a.profile, sr.Approval)
				printResult(cmd.OutOrStdout(), a.profile, sr.Swap)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&units, "units", false, "amount is a decimal number of whole tokens (18 decimals)")
	return cmd
}

// parseAmount reads an integer amount of the smallest unit, or with units a
// decimal amount scaled by 10^18.
func parseAmount(s string, units bool) (*big.Int, error) {
	if !units {
		v, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("invalid amount %q: want an integer number of the smallest unit", s)
		}
		return v, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	scaled := d.Shift(unitDecimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("invalid amount %q: more than %d decimal places", s, unitDecimals)
	}
	return scaled.BigInt(), nil
}

func printResult(w io.Writer, p *chain.Profile, res *wallet.Result) {
	if res == nil || res.TxHash == (common.Hash{}) {
		return
	}
	fmt.Fprintf(w, "%s\n", res.Label)
	fmt.Fprintf(w, "  tx:       %s\n", res.TxHash.Hex())
	fmt.Fprintf(w, "  status:   %s\n", res.Stage)
	if res.Receipt != nil && res.Receipt.BlockNumber != nil {
		fmt.Fprintf(w, "  block:    %d (gas used %d)\n", res.Receipt.BlockNumber.Uint64(), res.Receipt.GasUsed)
	}
	fmt.Fprintf(w, "  explorer: %s\n", p.ExplorerURL(res.TxHash.Hex()))
}
