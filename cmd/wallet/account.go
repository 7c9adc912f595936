package main

import (
	"fmt"

	"github.com/kjannette/trahn-wallet/internal/account"
	"github.com/spf13/cobra"
)

func (c *cli) newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Account helpers",
	}

	var noMnemonic bool
	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Generate a new key pair",
		Long: `Generate a new key pair. By default the key is derived from a fresh
12-word BIP-39 mnemonic at m/44'/60'/0'/0/0. Nothing is written to disk.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kp, err := account.Generate(!noMnemonic)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Address:     %s\n", kp.Address.Hex())
			fmt.Fprintf(out, "Private key: %s\n", kp.PrivateKey)
			if kp.Mnemonic != "" {
				fmt.Fprintf(out, "Mnemonic:    %s\n", kp.Mnemonic)
			}
			return nil
		},
	}
	newCmd.Flags().BoolVar(&noMnemonic, "no-mnemonic", false, "generate a random key without a mnemonic")

	cmd.AddCommand(newCmd)
	return cmd
}
